package ocs

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TopologyRepository stores and retrieves adjacency snapshots.
type TopologyRepository interface {
	GetLatestAdjacencyList(ctx context.Context) (map[string][]string, error)
	SaveAdjacencyList(ctx context.Context, adjacency map[string][]string) error
}

// MongoRepository persists adjacency snapshots in a MongoDB collection,
// newest first by timestamp.
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

const adjacencyCollection = "workload_adjacency"

// NewMongoRepository connects using MONGODB_URI and MONGODB_DB_NAME.
func NewMongoRepository(ctx context.Context) (*MongoRepository, error) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGODB_DB_NAME")
	if dbName == "" {
		dbName = "ocs"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoRepository{
		client:     client,
		collection: client.Database(dbName).Collection(adjacencyCollection),
	}, nil
}

// GetLatestAdjacencyList returns the most recent snapshot, or an empty
// map when none has been collected yet.
func (r *MongoRepository) GetLatestAdjacencyList(ctx context.Context) (map[string][]string, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	var doc AdjacencyDocument
	err := r.collection.FindOne(ctx, bson.D{}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load adjacency list: %w", err)
	}
	return doc.AdjacencyList, nil
}

// SaveAdjacencyList stores a snapshot with collection counters.
func (r *MongoRepository) SaveAdjacencyList(ctx context.Context, adjacency map[string][]string) error {
	total := 0
	for _, destinations := range adjacency {
		total += len(destinations)
	}

	doc := AdjacencyDocument{
		AdjacencyList:    adjacency,
		Timestamp:        time.Now().UTC(),
		SourceCount:      len(adjacency),
		TotalConnections: total,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to save adjacency list: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
