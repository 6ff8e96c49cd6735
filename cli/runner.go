// Command execution for CLI commands.
//
// Information Hiding:
// - Command dispatch logic hidden
// - Engine and registry setup hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sodafoundation/contexture/config"
	"github.com/sodafoundation/contexture/llm"
	"github.com/sodafoundation/contexture/ocs"
	"github.com/sodafoundation/contexture/storage"
	"github.com/sodafoundation/contexture/tools"
	"github.com/sodafoundation/contexture/workflow"
)

// Options holds CLI execution options.
type Options struct {
	Provider  string
	Model     string
	Instances string
	Verbose   bool
}

// createProvider builds the completion provider from flags and settings.
// The flag value wins over LLM_PROVIDER; either falls back to local Ollama.
func createProvider(settings config.Settings, opts Options) (llm.Provider, error) {
	name := opts.Provider
	if name == "" {
		name = settings.LLM.Provider
	}
	providerType, err := llm.ParseProviderType(name)
	if err != nil {
		return nil, err
	}

	builder := llm.NewProviderBuilder(providerType).
		MaxTokens(uint32(settings.LLM.MaxTokens)).
		Temperature(float32(settings.LLM.Temperature))
	model := opts.Model
	if model == "" {
		model = settings.LLM.Model
	}
	if model != "" {
		builder = builder.Model(model)
	}
	if settings.LLM.BaseURL != "" {
		builder = builder.BaseURL(settings.LLM.BaseURL)
	}
	return builder.FromEnv()
}

// buildRegistry wires the monitoring tools against the configured
// Prometheus instances. Without a config file a single instance from
// PROMETHEUS_URL (default localhost) is used.
func buildRegistry(opts Options) (*tools.Registry, error) {
	var instances []config.PrometheusInstance
	if opts.Instances != "" {
		loaded, err := config.LoadInstances(opts.Instances)
		if err != nil {
			return nil, err
		}
		instances = loaded
	} else {
		baseURL := os.Getenv("PROMETHEUS_URL")
		if baseURL == "" {
			baseURL = "http://localhost:9090"
		}
		instances = []config.PrometheusInstance{{Name: "default", BaseURL: baseURL}}
	}

	clients := make([]*tools.PromClient, 0, len(instances))
	for _, instance := range instances {
		clients = append(clients, tools.NewPromClient(
			instance.Name, instance.BaseURL, instance.Headers, instance.Timeout))
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterMonitoringTools(registry, tools.NewPromPool(clients...)); err != nil {
		return nil, err
	}
	return registry, nil
}

// buildRunner assembles the workflow engine from settings and flags.
func buildRunner(settings config.Settings, opts Options) (*workflow.Runner, *tools.Registry, error) {
	provider, err := createProvider(settings, opts)
	if err != nil {
		return nil, nil, err
	}
	registry, err := buildRegistry(opts)
	if err != nil {
		return nil, nil, err
	}

	runner := workflow.NewRunner(workflow.Config{
		Client:      llm.NewClient(provider, settings.LLM.Timeout),
		Registry:    registry,
		ContextSpec: ocs.NewClient(settings.OCS.BaseURL, settings.OCS.Timeout),
		MinSteps:    settings.Workflow.MinSteps,
		MaxSteps:    settings.Workflow.MaxSteps,
		StepTimeout: settings.Workflow.StepTimeout,
	})
	return runner, registry, nil
}

// workflowEngine is the slice of the runner the shell drives.
type workflowEngine interface {
	Run(ctx context.Context, query string, chunks chan<- string) (workflow.RunResult, error)
}

// streamChunks drains summary chunks to out as they arrive.
func streamChunks(chunks <-chan string, out io.Writer, done chan<- struct{}) {
	for chunk := range chunks {
		fmt.Fprint(out, chunk)
	}
	close(done)
}

// executeTurn runs one query and prints the streamed summary.
// The returned summary is empty when the run aborted.
func executeTurn(ctx context.Context, engine workflowEngine, query string, out io.Writer, verbose bool) (workflow.RunResult, error) {
	chunks := make(chan string)
	done := make(chan struct{})
	go streamChunks(chunks, out, done)

	result, err := engine.Run(ctx, query, chunks)
	close(chunks)
	<-done
	fmt.Fprintln(out)

	if err != nil {
		return workflow.RunResult{}, err
	}
	if verbose {
		fmt.Fprintf(out, "\nPlan:\n%s\nTrace:\n%s\n", result.Plan, result.Trace)
	}
	return result, nil
}

// RunOnce executes a single query and exits.
func RunOnce(ctx context.Context, query string, opts Options) error {
	settings, err := config.New()
	if err != nil {
		return err
	}
	runner, _, err := buildRunner(settings, opts)
	if err != nil {
		return err
	}

	if _, err := executeTurn(ctx, runner, query, os.Stdout, opts.Verbose); err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}
	return nil
}

// Chat starts the interactive shell. Each answered query folds its
// summary into the conversational context carried to later turns;
// aborted runs contribute nothing. With a session ID the context is
// persisted in SQLite and restored on the next start.
func Chat(ctx context.Context, sessionID, dbPath string, opts Options) error {
	settings, err := config.New()
	if err != nil {
		return err
	}
	runner, _, err := buildRunner(settings, opts)
	if err != nil {
		return err
	}

	var store storage.ContextStorage
	if sessionID != "" {
		sqlite, err := storage.OpenSqlite(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer sqlite.Close()
		store = sqlite
	} else {
		sessionID = "default"
		store = storage.NewInMemoryStorage()
	}

	return runShell(ctx, os.Stdin, os.Stdout, os.Stderr, runner, store, sessionID, opts.Verbose)
}

// runShell drives the interactive loop. The conversational context is
// the concatenation of past summaries and nothing else: queries, plans
// and traces never enter it.
func runShell(ctx context.Context, in io.Reader, out, errOut io.Writer, engine workflowEngine, store storage.ContextStorage, sessionID string, verbose bool) error {
	contextText, err := store.LoadContext(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if contextText != "" {
		fmt.Fprintf(out, "Resuming session '%s'\n\n", sessionID)
	}

	fmt.Fprintln(out, "Ask operational questions. Type 'exit' to quit, 'clear' to reset context.")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if input == "clear" {
			contextText = ""
			if err := store.SaveContext(ctx, sessionID, ""); err != nil {
				fmt.Fprintf(errOut, "Warning: failed to clear session: %v\n", err)
			}
			fmt.Fprintln(out, "Context cleared.")
			continue
		}

		result, err := executeTurn(ctx, engine, contextText+input, out, verbose)
		if err != nil {
			// An aborted run leaves the conversational context untouched.
			if errors.Is(err, workflow.ErrServiceUnavailable) {
				fmt.Fprintf(errOut, "\nError: service unavailable: %v\n\n", err)
			} else {
				fmt.Fprintf(errOut, "\nError: %v\n\n", err)
			}
			continue
		}

		contextText += result.Summary
		if err := store.SaveContext(ctx, sessionID, contextText); err != nil {
			fmt.Fprintf(errOut, "Warning: failed to save session: %v\n", err)
		}
		if err := store.AppendTurn(ctx, sessionID, storage.Turn{Query: input, Summary: result.Summary}); err != nil {
			fmt.Fprintf(errOut, "Warning: failed to record turn: %v\n", err)
		}
		fmt.Fprintln(out)
	}

	return scanner.Err()
}

// ListTools prints the registered tool catalog.
func ListTools(opts Options) error {
	registry, err := buildRegistry(opts)
	if err != nil {
		return err
	}
	fmt.Println("Available tools:")
	fmt.Println()
	for _, meta := range registry.List() {
		fmt.Printf("  %s\n      %s\n", meta.Signature(), meta.Description)
	}
	return nil
}

// ServeOCS starts the context specification provider service.
func ServeOCS(ctx context.Context, configPath string) error {
	cfg, err := ocs.LoadConfig(configPath)
	if err != nil {
		return err
	}

	repository, err := ocs.NewMongoRepository(ctx)
	if err != nil {
		return err
	}
	defer repository.Close(ctx)

	prometheusURL := os.Getenv("PROMETHEUS_URL")
	if prometheusURL == "" {
		prometheusURL = "http://localhost:9090"
	}
	collector := ocs.NewMeshConnector(prometheusURL)

	return ocs.NewServer(cfg, repository, collector).Run()
}
