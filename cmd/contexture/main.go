// Package main provides the contexture CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sodafoundation/contexture/cli"
)

var (
	// Global flags
	provider  string
	model     string
	instances string
	verbose   bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "contexture",
		Short: "Operational questions answered through monitoring tool workflows",
		Long: `Contexture turns natural-language operational questions into monitoring
tool call sequences: a completion model plans the calls, the engine
executes them against Prometheus, and a streamed narrative answers
the question. Summaries accumulate as conversational context across
turns.`,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "Completion provider (ollama, openai, anthropic, gemini)")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "Model override for the selected provider")
	rootCmd.PersistentFlags().StringVar(&instances, "instances", "", "Path to Prometheus instances YAML")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print the plan and trace after each run")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(ocsServerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:  provider,
		Model:     model,
		Instances: instances,
		Verbose:   verbose,
	}
}

func chatCmd() *cobra.Command {
	var sessionID string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive operational Q&A session",
		Long: `Start an interactive session. Each answered question folds its summary
into the conversational context used by later questions. Type 'clear'
to reset the context and 'exit' to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), sessionID, dbPath, options())
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID for context persistence")
	cmd.Flags().StringVar(&dbPath, "db", ".contexture/sessions.db", "Database path for session storage")

	return cmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [query]",
		Short: "Answer a single operational question and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunOnce(context.Background(), args[0], options())
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered monitoring tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(options())
		},
	}
}

func ocsServerCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ocs-server",
		Short: "Serve the operational context specification",
		Long: `Serve the context specification built from the configured metric
catalog, policy and the workload topology collected from mesh traffic.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ServeOCS(context.Background(), configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "ocs.yaml", "Path to the OCS service configuration")

	return cmd
}
