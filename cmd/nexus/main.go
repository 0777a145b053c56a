// Package main provides the CLI entry point for the nexus agent runtime.
//
// nexus is a core agent loop for multi-provider LLM tool use: a dialect
// parser that recovers tool calls from whatever format a model actually
// emitted, a tool registry/executor, a sandboxed file_read tool, and a
// resilient provider wrapper with circuit breaking, retries, and
// model-hint routing across configured LLM backends.
//
// # Basic usage
//
//	nexus chat "list the files in this repo"
//	nexus tools
//	nexus quota
//	nexus route "quick question" --model gpt-4o-mini
//
// # Environment variables
//
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
//   - OPENAI_API_KEY: OpenAI API key for GPT models
//   - GOOGLE_API_KEY: Google AI Studio key for Gemini models
//   - AWS_REGION (plus AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY/AWS_SESSION_TOKEN,
//     or the default AWS credential chain): enables the Bedrock provider
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("nexus command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nexus",
		Short:         "Multi-provider LLM agent runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(buildChatCmd())
	root.AddCommand(buildToolsCmd())
	root.AddCommand(buildQuotaCmd())
	root.AddCommand(buildRouteCmd())
	root.AddCommand(buildVersionCmd())

	return root
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the nexus version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("nexus (dev build)")
			return nil
		},
	}
}
