package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexuscore/agent-runtime/internal/agent"
	"github.com/nexuscore/agent-runtime/internal/agent/providers/quota"
	"github.com/nexuscore/agent-runtime/internal/toolcalls"
	"github.com/nexuscore/agent-runtime/pkg/models"
)

func buildChatCmd() *cobra.Command {
	var workspace string
	var model string
	var system string

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a single-turn prompt through the resilient, tool-using agent loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), workspace, model, system, args[0])
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", ".", "workspace root the file_read tool is sandboxed to")
	cmd.Flags().StringVar(&model, "model", "", "model name; empty uses each provider's default")
	cmd.Flags().StringVar(&system, "system", "You are a helpful assistant with access to tools.", "system prompt")
	return cmd
}

func runChat(ctx context.Context, workspace, model, system, prompt string) error {
	rt, err := buildRuntime(workspace, nil)
	if err != nil {
		return err
	}

	req := &agent.CompletionRequest{
		Model:  model,
		System: system,
		Messages: []agent.CompletionMessage{
			{Role: "user", Content: prompt},
		},
		Tools: rt.registry.AsLLMTools(),
	}

	reply, err := rt.resilient.ChatWithTools(ctx, req)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}

	calls := reply.ToolCalls
	if len(calls) == 0 {
		// Provider doesn't speak native tool calls (or chose not to): fall
		// back to dialect-parsing the free text for an embedded tool call.
		residual, parsed, issue := toolcalls.ParseToolCalls(reply.Content)
		if issue != nil {
			slog.Warn("tool call parse issue", "error", issue)
		}
		for _, c := range parsed {
			calls = append(calls, models.ToolCall{ID: c.ToolCallID, Name: c.Name, Input: c.Arguments})
		}
		reply.Content = residual
	}

	if strings.TrimSpace(reply.Content) != "" {
		fmt.Println(reply.Content)
	}

	for _, call := range calls {
		result, execErr := rt.registry.Execute(ctx, call.Name, call.Input)
		if execErr != nil {
			fmt.Printf("[%s] error: %v\n", call.Name, execErr)
			continue
		}
		label := "ok"
		if result.IsError {
			label = "error"
		}
		fmt.Printf("[%s %s] %s\n", call.Name, label, result.Content)
	}

	return nil
}

func buildToolsCmd() *cobra.Command {
	var workspace string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools registered with the agent runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(workspace, nil)
			if err != nil {
				return err
			}
			for _, name := range rt.registry.Names() {
				tool, _ := rt.registry.Get(name)
				fmt.Printf("%s: %s\n", tool.Name(), tool.Description())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", ".", "workspace root the file_read tool is sandboxed to")
	return cmd
}

func buildQuotaCmd() *cobra.Command {
	var workspace string
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Print circuit-breaker/rate-limit status for every configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(workspace, nil)
			if err != nil {
				return err
			}
			summary := quota.BuildSummary(rt.resilient.Health(), rt.resilient.ProviderNames())
			payload, err := json.MarshalIndent(struct {
				quota.Summary
				Usage map[string]*quota.UsageMetrics `json:"usage"`
			}{Summary: summary, Usage: rt.usage}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", ".", "workspace root the file_read tool is sandboxed to")
	return cmd
}

func buildRouteCmd() *cobra.Command {
	var workspace string
	var model string
	cmd := &cobra.Command{
		Use:   "route [prompt]",
		Short: "Route a single-turn prompt through the model-hint/rule router and print the streamed reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(workspace, nil)
			if err != nil {
				return err
			}
			req := &agent.CompletionRequest{
				Model: model,
				Messages: []agent.CompletionMessage{
					{Role: "user", Content: args[0]},
				},
			}
			chunks, err := rt.router.Complete(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("route: %w", err)
			}
			var out strings.Builder
			for chunk := range chunks {
				if chunk.Error != nil {
					return chunk.Error
				}
				out.WriteString(chunk.Text)
			}
			fmt.Println(out.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", ".", "workspace root the file_read tool is sandboxed to")
	cmd.Flags().StringVar(&model, "model", "", "requested model; the router matches it against configured model-hint routes")
	return cmd
}
