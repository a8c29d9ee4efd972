package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/panel/internal/providers"
	"github.com/dshills/panel/internal/review"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Analysis backend and model management",
}

type modelInfo struct {
	Provider string
	Models   []string
}

var knownModels = []modelInfo{
	{
		Provider: "anthropic",
		Models:   []string{"claude-sonnet-4-20250514", "claude-opus-4-1", "claude-haiku-4-5"},
	},
	{
		Provider: "openai",
		Models:   []string{"gpt-4.1", "gpt-4.1-mini", "o3-mini"},
	},
	{
		Provider: "gemini",
		Models:   []string{"gemini-2.5-flash", "gemini-2.5-pro"},
	},
	{
		Provider: "ollama",
		Models:   []string{"qwen2.5-coder", "llama3.3", "deepseek-coder-v2"},
	},
	{
		// Lyzr routes by agent id; the model is chosen on the agent.
		Provider: "lyzr",
		Models:   []string{"(per agent)"},
	},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known backends and models",
	Run: func(cmd *cobra.Command, args []string) {
		for _, info := range knownModels {
			fmt.Fprintf(os.Stdout, "%s:\n", info.Provider)
			for _, m := range info.Models {
				fmt.Fprintf(os.Stdout, "  - %s\n", m)
			}
			fmt.Fprintln(os.Stdout)
		}
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate backend credentials with a single call",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Checking %s...\n", cfg.Provider)

		p, err := providers.New(cfg.Provider, providers.Options{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			UserID:  cfg.Lyzr.UserID,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}

		agents, err := agentIDs(cfg.Lyzr.Agents)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		_, err = p.Review(ctx, providers.Request{
			SystemPrompt: "Respond with exactly: ok",
			UserPrompt:   "ping",
			MaxTokens:    10,
			Agent:        agents[review.CategoryLogic],
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			if providers.IsAuthError(err) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			return nil
		}
		fmt.Fprintf(os.Stdout, "OK: %s is configured and responding\n", p.Name())
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	modelsDoctorCmd.Flags().StringVar(&flagProvider, "provider", "", "Backend to check")
	modelsDoctorCmd.Flags().StringVar(&flagModel, "model", "", "Model to check")
}
