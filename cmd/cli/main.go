// Package main provides the ai-cli tool: run the LLM pipeline operations
// directly against the configured backend, without the HTTP server or the
// telemetry database.
//
// Run with: go run ./cmd/cli extract "Bought 100 AAPL at 185.50"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tradescribe/ai-service/internal/config"
	"github.com/tradescribe/ai-service/internal/llm"
	"github.com/tradescribe/ai-service/internal/model"
	"github.com/tradescribe/ai-service/internal/news"
	"github.com/tradescribe/ai-service/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ai-cli",
		Short: "Trading journal AI pipeline tools",
	}

	root.AddCommand(classifyCmd(), extractCmd(), analyzeCmd(), titleCmd())
	return root
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message>",
		Short: "Classify the intent of a journal message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, ai *service.AIService, client llm.Client) error {
				intent, err := client.ClassifyIntent(ctx, args[0])
				if err != nil {
					fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				}
				fmt.Println(intent)
				return nil
			})
		},
	}
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <message>",
		Short: "Extract a structured trade from a journal message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, ai *service.AIService, _ llm.Client) error {
				trade := ai.ExtractTrade(ctx, args[0])
				if trade == nil {
					fmt.Println("null")
					return nil
				}
				return printJSON(trade)
			})
		},
	}
}

func analyzeCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a trade list (JSON array from --file or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			trades, err := readTrades(file)
			if err != nil {
				return err
			}
			return withService(func(ctx context.Context, ai *service.AIService, _ llm.Client) error {
				return printJSON(ai.AnalyzeTrades(ctx, trades))
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to a JSON array of trades (default: stdin)")
	return cmd
}

func titleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "title <message>...",
		Short: "Generate a session title from user messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages := make([]model.ChatMessage, 0, len(args))
			for _, a := range args {
				messages = append(messages, model.ChatMessage{Role: model.RoleUser, Content: a})
			}
			return withService(func(ctx context.Context, ai *service.AIService, _ llm.Client) error {
				fmt.Println(ai.GenerateTitle(ctx, messages))
				return nil
			})
		},
	}
}

// withService builds the configured backend and runs fn with a context that
// cancels on Ctrl+C. The CLI skips the telemetry database.
func withService(fn func(context.Context, *service.AIService, llm.Client) error) error {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("AI_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	newsClient := news.NewClient(cfg.News.BaseURL, cfg.News.APIKey, logger)
	client, err := llm.New(cfg.LLM, newsClient, logger)
	if err != nil {
		return fmt.Errorf("selecting LLM backend: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return fn(ctx, service.NewAIService(client, nil, logger), client)
}

func readTrades(file string) ([]map[string]any, error) {
	var r io.Reader = os.Stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("opening trades file: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading trades: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var trades []map[string]any
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("parsing trades JSON: %w", err)
	}
	return trades, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
