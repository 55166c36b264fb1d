// Command coderef answers programming questions with short, working code
// examples grounded in Context7 documentation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/martinemde/coderef/agent"
	"github.com/martinemde/coderef/config"
	"github.com/martinemde/coderef/context7"
	"github.com/martinemde/coderef/render"
	"github.com/martinemde/coderef/unifiedllm"
)

var (
	// Global flags
	verbose bool

	// Query flags
	maxTokens    int
	modelName    string
	providerName string

	// Logger
	logger *zap.Logger

	// printerOptions is overridden in tests to pin the Markdown style.
	printerOptions []render.Option
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coderef QUESTION",
		Short: "Get succinct code examples for programming questions",
		Long: `coderef asks an LLM for a minimal, working code example. The model looks
up documentation through Context7 and falls back to web search; only the
final answer is printed.

Examples:
  coderef "modern C++ fold_left"
  coderef "Rust iterators filter map"
  coderef "Python asyncio gather"`,
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initLogger,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: runQuery,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().IntVarP(&maxTokens, "tokens", "t", agent.DefaultMaxTokens, "Max response tokens")
	rootCmd.Flags().StringVar(&modelName, "model", "", "Model ID or alias (default from CODEREF_MODEL)")
	rootCmd.Flags().StringVar(&providerName, "provider", "", "LLM provider: anthropic or openai (default from CODEREF_PROVIDER)")

	rootCmd.AddCommand(newDocsCmd(), newResolveCmd(), newConfigCmd(), newModelsCmd())
	return rootCmd
}

func initLogger(cmd *cobra.Command, args []string) error {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if providerName != "" {
		cfg.Provider = strings.ToLower(strings.TrimSpace(providerName))
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if cmd.Flags().Changed("tokens") {
		cfg.MaxTokens = maxTokens
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	a := agent.New(client, agent.Options{
		Model:            cfg.EffectiveModel(),
		MaxTokens:        cfg.MaxTokens,
		Context7MCPURL:   cfg.Context7MCPURL,
		Context7APIKey:   cfg.Context7APIKey,
		WebSearchMaxUses: cfg.WebSearchMaxUses,
	}, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	text, err := a.Query(ctx, args[0])
	if err != nil {
		return err
	}
	newPrinter(cmd.OutOrStdout()).Markdown(text)
	return nil
}

func newPrinter(w io.Writer) *render.Printer {
	return render.NewPrinter(w, printerOptions...)
}

// reportError prints err with a prefix chosen by its type.
func reportError(p *render.Printer, err error) {
	if pe, ok := unifiedllm.AsProviderError(err); ok {
		p.APIError(pe.Error())
	} else {
		p.Error(sentence(err.Error()))
	}

	var authErr *context7.AuthError
	switch {
	case errors.As(err, &authErr):
		p.Info("Store a key with: coderef config set-key KEY")
	case unifiedllm.IsTransient(err):
		p.Info("The service may be temporarily unavailable. Try again later.")
	}
}

// sentence upper-cases the first letter of an error message for display.
func sentence(msg string) string {
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

func run(args []string, out io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	if err := cmd.ExecuteContext(ctx); err != nil {
		reportError(newPrinter(out), err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}
