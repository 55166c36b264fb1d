package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martinemde/coderef/config"
	"github.com/martinemde/coderef/context7"
)

var (
	docsLibrary string
	docsTokens  int
	docsMCP     bool
)

var errNoContext7Key = errors.New("set CONTEXT7_API_KEY environment variable or run 'coderef config set-key KEY'")

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs QUESTION",
		Short: "Fetch Context7 documentation for a question",
		Long: `Fetches documentation straight from Context7 without asking an LLM.

Without --library, the library is detected from keywords in the question.

Examples:
  coderef docs "react useEffect cleanup"
  coderef docs --library /facebook/react "useEffect cleanup"
  coderef docs --mcp --library /facebook/react "useEffect cleanup"`,
		Args: cobra.ExactArgs(1),
		RunE: runDocs,
	}
	cmd.Flags().StringVar(&docsLibrary, "library", "", "Context7 library ID, e.g. /facebook/react")
	cmd.Flags().IntVar(&docsTokens, "tokens", context7.DefaultTokens, fmt.Sprintf("Documentation token budget (%d-%d)", context7.MinTokens, context7.MaxTokens))
	cmd.Flags().BoolVar(&docsMCP, "mcp", false, "Query the hosted Context7 MCP server instead of the REST API")
	return cmd
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve QUESTION",
		Short: "Show which Context7 library a question maps to",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}
}

func context7Client(cfg *config.Config) *context7.Client {
	return context7.NewClient(cfg.Context7APIKey,
		context7.WithBaseURL(cfg.Context7APIURL),
		context7.WithLogger(logger))
}

func runDocs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	question := args[0]
	p := newPrinter(cmd.OutOrStdout())

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	library := docsLibrary
	if library == "" {
		if cfg.Context7APIKey == "" {
			return errNoContext7Key
		}
		id, conf := context7.NewResolver(context7Client(cfg), logger).Resolve(ctx, question)
		if id != "" {
			p.Info(fmt.Sprintf("Using library %s (%s confidence)", id, context7.ConfidenceLevel(conf)))
		} else if docsMCP {
			return errors.New("could not detect a library from the question; pass --library")
		} else {
			p.Info("No library detected, searching all documentation")
		}
		library = id
	}

	if docsMCP {
		mcpClient := context7.NewMCPClient(cfg.Context7MCPURL, cfg.Context7APIKey, context7.WithMCPLogger(logger))
		text, err := mcpClient.QueryDocs(ctx, library, question)
		if err != nil {
			return err
		}
		p.Markdown(text)
		return nil
	}

	if cfg.Context7APIKey == "" {
		return errNoContext7Key
	}
	doc, err := context7Client(cfg).GetContext(ctx, library, question, docsTokens)
	if err != nil {
		return err
	}
	p.Markdown(doc.Context)
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Context7APIKey == "" {
		return errNoContext7Key
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	id, conf := context7.NewResolver(context7Client(cfg), logger).Resolve(ctx, args[0])
	if id == "" {
		newPrinter(cmd.OutOrStdout()).Info("No library detected")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f\t%s\n", id, conf, context7.ConfidenceLevel(conf))
	return nil
}
