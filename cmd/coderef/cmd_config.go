package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/martinemde/coderef/config"
	"github.com/martinemde/coderef/context7"
)

var verifyKey bool

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the coderef config file",
	}

	setKeyCmd := &cobra.Command{
		Use:   "set-key KEY",
		Short: "Store a Context7 API key",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetKey,
	}
	setKeyCmd.Flags().BoolVar(&verifyKey, "verify", false, "Check the key against the Context7 API before saving")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := configManager()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.Path())
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runShowConfig,
	}

	cmd.AddCommand(setKeyCmd, pathCmd, showCmd)
	return cmd
}

func configManager() (*config.Manager, error) {
	path := os.Getenv("CODEREF_CONFIG")
	if path == "" {
		path = config.DefaultPath()
	}
	return config.NewManager(path)
}

func runSetKey(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !config.ValidateKeyFormat(key) {
		return config.ErrInvalidKeyFormat
	}

	if verifyKey {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), context7.DefaultTimeout)
		defer cancel()
		c := context7.NewClient(key, context7.WithBaseURL(cfg.Context7APIURL), context7.WithLogger(logger))
		if !c.ValidateAPIKey(ctx) {
			return errors.New("invalid API key. Get a key at https://context7.com/dashboard")
		}
	}

	m, err := configManager()
	if err != nil {
		return err
	}
	if err := m.SetContext7APIKey(key); err != nil {
		return err
	}
	newPrinter(cmd.OutOrStdout()).Info("Saved Context7 API key to " + m.Path())
	return nil
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	source := "unset"
	switch {
	case os.Getenv("CONTEXT7_API_KEY") != "":
		source = "environment"
	case cfg.Context7APIKey != "":
		source = "config file"
	}
	providerKey, envVar := cfg.ProviderAPIKey()
	providerKeyState := "set"
	if providerKey == "" {
		providerKeyState = "missing"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "provider:          %s (%s %s)\n", cfg.Provider, envVar, providerKeyState)
	fmt.Fprintf(out, "model:             %s\n", cfg.EffectiveModel())
	fmt.Fprintf(out, "max tokens:        %d\n", cfg.MaxTokens)
	fmt.Fprintf(out, "timeout:           %s\n", cfg.Timeout)
	fmt.Fprintf(out, "web search uses:   %d\n", cfg.WebSearchMaxUses)
	fmt.Fprintf(out, "context7 mcp:      %s\n", cfg.Context7MCPURL)
	fmt.Fprintf(out, "context7 api:      %s\n", cfg.Context7APIURL)
	fmt.Fprintf(out, "context7 key:      %s (%s)\n", config.MaskKey(cfg.Context7APIKey), source)
	fmt.Fprintf(out, "config file:       %s\n", cfg.ConfigPath)
	return nil
}
