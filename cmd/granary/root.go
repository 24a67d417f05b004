package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/granary"
	"github.com/xraph/granary/seed"
	"github.com/xraph/granary/store/memory"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// options carries the persistent flags and the loaded configuration.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	seedPath   string
	tenant     string

	cfg *Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "granary",
		Short:         "Multi-tenant permission resolver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			// Flags override values from the file.
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = opts.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = opts.logFormat
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = opts.seedPath
			}
			if cmd.Flags().Changed("tenant") {
				cfg.Tenant = opts.tenant
			}
			opts.cfg = cfg
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&opts.seedPath, "seed", "", "YAML seed file loaded into the memory store")
	pf.StringVar(&opts.tenant, "tenant", "default", "Tenant the seed and queries apply to")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newResolveCmd(opts),
		newExpandGroupsCmd(opts),
	)
	return rootCmd
}

// tenantContext scopes ctx to the configured tenant.
func (o *options) tenantContext(ctx context.Context) context.Context {
	return granary.WithTenant(ctx, o.cfg.AppID, o.cfg.Tenant)
}

// seededStore returns a memory store loaded with the configured seed file.
func (o *options) seededStore(ctx context.Context) (*memory.Store, *seed.Result, error) {
	st := memory.New()
	if o.cfg.Seed == "" {
		return st, &seed.Result{}, nil
	}
	f, err := os.Open(o.cfg.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	eng, err := granary.NewEngine(granary.WithStore(st))
	if err != nil {
		return nil, nil, err
	}
	res, err := seed.Load(o.tenantContext(ctx), eng, f)
	if err != nil {
		return nil, nil, err
	}
	return st, res, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
