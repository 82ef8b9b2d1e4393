package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/migr8/migr8/internal/cache"
	"github.com/migr8/migr8/internal/config"
	"github.com/migr8/migr8/internal/migrate"
	"github.com/migr8/migr8/internal/report"
	"github.com/migr8/migr8/internal/rules"
	"github.com/migr8/migr8/internal/server"
)

func main() {
	// Log output goes to stderr, never stdout (serve mode uses stdout for JSON-RPC).
	log.SetOutput(os.Stderr)

	if err := newRootCmd().Execute(); err != nil {
		// Non-fatal errors were already accumulated into the report; only
		// a fatal error reaches here and aborts the run.
		fmt.Fprintf(os.Stderr, "migr8: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath       string
		root          string
		rulesPath     string
		exclude       []string
		applyMode     bool
		dryRun        bool
		concurrency   int
		memoryCeiling int
	)

	cmd := &cobra.Command{
		Use:   "migr8",
		Short: "Rule-driven migration of JSX/TSX component usages",
		Long: `migr8 scans a project tree, resolves every JSX/TSX component usage
through its import aliases and re-export chains, and rewrites prop usage
according to a declarative rule-set document. The default mode is a dry
run; pass --apply to write files (originals are snapshotted first).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun && applyMode {
				return report.Fatalf("--dry-run and --apply are mutually exclusive")
			}
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if root != "" {
				cfg.Root = root
			}
			if rulesPath != "" {
				cfg.Rules = rulesPath
			}
			if len(exclude) > 0 {
				cfg.Exclude = append(cfg.Exclude, exclude...)
			}
			if concurrency > 0 {
				cfg.Concurrency = concurrency
			}
			if memoryCeiling > 0 {
				cfg.MemoryCeilingMB = memoryCeiling
			}
			if cfg.Rules == "" {
				return report.Fatalf("no rule-set document given (use --rules or the config file)")
			}

			doc, err := rules.Load(cfg.Rules)
			if err != nil {
				return err
			}
			sets, setErrs := rules.Compile(doc)
			if len(sets) == 0 {
				return report.Fatalf("rule-set document %s declares no valid rule sets", cfg.Rules)
			}

			pc, err := cache.New(cfg.CacheSize, nil)
			if err != nil {
				return fmt.Errorf("creating parse cache: %w", err)
			}
			runner := &migrate.Runner{
				Config:   cfg,
				Sets:     sets,
				SetErrs:  setErrs,
				Cache:    pc,
				Reviewer: migrate.AutoConfirm{},
			}
			if applyMode {
				runner.Backup = migrate.NewDirBackup(filepath.Join(cfg.Root, cfg.Output.Dir, "backup"))
			}

			proj, err := runner.Run(cmd.Context(), applyMode)
			if err != nil {
				return err
			}
			if n := proj.ErrorCount(); n > 0 {
				log.Printf("[migr8] run completed with %d file-level errors (see report)", n)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "migr8.yaml", "path to the config file")
	cmd.Flags().StringVar(&root, "root", "", "project root to migrate (overrides config)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "path to the rule-set document (overrides config)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "additional exclude globs")
	cmd.Flags().BoolVar(&applyMode, "apply", false, "write changes to disk")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview changes without writing (the default mode)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "max files processed in parallel (overrides config)")
	cmd.Flags().IntVar(&memoryCeiling, "memory-ceiling-mb", 0, "heap ceiling in MB before backpressure kicks in (overrides config)")

	cmd.AddCommand(newServeCmd(&cfgPath))
	return cmd
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as an MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}

			pc, err := cache.New(cfg.CacheSize, nil)
			if err != nil {
				return fmt.Errorf("creating parse cache: %w", err)
			}
			srv, err := server.New(cfg, pc)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return srv.Run(context.Background())
		},
	}
}

// loadConfig falls back to defaults when the config file is absent, matching
// the dry-run-first posture: a missing config should never abort a scan.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if report.IsFatal(err) {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		return config.Default(), nil
	}
	return cfg, nil
}
