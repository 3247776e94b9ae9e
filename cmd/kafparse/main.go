// Command kafparse reads a tokenized KAF document on stdin and writes its
// constituency parse to stdout, as bracketed trees or as the document with
// a constituency layer added.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cognicore/kafparse/internal/diag"
	"github.com/cognicore/kafparse/pkg/kafparse"
	"github.com/cognicore/kafparse/pkg/kafparse/config"
	"github.com/cognicore/kafparse/pkg/kafparse/internalerr"
	"github.com/cognicore/kafparse/pkg/kafparse/store"
	"github.com/cognicore/kafparse/pkg/kafparse/store/sqlite"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
	exitInput   = 3
	exitAborted = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and maps the outcome to an exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout)
	root.AddCommand(newModelsCmd())
	root.AddCommand(newServeCmd())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "kafparse: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, internalerr.ErrInvalidConfig):
		return exitConfig
	case errors.Is(err, internalerr.ErrInvalidInput):
		return exitInput
	case internalerr.IsSentenceError(err):
		return exitAborted
	default:
		return exitFailure
	}
}

type rootFlags struct {
	configPath string
	kaf        bool
	format     string
	heads      string
	lang       string
	model      string
	cache      string
	workers    int
	maxLength  int
	failFast   bool
	verbose    int
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "kafparse",
		Short: "Constituency parsing for KAF documents",
		Long: `Parse every sentence of a tokenized KAF document read from stdin.

By default one bracketed tree per sentence is written to stdout. With --kaf
the input document is written back with a constituency layer added.
Diagnostics go to stderr.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			diag.Configure(f.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			log := diag.Logger("")

			var cache store.Cache
			if cfg.Cache != "" {
				c, err := sqlite.OpenSQLite(cmd.Context(), cfg.Cache)
				if err != nil {
					log.Warningf("parse cache disabled: %v", err)
				} else {
					cache = c
					defer c.Close()
				}
			}

			res, err := kafparse.Process(cmd.Context(), cfg, stdin, stdout, kafparse.Options{
				Cache:  cache,
				Logger: log,
			})
			if err != nil {
				return err
			}
			if len(res.Skipped) > 0 {
				log.Warningf("%d of %d sentences skipped", len(res.Skipped), res.Sentences)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML configuration file; flags override its values")
	fl.BoolVarP(&f.kaf, "kaf", "k", false, "write the input document with a constituency layer")
	fl.StringVarP(&f.format, "outputFormat", "o", "oneline", "tree notation: oneline or penn")
	fl.StringVarP(&f.heads, "heads", "g", "", "mark heads with the given policy (collins or sem)")
	fl.StringVarP(&f.lang, "lang", "l", "", "language code; defaults to the document's xml:lang")
	fl.StringVarP(&f.model, "model", "m", "", "model name or path to a YAML model file")
	fl.StringVar(&f.cache, "cache", "", "SQLite parse cache file")
	fl.IntVar(&f.workers, "workers", 1, "sentences parsed concurrently")
	fl.IntVar(&f.maxLength, "max-length", config.Default().MaxLength, "longest sentence given a full parse (-1: no limit)")
	fl.BoolVar(&f.failFast, "fail-fast", false, "abort the document on the first failed sentence")
	cmd.PersistentFlags().CountVarP(&f.verbose, "verbose", "v", "more diagnostics (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("kaf", "outputFormat")

	return cmd
}

// config builds the processing configuration: defaults, then the optional
// file, then every flag given on the command line.
func (f *rootFlags) config(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("kaf") {
		cfg.KAF = f.kaf
	}
	if changed("outputFormat") {
		cfg.Format = f.format
	}
	if changed("heads") {
		cfg.MarkHeads = true
		cfg.HeadPolicy = f.heads
	}
	if changed("lang") {
		cfg.Language = f.lang
	}
	if changed("model") {
		cfg.Model = f.model
	}
	if changed("cache") {
		cfg.Cache = f.cache
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("max-length") {
		cfg.MaxLength = f.maxLength
	}
	if changed("fail-fast") {
		cfg.FailFast = f.failFast
	}
	return cfg, cfg.Validate()
}
