package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/catalog"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/config"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/logger"
)

type rootOptions struct {
	catalogFile string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "timetable",
		Short:         "Weekly course timetable generator",
		Long:          "Assigns every weekly session of every subject to a day, block and room\nusing a genetic search refined by conflict-directed local search.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.catalogFile, "catalog", "c", "", "catalog file (yaml, json or toml); the built-in sample when empty")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log search internals to stderr")

	cmd.AddCommand(newSolveCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newSampleCmd())
	cmd.AddCommand(newTokenCmd())
	return cmd
}

// loadCatalog builds the catalog named by --catalog.
func (o *rootOptions) loadCatalog() (*catalog.Resolved, error) {
	if o.catalogFile == "" {
		return catalog.Build(catalog.Sample())
	}
	payload, err := catalog.LoadFile(o.catalogFile)
	if err != nil {
		return nil, err
	}
	return catalog.Build(payload)
}

func (o *rootOptions) logger(cfg *config.Config) (*zap.Logger, error) {
	if !o.verbose {
		return zap.NewNop(), nil
	}
	cfg.Log.Format = "console"
	return logger.New(cfg)
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
