// Package main is the entidexctl command: bulk import, export, search and
// index setup against the store an entidex server is configured for.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entidex/internal/config"
	logpkg "github.com/kailas-cloud/entidex/internal/logger"
	"github.com/kailas-cloud/entidex/internal/version"
	entidex "github.com/kailas-cloud/entidex/pkg/sdk"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	kind       string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:     "entidexctl",
		Short:   "Operate an entidex store from the command line",
		Version: version.String(),
		Long: `entidexctl opens the store described by an entidex configuration file and
imports, exports or searches its entities directly, without a running server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (default: config/$ENV.yaml)")
	root.PersistentFlags().StringVarP(&opts.kind, "kind", "k", "",
		"entity kind (default: the configured default kind)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "debug, info, warn or error")

	root.AddCommand(
		newImportCmd(opts),
		newExportCmd(opts),
		newSearchCmd(opts),
		newInitCmd(opts),
	)
	return root
}

// open loads the configuration and connects the SDK client. The returned
// kind is the --kind flag or the configured default.
func (o *rootOptions) open(ctx context.Context) (*entidex.Client, string, *zap.Logger, error) {
	path := o.configPath
	if path == "" {
		path = config.Path(config.GetEnv())
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, "", nil, err
	}

	logger, err := logpkg.NewLogger(config.GetEnv(), o.logLevel)
	if err != nil {
		return nil, "", nil, err
	}

	client, err := entidex.New(ctx, entidex.WithConfigFile(path), entidex.WithLogger(logger))
	if err != nil {
		_ = logger.Sync()
		return nil, "", nil, err
	}

	kind := o.kind
	if kind == "" {
		kind = cfg.HTTP.DefaultKind
	}
	return client, kind, logger, nil
}
