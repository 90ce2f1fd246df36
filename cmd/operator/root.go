// Package main is the operator entrypoint: a cobra root command with
// "server" and "crd" subcommands (spec §6, grounded on the Rust original's
// run()/crd() split in lib.rs).
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rustfs-operator",
		Short: "Manages the lifecycle of rustfs Tenant storage clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServerCmd())
	cmd.AddCommand(newCRDCmd())
	return cmd
}

func execute(ctx context.Context) {
	logger := zap.New()
	ctrl.SetLogger(logger)
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Error(err, "command execution failed")
		os.Exit(1)
	}
}

func main() {
	execute(context.Background())
}
