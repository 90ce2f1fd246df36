package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/config"
	"github.com/rustfs/operator/internal/controller"
	"github.com/rustfs/operator/internal/platform"
)

type serverOptions struct {
	metricsAddr          string
	healthProbeAddr      string
	enableLeaderElection bool
}

func newServerCmd() *cobra.Command {
	opts := serverOptions{
		metricsAddr:     ":8080",
		healthProbeAddr: ":8081",
	}

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the Tenant reconciliation controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-bind-address", opts.metricsAddr, "address the metrics endpoint binds to")
	cmd.Flags().StringVar(&opts.healthProbeAddr, "health-probe-bind-address", opts.healthProbeAddr, "address the health probe endpoint binds to")
	cmd.Flags().BoolVar(&opts.enableLeaderElection, "leader-elect", false, "enable leader election for controller manager HA")

	return cmd
}

func runServer(ctx context.Context, opts serverOptions) error {
	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return fmt.Errorf("failed to add client-go types to scheme: %w", err)
	}
	if err := rustfsv1alpha1.AddToScheme(scheme); err != nil {
		return fmt.Errorf("failed to add rustfs types to scheme: %w", err)
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: opts.metricsAddr},
		HealthProbeBindAddress: opts.healthProbeAddr,
		LeaderElection:         opts.enableLeaderElection,
		LeaderElectionID:       config.OperatorName + "-leader",
	})
	if err != nil {
		return fmt.Errorf("failed to start manager: %w", err)
	}

	reconciler := &controller.TenantReconciler{
		Client: platform.New(mgr.GetClient(), mgr.GetEventRecorderFor(config.OperatorName)),
	}
	if err := reconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("failed to set up Tenant controller: %w", err)
	}

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("manager exited with error: %w", err)
	}
	return nil
}
