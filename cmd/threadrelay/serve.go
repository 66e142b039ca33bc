// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	threadrelayv1alpha1 "github.com/mikelane/threadrelay/api/v1alpha1"
	"github.com/mikelane/threadrelay/internal/binding"
	"github.com/mikelane/threadrelay/internal/config"
	"github.com/mikelane/threadrelay/internal/controller"
	"github.com/mikelane/threadrelay/internal/discord"
	prsync "github.com/mikelane/threadrelay/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive webhooks and relay them to Discord",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.ValidateServe(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx := log.IntoContext(ctrl.SetupSignalHandler(), ctrl.Log.WithName("threadrelay"))
		if cfg.Kubernetes.Enabled {
			return serveWithManager(ctx, cfg)
		}
		return serve(ctx, cfg)
	},
}

// runnable is a long-running component. It matches manager.Runnable.
type runnable interface {
	Start(ctx context.Context) error
}

func components(r *relay) []runnable {
	return []runnable{
		r.queue,
		r.webhookServer(),
		discord.NewConnection(r.session, r.commands()),
		prsync.NewScheduler(r.syncer, r.cfg.Sync.Interval, r.cfg.Sync.OnStartup),
	}
}

// serve runs every component in one errgroup. The first failure stops
// the rest.
func serve(ctx context.Context, cfg *config.Config) error {
	r, err := newRelay(cfg, nil, nil)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range components(r) {
		g.Go(func() error {
			return c.Start(ctx)
		})
	}
	return g.Wait()
}

// serveWithManager runs the components under a controller-runtime manager
// that also reconciles RepositoryBinding resources into the routing table.
func serveWithManager(ctx context.Context, cfg *config.Config) error {
	logger := log.FromContext(ctx)
	ns := cfg.Kubernetes.Namespace

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme:                  newScheme(),
		Metrics:                 metricsserver.Options{BindAddress: cfg.Kubernetes.MetricsAddress},
		HealthProbeBindAddress:  cfg.Kubernetes.ProbeAddress,
		LeaderElection:          cfg.Kubernetes.LeaderElection,
		LeaderElectionID:        "threadrelay.mikelane.io",
		LeaderElectionNamespace: ns,
		Cache: cache.Options{
			DefaultNamespaces: map[string]cache.Config{ns: {}},
		},
	})
	if err != nil {
		return fmt.Errorf("unable to create manager: %w", err)
	}

	r, err := newRelay(cfg, binding.NewStore(mgr.GetClient(), ns), nil)
	if err != nil {
		return err
	}

	if err := (&controller.RepositoryBindingReconciler{
		Client:   mgr.GetClient(),
		Scheme:   mgr.GetScheme(),
		Table:    r.table,
		Recorder: mgr.GetEventRecorderFor("threadrelay"),
	}).SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to create RepositoryBinding controller: %w", err)
	}
	for _, c := range components(r) {
		if err := mgr.Add(c); err != nil {
			return fmt.Errorf("unable to add component: %w", err)
		}
	}
	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	logger.Info("Starting manager", "namespace", ns)
	return mgr.Start(ctx)
}

func newScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(threadrelayv1alpha1.AddToScheme(scheme))
	return scheme
}
