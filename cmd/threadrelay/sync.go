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
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/threadrelay/internal/binding"
	"github.com/mikelane/threadrelay/internal/config"
	prsync "github.com/mikelane/threadrelay/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync [owner/name]",
	Short: "Create missing threads for open pull requests and exit",
	Long: `Sync lists the open pull requests of one repository, or of every
configured and bound repository, and creates a Discord thread for each pull
request that has none. Running it again creates nothing new.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx := log.IntoContext(ctrl.SetupSignalHandler(), ctrl.Log.WithName("threadrelay"))

		var store *binding.Store
		if cfg.Kubernetes.Enabled {
			restConfig, err := ctrl.GetConfig()
			if err != nil {
				return fmt.Errorf("failed to load kubeconfig: %w", err)
			}
			k8sClient, err := client.New(restConfig, client.Options{Scheme: newScheme()})
			if err != nil {
				return fmt.Errorf("failed to create kubernetes client: %w", err)
			}
			store = binding.NewStore(k8sClient, cfg.Kubernetes.Namespace)
		}

		r, err := newRelay(cfg, store, nil)
		if err != nil {
			return err
		}
		return runSync(ctx, r, args, cmd.OutOrStdout())
	},
}

// runSync loads stored bindings, runs the dispatch queue for the duration
// of the sync and prints one line per repository.
func runSync(ctx context.Context, r *relay, args []string, out io.Writer) error {
	if n, err := r.bindings.Load(ctx); err != nil {
		return fmt.Errorf("failed to load bindings: %w", err)
	} else if n > 0 {
		log.FromContext(ctx).Info("Loaded stored bindings", "count", n)
	}

	queueCtx, stop := context.WithCancel(ctx)
	g, queueCtx := errgroup.WithContext(queueCtx)
	g.Go(func() error {
		return r.queue.Start(queueCtx)
	})

	var reports []prsync.Report
	var syncErr error
	if len(args) == 1 {
		var report prsync.Report
		report, syncErr = r.syncer.SyncRepository(ctx, args[0])
		reports = append(reports, report)
	} else {
		reports, syncErr = r.syncer.SyncAll(ctx)
	}

	stop()
	if err := g.Wait(); err != nil {
		syncErr = errors.Join(syncErr, err)
	}

	if len(reports) == 0 && syncErr == nil {
		fmt.Fprintln(out, "No repositories to sync.")
	}
	for _, report := range reports {
		fmt.Fprintln(out, report.String())
	}
	return syncErr
}
