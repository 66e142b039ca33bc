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

package controller

import (
	"context"
	"sync"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	crcontroller "sigs.k8s.io/controller-runtime/pkg/controller"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	threadrelayv1alpha1 "github.com/mikelane/threadrelay/api/v1alpha1"
	"github.com/mikelane/threadrelay/internal/binding"
)

// RepositoryBindingReconciler reconciles a RepositoryBinding object
type RepositoryBindingReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Table    *binding.Table
	Recorder record.EventRecorder

	mu sync.Mutex
	// loaded remembers which repository each resource put into the table,
	// so deletions and renames can be undone without the old object.
	loaded map[types.NamespacedName]string
}

// +kubebuilder:rbac:groups=threadrelay.mikelane.io,resources=repositorybindings,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=threadrelay.mikelane.io,resources=repositorybindings/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// Reconcile is part of the main kubernetes reconciliation loop which aims to
// move the current state of the cluster closer to the desired state.
//
// For more details, check Reconcile and its Result here:
// - https://pkg.go.dev/sigs.k8s.io/controller-runtime@v0.22.4/pkg/reconcile
func (r *RepositoryBindingReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	var rb threadrelayv1alpha1.RepositoryBinding
	if err := r.Get(ctx, req.NamespacedName, &rb); err != nil {
		if client.IgnoreNotFound(err) == nil {
			r.unload(ctx, req.NamespacedName)
		}
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	if !rb.DeletionTimestamp.IsZero() {
		r.unload(ctx, req.NamespacedName)
		return ctrl.Result{}, nil
	}

	if err := binding.Validate(rb.Spec.Repository, rb.Spec.ChannelID); err != nil {
		log.Info("Invalid repository binding", "repository", rb.Spec.Repository, "reason", err.Error())
		r.unload(ctx, req.NamespacedName)
		return ctrl.Result{}, r.setStatus(ctx, &rb, threadrelayv1alpha1.PhaseInvalid, err.Error(), corev1.EventTypeWarning, "InvalidBinding")
	}

	r.mu.Lock()
	if r.loaded == nil {
		r.loaded = make(map[types.NamespacedName]string)
	}
	previous, had := r.loaded[req.NamespacedName]
	r.loaded[req.NamespacedName] = rb.Spec.Repository
	r.mu.Unlock()

	if had && previous != rb.Spec.Repository {
		r.Table.Delete(previous)
		log.Info("Repository binding moved", "from", previous, "to", rb.Spec.Repository)
	}
	if err := r.Table.Set(rb.Spec.Repository, rb.Spec.ChannelID); err != nil {
		return ctrl.Result{}, err
	}

	message := "Routing " + rb.Spec.Repository + " to channel " + rb.Spec.ChannelID
	if err := r.setStatus(ctx, &rb, threadrelayv1alpha1.PhaseActive, message, corev1.EventTypeNormal, "Bound"); err != nil {
		log.Error(err, "Failed to update repository binding status")
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, nil
}

// SetupWithManager sets up the controller with the Manager.
func (r *RepositoryBindingReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&threadrelayv1alpha1.RepositoryBinding{}).
		Named("repositorybinding").
		WithOptions(controllerOptions()).
		Complete(r)
}

// controllerOptions keeps the controller running on every replica. Each
// replica serves webhooks from its own routing table, so followers must
// observe bindings too.
func controllerOptions() crcontroller.Options {
	return crcontroller.Options{NeedLeaderElection: ptr.To(false)}
}

func (r *RepositoryBindingReconciler) unload(ctx context.Context, name types.NamespacedName) {
	r.mu.Lock()
	repository, ok := r.loaded[name]
	delete(r.loaded, name)
	r.mu.Unlock()

	if ok && r.Table.Delete(repository) {
		logf.FromContext(ctx).Info("Removed repository binding", "repository", repository)
	}
}

// setStatus records phase and message when they changed and emits an
// event for the transition.
func (r *RepositoryBindingReconciler) setStatus(ctx context.Context, rb *threadrelayv1alpha1.RepositoryBinding, phase, message, eventType, reason string) error {
	if rb.Status.Phase == phase && rb.Status.Message == message && rb.Status.ObservedGeneration == rb.Generation {
		return nil
	}

	rb.Status.Phase = phase
	rb.Status.Message = message
	rb.Status.ObservedGeneration = rb.Generation
	if err := r.Status().Update(ctx, rb); err != nil {
		return err
	}

	if r.Recorder != nil {
		r.Recorder.Event(rb, eventType, reason, message)
	}
	logf.FromContext(ctx).Info("Updated repository binding status", "repository", rb.Spec.Repository, "phase", phase)
	return nil
}
