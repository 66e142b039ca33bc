// Copyright 2025 The Threadrelay Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/threadrelay/internal/event"
	"github.com/mikelane/threadrelay/internal/projection"
)

// Defaults applied by NewServer for zero Options fields.
const (
	DefaultAckTimeout = 60 * time.Second
	DefaultDedupTTL   = time.Hour
	DefaultDedupSize  = 4096
)

// Submitter queues a classified event for projection.
type Submitter interface {
	SubmitEvent(ctx context.Context, ev *event.Event) (<-chan projection.Result, error)
}

// Options configures a Server.
type Options struct {
	// Ready reports readiness for /readyz. Nil means always ready.
	Ready      func() bool
	Address    string
	Secret     string
	Port       int
	AckTimeout time.Duration
	DedupTTL   time.Duration
	DedupSize  int
}

// Server handles GitHub webhook requests
type Server struct {
	classifier *event.Classifier
	queue      Submitter
	seen       *expirable.LRU[string, struct{}]
	server     *http.Server
	opts       Options
}

// NewServer creates a new webhook server
func NewServer(opts Options, classifier *event.Classifier, queue Submitter) *Server {
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = DefaultDedupTTL
	}
	if opts.DedupSize <= 0 {
		opts.DedupSize = DefaultDedupSize
	}
	return &Server{
		classifier: classifier,
		queue:      queue,
		seen:       expirable.NewLRU[string, struct{}](opts.DedupSize, nil, opts.DedupTTL),
		opts:       opts,
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	return mux
}

// Start starts the webhook server
func (s *Server) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("webhook")

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.opts.Address, s.opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return log.IntoContext(context.Background(), logger)
		},
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting webhook server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(log.IntoContext(shutdownCtx, logger))
	case err := <-errChan:
		return err
	}
}

// NeedLeaderElection reports that every replica serves webhooks.
func (s *Server) NeedLeaderElection() bool {
	return false
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.FromContext(ctx).Info("Shutting down webhook server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles liveness probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK")) //nolint:errcheck,gosec
}

// handleReady handles readiness probes
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil && !s.opts.Ready() {
		http.Error(w, "Not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK")) //nolint:errcheck,gosec
}

// handleWebhook handles GitHub webhook requests
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	// Only accept POST requests
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Read body
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		logger.Error(err, "Failed to read request body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close() //nolint:errcheck

	env := newEnvelope(payload, r.Header)

	// Validate signature
	if err := VerifySignature(env.Payload, env.Signature, s.opts.Secret); err != nil {
		logger.Info("Rejected webhook delivery", "reason", err.Error(), "event", env.Event)
		if errors.Is(err, ErrMissingSignature) {
			http.Error(w, "Missing signature", http.StatusBadRequest)
			return
		}
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	deliveryID := env.DeliveryID
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	logger = logger.WithValues("deliveryID", deliveryID, "event", env.Event)
	ctx := log.IntoContext(r.Context(), logger)

	if env.DeliveryID != "" && s.seen.Contains(env.DeliveryID) {
		logger.Info("Skipping redelivered webhook")
		w.WriteHeader(http.StatusOK)
		return
	}

	if env.Event == "ping" {
		logger.Info("Received ping")
		w.WriteHeader(http.StatusOK)
		return
	}

	ev := s.classifier.Classify(env.Payload)
	if ev.Kind == event.KindUnknown {
		logger.Info("Ignoring unclassified payload", "reason", ev.Reason, "excerpt", ev.Excerpt)
		w.WriteHeader(http.StatusOK)
		return
	}
	if !ev.Actionable() {
		logger.V(1).Info("Ignoring event", "kind", ev.Kind.String(), "repository", ev.Repository)
		w.WriteHeader(http.StatusOK)
		return
	}

	done, err := s.queue.SubmitEvent(ctx, ev)
	if err != nil {
		logger.Error(err, "Failed to queue event", "kind", ev.Kind.String(), "repository", ev.Repository)
		w.WriteHeader(http.StatusOK)
		return
	}
	// Only queued deliveries count as seen, so a redelivery can recover
	// an event that was dropped or failed.
	if env.DeliveryID != "" {
		s.seen.Add(env.DeliveryID, struct{}{})
	}

	timer := time.NewTimer(s.opts.AckTimeout)
	defer timer.Stop()
	select {
	case res := <-done:
		if res.Outcome == projection.OutcomeFailed && env.DeliveryID != "" {
			s.seen.Remove(env.DeliveryID)
		}
	case <-timer.C:
		logger.Info("Acknowledging before projection finished", "kind", ev.Kind.String(), "timeout", s.opts.AckTimeout)
	case <-r.Context().Done():
		logger.V(1).Info("Client went away before projection finished", "kind", ev.Kind.String())
	}
	w.WriteHeader(http.StatusOK)
}
