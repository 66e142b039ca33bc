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

package binding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	threadrelayv1alpha1 "github.com/mikelane/threadrelay/api/v1alpha1"
)

// LabelRepository carries the sanitized repository name on stored
// bindings.
const LabelRepository = "threadrelay.mikelane.io/repository"

// Store persists bindings as RepositoryBinding resources in one namespace.
type Store struct {
	client    client.Client
	namespace string
}

// NewStore creates a Store over k8sClient.
func NewStore(k8sClient client.Client, namespace string) *Store {
	return &Store{client: k8sClient, namespace: namespace}
}

// Put creates or updates the binding for repository.
func (s *Store) Put(ctx context.Context, repository, channelID string) error {
	if err := Validate(repository, channelID); err != nil {
		return err
	}

	rb := &threadrelayv1alpha1.RepositoryBinding{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ObjectName(repository),
			Namespace: s.namespace,
		},
	}
	op, err := controllerutil.CreateOrUpdate(ctx, s.client, rb, func() error {
		if rb.Labels == nil {
			rb.Labels = map[string]string{}
		}
		rb.Labels[LabelRepository] = sanitizeLabel(repository)
		rb.Spec.Repository = repository
		rb.Spec.ChannelID = channelID
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store binding for %s: %w", repository, err)
	}

	log.FromContext(ctx).Info("Stored repository binding", "repository", repository, "channel", channelID, "operation", op)
	return nil
}

// Delete removes the binding for repository. Deleting a missing binding
// is not an error.
func (s *Store) Delete(ctx context.Context, repository string) error {
	rb := &threadrelayv1alpha1.RepositoryBinding{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ObjectName(repository),
			Namespace: s.namespace,
		},
	}
	if err := s.client.Delete(ctx, rb); err != nil {
		if client.IgnoreNotFound(err) == nil {
			log.FromContext(ctx).Info("Repository binding not found (already deleted)", "repository", repository)
			return nil
		}
		return fmt.Errorf("failed to delete binding for %s: %w", repository, err)
	}

	log.FromContext(ctx).Info("Deleted repository binding", "repository", repository)
	return nil
}

// List returns every stored binding.
func (s *Store) List(ctx context.Context) ([]Binding, error) {
	var list threadrelayv1alpha1.RepositoryBindingList
	if err := s.client.List(ctx, &list, client.InNamespace(s.namespace)); err != nil {
		return nil, fmt.Errorf("failed to list repository bindings: %w", err)
	}
	out := make([]Binding, 0, len(list.Items))
	for _, rb := range list.Items {
		out = append(out, Binding{Repository: rb.Spec.Repository, ChannelID: rb.Spec.ChannelID})
	}
	return out, nil
}

// ObjectName derives a stable resource name for repository. A hash suffix
// keeps names that sanitize identically ("a-b/c", "a/b-c") apart.
func ObjectName(repository string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(repository))) //nolint:errcheck,gosec
	suffix := fmt.Sprintf("%08x", h.Sum32())

	base := strings.Trim(sanitizeLabel(repository), "-.")
	if len(base) > 54 {
		base = strings.TrimRight(base[:54], "-.")
	}
	if base == "" {
		return "binding-" + suffix
	}
	return base + "-" + suffix
}

// sanitizeLabel converts a repository name to a valid Kubernetes label value
// Labels must be 63 characters or less and match [a-z0-9]([-a-z0-9]*[a-z0-9])?
func sanitizeLabel(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	if len(s) > 63 {
		s = s[:63]
	}
	return strings.Trim(s, "-")
}
