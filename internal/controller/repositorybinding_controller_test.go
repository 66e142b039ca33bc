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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	threadrelayv1alpha1 "github.com/mikelane/threadrelay/api/v1alpha1"
	"github.com/mikelane/threadrelay/internal/binding"
)

var _ = Describe("RepositoryBinding Controller", func() {
	const resourceName = "acme-widgets"

	typeNamespacedName := types.NamespacedName{
		Name:      resourceName,
		Namespace: "default",
	}

	var (
		k8sClient  client.Client
		table      *binding.Table
		recorder   *record.FakeRecorder
		reconciler *RepositoryBindingReconciler
	)

	newBinding := func(repository, channelID string) *threadrelayv1alpha1.RepositoryBinding {
		return &threadrelayv1alpha1.RepositoryBinding{
			ObjectMeta: metav1.ObjectMeta{
				Name:      resourceName,
				Namespace: "default",
			},
			Spec: threadrelayv1alpha1.RepositoryBindingSpec{
				Repository: repository,
				ChannelID:  channelID,
			},
		}
	}

	reconcileOnce := func() {
		_, err := reconciler.Reconcile(ctx, reconcile.Request{NamespacedName: typeNamespacedName})
		Expect(err).NotTo(HaveOccurred())
	}

	setup := func(objs ...client.Object) {
		k8sClient = newClient(objs...)
		var err error
		table, err = binding.NewTable("", nil)
		Expect(err).NotTo(HaveOccurred())
		recorder = record.NewFakeRecorder(10)
		reconciler = &RepositoryBindingReconciler{
			Client:   k8sClient,
			Scheme:   k8sClient.Scheme(),
			Table:    table,
			Recorder: recorder,
		}
	}

	Describe("Scenario: Reconcile a valid binding", func() {
		BeforeEach(func() {
			setup(newBinding("acme/widgets", "100"))
		})

		It("loads the binding into the routing table", func() {
			reconcileOnce()

			channel, ok := table.Route("acme/widgets")
			Expect(ok).To(BeTrue())
			Expect(channel).To(Equal("100"))
		})

		It("sets status.phase to Active", func() {
			reconcileOnce()

			updated := &threadrelayv1alpha1.RepositoryBinding{}
			Expect(k8sClient.Get(ctx, typeNamespacedName, updated)).To(Succeed())
			Expect(updated.Status.Phase).To(Equal(threadrelayv1alpha1.PhaseActive))
			Expect(updated.Status.Message).To(ContainSubstring("acme/widgets"))
			Expect(updated.Status.ObservedGeneration).To(Equal(updated.Generation))
		})

		It("records a Bound event once", func() {
			reconcileOnce()
			reconcileOnce()

			Eventually(recorder.Events).Should(Receive(ContainSubstring("Normal Bound")))
			Consistently(recorder.Events, 100*time.Millisecond).ShouldNot(Receive())
		})
	})

	Describe("Scenario: Reconcile an invalid binding", func() {
		BeforeEach(func() {
			setup(newBinding("acme/widgets", "general"))
		})

		It("marks the binding Invalid and leaves the table alone", func() {
			reconcileOnce()

			_, ok := table.Lookup("acme/widgets")
			Expect(ok).To(BeFalse())

			updated := &threadrelayv1alpha1.RepositoryBinding{}
			Expect(k8sClient.Get(ctx, typeNamespacedName, updated)).To(Succeed())
			Expect(updated.Status.Phase).To(Equal(threadrelayv1alpha1.PhaseInvalid))
			Expect(updated.Status.Message).To(ContainSubstring("invalid channel ID"))
			Eventually(recorder.Events).Should(Receive(ContainSubstring("Warning InvalidBinding")))
		})
	})

	Describe("Scenario: Binding changes after it was loaded", func() {
		BeforeEach(func() {
			setup(newBinding("acme/widgets", "100"))
			reconcileOnce()
		})

		It("moves the route when the repository is edited", func() {
			updated := &threadrelayv1alpha1.RepositoryBinding{}
			Expect(k8sClient.Get(ctx, typeNamespacedName, updated)).To(Succeed())
			updated.Spec.Repository = "acme/gadgets"
			Expect(k8sClient.Update(ctx, updated)).To(Succeed())

			reconcileOnce()

			_, ok := table.Lookup("acme/widgets")
			Expect(ok).To(BeFalse())
			channel, ok := table.Lookup("acme/gadgets")
			Expect(ok).To(BeTrue())
			Expect(channel).To(Equal("100"))
		})

		It("removes the route when the resource is deleted", func() {
			Expect(k8sClient.Delete(ctx, newBinding("acme/widgets", "100"))).To(Succeed())

			reconcileOnce()

			_, ok := table.Lookup("acme/widgets")
			Expect(ok).To(BeFalse())
		})

		It("removes the route when the binding becomes invalid", func() {
			updated := &threadrelayv1alpha1.RepositoryBinding{}
			Expect(k8sClient.Get(ctx, typeNamespacedName, updated)).To(Succeed())
			updated.Spec.ChannelID = ""
			Expect(k8sClient.Update(ctx, updated)).To(Succeed())

			reconcileOnce()

			_, ok := table.Lookup("acme/widgets")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Scenario: Reconcile a missing resource", func() {
		It("returns without error", func() {
			setup()
			reconcileOnce()
			Expect(table.Snapshot()).To(BeEmpty())
		})
	})

	Describe("Scenario: Run under leader election", func() {
		It("keeps reconciling on replicas that are not the leader", func() {
			opts := controllerOptions()
			Expect(opts.NeedLeaderElection).NotTo(BeNil())
			Expect(*opts.NeedLeaderElection).To(BeFalse())
		})
	})
})
