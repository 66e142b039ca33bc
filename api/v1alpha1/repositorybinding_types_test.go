/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/


package v1alpha1

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

var _ = Describe("RepositoryBinding", func() {
	Context("Scheme registration", func() {
		It("registers RepositoryBinding and RepositoryBindingList under the group version", func() {
			gvks, _, err := testScheme.ObjectKinds(&RepositoryBinding{})
			Expect(err).NotTo(HaveOccurred())
			Expect(gvks).To(ContainElement(GroupVersion.WithKind("RepositoryBinding")))

			gvks, _, err = testScheme.ObjectKinds(&RepositoryBindingList{})
			Expect(err).NotTo(HaveOccurred())
			Expect(gvks).To(ContainElement(GroupVersion.WithKind("RepositoryBindingList")))
		})
	})

	Context("DeepCopy", func() {
		It("produces an independent copy", func() {
			original := &RepositoryBinding{
				ObjectMeta: metav1.ObjectMeta{
					Name:      "acme-widgets",
					Namespace: "default",
					Labels:    map[string]string{"app": "threadrelay"},
				},
				Spec: RepositoryBindingSpec{Repository: "acme/widgets", ChannelID: "100"},
			}

			copied := original.DeepCopy()
			copied.Labels["app"] = "changed"
			copied.Spec.ChannelID = "200"

			Expect(original.Labels["app"]).To(Equal("threadrelay"))
			Expect(original.Spec.ChannelID).To(Equal("100"))
		})

		It("copies list items", func() {
			list := &RepositoryBindingList{Items: []RepositoryBinding{
				{Spec: RepositoryBindingSpec{Repository: "acme/widgets", ChannelID: "100"}},
			}}

			copied := list.DeepCopyObject().(*RepositoryBindingList)
			copied.Items[0].Spec.Repository = "acme/gadgets"

			Expect(list.Items[0].Spec.Repository).To(Equal("acme/widgets"))
		})

		It("returns nil for a nil receiver", func() {
			var binding *RepositoryBinding
			Expect(binding.DeepCopy()).To(BeNil())
		})
	})

	Context("Persistence", func() {
		It("stores spec and status separately", func() {
			binding := &RepositoryBinding{
				ObjectMeta: metav1.ObjectMeta{Name: "persist-test", Namespace: "default"},
				Spec:       RepositoryBindingSpec{Repository: "acme/widgets", ChannelID: "100"},
			}
			Expect(k8sClient.Create(ctx, binding)).To(Succeed())

			binding.Status.Phase = PhaseActive
			binding.Status.ObservedGeneration = binding.Generation
			Expect(k8sClient.Status().Update(ctx, binding)).To(Succeed())

			fetched := &RepositoryBinding{}
			Expect(k8sClient.Get(ctx, client.ObjectKeyFromObject(binding), fetched)).To(Succeed())
			Expect(fetched.Spec.Repository).To(Equal("acme/widgets"))
			Expect(fetched.Status.Phase).To(Equal(PhaseActive))

			Expect(k8sClient.Delete(ctx, binding)).To(Succeed())
		})
	})
})
