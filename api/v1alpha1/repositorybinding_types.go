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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Binding phases reported in RepositoryBindingStatus.Phase.
const (
	PhaseActive  = "Active"
	PhaseInvalid = "Invalid"
)

// RepositoryBindingSpec defines the desired state of RepositoryBinding
type RepositoryBindingSpec struct {
	// Repository is the GitHub repository in "owner/repo" format
	// +kubebuilder:validation:Pattern="^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$"
	Repository string `json:"repository"`

	// ChannelID is the Discord channel that receives the repository's threads
	// +kubebuilder:validation:Pattern="^[0-9]+$"
	ChannelID string `json:"channelID"`
}

// RepositoryBindingStatus defines the observed state of RepositoryBinding.
type RepositoryBindingStatus struct {
	// Phase is Active once the binding is loaded into the routing table
	// +kubebuilder:validation:Enum=Active;Invalid
	// +optional
	Phase string `json:"phase,omitempty"`

	// Message explains an Invalid phase
	// +optional
	Message string `json:"message,omitempty"`

	// ObservedGeneration reflects the generation of the most recently observed spec
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Repository",type="string",JSONPath=".spec.repository",description="GitHub repository"
// +kubebuilder:printcolumn:name="Channel",type="string",JSONPath=".spec.channelID",description="Discord channel"
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase",description="Current Phase"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp",description="Creation Time"
// +kubebuilder:resource:shortName=rb

// RepositoryBinding is the Schema for the repositorybindings API
type RepositoryBinding struct {
	metav1.TypeMeta `json:",inline"`

	// metadata is a standard object metadata
	// +optional
	metav1.ObjectMeta `json:"metadata,omitempty,omitzero"`

	// status defines the observed state of RepositoryBinding
	// +optional
	Status RepositoryBindingStatus `json:"status,omitempty,omitzero"`

	// spec defines the desired state of RepositoryBinding
	// +required
	Spec RepositoryBindingSpec `json:"spec"`
}

// +kubebuilder:object:root=true

// RepositoryBindingList contains a list of RepositoryBinding
type RepositoryBindingList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []RepositoryBinding `json:"items"`
}

func init() {
	SchemeBuilder.Register(&RepositoryBinding{}, &RepositoryBindingList{})
}
