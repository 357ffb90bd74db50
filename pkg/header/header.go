// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package header

import (
	"time"
)

// APIVersion is the schema version of documents written by the deployer.
const APIVersion = "gitops-deployer.nvidia.com/v1alpha1"

// Kind represents the type of document.
type Kind string

// Valid Kind constants.
const (
	KindDeploymentReport Kind = "DeploymentReport"
)

// Metadata keys set by Init and the run.
const (
	MetadataTimestamp = "timestamp"
	MetadataVersion   = "version"
	MetadataRunID     = "runID"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the Kind is one of the recognized kinds.
func (k Kind) IsValid() bool {
	return k == KindDeploymentReport
}

// Option is a functional option for configuring Header instances.
type Option func(*Header)

// WithMetadata returns an Option that adds a metadata key-value pair.
// Empty values are ignored.
func WithMetadata(key, value string) Option {
	return func(h *Header) {
		h.SetMetadata(key, value)
	}
}

// New creates a Header of the given kind stamped with the current time and
// the tool version.
func New(kind Kind, version string, opts ...Option) *Header {
	h := &Header{}
	h.Init(kind, version)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Header contains versioning information for documents the deployer writes.
// It follows Kubernetes-style resource conventions.
type Header struct {
	Kind       Kind              `json:"kind,omitempty" yaml:"kind,omitempty"`
	APIVersion string            `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Init sets the kind and API version and resets Metadata to the timestamp
// and, when known, the version.
func (h *Header) Init(kind Kind, version string) {
	h.Kind = kind
	h.APIVersion = APIVersion
	h.Metadata = map[string]string{
		MetadataTimestamp: time.Now().UTC().Format(time.RFC3339),
	}
	h.SetMetadata(MetadataVersion, version)
}

// SetMetadata stores a metadata value. Empty values are ignored.
func (h *Header) SetMetadata(key, value string) {
	if value == "" {
		return
	}
	if h.Metadata == nil {
		h.Metadata = make(map[string]string)
	}
	h.Metadata[key] = value
}
