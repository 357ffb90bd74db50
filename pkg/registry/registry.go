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

// Package registry reads and re-tags container images in a registry.
//
// Two backends implement Client: Amazon ECR (BatchGetImage/PutImage) and any
// OCI distribution registry (resolve/tag through oras-go).
package registry

import (
	"bytes"
	"context"

	"github.com/opencontainers/go-digest"

	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

// ErrNotFound is returned by Client.GetImage when no image carries the tag.
var ErrNotFound = errors.New(errors.ErrCodeManifestNotFound, "image not found")

// Manifest identifies an image by its content.
type Manifest struct {
	// Digest is the content digest of the manifest.
	Digest digest.Digest
	// MediaType is the manifest media type, when the registry reports one.
	MediaType string
	// Size is the manifest size in bytes.
	Size int64
	// Raw is the manifest body. Only populated by backends that return it.
	Raw []byte
}

// Equal reports whether two manifests identify the same content.
// Digests are compared when both are known, raw bodies otherwise.
func (m *Manifest) Equal(o *Manifest) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Digest != "" && o.Digest != "" {
		return m.Digest == o.Digest
	}
	return len(m.Raw) > 0 && bytes.Equal(m.Raw, o.Raw)
}

// Client is the registry capability the promotion engine consumes.
type Client interface {
	// GetImage returns the manifest tagged tag in repository, or ErrNotFound.
	GetImage(ctx context.Context, repository, tag string) (*Manifest, error)
	// PutImageTag points tag at manifest. Re-tagging an image that already
	// carries the tag is not an error.
	PutImageTag(ctx context.Context, repository string, manifest *Manifest, tag string) error
}
