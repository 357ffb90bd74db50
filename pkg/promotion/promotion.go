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

// Package promotion moves an environment tag onto the image currently carrying
// a source tag, touching the registry only when the two differ.
package promotion

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/NVIDIA/gitops-deployer/pkg/defaults"
	"github.com/NVIDIA/gitops-deployer/pkg/errors"
	"github.com/NVIDIA/gitops-deployer/pkg/registry"
)

// Result is the outcome of a promotion.
type Result string

const (
	// Promoted means the target tag now points at the source image.
	Promoted Result = "promoted"
	// NotPromoted means the target tag already pointed at the source image.
	NotPromoted Result = "not-promoted"
	// NothingToPromote means no image carries the source tag.
	NothingToPromote Result = "nothing-to-promote"
)

// Promoter promotes images within a single registry.
type Promoter struct {
	registry    registry.Client
	callTimeout time.Duration
}

// NewPromoter creates a Promoter backed by client. Each registry call is
// bounded by defaults.RegistryCallTimeout.
func NewPromoter(client registry.Client) *Promoter {
	return &Promoter{registry: client, callTimeout: defaults.RegistryCallTimeout}
}

// Promote points targetTag at the image tagged sourceTag in repository.
// It performs at most one mutating registry call.
func (p *Promoter) Promote(ctx context.Context, repository, sourceTag, targetTag string) (Result, error) {
	log := slog.With("repository", repository, "source_tag", sourceTag, "target_tag", targetTag)

	source, err := p.get(ctx, repository, sourceTag)
	if err != nil {
		return "", err
	}
	if source == nil {
		log.Info("no image carries the source tag, nothing to promote",
			"code", string(errors.ErrCodeManifestNotFound))
		return NothingToPromote, nil
	}

	target, err := p.get(ctx, repository, targetTag)
	if err != nil {
		return "", err
	}
	if target == nil {
		log.Info("no previous image carries the target tag")
	}

	if source.Equal(target) {
		log.Info("image already promoted", "digest", source.Digest.String())
		return NotPromoted, nil
	}

	if err := p.put(ctx, repository, source, targetTag); err != nil {
		return "", registryFailure(err, repository, targetTag)
	}

	attrs := []any{"digest", source.Digest.String()}
	if target != nil {
		attrs = append(attrs, "previous_digest", target.Digest.String())
	}
	log.Info("image promoted", attrs...)
	return Promoted, nil
}

// get returns nil without error when the tag is absent.
func (p *Promoter) get(ctx context.Context, repository, tag string) (*registry.Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	m, err := p.registry.GetImage(ctx, repository, tag)
	if stderrors.Is(err, registry.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, registryFailure(err, repository, tag)
	}
	return m, nil
}

func (p *Promoter) put(ctx context.Context, repository string, m *registry.Manifest, tag string) error {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	return p.registry.PutImageTag(ctx, repository, m, tag)
}

func registryFailure(err error, repository, tag string) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.WrapWithContext(errors.ErrCodeTimeout, "registry call timed out", err,
			map[string]any{"repository": repository, "tag": tag})
	}
	if errors.CodeOf(err) != "" {
		return err
	}
	return errors.WrapWithContext(errors.ErrCodeRegistryUnavailable, "registry call failed", err,
		map[string]any{"repository": repository, "tag": tag})
}
