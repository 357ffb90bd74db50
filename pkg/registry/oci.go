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

package registry

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

// OCIOptions configures the OCI distribution backend.
type OCIOptions struct {
	// Registry is the registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Username and Password are static credentials. When empty the Docker
	// credential store is used.
	Username string
	Password string
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
}

// OCIClient implements Client on any OCI distribution registry.
type OCIClient struct {
	opts   OCIOptions
	client *auth.Client
}

// NewOCIClient creates an OCI registry client.
func NewOCIClient(opts OCIOptions) (*OCIClient, error) {
	opts.Registry = stripProtocol(opts.Registry)
	if opts.Registry == "" {
		return nil, errors.New(errors.ErrCodeConfiguration, "OCI registry host is required")
	}
	return &OCIClient{
		opts:   opts,
		client: createAuthClient(opts),
	}, nil
}

func (c *OCIClient) repository(repository string) (*remote.Repository, error) {
	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", c.opts.Registry, repository))
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeConfiguration, "invalid repository reference", err,
			map[string]any{"registry": c.opts.Registry, "repository": repository})
	}
	repo.PlainHTTP = c.opts.PlainHTTP
	repo.Client = c.client
	return repo, nil
}

// GetImage implements Client.
func (c *OCIClient) GetImage(ctx context.Context, repository, tag string) (*Manifest, error) {
	repo, err := c.repository(repository)
	if err != nil {
		return nil, err
	}

	desc, err := repo.Resolve(ctx, tag)
	if err != nil {
		if stderrors.Is(err, errdef.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.WrapWithContext(errors.ErrCodeRegistryUnavailable, "failed to resolve image", err,
			map[string]any{"registry": c.opts.Registry, "repository": repository, "tag": tag})
	}

	slog.Debug("resolved image", "repository", repository, "tag", tag, "digest", desc.Digest)
	return &Manifest{
		Digest:    desc.Digest,
		MediaType: desc.MediaType,
		Size:      desc.Size,
	}, nil
}

// PutImageTag implements Client.
func (c *OCIClient) PutImageTag(ctx context.Context, repository string, manifest *Manifest, tag string) error {
	if manifest == nil || manifest.Digest == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "OCI re-tagging requires the manifest digest")
	}
	repo, err := c.repository(repository)
	if err != nil {
		return err
	}

	desc := ociv1.Descriptor{
		MediaType: manifest.MediaType,
		Digest:    manifest.Digest,
		Size:      manifest.Size,
	}
	if err := repo.Tag(ctx, desc, tag); err != nil {
		return errors.WrapWithContext(errors.ErrCodeRegistryUnavailable, "failed to tag image", err,
			map[string]any{"registry": c.opts.Registry, "repository": repository, "tag": tag})
	}
	return nil
}

// stripProtocol removes http:// or https:// prefix from a registry URL.
func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return strings.TrimSuffix(registry, "/")
}

// createAuthClient creates an HTTP client with optional TLS configuration,
// using static credentials when given and the Docker credential store otherwise.
func createAuthClient(opts OCIOptions) *auth.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !opts.PlainHTTP && opts.InsecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}

	if opts.Username != "" {
		client.Credential = auth.StaticCredential(opts.Registry, auth.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
		return client
	}

	credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		slog.Debug("docker credential store unavailable, using anonymous access", "error", err)
		return client
	}
	client.Credential = credentials.Credential(credStore)
	return client
}
