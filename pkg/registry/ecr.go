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
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/smithy-go"
	"github.com/opencontainers/go-digest"
	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

// Docker manifest media types ECR may store alongside OCI ones.
const (
	mediaTypeDockerManifest     = "application/vnd.docker.distribution.manifest.v2+json"
	mediaTypeDockerManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"
)

// acceptedMediaTypes makes ECR return manifests in their stored format
// instead of converting them, so digests stay stable.
var acceptedMediaTypes = []string{
	ociv1.MediaTypeImageManifest,
	ociv1.MediaTypeImageIndex,
	mediaTypeDockerManifest,
	mediaTypeDockerManifestList,
}

// ECRAPI is the subset of the ECR client used for promotion.
type ECRAPI interface {
	BatchGetImage(ctx context.Context, params *ecr.BatchGetImageInput, optFns ...func(*ecr.Options)) (*ecr.BatchGetImageOutput, error)
	PutImage(ctx context.Context, params *ecr.PutImageInput, optFns ...func(*ecr.Options)) (*ecr.PutImageOutput, error)
}

// ECRClient implements Client on Amazon ECR.
type ECRClient struct {
	api ECRAPI
}

// NewECRClient creates a client from the default AWS credential chain scoped to region.
func NewECRClient(ctx context.Context, region string) (*ECRClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRegistryUnavailable, "failed to load AWS config", err)
	}
	return NewECRClientWithAPI(ecr.NewFromConfig(cfg)), nil
}

// NewECRClientWithAPI wraps an existing ECR API implementation.
func NewECRClientWithAPI(api ECRAPI) *ECRClient {
	return &ECRClient{api: api}
}

// GetImage implements Client.
func (c *ECRClient) GetImage(ctx context.Context, repository, tag string) (*Manifest, error) {
	out, err := c.api.BatchGetImage(ctx, &ecr.BatchGetImageInput{
		RepositoryName:     aws.String(repository),
		ImageIds:           []ecrtypes.ImageIdentifier{{ImageTag: aws.String(tag)}},
		AcceptedMediaTypes: acceptedMediaTypes,
	})
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeRegistryUnavailable, "failed to get image", err,
			apiErrorContext(err, map[string]any{"repository": repository, "tag": tag}))
	}

	if len(out.Images) == 0 {
		for _, f := range out.Failures {
			if f.FailureCode != ecrtypes.ImageFailureCodeImageNotFound &&
				f.FailureCode != ecrtypes.ImageFailureCodeImageTagDoesNotMatchDigest {
				return nil, errors.NewWithContext(errors.ErrCodeRegistryUnavailable,
					fmt.Sprintf("failed to get image: %s", aws.ToString(f.FailureReason)),
					map[string]any{"repository": repository, "tag": tag, "code": string(f.FailureCode)})
			}
		}
		return nil, ErrNotFound
	}

	img := out.Images[0]
	raw := aws.ToString(img.ImageManifest)
	m := &Manifest{
		MediaType: aws.ToString(img.ImageManifestMediaType),
		Size:      int64(len(raw)),
		Raw:       []byte(raw),
	}
	if img.ImageId != nil && img.ImageId.ImageDigest != nil {
		m.Digest = digest.Digest(aws.ToString(img.ImageId.ImageDigest))
	} else if raw != "" {
		m.Digest = digest.FromString(raw)
	}

	slog.Debug("resolved image", "repository", repository, "tag", tag, "digest", m.Digest)
	return m, nil
}

// PutImageTag implements Client.
func (c *ECRClient) PutImageTag(ctx context.Context, repository string, manifest *Manifest, tag string) error {
	if manifest == nil || len(manifest.Raw) == 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "ECR re-tagging requires the manifest body")
	}

	in := &ecr.PutImageInput{
		RepositoryName: aws.String(repository),
		ImageManifest:  aws.String(string(manifest.Raw)),
		ImageTag:       aws.String(tag),
	}
	if manifest.MediaType != "" {
		in.ImageManifestMediaType = aws.String(manifest.MediaType)
	}
	if manifest.Digest != "" {
		in.ImageDigest = aws.String(manifest.Digest.String())
	}

	if _, err := c.api.PutImage(ctx, in); err != nil {
		var exists *ecrtypes.ImageAlreadyExistsException
		if stderrors.As(err, &exists) {
			slog.Info("image already carries tag", "repository", repository, "tag", tag)
			return nil
		}
		return errors.WrapWithContext(errors.ErrCodeRegistryUnavailable, "failed to tag image", err,
			apiErrorContext(err, map[string]any{"repository": repository, "tag": tag}))
	}
	return nil
}

// apiErrorContext adds the AWS error code to ctx when err carries one.
func apiErrorContext(err error, ctx map[string]any) map[string]any {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		ctx["aws_error_code"] = apiErr.ErrorCode()
	}
	return ctx
}
