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

// Package gitref resolves the branch and commit of a local Git checkout.
package gitref

import (
	"github.com/go-git/go-git/v5"

	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

// Ref is the checked-out position of a repository.
type Ref struct {
	// Branch is empty when HEAD is detached.
	Branch string
	Commit string
}

// Resolve opens the repository containing dir and reads HEAD.
func Resolve(dir string) (*Ref, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeConfiguration, "failed to open git repository", err,
			map[string]any{"dir": dir})
	}
	head, err := repo.Head()
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeConfiguration, "failed to resolve HEAD", err,
			map[string]any{"dir": dir})
	}

	ref := &Ref{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		ref.Branch = head.Name().Short()
	}
	return ref, nil
}
