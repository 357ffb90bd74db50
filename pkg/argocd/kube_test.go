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

package argocd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"

	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

func newApplication(name string, labels map[string]string, status map[string]any) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "argoproj.io/v1alpha1",
		"kind":       "Application",
		"spec": map[string]any{
			"project":     "acme",
			"destination": map[string]any{"server": "https://kubernetes.default.svc", "namespace": "acme-dev"},
			"source": map[string]any{
				"repoURL":        "git@github.com:acme/deploy.git",
				"path":           "charts/billing",
				"targetRevision": "main",
				"helm": map[string]any{
					"parameters": []any{
						map[string]any{"name": "global.pillar", "value": "payments"},
						map[string]any{"name": "global.image.tag", "value": "old"},
					},
				},
			},
		},
	}}
	if status != nil {
		obj.Object["status"] = status
	}
	obj.SetName(name)
	obj.SetNamespace("argocd")
	obj.SetLabels(labels)
	return obj
}

func newKube(t *testing.T, objs ...runtime.Object) *Kube {
	t.Helper()
	client := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
		map[schema.GroupVersionResource]string{ApplicationGVR: "ApplicationList"}, objs...)
	return NewKube(client, KubeOptions{PollInterval: 10 * time.Millisecond})
}

func (k *Kube) get(t *testing.T, name string) *unstructured.Unstructured {
	t.Helper()
	obj, err := k.apps().Get(context.Background(), name, metav1.GetOptions{})
	require.NoError(t, err)
	return obj
}

func TestKube_GetConfigAndExists(t *testing.T) {
	ctx := context.Background()
	k := newKube(t, newApplication("acme-dev-billing", nil, nil))

	cfg, err := k.GetConfig(ctx, "acme-dev-billing")
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Project)
	assert.Len(t, cfg.HelmParameters, 2)

	ok, err := k.Exists(ctx, "acme-dev-billing")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = k.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = k.GetConfig(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodeControllerCommand))
}

func TestKube_SetParameter(t *testing.T) {
	ctx := context.Background()
	k := newKube(t, newApplication("acme-dev-billing", nil, nil))

	values := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(values, []byte("replicas: 1\n"), 0o600))

	require.NoError(t, k.SetParameter(ctx, "acme-dev-billing", "global.image.tag", "abc123", []string{values}))
	require.NoError(t, k.SetParameter(ctx, "acme-dev-billing", "extra", "1", nil))

	obj := k.get(t, "acme-dev-billing")
	params, _, _ := unstructured.NestedSlice(obj.Object, "spec", "source", "helm", "parameters")
	assert.Equal(t, []any{
		map[string]any{"name": "global.pillar", "value": "payments"},
		map[string]any{"name": "global.image.tag", "value": "abc123"},
		map[string]any{"name": "extra", "value": "1"},
	}, params)

	literal, _, _ := unstructured.NestedString(obj.Object, "spec", "source", "helm", "values")
	assert.Equal(t, "replicas: 1\n", literal)
}

func TestKube_SetParameterMissingValuesFile(t *testing.T) {
	k := newKube(t, newApplication("a", nil, nil))
	err := k.SetParameter(context.Background(), "a", "k", "v", []string{"/nonexistent/values.yaml"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfiguration))
}

func TestKube_Wait(t *testing.T) {
	healthy := map[string]any{
		"health": map[string]any{"status": "Healthy"},
		"sync":   map[string]any{"status": "Synced"},
	}
	degraded := map[string]any{
		"health": map[string]any{"status": "Degraded"},
	}
	progressing := map[string]any{
		"health":         map[string]any{"status": "Progressing"},
		"operationState": map[string]any{"phase": "Running"},
	}
	failed := map[string]any{
		"health":         map[string]any{"status": "Healthy"},
		"operationState": map[string]any{"phase": "Failed", "message": "one or more objects failed to apply"},
	}

	tests := []struct {
		name     string
		status   map[string]any
		opts     WaitOptions
		wantCode errors.ErrorCode
	}{
		{name: "healthy and synced", status: healthy, opts: WaitOptions{Operation: true, Health: true, Sync: true}},
		{name: "degraded", status: degraded, opts: WaitOptions{Health: true}, wantCode: errors.ErrCodeControllerCommand},
		{name: "operation failed", status: failed, opts: WaitOptions{Operation: true}, wantCode: errors.ErrCodeControllerCommand},
		{name: "timeout", status: progressing, opts: WaitOptions{Health: true, Timeout: 50 * time.Millisecond}, wantCode: errors.ErrCodeTimeout},
		{name: "sync only ignores health", status: map[string]any{"sync": map[string]any{"status": "Synced"}}, opts: WaitOptions{Sync: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := newKube(t, newApplication("a", nil, tt.status))
			err := k.Wait(context.Background(), "a", tt.opts)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
		})
	}
}

func TestKube_Sync(t *testing.T) {
	ctx := context.Background()
	k := newKube(t, newApplication("a", nil, nil))

	require.NoError(t, k.Sync(ctx, "a"))

	obj := k.get(t, "a")
	rev, _, _ := unstructured.NestedString(obj.Object, "operation", "sync", "revision")
	assert.Equal(t, "main", rev)
	user, _, _ := unstructured.NestedString(obj.Object, "operation", "initiatedBy", "username")
	assert.Equal(t, "gitops-deployer", user)

	err := k.Sync(ctx, "a")
	assert.True(t, errors.IsCode(err, errors.ErrCodeControllerCommand), "second sync must report operation in progress")
}

func TestKube_CreateUpsertDelete(t *testing.T) {
	ctx := context.Background()
	k := newKube(t)

	spec := &CreateSpec{
		Name:          "acme-dev-billing-pr1",
		Project:       "acme",
		DestServer:    "https://kubernetes.default.svc",
		DestNamespace: "acme-dev",
		RepoURL:       "git@github.com:acme/deploy.git",
		Path:          "charts/billing",
		ValuesFiles:   []string{"values.yaml", "values-dev.yaml"},
		Parameters:    []HelmParameter{{Name: "global.image.tag", Value: "abc"}},
		Labels:        map[string]string{"repository": "billing", "environment": "preview"},
		SyncPolicy:    SyncPolicy{Automated: true, Prune: true, SelfHeal: true},
		Upsert:        true,
	}
	require.NoError(t, k.Create(ctx, spec))

	obj := k.get(t, spec.Name)
	assert.Equal(t, spec.Labels, obj.GetLabels())
	assert.Equal(t, []string{resourcesFinalizer}, obj.GetFinalizers())
	prune, _, _ := unstructured.NestedBool(obj.Object, "spec", "syncPolicy", "automated", "prune")
	assert.True(t, prune)
	opts, _, _ := unstructured.NestedStringSlice(obj.Object, "spec", "syncPolicy", "syncOptions")
	assert.Equal(t, []string{"Prune=true", "CreateNamespace=false"}, opts)

	spec.Parameters = []HelmParameter{{Name: "global.image.tag", Value: "def"}}
	require.NoError(t, k.Create(ctx, spec))
	params, _, _ := unstructured.NestedSlice(k.get(t, spec.Name).Object, "spec", "source", "helm", "parameters")
	assert.Equal(t, []any{map[string]any{"name": "global.image.tag", "value": "def"}}, params)

	spec.Upsert = false
	assert.True(t, errors.IsCode(k.Create(ctx, spec), errors.ErrCodeControllerCommand))

	require.NoError(t, k.Delete(ctx, spec.Name))
	ok, err := k.Exists(ctx, spec.Name)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, errors.IsCode(k.Delete(ctx, spec.Name), errors.ErrCodeControllerCommand))
}

func TestKube_List(t *testing.T) {
	preview := map[string]string{"repository": "billing", "environment": "preview"}
	k := newKube(t,
		newApplication("acme-dev-billing-pr2", preview, nil),
		newApplication("acme-dev-billing-pr1", preview, nil),
		newApplication("acme-dev-billing", map[string]string{"repository": "billing"}, nil),
		newApplication("acme-dev-orders-pr1", map[string]string{"repository": "orders", "environment": "preview"}, nil),
	)

	names, err := k.List(context.Background(), preview)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme-dev-billing-pr1", "acme-dev-billing-pr2"}, names)
}

func TestKube_LoginIsNoop(t *testing.T) {
	assert.NoError(t, newKube(t).Login(context.Background(), "argocd.example.com", "admin", "x"))
}
