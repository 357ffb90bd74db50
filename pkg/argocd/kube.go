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
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/dynamic"

	"github.com/NVIDIA/gitops-deployer/pkg/defaults"
	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

// ApplicationGVR identifies Argo CD Application resources.
var ApplicationGVR = schema.GroupVersionResource{
	Group:    "argoproj.io",
	Version:  "v1alpha1",
	Resource: "applications",
}

const (
	resourcesFinalizer = "resources-finalizer.argocd.argoproj.io"

	healthHealthy  = "Healthy"
	healthDegraded = "Degraded"
	syncSynced     = "Synced"

	phaseRunning     = "Running"
	phaseTerminating = "Terminating"
	phaseFailed      = "Failed"
	phaseError       = "Error"
)

// KubeOptions configures the Kubernetes backend.
type KubeOptions struct {
	// Namespace holds the Application resources.
	Namespace string
	// PollInterval is the status polling period used by Wait.
	PollInterval time.Duration
	// Initiator is recorded as the user that requested a sync.
	Initiator string
}

// Kube implements Controller by reading and writing Application resources
// directly, for runners that hold cluster credentials instead of an Argo CD login.
type Kube struct {
	client dynamic.Interface
	opts   KubeOptions
}

// NewKube creates a Kubernetes backend.
func NewKube(client dynamic.Interface, opts KubeOptions) *Kube {
	if opts.Namespace == "" {
		opts.Namespace = defaults.ArgoCDNamespace
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.ControllerPollInterval
	}
	if opts.Initiator == "" {
		opts.Initiator = "gitops-deployer"
	}
	return &Kube{client: client, opts: opts}
}

func (k *Kube) apps() dynamic.ResourceInterface {
	return k.client.Resource(ApplicationGVR).Namespace(k.opts.Namespace)
}

// Login implements Controller. Cluster credentials come from the kubeconfig.
func (k *Kube) Login(_ context.Context, host, _, _ string) error {
	slog.Debug("kubernetes backend needs no login", "host", host)
	return nil
}

// GetConfig implements Controller.
func (k *Kube) GetConfig(ctx context.Context, app string) (*AppConfig, error) {
	obj, err := k.apps().Get(ctx, app, metav1.GetOptions{})
	if err != nil {
		return nil, kubeFailure(app, "get", err)
	}
	data, err := json.Marshal(obj.Object)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to encode application", err)
	}
	return ParseAppConfig(data)
}

// Exists implements Controller.
func (k *Kube) Exists(ctx context.Context, app string) (bool, error) {
	if _, err := k.apps().Get(ctx, app, metav1.GetOptions{}); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, kubeFailure(app, "get", err)
	}
	return true, nil
}

// SetParameter implements Controller.
func (k *Kube) SetParameter(ctx context.Context, app, key, value string, valuesFiles []string) error {
	obj, err := k.apps().Get(ctx, app, metav1.GetOptions{})
	if err != nil {
		return kubeFailure(app, "set", err)
	}

	params, _, err := unstructured.NestedSlice(obj.Object, "spec", "source", "helm", "parameters")
	if err != nil {
		return kubeFailure(app, "set", err)
	}
	params = setParameter(params, key, value)
	if err := unstructured.SetNestedSlice(obj.Object, params, "spec", "source", "helm", "parameters"); err != nil {
		return kubeFailure(app, "set", err)
	}

	if n := len(valuesFiles); n > 0 {
		values, err := os.ReadFile(valuesFiles[n-1])
		if err != nil {
			return errors.WrapWithContext(errors.ErrCodeConfiguration, "failed to read values file", err,
				map[string]any{"file": valuesFiles[n-1]})
		}
		if err := unstructured.SetNestedField(obj.Object, string(values), "spec", "source", "helm", "values"); err != nil {
			return kubeFailure(app, "set", err)
		}
	}

	if _, err := k.apps().Update(ctx, obj, metav1.UpdateOptions{}); err != nil {
		return kubeFailure(app, "set", err)
	}
	return nil
}

// setParameter replaces the value of an existing parameter or appends a new one.
func setParameter(params []any, key, value string) []any {
	for i, p := range params {
		m, ok := p.(map[string]any)
		if ok && m["name"] == key {
			m["value"] = value
			params[i] = m
			return params
		}
	}
	return append(params, map[string]any{"name": key, "value": value})
}

// Wait implements Controller.
func (k *Kube) Wait(ctx context.Context, app string, opts WaitOptions) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaults.HealthWaitTimeout
	}

	var last appStatus
	err := wait.PollUntilContextTimeout(ctx, k.opts.PollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		obj, err := k.apps().Get(ctx, app, metav1.GetOptions{})
		if err != nil {
			return false, kubeFailure(app, "wait", err)
		}
		last = readStatus(obj)
		return last.satisfies(opts)
	})
	if err == nil {
		return nil
	}
	if wait.Interrupted(err) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.WrapWithContext(errors.ErrCodeTimeout,
			fmt.Sprintf("timed out (%s) waiting for application", timeout), err,
			map[string]any{"app": app, "health": last.Health, "sync": last.Sync, "phase": last.Phase})
	}
	return err
}

type appStatus struct {
	Health       string
	Sync         string
	Phase        string
	Message      string
	HasOperation bool
}

func readStatus(obj *unstructured.Unstructured) appStatus {
	var s appStatus
	s.Health, _, _ = unstructured.NestedString(obj.Object, "status", "health", "status")
	s.Sync, _, _ = unstructured.NestedString(obj.Object, "status", "sync", "status")
	s.Phase, _, _ = unstructured.NestedString(obj.Object, "status", "operationState", "phase")
	s.Message, _, _ = unstructured.NestedString(obj.Object, "status", "operationState", "message")
	_, s.HasOperation, _ = unstructured.NestedMap(obj.Object, "operation")
	return s
}

// satisfies evaluates the wait conditions. A failed operation, or a degraded
// application with no operation in flight, ends the wait with an error.
func (s appStatus) satisfies(opts WaitOptions) (bool, error) {
	inFlight := s.HasOperation || s.Phase == phaseRunning || s.Phase == phaseTerminating
	if !inFlight {
		if s.Phase == phaseFailed || s.Phase == phaseError {
			return false, errors.NewWithContext(errors.ErrCodeControllerCommand,
				"operation "+s.Phase, map[string]any{"message": s.Message})
		}
		if opts.Health && s.Health == healthDegraded {
			return false, errors.New(errors.ErrCodeControllerCommand, "application is degraded")
		}
	}

	if opts.Operation && inFlight {
		return false, nil
	}
	if opts.Health && s.Health != healthHealthy {
		return false, nil
	}
	if opts.Sync && s.Sync != syncSynced {
		return false, nil
	}
	return true, nil
}

// Sync implements Controller.
func (k *Kube) Sync(ctx context.Context, app string) error {
	obj, err := k.apps().Get(ctx, app, metav1.GetOptions{})
	if err != nil {
		return kubeFailure(app, "sync", err)
	}
	if st := readStatus(obj); st.HasOperation || st.Phase == phaseRunning {
		return errors.NewWithContext(errors.ErrCodeControllerCommand,
			"another operation is already in progress", map[string]any{"app": app})
	}

	sync := map[string]any{}
	if rev, ok, _ := unstructured.NestedString(obj.Object, "spec", "source", "targetRevision"); ok && rev != "" {
		sync["revision"] = rev
	}
	op := map[string]any{
		"initiatedBy": map[string]any{"username": k.opts.Initiator},
		"sync":        sync,
	}
	if err := unstructured.SetNestedMap(obj.Object, op, "operation"); err != nil {
		return kubeFailure(app, "sync", err)
	}
	if _, err := k.apps().Update(ctx, obj, metav1.UpdateOptions{}); err != nil {
		return kubeFailure(app, "sync", err)
	}
	return nil
}

// Create implements Controller.
func (k *Kube) Create(ctx context.Context, spec *CreateSpec) error {
	obj, err := k.buildApplication(spec)
	if err != nil {
		return err
	}

	_, err = k.apps().Create(ctx, obj, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) || !spec.Upsert {
		return kubeFailure(spec.Name, "create", err)
	}

	existing, err := k.apps().Get(ctx, spec.Name, metav1.GetOptions{})
	if err != nil {
		return kubeFailure(spec.Name, "create", err)
	}
	existing.Object["spec"] = obj.Object["spec"]
	existing.SetLabels(obj.GetLabels())
	if _, err := k.apps().Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return kubeFailure(spec.Name, "create", err)
	}
	return nil
}

func (k *Kube) buildApplication(spec *CreateSpec) (*unstructured.Unstructured, error) {
	dest := map[string]any{"namespace": spec.DestNamespace}
	if spec.DestServer != "" {
		dest["server"] = spec.DestServer
	} else {
		dest["name"] = spec.DestName
	}

	helm := map[string]any{}
	if len(spec.ValuesFiles) > 0 {
		files := make([]any, 0, len(spec.ValuesFiles))
		for _, f := range spec.ValuesFiles {
			files = append(files, f)
		}
		helm["valueFiles"] = files
	}
	if len(spec.Parameters) > 0 {
		params := make([]any, 0, len(spec.Parameters))
		for _, p := range spec.Parameters {
			params = setParameter(params, p.Name, p.Value)
		}
		helm["parameters"] = params
	}
	if spec.ValuesLiteralFile != "" {
		values, err := os.ReadFile(spec.ValuesLiteralFile)
		if err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeConfiguration, "failed to read values file", err,
				map[string]any{"file": spec.ValuesLiteralFile})
		}
		helm["values"] = string(values)
	}

	source := map[string]any{
		"repoURL": spec.RepoURL,
		"path":    spec.Path,
		"helm":    helm,
	}
	if spec.TargetRevision != "" {
		source["targetRevision"] = spec.TargetRevision
	}

	syncOptions := []any{fmt.Sprintf("CreateNamespace=%t", spec.SyncPolicy.CreateNamespace)}
	if spec.SyncPolicy.Prune {
		syncOptions = append([]any{"Prune=true"}, syncOptions...)
	}
	syncPolicy := map[string]any{"syncOptions": syncOptions}
	if spec.SyncPolicy.Automated {
		syncPolicy["automated"] = map[string]any{
			"prune":    spec.SyncPolicy.Prune,
			"selfHeal": spec.SyncPolicy.SelfHeal,
		}
	}

	obj := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": ApplicationGVR.GroupVersion().String(),
		"kind":       "Application",
		"spec": map[string]any{
			"project":     spec.Project,
			"destination": dest,
			"source":      source,
			"syncPolicy":  syncPolicy,
		},
	}}
	obj.SetName(spec.Name)
	obj.SetNamespace(k.opts.Namespace)
	obj.SetLabels(spec.Labels)
	obj.SetFinalizers([]string{resourcesFinalizer})
	return obj, nil
}

// Delete implements Controller.
func (k *Kube) Delete(ctx context.Context, app string) error {
	if err := k.apps().Delete(ctx, app, metav1.DeleteOptions{}); err != nil {
		return kubeFailure(app, "delete", err)
	}
	return nil
}

// List implements Controller.
func (k *Kube) List(ctx context.Context, selector map[string]string) ([]string, error) {
	list, err := k.apps().List(ctx, metav1.ListOptions{LabelSelector: selectorString(selector)})
	if err != nil {
		return nil, kubeFailure("", "list", err)
	}
	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.GetName())
	}
	sort.Strings(names)
	return names, nil
}

func kubeFailure(app, op string, err error) error {
	if _, ok := err.(*errors.StructuredError); ok {
		return err
	}
	ctx := map[string]any{"resource": ApplicationGVR.String()}
	if app != "" {
		ctx["app"] = app
	}
	return errors.WrapWithContext(errors.ErrCodeControllerCommand, "application "+op+" failed", err, ctx)
}
