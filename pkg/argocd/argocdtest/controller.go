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

// Package argocdtest provides an in-memory argocd.Controller for tests.
package argocdtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NVIDIA/gitops-deployer/pkg/argocd"
	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

// Call is one recorded controller invocation.
type Call struct {
	Method string
	App    string
}

// Controller records every call and keeps applications in memory.
// Errors are injected per "Method" or per "Method app"; the latter wins.
type Controller struct {
	mu sync.Mutex

	Apps    map[string]*argocd.CreateSpec
	Configs map[string]*argocd.AppConfig
	Params  map[string]map[string]string
	Errors  map[string]error
	Calls   []Call
}

var _ argocd.Controller = (*Controller)(nil)

// New returns an empty controller.
func New() *Controller {
	return &Controller{
		Apps:    map[string]*argocd.CreateSpec{},
		Configs: map[string]*argocd.AppConfig{},
		Params:  map[string]map[string]string{},
		Errors:  map[string]error{},
	}
}

// AddApp registers an existing application.
func (c *Controller) AddApp(name string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Apps[name] = &argocd.CreateSpec{Name: name, Labels: labels}
}

// Count returns how many times method was called.
func (c *Controller) Count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.Calls {
		if call.Method == method {
			n++
		}
	}
	return n
}

// Methods returns the recorded method names in call order.
func (c *Controller) Methods() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.Calls))
	for _, call := range c.Calls {
		out = append(out, call.Method)
	}
	return out
}

func (c *Controller) record(method, app string) error {
	c.Calls = append(c.Calls, Call{Method: method, App: app})
	if err, ok := c.Errors[method+" "+app]; ok {
		return err
	}
	return c.Errors[method]
}

func (c *Controller) Login(_ context.Context, host, _, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record("Login", host)
}

func (c *Controller) GetConfig(_ context.Context, app string) (*argocd.AppConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("GetConfig", app); err != nil {
		return nil, err
	}
	cfg, ok := c.Configs[app]
	if !ok {
		return nil, errors.New(errors.ErrCodeControllerCommand, fmt.Sprintf("application %q not found", app))
	}
	cp := *cfg
	cp.HelmParameters = append([]argocd.HelmParameter(nil), cfg.HelmParameters...)
	return &cp, nil
}

func (c *Controller) Exists(_ context.Context, app string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("Exists", app); err != nil {
		return false, err
	}
	_, ok := c.Apps[app]
	return ok, nil
}

func (c *Controller) SetParameter(_ context.Context, app, key, value string, _ []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("SetParameter", app); err != nil {
		return err
	}
	if c.Params[app] == nil {
		c.Params[app] = map[string]string{}
	}
	c.Params[app][key] = value
	return nil
}

func (c *Controller) Wait(_ context.Context, app string, _ argocd.WaitOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record("Wait", app)
}

func (c *Controller) Sync(_ context.Context, app string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record("Sync", app)
}

func (c *Controller) Create(_ context.Context, spec *argocd.CreateSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("Create", spec.Name); err != nil {
		return err
	}
	if _, ok := c.Apps[spec.Name]; ok && !spec.Upsert {
		return errors.New(errors.ErrCodeControllerCommand, fmt.Sprintf("application %q already exists", spec.Name))
	}
	cp := *spec
	c.Apps[spec.Name] = &cp
	return nil
}

func (c *Controller) Delete(_ context.Context, app string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("Delete", app); err != nil {
		return err
	}
	if _, ok := c.Apps[app]; !ok {
		return errors.New(errors.ErrCodeControllerCommand, fmt.Sprintf("application %q not found", app))
	}
	delete(c.Apps, app)
	return nil
}

func (c *Controller) List(_ context.Context, selector map[string]string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("List", ""); err != nil {
		return nil, err
	}
	var names []string
	for name, spec := range c.Apps {
		if matches(spec.Labels, selector) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func matches(labels, selector map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}
