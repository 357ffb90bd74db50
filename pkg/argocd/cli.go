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
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/NVIDIA/gitops-deployer/pkg/defaults"
	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

// CLIOptions configures the argocd CLI backend.
type CLIOptions struct {
	// Binary is the CLI executable, looked up on PATH.
	Binary string
	// GRPCWeb routes gRPC through HTTP/1.1, for servers behind ingress controllers.
	GRPCWeb bool
	// Insecure skips server certificate verification.
	Insecure bool
	// CommandTimeout bounds every command except `app wait`, which is bounded
	// by its own --timeout. Zero means defaults.ControllerCommandTimeout.
	CommandTimeout time.Duration
}

// CLI implements Controller by running the argocd command-line client.
type CLI struct {
	runner Runner
	opts   CLIOptions
}

// NewCLI creates a CLI backend. A nil runner runs real subprocesses.
func NewCLI(runner Runner, opts CLIOptions) *CLI {
	if runner == nil {
		runner = ExecRunner{}
	}
	if opts.Binary == "" {
		opts.Binary = defaults.ArgoCDBinary
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaults.ControllerCommandTimeout
	}
	return &CLI{runner: runner, opts: opts}
}

func (c *CLI) command(args ...string) *Command {
	cmd := NewCommand(c.opts.Binary, args...)
	cmd.Bool("--grpc-web", c.opts.GRPCWeb)
	cmd.Bool("--insecure", c.opts.Insecure)
	return cmd
}

// exec runs cmd under the per-command deadline.
func (c *CLI) exec(ctx context.Context, cmd *Command) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CommandTimeout)
	defer cancel()
	return c.runner.Run(ctx, cmd)
}

func (c *CLI) run(ctx context.Context, app, op string, cmd *Command) ([]byte, error) {
	out, err := c.exec(ctx, cmd)
	if err != nil {
		return out, commandFailure(app, op, cmd, err)
	}
	return out, nil
}

// Login implements Controller.
func (c *CLI) Login(ctx context.Context, host, user, password string) error {
	cmd := c.command("login", host).
		Flag("--username", user).
		Secret("--password", password)
	_, err := c.run(ctx, "", "login", cmd)
	return err
}

// GetConfig implements Controller.
func (c *CLI) GetConfig(ctx context.Context, app string) (*AppConfig, error) {
	out, err := c.run(ctx, app, "get", c.command("app", "get", app).Flag("-o", "yaml"))
	if err != nil {
		return nil, err
	}
	cfg, err := ParseAppConfig(out)
	if err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = app
	}
	return cfg, nil
}

// Exists implements Controller.
func (c *CLI) Exists(ctx context.Context, app string) (bool, error) {
	cmd := c.command("app", "get", app).Flag("-o", "name")
	if _, err := c.exec(ctx, cmd); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, commandFailure(app, "get", cmd, err)
	}
	return true, nil
}

// SetParameter implements Controller.
func (c *CLI) SetParameter(ctx context.Context, app, key, value string, valuesFiles []string) error {
	cmd := c.command("app", "set", app).
		Flag("--parameter", key+"="+value).
		Repeat("--values-literal-file", valuesFiles...)
	_, err := c.run(ctx, app, "set", cmd)
	return err
}

// Wait implements Controller.
func (c *CLI) Wait(ctx context.Context, app string, opts WaitOptions) error {
	cmd := c.command("app", "wait", app).
		Bool("--operation", opts.Operation).
		Bool("--health", opts.Health).
		Bool("--sync", opts.Sync)
	if opts.Timeout > 0 {
		cmd.Flag("--timeout", strconv.FormatInt(int64(math.Ceil(opts.Timeout.Seconds())), 10))
	}
	if _, err := c.runner.Run(ctx, cmd); err != nil {
		return commandFailure(app, "wait", cmd, err)
	}
	return nil
}

// Sync implements Controller.
func (c *CLI) Sync(ctx context.Context, app string) error {
	_, err := c.run(ctx, app, "sync", c.command("app", "sync", app))
	return err
}

// Create implements Controller.
func (c *CLI) Create(ctx context.Context, spec *CreateSpec) error {
	cmd := c.command("app", "create", spec.Name).
		Flag("--project", spec.Project)
	if spec.DestServer != "" {
		cmd.Flag("--dest-server", spec.DestServer)
	} else {
		cmd.Flag("--dest-name", spec.DestName)
	}
	cmd.Flag("--dest-namespace", spec.DestNamespace).
		Flag("--repo", spec.RepoURL).
		Flag("--path", spec.Path).
		Flag("--revision", spec.TargetRevision).
		Repeat("--values", spec.ValuesFiles...).
		Flag("--values-literal-file", spec.ValuesLiteralFile)
	for _, p := range spec.Parameters {
		cmd.Flag("--parameter", p.Name+"="+p.Value)
	}
	cmd.Labels("--label", spec.Labels)

	if spec.SyncPolicy.Automated {
		cmd.Flag("--sync-policy", "automated").
			Bool("--auto-prune", spec.SyncPolicy.Prune).
			Bool("--self-heal", spec.SyncPolicy.SelfHeal)
	}
	if spec.SyncPolicy.Prune {
		cmd.Flag("--sync-option", "Prune=true")
	}
	cmd.Flag("--sync-option", "CreateNamespace="+strconv.FormatBool(spec.SyncPolicy.CreateNamespace)).
		Bool("--upsert", spec.Upsert)

	_, err := c.run(ctx, spec.Name, "create", cmd)
	return err
}

// Delete implements Controller.
func (c *CLI) Delete(ctx context.Context, app string) error {
	_, err := c.run(ctx, app, "delete", c.command("app", "delete", app).Bool("--yes", true))
	return err
}

// List implements Controller.
func (c *CLI) List(ctx context.Context, selector map[string]string) ([]string, error) {
	cmd := c.command("app", "list").
		Flag("-o", "name").
		Flag("--selector", selectorString(selector))
	out, err := c.run(ctx, "", "list", cmd)
	if err != nil {
		return nil, err
	}
	return parseNames(out), nil
}

// parseNames splits `-o name` output into application names, skipping blank
// lines. Newer servers qualify names as "namespace/name".
func parseNames(out []byte) []string {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.LastIndex(line, "/"); i >= 0 {
			line = line[i+1:]
		}
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}

// isNotFound reports whether a failed `app get` means the application is absent.
// The server answers PermissionDenied for applications the caller cannot see,
// including ones that do not exist.
func isNotFound(err error) bool {
	var ce *CommandError
	if !stderrors.As(err, &ce) || ce.ExitCode <= 0 {
		return false
	}
	s := strings.ToLower(ce.Stderr)
	return strings.Contains(s, "not found") ||
		strings.Contains(s, "notfound") ||
		strings.Contains(s, "permission denied") ||
		strings.Contains(s, "permissiondenied")
}

// commandFailure converts a runner error into a structured controller error.
func commandFailure(app, op string, cmd *Command, err error) error {
	code := errors.ErrCodeControllerCommand
	var ce *CommandError
	if stderrors.Is(err, context.DeadlineExceeded) ||
		(stderrors.As(err, &ce) && strings.Contains(strings.ToLower(ce.Stderr), "timed out")) {
		code = errors.ErrCodeTimeout
	}
	ctx := map[string]any{"command": cmd.String()}
	if app != "" {
		ctx["app"] = app
	}
	return errors.WrapWithContext(code, "argocd "+op+" failed", err, ctx)
}
