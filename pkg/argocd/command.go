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
	"sort"

	"github.com/kballard/go-shellquote"
)

const redacted = "******"

// Command is an external command as an argument list. Values added with
// Secret are replaced by a placeholder when the command is rendered.
type Command struct {
	Name    string
	Args    []string
	secrets map[int]bool
}

// NewCommand starts a command with leading positional arguments.
func NewCommand(name string, args ...string) *Command {
	return &Command{Name: name, Args: append([]string(nil), args...)}
}

// Arg appends positional arguments.
func (c *Command) Arg(args ...string) *Command {
	c.Args = append(c.Args, args...)
	return c
}

// Flag appends "--flag value". Empty values are skipped.
func (c *Command) Flag(flag, value string) *Command {
	if value == "" {
		return c
	}
	c.Args = append(c.Args, flag, value)
	return c
}

// Repeat appends the flag once per value.
func (c *Command) Repeat(flag string, values ...string) *Command {
	for _, v := range values {
		c.Flag(flag, v)
	}
	return c
}

// Bool appends the flag when set is true.
func (c *Command) Bool(flag string, set bool) *Command {
	if set {
		c.Args = append(c.Args, flag)
	}
	return c
}

// Labels appends "--flag key=value" for each entry, sorted by key.
func (c *Command) Labels(flag string, labels map[string]string) *Command {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.Flag(flag, k+"="+labels[k])
	}
	return c
}

// Secret appends "--flag value" and marks value for redaction.
func (c *Command) Secret(flag, value string) *Command {
	if c.secrets == nil {
		c.secrets = map[int]bool{}
	}
	c.Args = append(c.Args, flag, value)
	c.secrets[len(c.Args)-1] = true
	return c
}

// Redacted returns the arguments with secret values replaced.
func (c *Command) Redacted() []string {
	out := make([]string, len(c.Args))
	for i, a := range c.Args {
		if c.secrets[i] {
			out[i] = redacted
			continue
		}
		out[i] = a
	}
	return out
}

// String renders the command as a shell-quoted line with secrets redacted.
func (c *Command) String() string {
	return shellquote.Join(append([]string{c.Name}, c.Redacted()...)...)
}
