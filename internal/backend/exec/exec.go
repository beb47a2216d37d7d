// Package exec runs the model as a local process, writing the prompt to its
// stdin and reading the response from stdout.
package exec

import (
	"bytes"
	"context"
	"errors"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/hejijunhao/watchpath/internal/backend"
)

const (
	defaultCommand = "ollama"
	defaultModel   = "mistral:7b-instruct"

	// waitDelay bounds how long Invoke waits for output pipes after the
	// process is killed.
	waitDelay = 2 * time.Second
)

func init() {
	backend.Register("exec", func(cfg backend.Config) (backend.Backend, error) {
		return New(cfg), nil
	})
}

// Backend invokes `<command> run <model>` once per prompt. Extra["args"]
// replaces the argument list (whitespace separated; "{model}" is substituted).
type Backend struct {
	command string
	args    []string
}

// New builds a process backend from cfg, defaulting to `ollama run
// mistral:7b-instruct`.
func New(cfg backend.Config) *Backend {
	command := cfg.Command
	if command == "" {
		command = defaultCommand
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	args := []string{"run", model}
	if raw, ok := cfg.Extra["args"]; ok {
		args = strings.Fields(strings.ReplaceAll(raw, "{model}", model))
	}
	return &Backend{command: command, args: args}
}

// Invoke runs the process. A process that starts and exits non-zero is not an
// error; its exit code and stderr are returned in the Result.
func (b *Backend) Invoke(ctx context.Context, prompt string) (backend.Result, error) {
	cmd := osexec.CommandContext(ctx, b.command, b.args...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	res := backend.Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return res, &backend.Error{Provider: "exec", Err: err}
}
