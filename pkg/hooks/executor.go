package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jingkaihe/skillkit/pkg/osutil"
	"github.com/pkg/errors"
)

const waitDelay = 250 * time.Millisecond

// execute runs one binding with a deadline and captures its output.
func (d *Dispatcher) execute(ctx context.Context, binding Binding, payload Payload) (run Run) {
	run = Run{
		Skill:   binding.Skill,
		Event:   payload.Event,
		Command: binding.Command,
	}

	timeout := d.timeoutFor(binding)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() { run.Duration = time.Since(start) }()

	if strings.HasPrefix(binding.Command, BuiltinPrefix) {
		d.executeBuiltin(ctx, binding, payload, &run)
		return run
	}

	input, err := json.Marshal(payload)
	if err != nil {
		run.Err = errors.Wrap(err, "failed to marshal hook payload")
		run.ExitCode = -1
		return run
	}

	shell, flag := osutil.ShellCommand()
	cmd := exec.CommandContext(ctx, shell, flag, binding.Command)
	osutil.SetProcessGroup(cmd)
	osutil.SetProcessGroupKill(cmd)
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), payload.env(binding.Directory)...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	run.Stdout = stdout.String()
	run.Stderr = stderr.String()

	if ctx.Err() == context.DeadlineExceeded {
		run.TimedOut = true
		run.ExitCode = -1
		run.Err = errors.Errorf("hook timed out after %s", timeout)
		return run
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		run.ExitCode = exitErr.ExitCode()
	default:
		run.ExitCode = -1
		run.Err = errors.Wrap(err, "failed to run hook")
	}

	run.Response, _ = parseResponse(run.Stdout)
	return run
}

func (d *Dispatcher) executeBuiltin(ctx context.Context, binding Binding, payload Payload, run *Run) {
	handler, ok := d.builtins.Get(binding.Command)
	if !ok {
		run.ExitCode = 127
		run.Stderr = "unknown builtin hook " + binding.Command
		return
	}

	out, err := handler.Handle(ctx, payload)
	run.Stdout = out
	if ctx.Err() == context.DeadlineExceeded {
		run.TimedOut = true
		run.ExitCode = -1
		run.Err = errors.Errorf("builtin hook timed out after %s", d.timeoutFor(binding))
		return
	}
	if err != nil {
		run.ExitCode = 1
		run.Stderr = err.Error()
	}
	run.Response, _ = parseResponse(run.Stdout)
}

func (d *Dispatcher) timeoutFor(binding Binding) time.Duration {
	timeout := binding.Timeout
	if timeout <= 0 {
		timeout = d.timeout
	}
	if d.maxTimeout > 0 && timeout > d.maxTimeout {
		timeout = d.maxTimeout
	}
	return timeout
}
