package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/jingkaihe/skillkit/pkg/hooks"
	"github.com/jingkaihe/skillkit/pkg/hooks/builtin"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/osutil"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ExecConfig holds configuration for the exec command
type ExecConfig struct {
	Skills []string
	Prompt string
	Tool   string
}

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command> [args...]",
	Short: "Run a shell command as a tool call through skill hooks",
	Long: `Run a command the way an agent would run a Bash tool call: the named skills
(and those selected for --prompt) are activated, their PreToolUse hooks may block
the call, and PostToolUse and Stop hooks add context afterwards.

The command's exit code is returned. A blocked call exits with status 2.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getExecConfigFromFlags(cmd)

		rt, err := newRuntime(ctx)
		if err != nil {
			presenter.Error(err, "Failed to initialize skills")
			os.Exit(1)
		}
		rt.openHistory(ctx)

		code := runExec(ctx, rt, config, strings.Join(args, " "))
		rt.Close()
		os.Exit(code)
	},
}

func init() {
	execCmd.Flags().StringSliceP("skill", "s", nil, "Activate the named skill (repeatable)")
	execCmd.Flags().StringP("prompt", "p", "", "Activate the skills selected for this request and run its prompt hooks")
	execCmd.Flags().String("tool", "Bash", "Tool name reported to hooks")
}

func getExecConfigFromFlags(cmd *cobra.Command) *ExecConfig {
	config := &ExecConfig{Tool: "Bash"}
	if s, err := cmd.Flags().GetStringSlice("skill"); err == nil {
		config.Skills = s
	}
	if p, err := cmd.Flags().GetString("prompt"); err == nil {
		config.Prompt = p
	}
	if t, err := cmd.Flags().GetString("tool"); err == nil && t != "" {
		config.Tool = t
	}
	return config
}

// runExec dispatches command and returns the process exit status.
func runExec(ctx context.Context, rt *runtime, config *ExecConfig, command string) int {
	sess := rt.newSession()
	ctx = logger.WithField(ctx, "session", sess.ID())

	names := append([]string{}, config.Skills...)
	if config.Prompt != "" {
		for _, m := range rt.selector.Select(ctx, config.Prompt) {
			names = append(names, m.Name)
		}
	}
	for _, name := range names {
		if _, err := sess.Activate(ctx, name); err != nil {
			presenter.Error(err, fmt.Sprintf("Failed to activate skill '%s'", name))
			return 1
		}
	}
	if active := sess.Active(); len(active) > 0 {
		presenter.Info(fmt.Sprintf("Active skills: %s", strings.Join(active, ", ")))
	}

	opts := []hooks.Option{hooks.FromConfig(), hooks.WithBuiltins(builtin.Registry())}
	if rt.history != nil {
		opts = append(opts, hooks.WithRecorder(rt.history))
	}
	dispatcher := hooks.NewDispatcher(sess, opts...)
	defer func() { printContext(dispatcher.DispatchStop(ctx)) }()

	if config.Prompt != "" {
		outcome, err := dispatcher.DispatchPrompt(ctx, config.Prompt)
		printContext(outcome)
		if err != nil {
			presenter.Error(err, "Prompt blocked")
			return 2
		}
	}

	call := hooks.ToolCall{
		Name:          config.Tool,
		Input:         command,
		Preauthorized: sess.IsToolPreauthorized(config.Tool, command),
	}
	if call.Preauthorized {
		presenter.Info(fmt.Sprintf("%s call pre-authorized by active skills", config.Tool))
	}

	outcome, err := dispatcher.Dispatch(ctx, call, shellTool)
	var blocked *hooks.BlockedError
	if errors.As(err, &blocked) {
		presenter.Error(blocked, "Tool call blocked")
		return 2
	}

	fmt.Print(outcome.Result.Output)
	printContext(outcome)
	if err != nil {
		presenter.Error(err, "Command failed")
	}
	if outcome.Result.ExitCode < 0 {
		return 1
	}
	return outcome.Result.ExitCode
}

// shellTool runs call.Input with the platform shell and returns its
// combined output.
func shellTool(ctx context.Context, call hooks.ToolCall) (hooks.ToolResult, error) {
	shell, flag := osutil.ShellCommand()
	cmd := exec.CommandContext(ctx, shell, flag, call.Input)
	osutil.SetProcessGroup(cmd)
	osutil.SetProcessGroupKill(cmd)
	cmd.Stdin = os.Stdin

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	result := hooks.ToolResult{Output: out.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, errors.Wrap(err, "failed to run command")
	}
	return result, nil
}

func printContext(outcome *hooks.Outcome) {
	if outcome == nil || len(outcome.Context) == 0 {
		return
	}
	presenter.Section("Hook context")
	for _, text := range outcome.Context {
		fmt.Println(strings.TrimRight(text, "\n"))
	}
}
