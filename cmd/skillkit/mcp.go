package main

import (
	"os"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/mcp"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve skills to an MCP client over stdio",
	Long: `Run an MCP server on stdin/stdout exposing the tools list_skills, select_skills,
load_skill and read_reference. Each server process is one session: skills loaded
through load_skill stay active until the client disconnects, and only their direct
references can be read.

Logs are written to stderr so that stdout carries only protocol messages.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		logger.SetLogOutput(os.Stderr)
		presenter.SetQuiet(true)

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()
		rt.openHistory(ctx)

		sess := rt.newSession()
		return mcp.NewServer(sess, rt.selector).ServeStdio(logger.WithField(ctx, "session", sess.ID()))
	},
}

func init() {
	mcpCmd.AddCommand(withTracing(mcpServeCmd))
}
