package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jingkaihe/skillkit/pkg/plugins"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetServeConfigFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("host", "localhost", "")
	cmd.Flags().Int("port", 8080, "")
	assert.NoError(t, cmd.Flags().Set("port", "9090"))

	config := getServeConfigFromFlags(cmd)
	assert.Equal(t, "localhost", config.Host)
	assert.Equal(t, 9090, config.Port)
	assert.NoError(t, config.Validate())
}

func TestGetHistoryConfigFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("session", "", "")
	cmd.Flags().String("skill", "", "")
	cmd.Flags().Int("limit", 50, "")
	cmd.Flags().Bool("json", false, "")
	assert.NoError(t, cmd.Flags().Set("skill", "gh-guard"))

	config := getHistoryConfigFromFlags(cmd)
	q := config.query()
	assert.Equal(t, "gh-guard", q.Skill)
	assert.Equal(t, 50, q.Limit)
	assert.Empty(t, q.Verdict)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestPrintPlugins(t *testing.T) {
	var buf bytes.Buffer
	printPlugins(&buf, []pluginEntry{
		{plugin: plugins.InstalledPlugin{Name: "zeta/pack", Skills: []string{"a", "b", "c", "d"}}, location: "global"},
		{plugin: plugins.InstalledPlugin{Name: "acme/toolkit", Skills: []string{"pdf"}}, location: "local"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "acme/toolkit")
	assert.Contains(t, lines[2], "pdf")
	assert.Contains(t, lines[3], "zeta/pack")
	assert.Contains(t, lines[3], "4")
}
