package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const replyHeader = "Section,Question_Number,Question_Text,Clarity,Specificity,Bias,Actionability\n"

var configEnvKeys = []string{
	"QSCORE_PROVIDER", "QSCORE_MODEL", "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "QSCORE_MAX_TOKENS", "QSCORE_TIMEOUT",
	"QSCORE_ATTRIBUTES", "QSCORE_PROMPT_FILE", "QSCORE_REPLAY_DIR", "QSCORE_CACHE_DIR",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "QSCORE_TRACE_LOG",
}

// workspace is an isolated working directory with the replay provider
// configured, so commands run without credentials or network.
type workspace struct {
	dir     string
	replies string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Chdir(dir)
	configPath = ""
	debugLogging = false

	ws := &workspace{dir: dir, replies: filepath.Join(dir, "replies")}
	require.NoError(t, os.MkdirAll(ws.replies, 0o755))
	t.Setenv("QSCORE_PROVIDER", "replay")
	t.Setenv("QSCORE_REPLAY_DIR", ws.replies)
	return ws
}

func (ws *workspace) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(ws.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (ws *workspace) reply(t *testing.T, stem, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(ws.replies, stem+".csv"), []byte(content), 0o644))
}

// run executes cmd with args and returns what it wrote to stdout.
func run(cmd *cobra.Command, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
