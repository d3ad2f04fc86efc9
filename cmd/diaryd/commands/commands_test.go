package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/intern-diary/diary/config"
	"github.com/ZanzyTHEbar/intern-diary/diary/generation/harness"
)

const diaryReply = "Here's your completed daily diary entry 👇\n\n" +
	"Work Summary:\n\nWrote the release notes.\n\n" +
	"Learnings / Outcomes:\n\nLearned the changelog conventions.\n\n" +
	"Blockers / Risks:\n\nWaiting on sign-off from the release manager.\n\n" +
	"Reference Links: Not Applicable\n"

// fakeOpenAI serves chat completions with a fixed reply and records the
// Authorization header it saw.
func fakeOpenAI(t *testing.T, auth *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		*auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": diaryReply}},
			},
			"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configPath, logLevel = "", ""
	summary, apiKey, outputFormat = "", "", "text"

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "llm:\n  base_url: \"" + baseURL + "\"\n  timeout: \"5s\"\nlog:\n  level: \"error\"\n  format: \"json\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGenerateCommand_Text(t *testing.T) {
	var auth string
	srv := fakeOpenAI(t, &auth)
	cfgPath := writeConfig(t, srv.URL)

	out, err := runCLI(t, "", "generate", "--config", cfgPath, "--api-key", "sk-cli", "--summary", "Wrote the release notes.")
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-cli", auth)
	assert.Contains(t, out, "Work Summary:\nWrote the release notes.")
	assert.Contains(t, out, "Reference Links:\nNot Applicable")
	assert.NotContains(t, out, "Skills:")
}

func TestGenerateCommand_JSONFromStdin(t *testing.T) {
	var auth string
	srv := fakeOpenAI(t, &auth)
	cfgPath := writeConfig(t, srv.URL)

	out, err := runCLI(t, "Wrote the release notes.\n", "generate", "--config", cfgPath, "--api-key", "sk-cli", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Success      bool                `json:"success"`
		FullResponse string              `json:"full_response"`
		Fields       harness.ParsedEntry `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, diaryReply, resp.FullResponse)
	assert.Equal(t, "Waiting on sign-off from the release manager.", resp.Fields.Blockers)
}

func TestGenerateCommand_EmptySummary(t *testing.T) {
	var auth string
	srv := fakeOpenAI(t, &auth)
	cfgPath := writeConfig(t, srv.URL)

	_, err := runCLI(t, "   \n", "generate", "--config", cfgPath, "--api-key", "sk-cli")
	require.Error(t, err)
	assert.True(t, harness.IsValidation(err))
	assert.Empty(t, auth)
}

func TestGenerateCommand_BadFormat(t *testing.T) {
	_, err := runCLI(t, "", "generate", "--format", "yaml", "--summary", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "intern-diary version 1.0.0"))
}

func TestFormatEntry(t *testing.T) {
	out := formatEntry(harness.ParsedEntry{WorkSummary: "a", Blockers: "c", ReferenceLinks: "e"})
	assert.Equal(t, "Work Summary:\na\n\nBlockers / Risks:\nc\n\nReference Links:\ne\n\n", out)
}

func TestNewLoggerTo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	logger, err := newLoggerTo(&buf, config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("k", "v").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "v", entry["k"])

	_, err = newLoggerTo(&buf, config.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}
