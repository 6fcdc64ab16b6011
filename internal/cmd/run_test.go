package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/verigate/internal/breaker"
	"github.com/harrison/verigate/internal/gate"
	"github.com/harrison/verigate/internal/history"
	"github.com/harrison/verigate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireOutcome struct {
	Status            string `json:"status"`
	VerificationToken string `json:"verification_token"`
	Message           string `json:"message"`
}

func requestJSON(t *testing.T, path, code string) string {
	t.Helper()
	data, err := json.Marshal(map[string]string{"file_path": path, "new_code": code})
	require.NoError(t, err)
	return string(data)
}

func runGate(t *testing.T, env *testEnv, stdin string, extra ...string) (wireOutcome, string) {
	t.Helper()
	args := append([]string{"run", "--config", env.configPath}, extra...)
	stdout, stderr, err := execute(t, stdin, args...)
	require.NoError(t, err, "run must exit 0 for every outcome")

	var out wireOutcome
	require.NoError(t, json.Unmarshal([]byte(stdout), &out), "stdout: %s", stdout)
	assert.Equal(t, 1, strings.Count(stdout, "\n"), "outcome must be a single line")
	return out, stderr
}

func readCount(t *testing.T, env *testEnv) int {
	t.Helper()
	n, err := breaker.NewFileStore(env.stateFile, false).Read()
	require.NoError(t, err)
	return n
}

func TestRunSuccessNewFile(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	env.setCount(t, 2)
	target := filepath.Join(env.dir, "App", "View.swift")

	out, stderr := runGate(t, env, requestJSON(t, target, "struct View {}\n"))

	assert.Equal(t, "SUCCESS", out.Status)
	assert.True(t, gate.IsToken(out.VerificationToken), "token %q", out.VerificationToken)
	assert.Contains(t, out.Message, out.VerificationToken)
	assert.Contains(t, stderr, "SUCCESS")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "struct View {}\n", string(data))
	assert.Equal(t, 0, readCount(t, env))

	assert.NoFileExists(t, target+".bak")
	assert.NoFileExists(t, target+".new")
}

func TestRunFailureRestoresFile(t *testing.T) {
	env := newTestEnv(t, "printf 'View.swift:3: error: cannot find type\\n'; exit 65")
	target := filepath.Join(env.dir, "View.swift")
	require.NoError(t, os.WriteFile(target, []byte("original\n"), 0644))

	out, _ := runGate(t, env, requestJSON(t, target, "broken"))

	assert.Equal(t, "FAILED", out.Status)
	assert.Empty(t, out.VerificationToken)
	assert.Contains(t, out.Message, "(retry 1/3)")
	assert.Contains(t, out.Message, "error: cannot find type")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(data))
	assert.Equal(t, 1, readCount(t, env))
	assert.NoFileExists(t, target+".bak")
}

func TestRunHaltsWhenBreakerOpen(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	env.setCount(t, 3)
	target := filepath.Join(env.dir, "View.swift")
	require.NoError(t, os.WriteFile(target, []byte("original\n"), 0644))

	out, _ := runGate(t, env, requestJSON(t, target, "new content"))

	assert.Equal(t, "HALT", out.Status)
	assert.Contains(t, out.Message, "maximum retry count reached (3 attempts)")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(data))
	assert.Equal(t, 3, readCount(t, env))
}

func TestRunThreeFailuresThenHalt(t *testing.T) {
	env := newTestEnv(t, "exit 1")
	target := filepath.Join(env.dir, "View.swift")

	for i := 1; i <= 3; i++ {
		out, _ := runGate(t, env, requestJSON(t, target, "broken"))
		require.Equal(t, "FAILED", out.Status, "attempt %d", i)
		assert.Contains(t, out.Message, fmt.Sprintf("(retry %d/3)", i))
		assert.NoFileExists(t, target, "a new file must be removed after a failed verification")
	}

	out, _ := runGate(t, env, requestJSON(t, target, "broken"))
	assert.Equal(t, "HALT", out.Status)
}

func TestRunRecordsHistory(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	target := filepath.Join(env.dir, "View.swift")

	out, _ := runGate(t, env, requestJSON(t, target, "ok"))
	require.Equal(t, "SUCCESS", out.Status)

	store, err := history.NewStore(env.dbPath)
	require.NoError(t, err)
	defer store.Close()

	attempts, err := store.List(context.Background(), history.Filter{})
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, target, attempts[0].FilePath)
	assert.Equal(t, models.StatusSuccess, attempts[0].Status)
	assert.Equal(t, out.VerificationToken, attempts[0].Token)
}

func TestRunMalformedRequest(t *testing.T) {
	env := newTestEnv(t, "exit 0")

	tests := []struct {
		name  string
		stdin string
	}{
		{"not json", "hello"},
		{"empty", ""},
		{"missing new_code", `{"file_path":"a.swift"}`},
		{"missing file_path", `{"new_code":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runGate(t, env, tt.stdin)
			assert.Equal(t, "ERROR", out.Status)
			assert.Contains(t, out.Message, "request parsing")
		})
	}
	assert.NoFileExists(t, env.stateFile)
}

func TestRunInvalidConfigReportsError(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	target := filepath.Join(env.dir, "View.swift")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero max retries", []string{"--max-retries", "0"}, "max_retries"},
		{"bad timeout", []string{"--timeout", "soon"}, "invalid timeout format"},
		{"bad log level", []string{"--log-level", "loud"}, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runGate(t, env, requestJSON(t, target, "x"), tt.args...)
			assert.Equal(t, "ERROR", out.Status)
			assert.Contains(t, out.Message, "configuration")
			assert.Contains(t, out.Message, tt.want)
		})
	}
	assert.NoFileExists(t, target)
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	env := newTestEnv(t, "exit 1")
	otherState := filepath.Join(env.dir, "other.json")
	require.NoError(t, os.WriteFile(otherState, []byte(`{"count":1}`), 0644))
	target := filepath.Join(env.dir, "View.swift")

	out, _ := runGate(t, env, requestJSON(t, target, "x"),
		"--state-file", otherState, "--max-retries", "2")

	assert.Equal(t, "FAILED", out.Status)
	assert.Contains(t, out.Message, "(retry 2/2)")
	assert.NoFileExists(t, env.stateFile)

	out, _ = runGate(t, env, requestJSON(t, target, "x"),
		"--state-file", otherState, "--max-retries", "2")
	assert.Equal(t, "HALT", out.Status)
}

func TestRunTimeout(t *testing.T) {
	env := newTestEnv(t, "sleep 5")
	target := filepath.Join(env.dir, "View.swift")

	out, _ := runGate(t, env, requestJSON(t, target, "x"), "--timeout", "200ms")

	assert.Equal(t, "FAILED", out.Status)
	assert.Contains(t, out.Message, "timed out after 200ms")
	assert.NoFileExists(t, target)
}

func TestRunLockHeld(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	target := filepath.Join(env.dir, "View.swift")

	lock, err := gate.AcquireLock(env.stateFile)
	require.NoError(t, err)
	defer lock.Unlock()

	out, _ := runGate(t, env, requestJSON(t, target, "x"))

	assert.Equal(t, "ERROR", out.Status)
	assert.Contains(t, out.Message, gate.ErrLocked.Error())
	assert.NoFileExists(t, target)
}

func TestRunWritesLogFile(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	target := filepath.Join(env.dir, "View.swift")

	out, _ := runGate(t, env, requestJSON(t, target, "x"), "--log-dir", env.logDir)
	require.Equal(t, "SUCCESS", out.Status)

	data, err := os.ReadFile(filepath.Join(env.logDir, "latest.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), target)
	assert.Contains(t, string(data), out.VerificationToken)
}

func TestRunUnwrapsFencedCode(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	env.appendConfig(t, "input:\n  unwrap_fenced_code: true\n")
	target := filepath.Join(env.dir, "View.swift")

	out, _ := runGate(t, env, requestJSON(t, target, "```swift\nstruct View {}\n```\n"))
	require.Equal(t, "SUCCESS", out.Status)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "struct View {}\n", string(data))
}

func TestRunWritesFencedCodeVerbatimByDefault(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	target := filepath.Join(env.dir, "gen.sh")
	code := "```\necho hi\n```"

	out, _ := runGate(t, env, requestJSON(t, target, code))
	require.Equal(t, "SUCCESS", out.Status)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, code, string(data))
}
