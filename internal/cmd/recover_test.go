package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harrison/verigate/internal/gate"
	"github.com/harrison/verigate/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orphanTree leaves one journaled backup, one journaled new-file marker and
// one backup the user made by hand, as an interrupted invocation would.
func orphanTree(t *testing.T, env *testEnv) (dir, existing, created, userBackup string) {
	t.Helper()
	dir = t.TempDir()
	existing = filepath.Join(dir, "App", "View.swift")
	created = filepath.Join(dir, "App", "New.swift")
	user := filepath.Join(dir, "App", "Settings.swift")
	userBackup = user + ".bak"

	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, os.MkdirAll(filepath.Dir(env.stateFile), 0755))
	require.NoError(t, os.WriteFile(existing, []byte("original"), 0644))
	require.NoError(t, os.WriteFile(user, []byte("current"), 0644))
	require.NoError(t, os.WriteFile(userBackup, []byte("user's own old backup"), 0644))

	journal := snapshot.NewJournal(gate.JournalPath(env.stateFile))
	_, err := journal.Capture(existing)
	require.NoError(t, err)
	_, err = journal.Capture(created)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(existing, []byte("unverified"), 0644))
	require.NoError(t, os.WriteFile(created, []byte("unverified"), 0644))
	return dir, existing, created, userBackup
}

func TestRecoverRestoresArtifacts(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	dir, existing, created, userBackup := orphanTree(t, env)

	stdout, _, err := execute(t, "", "recover", dir, "--config", env.configPath)
	require.NoError(t, err)

	assert.Contains(t, stdout, "[1/2]")
	assert.Contains(t, stdout, "[2/2]")
	assert.Contains(t, stdout, "restored backup")
	assert.Contains(t, stdout, "removed unverified new file")
	assert.Contains(t, stdout, "Recovered 2 files")

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assert.NoFileExists(t, existing+".bak")
	assert.NoFileExists(t, created)
	assert.NoFileExists(t, created+".new")
	assert.NoFileExists(t, gate.JournalPath(env.stateFile))

	data, err = os.ReadFile(userBackup)
	require.NoError(t, err)
	assert.Equal(t, "user's own old backup", string(data))
}

func TestRecoverDryRun(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	dir, existing, created, userBackup := orphanTree(t, env)

	stdout, _, err := execute(t, "", "recover", dir, "--dry-run", "--config", env.configPath)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Leftover snapshot artifacts found")
	assert.Contains(t, stdout, existing+".bak")
	assert.Contains(t, stdout, created+".new")
	assert.NotContains(t, stdout, userBackup)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "unverified", string(data))
	assert.FileExists(t, existing+".bak")
	assert.FileExists(t, created)
	assert.FileExists(t, gate.JournalPath(env.stateFile))
}

func TestRecoverNothingToDo(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	dir := t.TempDir()
	target := filepath.Join(dir, "Config.swift")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.new"), []byte("not a marker"), 0644))
	require.NoError(t, os.WriteFile(target, []byte("current"), 0644))
	require.NoError(t, os.WriteFile(target+".bak", []byte("user's own old backup"), 0644))

	stdout, _, err := execute(t, "", "recover", dir, "--config", env.configPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No leftover snapshot artifacts found")
	assert.FileExists(t, filepath.Join(dir, "notes.new"))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "current", string(data))
	data, err = os.ReadFile(target + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "user's own old backup", string(data))
}

func TestRecoverTooManyArgs(t *testing.T) {
	_, _, err := execute(t, "", "recover", "a", "b")
	assert.Error(t, err)
}
