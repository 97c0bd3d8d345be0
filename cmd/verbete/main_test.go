package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbetes/verbete-server/internal/auth"
	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/service"
)

type cliTestEnv struct {
	dataPath string
	envFile  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	return &cliTestEnv{
		dataPath: filepath.Join(base, "data"),
		envFile:  filepath.Join(base, "none.env"),
	}
}

// run executes the CLI with args and returns stdout.
func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{
		"--data-path", env.dataPath,
		"--env-file", env.envFile,
		"--log-level", "error",
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "token", "--user", "user-rev", "--name", "Rita", "--role", "reviewer")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)

	key, err := auth.LoadOrGenerateKey(env.dataPath)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	claims, err := tokens.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: "user-rev", Name: "Rita", Role: domain.RoleReviewer}, claims.Principal())
}

func TestTokenCommand_Errors(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "token", "--user", "u1", "--role", "admin")
	assert.ErrorContains(t, err, `invalid role "admin"`)

	_, err = env.run(t, "token")
	assert.ErrorContains(t, err, "user")
}

func TestFixContentCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "fix-content")
	require.NoError(t, err)
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "Updated")

	out, err = env.run(t, "fix-content", "--json")
	require.NoError(t, err)

	var result service.FixResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.NotEmpty(t, result.RunID)
	assert.Zero(t, result.Total)
	assert.Zero(t, result.Failed)
}

func TestFixContentCommand_Locked(t *testing.T) {
	env := setupCLITestEnv(t)

	// First run creates the data directory.
	_, err := env.run(t, "fix-content")
	require.NoError(t, err)

	lock := flock.New(filepath.Join(env.dataPath, "fix-content.lock"))
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = lock.Unlock() })

	_, err = env.run(t, "fix-content")
	assert.ErrorContains(t, err, "already in progress")
}

func TestReindexCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "reindex")
	require.NoError(t, err)
	assert.Equal(t, "Indexed 0 articles\n", out)
}

func TestRenderFixResult_Errors(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := renderFixResult(&service.FixResult{
		RunID:      "run-1",
		Total:      3,
		Updated:    1,
		Skipped:    1,
		Failed:     1,
		Errors:     []service.FixError{{ID: 42, Kind: "article", Error: "normalize: context deadline exceeded"}},
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	})

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "Skipped")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "context deadline exceeded")
	assert.Contains(t, out, "42")
}
