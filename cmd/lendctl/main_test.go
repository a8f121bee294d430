package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booklend/internal/auth"
	"booklend/internal/config"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	id := uuid.New()

	out, err := runCmd(t, "token", "--user", id.String(), "--ttl", "10m")
	require.NoError(t, err)

	got, err := auth.ParseToken("cli-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokenCommandErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	_, err := runCmd(t, "token", "--user", "nope")
	assert.EqualError(t, err, "--user must be a uuid")

	_, err = runCmd(t, "token")
	assert.Error(t, err, "--user is required")

	t.Setenv("JWT_SECRET", "")
	_, err = runCmd(t, "token", "--user", uuid.NewString())
	assert.ErrorIs(t, err, config.ErrMissingJWTSecret)
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := runCmd(t, "migrate")
	assert.ErrorIs(t, err, config.ErrMissingDatabaseURL)
}
