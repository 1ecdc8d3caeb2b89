package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-bakery-orderflow/internal/auth"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	// nil would make cobra fall back to os.Args
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestHash_UsableByAuthenticator(t *testing.T) {
	hash, err := run(t, "cookies\n")
	require.NoError(t, err)

	a, err := auth.New(hash, "secret", time.Hour)
	require.NoError(t, err)
	_, _, err = a.Login("cookies")
	assert.NoError(t, err)
}

func TestCheck(t *testing.T) {
	hash, err := run(t, "cookies")
	require.NoError(t, err)

	out, err := run(t, "cookies\r\n", "--check", hash)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = run(t, "biscuits\n", "--check", hash)
	assert.Error(t, err)
}

func TestEmptyPassword(t *testing.T) {
	_, err := run(t, "")
	assert.Error(t, err)
	_, err = run(t, "\n")
	assert.Error(t, err)
}
