package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/protectgrid/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error for help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Message, "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_MissingInventoryIsNotAUsageError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "providers"), 0o755))

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{
		"--provider-config-dir", filepath.Join(dir, "providers"),
		"--inventory", filepath.Join(dir, "missing.yaml"),
		"protectable", "types",
	})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read inventory file")
	var exitErr *cli.ExitError
	require.False(t, errors.As(err, &exitErr))
}
