package editor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorCmd_Precedence(t *testing.T) {
	t.Setenv("SEASTAR_EDITOR", "")
	t.Setenv("EDITOR", "code --wait")
	t.Setenv("VISUAL", "nano")
	assert.Equal(t, []string{"code", "--wait"}, editorCmd())

	t.Setenv("SEASTAR_EDITOR", "hx")
	assert.Equal(t, []string{"hx"}, editorCmd())

	t.Setenv("SEASTAR_EDITOR", "")
	t.Setenv("EDITOR", "  ")
	assert.Equal(t, []string{"nano"}, editorCmd())

	t.Setenv("VISUAL", "")
	assert.Equal(t, []string{"vi"}, editorCmd())
}

func TestOpen_RunsEditor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script editor")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-editor")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho edited >> \"$1\"\n"), 0755))
	target := filepath.Join(dir, "record.md")
	require.NoError(t, os.WriteFile(target, []byte("x\n"), 0644))

	t.Setenv("SEASTAR_EDITOR", script)
	require.NoError(t, Open(context.Background(), target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "x\nedited\n", string(data))
}

func TestOpen_Failure(t *testing.T) {
	t.Setenv("SEASTAR_EDITOR", filepath.Join(t.TempDir(), "missing-editor"))
	assert.Error(t, Open(context.Background(), "whatever.md"))
}
