package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadCmd_NoDaemon(t *testing.T) {
	isolateEnv(t)
	saveGlobals(t)

	dir := t.TempDir()
	pidPath := filepath.Join(dir, "intake.pid")
	path := writeConfig(t, dir, "\n[intake]\npid_file = \""+pidPath+"\"\n")

	_, err := executeCmd(t, "--config", path, "reload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no running daemon found")
}

func TestReloadCmd_NoPIDFileConfigured(t *testing.T) {
	isolateEnv(t)
	saveGlobals(t)

	dir := t.TempDir()
	path := writeConfig(t, dir, "\n[intake]\npid_file = \"\"\n")

	_, err := executeCmd(t, "--config", path, "reload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PID file configured")
}
