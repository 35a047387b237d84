package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
	fail  map[string]bool
}

func (r *recorder) run(_ io.Writer, name string, args ...string) error {
	call := strings.TrimSpace(name + " " + strings.Join(args, " "))
	r.calls = append(r.calls, call)
	if r.fail[call] {
		return fmt.Errorf("%s failed", call)
	}
	return nil
}

func newManager(t *testing.T, p Platform) (*Manager, *recorder, *strings.Builder) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("ATTUNE_HOME", filepath.Join(home, ".attune"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	rec := &recorder{fail: map[string]bool{}}
	out := &strings.Builder{}
	return &Manager{
		Platform: p,
		Home:     home,
		BinDest:  filepath.Join(home, "bin", "attune"),
		Out:      out,
		Run:      rec.run,
	}, rec, out
}

func fakeBinary(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "attune")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755))
	return p
}

func TestRender(t *testing.T) {
	m, _, _ := newManager(t, Launchd)
	plist, err := m.Render("/work")
	require.NoError(t, err)
	assert.Contains(t, plist, "<string>com.attune.agent</string>")
	assert.Contains(t, plist, "<string>"+m.BinDest+"</string>\n\t\t<string>run</string>")
	assert.Contains(t, plist, filepath.Join(m.Home, "Library", "Logs", "attune-stderr.log"))

	m.Platform = Systemd
	unit, err := m.Render("/work")
	require.NoError(t, err)
	assert.Contains(t, unit, "ExecStart="+m.BinDest+" run\n")
	assert.Contains(t, unit, "WorkingDirectory=/work\n")
}

func TestInstallSystemd(t *testing.T) {
	m, rec, out := newManager(t, Systemd)
	require.NoError(t, os.WriteFile(".env", []byte("USER_NAME=Sam\n"), 0o600))

	require.NoError(t, m.install(fakeBinary(t)))

	assert.FileExists(t, m.BinDest)
	assert.FileExists(t, m.UnitPath())
	assert.Equal(t, filepath.Join(m.Home, ".config", "systemd", "user", "attune.service"), m.UnitPath())
	seeded, err := os.ReadFile(filepath.Join(os.Getenv("ATTUNE_HOME"), "config"))
	require.NoError(t, err)
	assert.Equal(t, "USER_NAME=Sam\n", string(seeded))
	assert.Equal(t, []string{
		"systemctl --user daemon-reload",
		"systemctl --user enable --now attune.service",
	}, rec.calls)
	assert.Contains(t, out.String(), "seeded config")
}

func TestInstallLaunchdReloadsExisting(t *testing.T) {
	m, rec, out := newManager(t, Launchd)
	require.NoError(t, os.MkdirAll(filepath.Dir(m.UnitPath()), 0o755))
	require.NoError(t, os.WriteFile(m.UnitPath(), []byte("old"), 0o644))

	require.NoError(t, m.install(fakeBinary(t)))

	assert.Equal(t, []string{
		"launchctl unload " + m.UnitPath(),
		"launchctl load " + m.UnitPath(),
	}, rec.calls)
	assert.NotContains(t, out.String(), "seeded config", "no .env to seed from")
}

func TestWorkDirFollowsRelativePaths(t *testing.T) {
	_, _, _ = newManager(t, Systemd)
	assert.Equal(t, os.Getenv("ATTUNE_HOME"), resolveWorkDir())

	require.NoError(t, os.MkdirAll(os.Getenv("ATTUNE_HOME"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(os.Getenv("ATTUNE_HOME"), "config"), []byte("TRACKING_PATH=data/tracking.json\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, resolveWorkDir())
}

func TestUninstall(t *testing.T) {
	m, rec, out := newManager(t, Systemd)
	require.NoError(t, m.install(fakeBinary(t)))
	rec.calls = nil
	rec.fail["systemctl --user disable --now attune.service"] = true

	require.NoError(t, m.Uninstall())
	assert.NoFileExists(t, m.UnitPath())
	assert.NoFileExists(t, m.BinDest)
	assert.Contains(t, out.String(), "warning:")

	out.Reset()
	require.NoError(t, m.Uninstall())
	assert.Contains(t, out.String(), "unit not found")
	assert.Contains(t, out.String(), "binary not found")
}

func TestControlCommands(t *testing.T) {
	m, rec, out := newManager(t, Launchd)
	require.NoError(t, m.Restart())
	assert.Equal(t, []string{"launchctl stop com.attune.agent", "launchctl start com.attune.agent"}, rec.calls)

	rec.calls = nil
	m.Platform = Systemd
	require.NoError(t, m.Restart())
	require.NoError(t, m.Logs())
	assert.Equal(t, []string{
		"systemctl --user restart attune.service",
		"journalctl --user -u attune.service -f",
	}, rec.calls)

	rec.fail["systemctl --user status --no-pager attune.service"] = true
	require.NoError(t, m.Status())
	assert.Contains(t, out.String(), "service is not loaded")
}
