// Package service installs attune as a background service that runs
// `attune run`: a launchd agent on macOS, a systemd user unit elsewhere.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"github.com/joho/godotenv"

	"github.com/chris/attune/config"
)

const (
	label    = "com.attune.agent"
	unitName = "attune.service"
)

// Platform is the service manager in use.
type Platform string

const (
	Launchd Platform = "launchd"
	Systemd Platform = "systemd"
)

// Runner executes an external command, streaming its stdout to out.
type Runner func(out io.Writer, name string, args ...string) error

// Manager installs and controls the service.
type Manager struct {
	Platform Platform
	Home     string
	BinDest  string
	Out      io.Writer
	Run      Runner
}

// New returns a manager for the current OS and user.
func New(out io.Writer) (*Manager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home dir: %w", err)
	}
	m := &Manager{Platform: Systemd, Home: home, Out: out, Run: execRunner}
	m.BinDest = filepath.Join(home, ".local", "bin", "attune")
	if runtime.GOOS == "darwin" {
		m.Platform = Launchd
		m.BinDest = "/usr/local/bin/attune"
	}
	return m, nil
}

// UnitPath is where the plist or unit file lives.
func (m *Manager) UnitPath() string {
	if m.Platform == Launchd {
		return filepath.Join(m.Home, "Library", "LaunchAgents", label+".plist")
	}
	return filepath.Join(m.Home, ".config", "systemd", "user", unitName)
}

func (m *Manager) logDir() string {
	if m.Platform == Launchd {
		return filepath.Join(m.Home, "Library", "Logs")
	}
	return filepath.Join(config.ConfigDir(), "logs")
}

func (m *Manager) stdoutLog() string { return filepath.Join(m.logDir(), "attune-stdout.log") }
func (m *Manager) stderrLog() string { return filepath.Join(m.logDir(), "attune-stderr.log") }

// Install copies the running binary to BinDest, seeds the installed config
// from ./.env if there is none yet, writes the unit and loads it.
func (m *Manager) Install() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolving symlinks: %w", err)
	}
	return m.install(exe)
}

func (m *Manager) install(exe string) error {
	input, err := os.ReadFile(exe)
	if err != nil {
		return fmt.Errorf("reading binary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.BinDest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(m.BinDest), err)
	}
	if err := os.WriteFile(m.BinDest, input, 0o755); err != nil {
		return fmt.Errorf("copying binary to %s: %w", m.BinDest, err)
	}
	fmt.Fprintf(m.Out, "installed binary to %s\n", m.BinDest)

	if err := m.seedConfig(); err != nil {
		return err
	}

	unit, err := m.Render(resolveWorkDir())
	if err != nil {
		return fmt.Errorf("generating unit: %w", err)
	}
	if _, err := os.Stat(m.UnitPath()); err == nil && m.Platform == Launchd {
		_ = m.ctl("unload", m.UnitPath())
	}
	if err := os.MkdirAll(filepath.Dir(m.UnitPath()), 0o755); err != nil {
		return fmt.Errorf("creating unit dir: %w", err)
	}
	if err := os.MkdirAll(m.logDir(), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	if err := os.WriteFile(m.UnitPath(), []byte(unit), 0o644); err != nil {
		return fmt.Errorf("writing unit: %w", err)
	}
	fmt.Fprintf(m.Out, "wrote %s\n", m.UnitPath())

	if m.Platform == Launchd {
		if err := m.ctl("load", m.UnitPath()); err != nil {
			return fmt.Errorf("loading plist: %w", err)
		}
	} else {
		if err := m.ctl("daemon-reload"); err != nil {
			return err
		}
		if err := m.ctl("enable", "--now", unitName); err != nil {
			return fmt.Errorf("enabling unit: %w", err)
		}
	}
	fmt.Fprintln(m.Out, "service loaded and will start on login")
	return nil
}

func (m *Manager) seedConfig() error {
	configFile := config.ConfigFile()
	if _, err := os.Stat(configFile); err == nil {
		fmt.Fprintf(m.Out, "config already exists at %s\n", configFile)
		return nil
	}
	envData, err := os.ReadFile(".env")
	if err != nil {
		return nil
	}
	if err := os.MkdirAll(config.ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(configFile, envData, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(m.Out, "seeded config from .env -> %s\n", configFile)
	return nil
}

// resolveWorkDir keeps relative data paths working: if the installed config
// names a relative tracking file or database, the service runs from the
// current directory, otherwise from the config dir.
func resolveWorkDir() string {
	envVars, _ := godotenv.Read(config.ConfigFile())
	for _, key := range []string{"TRACKING_PATH", "DATABASE_PATH"} {
		if p, ok := envVars[key]; ok && p != "" && !filepath.IsAbs(p) {
			if wd, err := os.Getwd(); err == nil {
				return wd
			}
		}
	}
	return config.ConfigDir()
}

// Uninstall stops and removes the unit and the installed binary.
func (m *Manager) Uninstall() error {
	if _, err := os.Stat(m.UnitPath()); err == nil {
		var stopErr error
		if m.Platform == Launchd {
			stopErr = m.ctl("unload", m.UnitPath())
		} else {
			stopErr = m.ctl("disable", "--now", unitName)
		}
		if stopErr != nil {
			fmt.Fprintf(m.Out, "warning: %v\n", stopErr)
		}
		if err := os.Remove(m.UnitPath()); err != nil {
			return fmt.Errorf("removing unit: %w", err)
		}
		fmt.Fprintf(m.Out, "removed %s\n", m.UnitPath())
	} else {
		fmt.Fprintln(m.Out, "unit not found, skipping")
	}

	if err := os.Remove(m.BinDest); err == nil {
		fmt.Fprintf(m.Out, "removed %s\n", m.BinDest)
	} else if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(m.Out, "binary not found at %s, skipping\n", m.BinDest)
	} else {
		return fmt.Errorf("removing binary: %w", err)
	}

	fmt.Fprintln(m.Out, "uninstalled")
	return nil
}

func (m *Manager) Start() error {
	if m.Platform == Launchd {
		return m.ctl("start", label)
	}
	return m.ctl("start", unitName)
}

func (m *Manager) Stop() error {
	if m.Platform == Launchd {
		return m.ctl("stop", label)
	}
	return m.ctl("stop", unitName)
}

func (m *Manager) Restart() error {
	if m.Platform == Systemd {
		return m.ctl("restart", unitName)
	}
	_ = m.Stop()
	return m.Start()
}

// Status prints the service manager's view of the service.
func (m *Manager) Status() error {
	var err error
	if m.Platform == Launchd {
		err = m.Run(m.Out, "launchctl", "list", label)
	} else {
		err = m.Run(m.Out, "systemctl", "--user", "status", "--no-pager", unitName)
	}
	if err != nil {
		fmt.Fprintln(m.Out, "service is not loaded")
	}
	return nil
}

// Logs follows the service output until interrupted.
func (m *Manager) Logs() error {
	if m.Platform == Launchd {
		return m.Run(m.Out, "tail", "-f", m.stdoutLog(), m.stderrLog())
	}
	return m.Run(m.Out, "journalctl", "--user", "-u", unitName, "-f")
}

func (m *Manager) ctl(args ...string) error {
	if m.Platform == Launchd {
		return m.Run(io.Discard, "launchctl", args...)
	}
	return m.Run(io.Discard, "systemctl", append([]string{"--user"}, args...)...)
}

func execRunner(out io.Writer, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stdout = out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), msg)
	}
	return nil
}

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinPath}}</string>
		<string>run</string>
	</array>
	<key>WorkingDirectory</key>
	<string>{{.WorkDir}}</string>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.StdoutLog}}</string>
	<key>StandardErrorPath</key>
	<string>{{.StderrLog}}</string>
</dict>
</plist>
`))

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=attune reflection tracker
After=network-online.target

[Service]
ExecStart={{.BinPath}} run
WorkingDirectory={{.WorkDir}}
Restart=on-failure
RestartSec=10

[Install]
WantedBy=default.target
`))

type unitData struct {
	Label     string
	BinPath   string
	WorkDir   string
	StdoutLog string
	StderrLog string
}

// Render produces the plist or unit file for workDir.
func (m *Manager) Render(workDir string) (string, error) {
	tmpl := unitTemplate
	if m.Platform == Launchd {
		tmpl = plistTemplate
	}
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, unitData{
		Label:     label,
		BinPath:   m.BinDest,
		WorkDir:   workDir,
		StdoutLog: m.stdoutLog(),
		StderrLog: m.stderrLog(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
