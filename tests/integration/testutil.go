// Package integration runs the doireg binary end to end.
package integration

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// doiregBin is the binary built by TestMain.
	doiregBin string
	buildErr  error
)

// BuildError wraps a build error with the compiler output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot walks up from the working directory to go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv is an isolated config and data directory pair.
type TestEnv struct {
	t       *testing.T
	TempDir string
	Config  string
	DataDir string
}

// NewTestEnv writes a config.yaml selecting sqlite with the given sync
// strategy ("" for the default).
func NewTestEnv(t *testing.T, syncStrategy string) *TestEnv {
	t.Helper()
	if buildErr != nil {
		t.Fatalf("failed to build doireg: %v", buildErr)
	}
	if doiregBin == "" {
		t.Fatal("doireg binary not built")
	}

	tempDir := t.TempDir()
	env := &TestEnv{
		t:       t,
		TempDir: tempDir,
		Config:  filepath.Join(tempDir, "config"),
		DataDir: filepath.Join(tempDir, "data"),
	}
	if err := os.MkdirAll(env.Config, 0o755); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	content := "backend: sqlite\ndata_dir: " + env.DataDir + "\n"
	if syncStrategy != "" {
		content += "sync_strategy: " + syncStrategy + "\n"
	}
	if err := os.WriteFile(filepath.Join(env.Config, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// WriteFile stores content under the env's temp dir and returns its path.
func (e *TestEnv) WriteFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.TempDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// CmdResult is the outcome of one doireg invocation.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes doireg against the env's directories. stdin may be nil.
func (e *TestEnv) Run(stdin []byte, args ...string) CmdResult {
	e.t.Helper()
	cmd := exec.Command(doiregBin, append([]string{"--config-dir", e.Config}, args...)...)
	cmd.Env = append(os.Environ(), "DOIREG_LOG_LEVEL=error")
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			e.t.Fatalf("run doireg: %v", err)
		}
		code = exitErr.ExitCode()
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}
}

// MustRun fails the test on a non-zero exit.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	r := e.Run(nil, args...)
	if r.ExitCode != 0 {
		e.t.Fatalf("doireg %v exited %d:\nstdout: %s\nstderr: %s", args, r.ExitCode, r.Stdout, r.Stderr)
	}
	return r
}

// ParseJSON decodes command output.
func ParseJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("parse JSON %q: %v", s, err)
	}
	return v
}

// ReadJSONLFile decodes one value per non-empty line.
func ReadJSONLFile[T any](t *testing.T, path string) []T {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(scanner.Bytes(), &v); err != nil {
			t.Fatalf("parse line in %s: %v", path, err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan %s: %v", path, err)
	}
	return out
}
