package deps

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 5 * time.Second

// Binary is the probe result for one external executable.
type Binary struct {
	Name    string
	Command string
	// Path is set when the command resolves on disk or PATH.
	Path    string
	Version string
	// Detail explains why the binary is unusable.
	Detail string
}

// Available reports whether the command resolved.
func (b Binary) Available() bool { return b.Path != "" }

// Lookup resolves command without running it.
func Lookup(name, command string) Binary {
	b := Binary{Name: name, Command: strings.TrimSpace(command)}
	if b.Command == "" {
		b.Detail = "command not configured"
		return b
	}
	path, err := exec.LookPath(b.Command)
	if err != nil {
		b.Detail = fmt.Sprintf("binary %q not found", b.Command)
		return b
	}
	b.Path = path
	return b
}

// ProbeFFmpeg resolves the transcoder and records its version banner. A
// binary that resolves but fails "-version" keeps its Path and gets a Detail.
func ProbeFFmpeg(ctx context.Context, command string) Binary {
	b := Lookup("FFmpeg", command)
	if !b.Available() {
		return b
	}
	version, err := Version(ctx, b.Path)
	if err != nil {
		b.Detail = err.Error()
		return b
	}
	b.Version = version
	return b
}

// Version runs "<path> -version" and returns the first non-empty line,
// e.g. "ffmpeg version 6.1.1".
func Version(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("binary not configured")
	}
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, path, "-version").Output() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", path, err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s -version: empty output", path)
}
