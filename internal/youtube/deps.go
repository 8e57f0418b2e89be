package youtube

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
)

// lineRunner runs a command, feeding each stdout line to onLine as it
// arrives. It returns whatever the command wrote to stderr.
type lineRunner interface {
	Run(ctx context.Context, name string, args []string, onLine func(string)) (string, error)
}

// osLineRunner implements lineRunner using exec.CommandContext.
type osLineRunner struct{}

func (osLineRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) (string, error) {
	// #nosec G204 -- name is a resolved yt-dlp binary, args are built by this package
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		return "", err
	}

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		onLine(sc.Text())
	}
	_, _ = io.Copy(io.Discard, stdout) // keep draining if a line overflowed the scanner

	err = cmd.Wait()
	return stderr.String(), err
}
