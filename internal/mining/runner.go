package mining

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// runner abstracts external process execution for testing.
type runner interface {
	// Run executes a process with stdin piped in, collecting stdout and
	// stderr until exit. A non-nil error means the process could not be
	// started; a non-zero exit code is reported through exitCode.
	Run(ctx context.Context, bin string, args []string, dir string, stdin []byte) (stdout, stderr []byte, exitCode int, err error)
}

// osRunner is the production runner backed by os/exec.
type osRunner struct{}

func (osRunner) Run(ctx context.Context, bin string, args []string, dir string, stdin []byte) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir

	var out, errBuf bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Start(); err != nil {
		return nil, nil, 0, err
	}

	err := cmd.Wait()
	if err != nil {
		// Prefer the context error so deadlines surface as such.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out.Bytes(), errBuf.Bytes(), -1, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.Bytes(), errBuf.Bytes(), exitErr.ExitCode(), nil
		}
		return out.Bytes(), errBuf.Bytes(), -1, err
	}

	return out.Bytes(), errBuf.Bytes(), 0, nil
}
