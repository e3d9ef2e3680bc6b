// Package runner runs exec generators as child processes speaking JSON over
// stdin and stdout.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/stackvity/codelens/pkg/codelens/generator"
)

const (
	// maxLogOutputBytes limits how much stdout is echoed into logs on JSON errors.
	maxLogOutputBytes = 1024
	// maxReadBytes limits captured stdout and stderr.
	maxReadBytes = 10 * 1024 * 1024
	// waitDelay bounds how long I/O may linger after the process is killed.
	waitDelay = 2 * time.Second
)

var errStdoutLimit = fmt.Errorf("stdout exceeded limit of %d bytes", maxReadBytes)

// ExecRunner implements generator.ExecRunner with os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates an ExecRunner logging through handler.
func NewExecRunner(handler slog.Handler) *ExecRunner {
	if handler == nil {
		handler = slog.DiscardHandler
	}
	return &ExecRunner{logger: slog.New(handler).With(slog.String("component", "execRunner"))}
}

// Run starts command, writes req to its stdin and decodes its stdout. The
// process is killed when ctx ends.
func (r *ExecRunner) Run(ctx context.Context, command []string, req generator.ExecRequest) (generator.ExecResponse, error) {
	if len(command) == 0 || command[0] == "" {
		return generator.ExecResponse{}, generator.Errorf("command cannot be empty")
	}
	logArgs := []any{slog.String("command", command[0]), slog.String("language", req.Language)}

	req.SchemaVersion = generator.ExecSchemaVersion
	input, err := json.Marshal(req)
	if err != nil {
		return generator.ExecResponse{}, generator.Errorf("marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.WaitDelay = waitDelay
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return generator.ExecResponse{}, generator.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return generator.ExecResponse{}, generator.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return generator.ExecResponse{}, generator.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		r.logger.Error("Failed to start exec generator", append(logArgs, slog.Any("error", err))...)
		return generator.ExecResponse{}, generator.Errorf("start %q: %w", command[0], err)
	}
	r.logger.Debug("Exec generator started", logArgs...)

	var (
		wg                   sync.WaitGroup
		writeErr, readErr    error
		stdoutData, errBytes []byte
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		defer stdin.Close()
		_, writeErr = stdin.Write(input)
	}()
	go func() {
		defer wg.Done()
		stdoutData, readErr = readLimited(stdout)
	}()
	go func() {
		defer wg.Done()
		errBytes, _ = readLimited(stderr)
	}()

	wg.Wait()
	waitErr := cmd.Wait()
	stderrText := strings.TrimSpace(string(errBytes))
	if stderrText != "" {
		logArgs = append(logArgs, slog.String("stderr", stderrText))
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.logger.Warn("Exec generator cancelled or timed out", append(logArgs, slog.Any("error", ctxErr))...)
		if errors.Is(ctxErr, context.Canceled) {
			return generator.ExecResponse{}, generator.WrapExecError(ctxErr, "%q cancelled", command[0])
		}
		return generator.ExecResponse{}, generator.WrapExecError(generator.ErrExecGeneratorTimeout, "%q: %v", command[0], ctxErr)
	}
	if waitErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		r.logger.Error("Exec generator failed", append(logArgs, slog.Int("exitCode", exitCode))...)
		return generator.ExecResponse{}, generator.WrapExecError(generator.ErrExecGeneratorNonZeroExit, "%q exited with code %d", command[0], exitCode)
	}
	if writeErr != nil && !errors.Is(writeErr, syscall.EPIPE) && !errors.Is(writeErr, os.ErrClosed) {
		return generator.ExecResponse{}, generator.Errorf("write request to %q: %w", command[0], writeErr)
	}
	if readErr != nil {
		return generator.ExecResponse{}, generator.WrapExecError(generator.ErrExecGeneratorBadOutput, "read stdout of %q: %v", command[0], readErr)
	}
	if len(bytes.TrimSpace(stdoutData)) == 0 {
		return generator.ExecResponse{}, generator.WrapExecError(generator.ErrExecGeneratorBadOutput, "%q returned empty stdout", command[0])
	}

	var resp generator.ExecResponse
	if err := json.Unmarshal(stdoutData, &resp); err != nil {
		prefix := string(stdoutData)
		if len(prefix) > maxLogOutputBytes {
			prefix = prefix[:maxLogOutputBytes] + "... (truncated)"
		}
		r.logger.Error("Exec generator output is not JSON", append(logArgs, slog.String("stdoutPrefix", prefix))...)
		return generator.ExecResponse{}, generator.WrapExecError(generator.ErrExecGeneratorBadOutput, "decode output of %q: %v", command[0], err)
	}
	if resp.SchemaVersion != generator.ExecSchemaVersion {
		return generator.ExecResponse{}, generator.WrapExecError(generator.ErrExecGeneratorBadOutput,
			"%q uses schema version %q, expected %q", command[0], resp.SchemaVersion, generator.ExecSchemaVersion)
	}
	if resp.Error != "" {
		return generator.ExecResponse{}, generator.WrapExecError(generator.ErrExecGeneratorBadOutput, "%q reported: %s", command[0], resp.Error)
	}

	r.logger.Debug("Exec generator finished", logArgs...)
	return resp, nil
}

// readLimited reads r up to maxReadBytes and drains the rest. Errors from a
// pipe closed by Wait are not reported.
func readLimited(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxReadBytes))
	if err != nil && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
		return buf.Bytes(), err
	}
	if n >= maxReadBytes {
		_, _ = io.Copy(io.Discard, r)
		return buf.Bytes(), errStdoutLimit
	}
	return buf.Bytes(), nil
}
