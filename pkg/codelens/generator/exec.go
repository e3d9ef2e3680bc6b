package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stackvity/codelens/pkg/codelens/explain"
)

// ExecSchemaVersion is the version of the exec generator protocol. Requests
// carry it and responses must echo it.
const ExecSchemaVersion = "1"

var (
	// ErrExecGenerator is the base error of every exec generator failure.
	ErrExecGenerator = errors.New("exec generator failed")
	// ErrExecGeneratorTimeout reports a process killed by its context.
	ErrExecGeneratorTimeout = errors.New("exec generator timed out")
	// ErrExecGeneratorNonZeroExit reports a process exiting with a non-zero status.
	ErrExecGeneratorNonZeroExit = errors.New("exec generator exited non-zero")
	// ErrExecGeneratorBadOutput reports unparsable output, a schema mismatch
	// or an error the generator reported itself.
	ErrExecGeneratorBadOutput = errors.New("exec generator returned invalid output or reported error")
)

// ExecRequest is written as JSON to the process's stdin.
type ExecRequest struct {
	SchemaVersion string `json:"$schemaVersion"`
	Prompt        string `json:"prompt"`
	Excerpt       string `json:"excerpt"`
	Language      string `json:"language,omitempty"`
}

// ExecResponse is read as JSON from the process's stdout.
type ExecResponse struct {
	SchemaVersion string `json:"$schemaVersion"`
	Text          string `json:"text,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ExecRunner runs one exec generator process.
//
// Implementations start command[0] with command[1:] as arguments, without a
// shell, and return errors wrapping ErrExecGenerator and one of its specific
// variants.
type ExecRunner interface {
	Run(ctx context.Context, command []string, req ExecRequest) (ExecResponse, error)
}

// Errorf returns a formatted error wrapping ErrExecGenerator.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrExecGenerator}, args...)...)
}

// WrapExecError wraps specific with ErrExecGenerator and a message.
func WrapExecError(specific error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrExecGenerator, fmt.Sprintf(format, args...), specific)
}

// Exec delegates generation to an external command.
type Exec struct {
	runner  ExecRunner
	command []string
	logger  *slog.Logger
}

// NewExec creates an Exec generator. It fails when runner is nil or command
// is empty.
func NewExec(runner ExecRunner, command []string, handler slog.Handler) (*Exec, error) {
	if runner == nil {
		return nil, Errorf("no process runner configured")
	}
	if len(command) == 0 || command[0] == "" {
		return nil, Errorf("command cannot be empty")
	}
	if handler == nil {
		handler = slog.DiscardHandler
	}
	return &Exec{
		runner:  runner,
		command: command,
		logger:  slog.New(handler).With(slog.String("component", "execGenerator")),
	}, nil
}

// Generate implements explain.Generator. Process timeouts map to
// explain.ErrGeneratorTimeout, every other failure to
// explain.ErrGeneratorUnavailable.
func (e *Exec) Generate(ctx context.Context, prompt, excerpt string) (string, error) {
	resp, err := e.runner.Run(ctx, e.command, ExecRequest{
		SchemaVersion: ExecSchemaVersion,
		Prompt:        prompt,
		Excerpt:       excerpt,
		Language:      explain.LanguageFrom(ctx),
	})
	switch {
	case err == nil:
		return resp.Text, nil
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(err, ErrExecGeneratorTimeout):
		return "", fmt.Errorf("%w: %w", explain.ErrGeneratorTimeout, err)
	default:
		e.logger.Debug("Exec generator failed", slog.String("command", e.command[0]), slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %w", explain.ErrGeneratorUnavailable, err)
	}
}
