package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

// stderrCap bounds how much tesseract stderr ends up in logs and errors.
const stderrCap = 512

// Runner executes an external program. TesseractCLI goes through it so tests
// can script tesseract's output.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	attrs := []any{"cmd", name, "args", args, "elapsed_ms", time.Since(start).Milliseconds()}
	if err != nil {
		exit := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			exit = ee.ExitCode()
		}
		logger.Error("ocr.exec.failed", append(attrs, "exit_code", exit, "error", err, "stderr", clip(stderr.Bytes()))...)
		return stdout.Bytes(), stderr.Bytes(), err
	}
	logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", stdout.Len())...)
	return stdout.Bytes(), stderr.Bytes(), nil
}

// clip returns b as a string of at most stderrCap bytes.
func clip(b []byte) string {
	if len(b) <= stderrCap {
		return string(b)
	}
	return string(b[:stderrCap]) + "...(truncated)"
}
