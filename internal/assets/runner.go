package assets

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner invokes one external media-tool command. Wrapping the subprocess
// behind an interface keeps the idempotency short-circuits testable without
// ffmpeg installed.
type Runner interface {
	Run(ctx context.Context, args ...string) error
}

// FFmpeg runs the ffmpeg binary. With Nice set, the process is started at
// minimum scheduling priority so background work never starves request
// handling.
type FFmpeg struct {
	Path string
	Nice bool
}

func (f FFmpeg) Run(ctx context.Context, args ...string) error {
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	var cmd *exec.Cmd
	if f.Nice {
		cmd = exec.CommandContext(ctx, "nice", append([]string{"-n", "19", bin}, args...)...)
	} else {
		cmd = exec.CommandContext(ctx, bin, args...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.Bytes(), 300))
	}
	return nil
}

func tail(data []byte, max int) string {
	if len(data) <= max {
		return string(data)
	}
	return string(data[len(data)-max:])
}

// TranscodeError reports an external-tool failure for one source file. It is
// terminal for that one asset only and never fails an aggregate response.
type TranscodeError struct {
	Source string
	Err    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s: %v", e.Source, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }
