package speech

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// RecorderFunc opens a stream of raw linear16 audio. Closing the stream
// stops capture.
type RecorderFunc func(ctx context.Context) (io.ReadCloser, error)

// PlayerFunc opens a sink for raw linear16 audio. Close blocks until
// playback finishes.
type PlayerFunc func(ctx context.Context) (io.WriteCloser, error)

// CommandRecorder runs argv and reads audio from its stdout.
func CommandRecorder(argv []string) RecorderFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		if len(argv) == 0 {
			return nil, ErrNoCommand
		}

		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("recorder stdout: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("starting recorder %s: %w", argv[0], err)
		}

		return &recorderProcess{cmd: cmd, stdout: stdout}, nil
	}
}

// CommandPlayer runs argv and writes audio to its stdin. Cancelling ctx kills
// the player, which stops speech mid-utterance.
func CommandPlayer(argv []string) PlayerFunc {
	return func(ctx context.Context) (io.WriteCloser, error) {
		if len(argv) == 0 {
			return nil, ErrNoCommand
		}

		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("player stdin: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("starting player %s: %w", argv[0], err)
		}

		return &playerProcess{cmd: cmd, stdin: stdin}, nil
	}
}

// lookCommand reports whether argv names an executable on PATH.
func lookCommand(argv []string) error {
	if len(argv) == 0 {
		return ErrNoCommand
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return fmt.Errorf("audio command %s: %w", argv[0], err)
	}
	return nil
}

type recorderProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (r *recorderProcess) Read(p []byte) (int, error) {
	return r.stdout.Read(p)
}

func (r *recorderProcess) Close() error {
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	_ = r.cmd.Wait()
	return nil
}

type playerProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func (p *playerProcess) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *playerProcess) Close() error {
	if err := p.stdin.Close(); err != nil {
		return err
	}
	return p.cmd.Wait()
}
