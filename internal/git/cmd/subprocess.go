package cmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os/exec"
	"strings"
)

type SubprocessErr struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (err SubprocessErr) Error() string {
	name := "git"
	if sub := subcommand(err.Args); sub != "" {
		name = "git " + sub
	}

	if err.Stderr != "" {
		return fmt.Sprintf(
			"%s exited with code %d. Error output:\n%s",
			name,
			err.ExitCode,
			err.Stderr,
		)
	}

	return fmt.Sprintf("%s exited with code %d", name, err.ExitCode)
}

// First argument that isn't a "-c key=value" override.
func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}

		return args[i]
	}

	return ""
}

func (err SubprocessErr) Unwrap() error {
	return err.Err
}

// A running git process. Read stdout fully, then call Wait.
type Subprocess struct {
	cmd    *exec.Cmd
	args   []string
	stdout io.ReadCloser
	stderr *bytes.Buffer
}

func (s Subprocess) StdoutText() (string, error) {
	b, err := io.ReadAll(s.stdout)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

// Returns a single-use iterator over the output of the command, line by line.
func (s Subprocess) StdoutLines() (iter.Seq[string], func() error) {
	var iterErr error

	seq := func(yield func(string) bool) {
		scanner := bufio.NewScanner(s.stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}

		iterErr = scanner.Err()
	}

	finish := func() error {
		if iterErr != nil {
			iterErr = fmt.Errorf("error while scanning: %w", iterErr)
		}

		return iterErr
	}

	return seq, finish
}

// Returns a single-use iterator over NULL-terminated records, as printed by
// commands run with -z.
func (s Subprocess) StdoutNullDelimitedLines() (
	iter.Seq[string],
	func() error,
) {
	var iterErr error

	seq := func(yield func(string) bool) {
		scanner := bufio.NewScanner(s.stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
		scanner.Split(splitNull)

		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}

		iterErr = scanner.Err()
	}

	finish := func() error {
		if iterErr != nil {
			iterErr = fmt.Errorf("error while scanning: %w", iterErr)
		}

		return iterErr
	}

	return seq, finish
}

func splitNull(data []byte, atEOF bool) (int, []byte, error) {
	i := bytes.IndexByte(data, '\x00')
	if i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		if len(data) == 0 {
			return 0, nil, nil
		}
		return len(data), data, nil
	}

	return 0, nil, nil // Scan more
}

// Waits for the process to exit. Any remaining stdout is discarded.
func (s Subprocess) Wait() error {
	logger().Debug("waiting for subprocess...")

	_, err := io.Copy(io.Discard, s.stdout)
	if err != nil {
		return fmt.Errorf("could not drain stdout: %w", err)
	}

	err = s.cmd.Wait()
	logger().Debug(
		"subprocess exited",
		"code",
		s.cmd.ProcessState.ExitCode(),
	)

	if err != nil {
		return SubprocessErr{
			Args:     s.args,
			ExitCode: s.cmd.ProcessState.ExitCode(),
			Stderr:   strings.TrimSpace(s.stderr.String()),
			Err:      err,
		}
	}

	return nil
}

// Longest single line of output we accept, e.g. a minified file under blame.
const maxLineLength = 16 * 1024 * 1024

func run(
	ctx context.Context,
	dir string,
	args []string,
) (*Subprocess, error) {
	fullArgs := args
	if dir != "" {
		fullArgs = append([]string{"-C", dir}, args...)
	}

	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	logger().Debug("running subprocess", "cmd", cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start subprocess: %w", err)
	}

	return &Subprocess{
		cmd:    cmd,
		args:   args,
		stdout: stdout,
		stderr: &stderr,
	}, nil
}
