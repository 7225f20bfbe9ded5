package cmd

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBlameOptsToArgs(t *testing.T) {
	tests := map[string]struct {
		opts     BlameOpts
		expected []string
	}{
		"none":       {BlameOpts{}, []string{}},
		"whitespace": {BlameOpts{IgnoreWhitespace: true}, []string{"-w"}},
		"both": {
			BlameOpts{IgnoreWhitespace: true, IgnoreRevsFile: "/r/.git-blame-ignore-revs"},
			[]string{"-w", "--ignore-revs-file", "/r/.git-blame-ignore-revs"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(test.expected, test.opts.ToArgs()); diff != "" {
				t.Errorf("wrong args:\n%s", diff)
			}
		})
	}
}

func TestSubprocessErrMessage(t *testing.T) {
	err := SubprocessErr{
		Args:     []string{"-c", "blame.date=iso", "blame", "-f"},
		ExitCode: 128,
		Stderr:   "fatal: no such path",
		Err:      errors.New("exit status 128"),
	}

	expected := "git blame exited with code 128. Error output:\nfatal: no such path"
	if err.Error() != expected {
		t.Errorf("got %q", err.Error())
	}

	var target SubprocessErr
	if !errors.As(error(err), &target) || target.ExitCode != 128 {
		t.Errorf("errors.As failed")
	}
}

func TestSplitNull(t *testing.T) {
	data := []byte("a\x00bc\x00d")

	var tokens []string
	for len(data) > 0 {
		advance, token, err := splitNull(data, true)
		if err != nil {
			t.Fatal(err)
		}
		if advance == 0 {
			break
		}
		tokens = append(tokens, string(token))
		data = data[advance:]
	}

	if diff := cmp.Diff([]string{"a", "bc", "d"}, tokens); diff != "" {
		t.Errorf("wrong tokens:\n%s", diff)
	}
}
