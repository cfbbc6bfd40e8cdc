package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stonelabs/webduino-generator/internal/arduino"
)

// execute runs the root command with args and returns the combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	noColorBefore := color.NoColor
	t.Cleanup(func() { color.NoColor = noColorBefore })

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--no-color"))

	err := root.Execute()
	return out.String(), err
}

type fakePrompter struct {
	inputs    []string
	passwords []string
	confirm   bool
	selection int
	asked     []string
}

func (p *fakePrompter) Input(message, def string) (string, error) {
	p.asked = append(p.asked, message)
	if len(p.inputs) == 0 {
		return def, nil
	}
	v := p.inputs[0]
	p.inputs = p.inputs[1:]
	return v, nil
}

func (p *fakePrompter) Password(message string) (string, error) {
	p.asked = append(p.asked, message)
	if len(p.passwords) == 0 {
		return "", nil
	}
	v := p.passwords[0]
	p.passwords = p.passwords[1:]
	return v, nil
}

func (p *fakePrompter) Confirm(message string, def bool) (bool, error) {
	p.asked = append(p.asked, message)
	return p.confirm, nil
}

func (p *fakePrompter) Select(message string, options []string) (int, error) {
	p.asked = append(p.asked, message)
	return p.selection, nil
}

// usePrompter installs p for the duration of the test.
func usePrompter(t *testing.T, p Prompter) {
	t.Helper()
	prev := prompter
	prompter = p
	t.Cleanup(func() { prompter = prev })
}

type runnerCall struct {
	path string
	args []string
}

type fakeRunner struct {
	listAll  string
	list     string
	calls    []runnerCall
	started  []runnerCall
	notFound bool
}

func (f *fakeRunner) LookPath(file string) (string, error) {
	if f.notFound {
		return "", os.ErrNotExist
	}
	return "/opt/bin/" + file, nil
}

func (f *fakeRunner) Output(_ context.Context, path string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, runnerCall{path, args})
	if len(args) > 1 && args[1] == "listall" {
		return []byte(f.listAll), nil
	}
	return []byte(f.list), nil
}

func (f *fakeRunner) Run(_ context.Context, path string, args ...string) error {
	f.calls = append(f.calls, runnerCall{path, args})
	return nil
}

func (f *fakeRunner) Start(path string, args ...string) error {
	f.started = append(f.started, runnerCall{path, args})
	return nil
}

// useRunner routes arduino tool calls to r for the duration of the test.
func useRunner(t *testing.T, r arduino.Runner) {
	t.Helper()
	prev := newArduinoClient
	newArduinoClient = func(logger *zap.Logger) *arduino.Client {
		return arduino.New(r, logger)
	}
	t.Cleanup(func() { newArduinoClient = prev })
}

// writeInput creates an input folder with a page and a handler.
func writeInput(t *testing.T, dir string) string {
	t.Helper()
	input := filepath.Join(dir, "site")
	require.NoError(t, os.MkdirAll(input, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "index.html"), []byte("<h1>Hi</h1>\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(input, "led.cpp"), []byte("void respond() {}\n"), 0644))
	return input
}
