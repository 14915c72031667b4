package fuzzy

import (
	"fmt"
	"io"
	"os"
	"strings"

	fzf "github.com/junegunn/fzf/src"
)

// FzfRunner is the seam between the finder and the fzf library, so
// tests can substitute a scripted run.
type FzfRunner interface {
	Run(opts *fzf.Options) (int, error)
}

// DefaultFzfRunner hands the options to the real fzf library.
type DefaultFzfRunner struct{}

func (r *DefaultFzfRunner) Run(opts *fzf.Options) (int, error) {
	return fzf.Run(opts)
}

// FzfFinder runs an interactive fzf selection over a set of options.
type FzfFinder struct {
	prompt  string
	options []Option
	runner  FzfRunner
}

// NewFzf returns a finder backed by the real fzf library.
func NewFzf(prompt string) *FzfFinder {
	return NewFzfWithRunner(prompt, &DefaultFzfRunner{})
}

// NewFzfWithRunner returns a finder with a custom runner, for tests.
func NewFzfWithRunner(prompt string, runner FzfRunner) *FzfFinder {
	return &FzfFinder{
		prompt:  prompt,
		options: make([]Option, 0),
		runner:  runner,
	}
}

// SetOptions replaces the selectable options.
func (f *FzfFinder) SetOptions(options []Option) error {
	if options == nil {
		return fmt.Errorf("options cannot be nil")
	}
	f.options = append([]Option(nil), options...)
	return nil
}

// SetPrompt sets the display prompt.
func (f *FzfFinder) SetPrompt(prompt string) {
	f.prompt = prompt
}

// displayLine formats an option as shown in the fzf list.
func displayLine(option Option) string {
	if option.Description == "" {
		return option.Value
	}
	return fmt.Sprintf("%s  │  %s", option.Value, option.Description)
}

// stageCandidates writes the display lines to a temporary file for fzf
// to read, returning the path and a map from line back to value.
func (f *FzfFinder) stageCandidates() (string, map[string]string, error) {
	tmpFile, err := os.CreateTemp("", "fzf-options-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("failed to stage fzf candidates: %w", err)
	}

	values := make(map[string]string, len(f.options))
	for _, option := range f.options {
		line := displayLine(option)
		values[line] = option.Value
		if _, err := fmt.Fprintln(tmpFile, line); err != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpFile.Name())
			return "", nil, fmt.Errorf("failed to write candidate line: %w", err)
		}
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", nil, fmt.Errorf("failed to flush candidate file: %w", err)
	}
	return tmpFile.Name(), values, nil
}

func (f *FzfFinder) fzfArgs() []string {
	return []string{
		"--prompt=" + f.prompt + " ",
		"--height=10",
		"--layout=default",
		"--no-multi",
		"--cycle",
		"--no-mouse",
		"--no-reverse",
		"--border=none",
	}
}

// Select runs fzf over the options and returns the chosen value. When
// fzf itself cannot run it drops to the plain numbered list instead.
func (f *FzfFinder) Select() (string, error) {
	if len(f.options) == 0 {
		return "", fmt.Errorf("no options available")
	}

	path, values, err := f.stageCandidates()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.Remove(path)
	}()

	opts, err := fzf.ParseOptions(true, f.fzfArgs())
	if err != nil {
		return "", fmt.Errorf("failed to parse fzf options: %w", err)
	}

	// fzf reads candidates from stdin and prints the selection to
	// stdout, so both get swapped for the duration of the run.
	candidates, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open candidate file: %w", err)
	}
	defer func() {
		_ = candidates.Close()
	}()

	pipeR, pipeW, err := os.Pipe()
	if err != nil {
		return "", fmt.Errorf("failed to capture fzf output: %w", err)
	}
	defer func() {
		_ = pipeR.Close()
	}()

	origStdin, origStdout := os.Stdin, os.Stdout
	restore := func() { os.Stdin, os.Stdout = origStdin, origStdout }
	defer restore()

	os.Stdin, os.Stdout = candidates, pipeW
	exitCode, runErr := f.runner.Run(opts)
	_ = pipeW.Close()
	restore()

	if runErr != nil {
		// The numbered fallback reads the real stdin, which restore
		// already put back.
		return f.fallbackSelect()
	}
	if exitCode != fzf.ExitOk {
		return "", fmt.Errorf("fzf selection cancelled or failed")
	}

	output, err := io.ReadAll(pipeR)
	if err != nil {
		return "", fmt.Errorf("failed to read fzf selection: %w", err)
	}

	selected := strings.TrimSpace(string(output))
	if selected == "" {
		return "", fmt.Errorf("no selection made")
	}
	if value, ok := values[selected]; ok {
		return value, nil
	}

	// Unrecognized line, return the value part as-is
	parts := strings.Split(selected, "  │  ")
	return strings.TrimSpace(parts[0]), nil
}

// fallbackSelect runs the plain numbered list over the same options.
func (f *FzfFinder) fallbackSelect() (string, error) {
	finder := New(f.prompt)
	for _, option := range f.options {
		finder.AddOption(option.Value, option.Description)
	}
	return finder.Select()
}
