package fuzzy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Option is one selectable entry: the value handed back to the caller
// and an optional description shown next to it.
type Option struct {
	Value       string
	Description string
}

// Finder presents a numbered list on a plain terminal and reads the
// chosen number. It is the fallback used when fzf cannot run.
type Finder struct {
	prompt  string
	options []Option
	input   io.Reader
}

// New returns a finder that reads the selection from stdin.
func New(prompt string) *Finder {
	return NewWithInput(prompt, os.Stdin)
}

// NewWithInput returns a finder reading from the given reader, so
// tests can script the selection.
func NewWithInput(prompt string, input io.Reader) *Finder {
	return &Finder{
		prompt:  prompt,
		options: make([]Option, 0),
		input:   input,
	}
}

// AddOption appends an entry to the list.
func (f *Finder) AddOption(value, description string) {
	f.options = append(f.options, Option{Value: value, Description: description})
}

// GetOptions returns the entries added so far.
func (f *Finder) GetOptions() []Option {
	return f.options
}

// Select prints the numbered list and reads one selection.
func (f *Finder) Select() (string, error) {
	if len(f.options) == 0 {
		return "", fmt.Errorf("no options available")
	}

	fmt.Println(f.prompt)
	fmt.Println(strings.Repeat("-", len(f.prompt)))
	for i, option := range f.options {
		fmt.Println(numberedLine(i+1, option))
	}
	fmt.Printf("\nSelect option (1-%d): ", len(f.options))

	scanner := bufio.NewScanner(f.input)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", fmt.Errorf("failed to read input: EOF")
	}

	answer := strings.TrimSpace(scanner.Text())
	selection, err := strconv.Atoi(answer)
	if err != nil {
		return "", fmt.Errorf("invalid selection: %s", answer)
	}
	if selection < 1 || selection > len(f.options) {
		return "", fmt.Errorf("selection out of range: %d", selection)
	}

	return f.options[selection-1].Value, nil
}

func numberedLine(n int, option Option) string {
	if option.Description == "" {
		return fmt.Sprintf("%d. %s", n, option.Value)
	}
	return fmt.Sprintf("%d. %s - %s", n, option.Value, option.Description)
}
