package fuzzy

import (
	"fmt"
	"strings"
	"testing"

	fzf "github.com/junegunn/fzf/src"
)

// scriptedRunner fakes an fzf run: it prints a canned selection to the
// captured stdout and reports a canned result.
type scriptedRunner struct {
	output   string
	exitCode int
	err      error
	calls    int
}

func (s *scriptedRunner) Run(_ *fzf.Options) (int, error) {
	s.calls++
	if s.output != "" {
		fmt.Print(s.output)
	}
	return s.exitCode, s.err
}

func TestNewFzf(t *testing.T) {
	finder := NewFzf("Select organization")
	if finder == nil {
		t.Fatal("NewFzf returned nil")
	}
	if finder.prompt != "Select organization" {
		t.Errorf("prompt = %q, want %q", finder.prompt, "Select organization")
	}
	if len(finder.options) != 0 {
		t.Errorf("new finder already has %d options", len(finder.options))
	}
	if _, ok := finder.runner.(*DefaultFzfRunner); !ok {
		t.Errorf("runner = %T, want *DefaultFzfRunner", finder.runner)
	}
}

func TestFzfSetOptions(t *testing.T) {
	finder := NewFzf("Select")

	if err := finder.SetOptions(nil); err == nil {
		t.Error("SetOptions(nil) should fail")
	}

	source := []Option{
		{Value: "initech", Description: "Initech"},
		{Value: "globex"},
	}
	if err := finder.SetOptions(source); err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}

	// The finder keeps its own copy of the slice
	source[0].Value = "changed"
	if finder.options[0].Value != "initech" {
		t.Errorf("finder shares storage with the caller's slice")
	}
	if len(finder.options) != 2 {
		t.Errorf("got %d options, want 2", len(finder.options))
	}
}

func TestFzfSetPrompt(t *testing.T) {
	finder := NewFzf("before")
	finder.SetPrompt("after")
	if finder.prompt != "after" {
		t.Errorf("prompt = %q, want %q", finder.prompt, "after")
	}
}

func TestDisplayLine(t *testing.T) {
	if got := displayLine(Option{Value: "initech", Description: "Initech"}); got != "initech  │  Initech" {
		t.Errorf("displayLine with description = %q", got)
	}
	if got := displayLine(Option{Value: "globex"}); got != "globex" {
		t.Errorf("displayLine without description = %q", got)
	}
}

func TestFzfSelect(t *testing.T) {
	options := []Option{
		{Value: "initech", Description: "Initech"},
		{Value: "globex"},
	}

	tests := []struct {
		name    string
		runner  *scriptedRunner
		want    string
		wantErr string
	}{
		{
			name:   "line with description maps back to the value",
			runner: &scriptedRunner{output: "initech  │  Initech\n"},
			want:   "initech",
		},
		{
			name:   "bare line is the value itself",
			runner: &scriptedRunner{output: "globex\n"},
			want:   "globex",
		},
		{
			name:    "non-zero exit means cancelled",
			runner:  &scriptedRunner{exitCode: 130},
			wantErr: "fzf selection cancelled or failed",
		},
		{
			name:    "empty output",
			runner:  &scriptedRunner{output: ""},
			wantErr: "no selection made",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := NewFzfWithRunner("Select organization", tt.runner)
			if err := finder.SetOptions(options); err != nil {
				t.Fatalf("SetOptions() error = %v", err)
			}

			got, err := finder.Select()
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("Select() should have failed")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Select() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Select() = %q, want %q", got, tt.want)
			}
			if tt.runner.calls != 1 {
				t.Errorf("runner ran %d times, want 1", tt.runner.calls)
			}
		})
	}
}

func TestFzfSelectNoOptions(t *testing.T) {
	_, err := NewFzf("Select").Select()
	if err == nil {
		t.Fatal("Select() with no options should fail")
	}
	if err.Error() != "no options available" {
		t.Errorf("Select() error = %v", err)
	}
}

func TestFzfSelectFallback(t *testing.T) {
	runner := &scriptedRunner{err: fmt.Errorf("tcell init failed")}

	finder := NewFzfWithRunner("Select", runner)
	if err := finder.SetOptions([]Option{{Value: "initech"}}); err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}

	// The fallback reads the real stdin, which is empty under go test,
	// so the selection fails, but fzf must have been attempted first.
	if _, err := finder.Select(); err == nil {
		t.Error("fallback should fail without terminal input")
	}
	if runner.calls != 1 {
		t.Errorf("runner ran %d times, want 1", runner.calls)
	}
}
