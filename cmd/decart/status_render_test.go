package main

import (
	"fmt"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Cache", statusError, "unwritable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Cache:", "[ERROR] unwritable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Cache", statusOK, "ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(&strings.Builder{}) {
		t.Fatal("expected buffers to never colorize")
	}
}

func TestSummarizeProgram(t *testing.T) {
	program := ": main\n  loop\n    v0 += 1 # : not a label\n  again\n: sub ;\n"
	got := summarizeProgram(program)
	if got.lines != 5 {
		t.Fatalf("unexpected line count: got %d want 5", got.lines)
	}
	if got.labels != 2 {
		t.Fatalf("unexpected label count: got %d want 2", got.labels)
	}
	if got.first != ": main" {
		t.Fatalf("unexpected first line: %q", got.first)
	}
	if empty := summarizeProgram(""); empty.lines != 0 || empty.first != "" {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}
