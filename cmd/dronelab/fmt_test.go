package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const unformattedScript = "# walk\nif True:\n  drone.right()\n\n\nelse:\n\tpass\n"
const formattedScript = "# walk\nif True:\n    drone.right()\nelse:\n    pass\n"

func TestFmtCommandRequiresPath(t *testing.T) {
	err := fmtCommand(nil)
	if err == nil {
		t.Fatalf("expected path required error")
	}
	if !strings.Contains(err.Error(), "path required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFmtCommandCheckDetectsUnformattedFiles(t *testing.T) {
	path := writeScript(t, unformattedScript)
	err := fmtCommand([]string{"-check", path})
	if err == nil {
		t.Fatalf("expected formatting check failure")
	}
	if !strings.Contains(err.Error(), "need formatting") {
		t.Fatalf("unexpected check error: %v", err)
	}
}

func TestFmtCommandWriteFormatsFileInPlace(t *testing.T) {
	path := writeScript(t, unformattedScript)
	if err := fmtCommand([]string{"-w", path}); err != nil {
		t.Fatalf("fmt -w failed: %v", err)
	}

	updated, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read formatted file: %v", err)
	}
	if got := string(updated); got != formattedScript {
		t.Fatalf("unexpected formatted output: %q", got)
	}
	if err := fmtCommand([]string{"-check", path}); err != nil {
		t.Fatalf("formatted file should pass check: %v", err)
	}
}

func TestFmtCommandPrintsFormattedOutput(t *testing.T) {
	path := writeScript(t, unformattedScript)
	out, err := captureStdout(t, func() error {
		return fmtCommand([]string{path})
	})
	if err != nil {
		t.Fatalf("fmt command failed: %v", err)
	}
	if out != formattedScript {
		t.Fatalf("unexpected stdout output: %q", out)
	}
}

func TestFmtCommandFormatsDirectories(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "lessons")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	scriptPath := filepath.Join(nested, "walk.py")
	notesPath := filepath.Join(nested, "notes.txt")
	if err := os.WriteFile(scriptPath, []byte(unformattedScript), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if err := os.WriteFile(notesPath, []byte("  not a script\n"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	if err := fmtCommand([]string{"-w", root}); err != nil {
		t.Fatalf("fmt -w dir failed: %v", err)
	}
	formatted, _ := os.ReadFile(scriptPath)
	if string(formatted) != formattedScript {
		t.Fatalf("script not formatted: %q", formatted)
	}
	notes, _ := os.ReadFile(notesPath)
	if string(notes) != "  not a script\n" {
		t.Fatalf("non-script file was touched: %q", notes)
	}
}

func TestFmtCommandReportsStructureErrors(t *testing.T) {
	path := writeScript(t, "drone.right()\n    drone.left()\n")
	err := fmtCommand([]string{path})
	if err == nil {
		t.Fatalf("expected indentation error")
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("error should name the file: %v", err)
	}
}
