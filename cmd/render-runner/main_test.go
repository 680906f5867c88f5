package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/randomizedcoder/render-runner/internal/config"
	"github.com/randomizedcoder/render-runner/internal/job"
	"github.com/randomizedcoder/render-runner/internal/report"
)

func TestRequiredTools(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FFmpegPath = "/usr/local/bin/ffmpeg"

	j := &job.Job{Steps: []job.Step{
		{Name: "render", Tool: job.ToolBlender, BlendFile: "a.blend"},
		{Name: "join", Tool: job.ToolConcat},
		{Name: "probe", Tool: job.ToolProbe, Program: "/opt/ffprobe"},
		{Name: "upload", Tool: job.ToolExec, Program: "rsync"},
	}}

	want := map[string]string{
		"blender":         "blender",
		"ffmpeg":          "/usr/local/bin/ffmpeg",
		"ffprobe (probe)": "/opt/ffprobe",
		"upload":          "rsync",
	}
	if got := requiredTools(j, cfg); !reflect.DeepEqual(got, want) {
		t.Errorf("requiredTools() = %v, want %v", got, want)
	}
}

func TestOutputDirs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ReportDir = "out"
	cfg.LogFile = filepath.Join("out", "render.log")
	cfg.HistoryDB = filepath.Join("state", "history.db")

	want := []string{"out", "state"}
	if got := outputDirs(cfg); !reflect.DeepEqual(got, want) {
		t.Errorf("outputDirs() = %v, want %v", got, want)
	}

	cfg.LogFile = ""
	cfg.HistoryDB = ""
	if got := outputDirs(cfg); !reflect.DeepEqual(got, []string{"out"}) {
		t.Errorf("outputDirs() = %v, want [out]", got)
	}
}

func TestPrintReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blender_0123456789ab.txt")
	for _, rec := range []report.Record{
		{Program: "blender", ExitCode: 1, Stderr: "Error: cannot read file\nAborting", Stdout: "Blender 4.1"},
		{Program: "blender", ExitCode: 137},
	} {
		if err := report.Append(path, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	var out bytes.Buffer
	if err := printReport(&out, path); err != nil {
		t.Fatalf("printReport: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Record 1: blender exited with code 1",
		"    Error: cannot read file\n    Aborting\n",
		"  stdout:\n    Blender 4.1\n",
		"Record 2: blender exited with code 137",
		"  stderr: (empty)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestPrintReport_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := printReport(&out, path); err != nil {
		t.Fatalf("printReport: %v", err)
	}
	if !strings.Contains(out.String(), "No records") {
		t.Errorf("output = %q", out.String())
	}
}

func TestPrintReport_MissingFile(t *testing.T) {
	var out bytes.Buffer
	if err := printReport(&out, filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected an error for a missing report")
	}
}
