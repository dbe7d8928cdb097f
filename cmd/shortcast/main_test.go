package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
upload_dir = %q
processed_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"
`,
		filepath.Join(base, "uploads"),
		filepath.Join(base, "processed"),
		filepath.Join(base, "logs"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootShowsHelp(t *testing.T) {
	output, err := runCommand(t, "--config", writeTestConfig(t))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"upload", "queue", "niche", "auth"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Errorf("output does not mention target path: %s", output)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Error("sample config missing [paths] section")
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Error("expected error when target already exists")
	}
}

func TestQueueListEmpty(t *testing.T) {
	output, err := runCommand(t, "--config", writeTestConfig(t), "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(output, "No jobs") {
		t.Errorf("output = %q, want empty-queue message", output)
	}
}

func TestListUsesServerFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/videos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tkn" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"videos": [{"id": 4, "title": "clip", "status": "processed", "has_subtitles": true}]}`)
	}))
	defer server.Close()

	output, err := runCommand(t,
		"--config", writeTestConfig(t),
		"--server", server.URL,
		"--token", "tkn",
		"list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(output, "clip") || !strings.Contains(output, "processed") {
		t.Errorf("table output missing video row: %s", output)
	}
}

func TestSaveRejectsBadID(t *testing.T) {
	_, err := runCommand(t, "--config", writeTestConfig(t), "save", "abc")
	if err == nil || !strings.Contains(err.Error(), "invalid video id") {
		t.Fatalf("err = %v, want invalid id error", err)
	}
}
