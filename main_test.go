package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	f := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(f, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return f
}

func TestRun_FetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"q": r.URL.Query().Get("q"), "x": r.Header.Get("X-Token")})
	}))
	defer srv.Close()
	cfg := writeConfig(t, "LOG_LEVEL: off\nDOWNLOAD_PATH: "+t.TempDir()+"\n")

	var out bytes.Buffer
	code := run(context.Background(), []string{"-config", cfg, "-rules", "", "-url", srv.URL, "-param", "q=go", "-header", "X-Token=t1"}, &out)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var got map[string]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil || got["q"] != "go" || got["x"] != "t1" {
		t.Fatalf("output = %q, err=%v", out.String(), err)
	}
}

func TestRun_AggregateOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<table><tbody><tr><td>10.1.1.1</td><td>8080</td><td>x</td><td>x</td><td>x</td><td>x</td><td>yes</td></tr></tbody></table>`))
	}))
	defer srv.Close()
	cfg := writeConfig(t, `
LOG_LEVEL: off
PROXY:
  POOL:
    http: ["http://10.9.9.9:80"]
  SOURCES:
    - type: table
      url: `+srv.URL+`
`)
	var out bytes.Buffer
	if code := run(context.Background(), []string{"-config", cfg, "-rules", "", "-aggregate"}, &out); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var pool map[string][]string
	if err := json.Unmarshal(out.Bytes(), &pool); err != nil {
		t.Fatalf("output = %q: %v", out.String(), err)
	}
	if len(pool["https"]) != 1 || pool["https"][0] != "https://10.1.1.1:8080" || pool["http"][0] != "http://10.9.9.9:80" {
		t.Fatalf("pool = %v", pool)
	}
}

func TestRun_UsageAndValidation(t *testing.T) {
	cfg := writeConfig(t, "LOG_LEVEL: off\n")
	if code := run(context.Background(), []string{"-config", cfg, "-rules", ""}, &bytes.Buffer{}); code != 2 {
		t.Fatalf("missing url exit = %d, want 2", code)
	}
	if code := run(context.Background(), []string{"-config", cfg, "-rules", "", "-url", "http://x", "-method", "PATCH"}, &bytes.Buffer{}); code != 2 {
		t.Fatalf("bad method exit = %d, want 2", code)
	}
	bad := writeConfig(t, "PROXY:\n  POOL:\n    http: [\"10.0.0.1:80\"]\n")
	if code := run(context.Background(), []string{"-config", bad, "-url", "http://x"}, &bytes.Buffer{}); code != 1 {
		t.Fatalf("bad pool exit = %d, want 1", code)
	}
}

func TestKVFlag(t *testing.T) {
	f := kvFlag{}
	if err := f.Set("a=1=2"); err != nil || f["a"] != "1=2" {
		t.Fatalf("set: %v %v", f, err)
	}
	if err := f.Set("novalue"); err == nil {
		t.Fatal("expected error without '='")
	}
	if !strings.Contains(f.String(), "a=1=2") {
		t.Fatalf("String() = %q", f.String())
	}
}
