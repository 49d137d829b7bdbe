package logx_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go-simple-scraper/internal/logx"
)

func TestPrettyZH_Info(t *testing.T) {
	var buf bytes.Buffer
	l := logx.New(&buf, "debug", "pretty", "zh-CN", "never")
	l.Info("hello", "proxy", "http://10.0.0.1:8080")
	out := buf.String()
	if !strings.Contains(out, "[信息]") || !strings.Contains(out, "proxy=http://10.0.0.1:8080") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := logx.New(&buf, "warn", "pretty", "zh-CN", "never")
	l.Info("should not print")
	l.Warn("warn on")
	out := buf.String()
	if strings.Contains(out, "should not print") {
		t.Fatalf("info should be filtered when level=warn")
	}
	if !strings.Contains(out, "[警告]") {
		t.Fatalf("expect warn label, got %q", out)
	}
}

func TestEnglishLabelsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	l := logx.New(&buf, "info", "pretty", "en", "never").With("id", "x1").WithGroup("pool")
	l.Info("ok", "left", 2)
	out := buf.String()
	if !strings.Contains(out, "[INFO]") || !strings.Contains(out, "id=x1") || !strings.Contains(out, "pool.left=2") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSilentAndJSON(t *testing.T) {
	var buf bytes.Buffer
	logx.New(&buf, "off", "pretty", "en", "never").Error("nothing")
	if buf.Len() != 0 {
		t.Fatalf("off level wrote %q", buf.String())
	}
	logx.New(&buf, "info", "json", "", "").Info("msg", "k", "v")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil || rec["k"] != "v" {
		t.Fatalf("json record = %v, err=%v", rec, err)
	}
}
