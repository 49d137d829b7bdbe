package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"go-simple-scraper/internal/rules"
)

func TestGetPreset(t *testing.T) {
	r := &rules.Rules{Presets: map[string]rules.Preset{
		"default":   {ProxyTable: &rules.ProxyTable{Item: ".i", IP: ".ip"}},
		"FreeProxy": {ProxyTable: &rules.ProxyTable{Item: ".f", IP: ".ip"}},
	}}
	p, ok := r.GetPreset("")
	if !ok || p.ProxyTable.Item != ".i" {
		t.Fatalf("default fallback failed: %+v", p)
	}
	p, ok = r.GetPreset("freeproxy")
	if !ok || p.ProxyTable.Item != ".f" {
		t.Fatalf("case-insensitive lookup failed: %+v", p)
	}
	p, ok = r.GetPreset("missing")
	if !ok || p.ProxyTable.Item != ".i" {
		t.Fatalf("missing should fall back to default: %+v", p)
	}
	var nilRules *rules.Rules
	if _, ok := nilRules.GetPreset("x"); ok {
		t.Fatal("nil rules should not resolve")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "rules.yaml")
	_ = os.WriteFile(f, []byte("spys:\n  proxy_table:\n    item: tr.spy\n    ip: td@data-ip\n    port: .port\n"), 0644)
	r, err := rules.Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := r.GetPreset("spys")
	if !ok || p.ProxyTable.IP != "td@data-ip" {
		t.Fatalf("preset = %+v", p)
	}

	_ = os.WriteFile(f, []byte("broken:\n  proxy_table:\n    port: .port\n"), 0644)
	if _, err := rules.Load(f); err == nil {
		t.Fatal("expected error for preset without item/ip")
	}
	def, ok := rules.Default().GetPreset("anything")
	if !ok || def.ProxyTable.Country == "" || def.ProxyTable.Anonymity == "" {
		t.Fatalf("built-in default preset = %+v", def.ProxyTable)
	}

	_ = os.WriteFile(f, []byte("geo:\n  proxy_table:\n    item: tr\n    ip: td.ip\n    country: td.cc\n    anonymity: td@data-level\n"), 0644)
	r, err = rules.Load(f)
	if err != nil {
		t.Fatalf("load geo: %v", err)
	}
	if p, _ := r.GetPreset("geo"); p.ProxyTable.Country != "td.cc" || p.ProxyTable.Anonymity != "td@data-level" {
		t.Fatalf("geo preset = %+v", p.ProxyTable)
	}
}
