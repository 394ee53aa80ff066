package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vical.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OutDir != DefaultOutDir || cfg.ListenAddr != DefaultListenAddr || cfg.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
root: certs/ca_root.crt
intermediate: certs/ca_intermediate.crt
signer: certs/vicalsigner.crt
out_dir: out
log_level: debug
renames:
  colorado_root_certificate.pem: ""
  test_iaca.pem: xx_certificate.pem
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Root != "certs/ca_root.crt" || cfg.Signer != "certs/vicalsigner.crt" || cfg.OutDir != "out" || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want default", cfg.ListenAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	renames := cfg.RenameMap()
	if got := renames.Apply("colorado_root_certificate.pem"); got != "colorado_root_certificate.pem" {
		t.Errorf("removed rename still applied: %s", got)
	}
	if got := renames.Apply("test_iaca.pem"); got != "xx_certificate.pem" {
		t.Errorf("override not applied: %s", got)
	}
	if got := renames.Apply("alaska_dmv_iaca.pem"); got != "ak_certificate.pem" {
		t.Errorf("built-in rename lost: %s", got)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{name: "unknown field", content: "rooot: x\n", errSubstr: "rooot"},
		{name: "wrong type", content: "max_upload_bytes: lots\n", errSubstr: "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("Load() error = %v, want substring %q", err, tt.errSubstr)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.OutDir != DefaultOutDir {
		t.Errorf("OutDir = %q", cfg.OutDir)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(*Config) bool
		wantErr bool
	}{
		{
			name:  "paths",
			env:   map[string]string{"VICAL_ROOT_CERT": " /r.crt ", "VICAL_OUT_DIR": "/tmp/out"},
			check: func(c *Config) bool { return c.Root == "/r.crt" && c.OutDir == "/tmp/out" },
		},
		{
			name:  "blank keeps default",
			env:   map[string]string{"VICAL_LISTEN_ADDR": "  "},
			check: func(c *Config) bool { return c.ListenAddr == DefaultListenAddr },
		},
		{
			name:  "skip verification",
			env:   map[string]string{"VICAL_SKIP_PAYLOAD_VERIFICATION": "true"},
			check: func(c *Config) bool { return c.SkipPayloadVerification },
		},
		{
			name:  "max upload",
			env:   map[string]string{"VICAL_MAX_UPLOAD_BYTES": "1024"},
			check: func(c *Config) bool { return c.MaxUploadBytes == 1024 },
		},
		{name: "bad bool", env: map[string]string{"VICAL_SKIP_PAYLOAD_VERIFICATION": "maybe"}, wantErr: true},
		{name: "bad size", env: map[string]string{"VICAL_MAX_UPLOAD_BYTES": "-1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.applyEnv(envMap(tt.env))
			if tt.wantErr {
				if err == nil {
					t.Fatal("applyEnv() succeeded")
				}
				return
			}
			if err != nil {
				t.Fatalf("applyEnv() error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("cfg = %+v", cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "complete", mutate: func(*Config) {}},
		{name: "no anchors", mutate: func(c *Config) { c.Root, c.Intermediate, c.Signer = "", "", "" }, errSubstr: "root, intermediate, signer"},
		{name: "no signer", mutate: func(c *Config) { c.Signer = "" }, errSubstr: "signer"},
		{name: "zero upload", mutate: func(c *Config) { c.MaxUploadBytes = 0 }, errSubstr: "max_upload_bytes"},
		{name: "rename with path", mutate: func(c *Config) { c.Renames = map[string]string{"a.pem": "../a.pem"} }, errSubstr: "path separators"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Root, cfg.Intermediate, cfg.Signer = "r", "i", "s"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.errSubstr)
			}
		})
	}
}
