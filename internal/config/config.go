// Package config loads vical settings from an optional YAML file and
// VICAL_* environment variables. Command-line flags are applied last by
// the commands themselves.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kokukuma/vical-verifier/vical"
)

const (
	DefaultOutDir         = "extracted_iacas"
	DefaultListenAddr     = "127.0.0.1:8080"
	DefaultLogLevel       = "info"
	DefaultMaxUploadBytes = 16 << 20
)

type Config struct {
	Root         string `yaml:"root"`
	Intermediate string `yaml:"intermediate"`
	Signer       string `yaml:"signer"`

	OutDir     string `yaml:"out_dir"`
	SQLitePath string `yaml:"sqlite"`

	ListenAddr     string `yaml:"listen_addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	LogLevel string `yaml:"log_level"`

	// Renames overlays the built-in jurisdiction table. An empty target
	// removes a built-in entry.
	Renames map[string]string `yaml:"renames"`

	// SkipPayloadVerification extracts certificates without checking the
	// VICAL signature. Insecure.
	SkipPayloadVerification bool `yaml:"skip_payload_verification"`
}

func Default() *Config {
	return &Config{
		OutDir:         DefaultOutDir,
		ListenAddr:     DefaultListenAddr,
		MaxUploadBytes: DefaultMaxUploadBytes,
		LogLevel:       DefaultLogLevel,
	}
}

// Load reads path (skipped when empty) over the defaults, then applies
// the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decodeYAML(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	getenv := func(k string, dst *string) {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	getenv("VICAL_ROOT_CERT", &c.Root)
	getenv("VICAL_INTERMEDIATE_CERT", &c.Intermediate)
	getenv("VICAL_SIGNER_CERT", &c.Signer)
	getenv("VICAL_OUT_DIR", &c.OutDir)
	getenv("VICAL_SQLITE", &c.SQLitePath)
	getenv("VICAL_LISTEN_ADDR", &c.ListenAddr)
	getenv("VICAL_LOG_LEVEL", &c.LogLevel)

	var skip, maxUpload string
	getenv("VICAL_SKIP_PAYLOAD_VERIFICATION", &skip)
	if skip != "" {
		b, err := strconv.ParseBool(skip)
		if err != nil {
			return fmt.Errorf("VICAL_SKIP_PAYLOAD_VERIFICATION must be a boolean, got %q", skip)
		}
		c.SkipPayloadVerification = b
	}
	getenv("VICAL_MAX_UPLOAD_BYTES", &maxUpload)
	if maxUpload != "" {
		n, err := strconv.ParseInt(maxUpload, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("VICAL_MAX_UPLOAD_BYTES must be a positive integer, got %q", maxUpload)
		}
		c.MaxUploadBytes = n
	}
	return nil
}

// Validate checks that the trust anchors are configured.
func (c *Config) Validate() error {
	var missing []string
	if c.Root == "" {
		missing = append(missing, "root")
	}
	if c.Intermediate == "" {
		missing = append(missing, "intermediate")
	}
	if c.Signer == "" {
		missing = append(missing, "signer")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing trust anchor certificate path: %s", strings.Join(missing, ", "))
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	for from, to := range c.Renames {
		if strings.ContainsAny(from+to, `/\`) {
			return fmt.Errorf("rename %q -> %q: names must not contain path separators", from, to)
		}
	}
	return nil
}

// RenameMap returns the built-in jurisdiction table with Renames applied.
func (c *Config) RenameMap() vical.RenameMap {
	return vical.DefaultRenameMap().Merge(c.Renames)
}
