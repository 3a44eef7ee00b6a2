package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Eran5102/Valuation-sub004/pkg/constants"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input       string
		expected    int64
		expectError bool
	}{
		{"", constants.DefaultMaxUploadSizeBytes, false},
		{"1024", 1024, false},
		{"512B", 512, false},
		{"256K", 256 * 1024, false},
		{"256KB", 256 * 1024, false},
		{"10M", 10 * 1024 * 1024, false},
		{"1G", 1024 * 1024 * 1024, false},
		{" 2 MB ", 2 * 1024 * 1024, false},
		{"abc", 0, true},
		{"10T", 0, true},
		{"-5K", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("ParseSize(%q) error = nil, expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSize(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseSize(%q) = %d, expected %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}
	if cfg.Address != constants.DefaultServerAddress {
		t.Errorf("address = %q, expected %q", cfg.Address, constants.DefaultServerAddress)
	}
	if cfg.UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
		t.Errorf("upload size = %d, expected default", cfg.UploadSizeBytes())
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() with missing file error = %v, expected defaults", err)
	}
	if cfg.Address != constants.DefaultServerAddress {
		t.Errorf("address = %q, expected default", cfg.Address)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := "address: \":9090\"\nmaxUploadSize: 1M\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Address != ":9090" {
		t.Errorf("address = %q, expected :9090", cfg.Address)
	}
	if cfg.UploadSizeBytes() != 1024*1024 {
		t.Errorf("upload size = %d, expected 1M", cfg.UploadSizeBytes())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, expected debug", cfg.Logging.Level)
	}
}

func TestSetUploadSizeBytes(t *testing.T) {
	cfg := &Config{}
	cfg.SetUploadSizeBytes(2048)
	if cfg.UploadSizeBytes() != 2048 {
		t.Errorf("upload size = %d, expected 2048", cfg.UploadSizeBytes())
	}
	cfg.SetUploadSizeBytes(-1)
	if cfg.UploadSizeBytes() != 2048 {
		t.Errorf("negative sizes must be ignored")
	}
}
