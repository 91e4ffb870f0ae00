package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/packetd/internal/protocol/session"
	"github.com/danmuck/packetd/internal/server"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packetd.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServiceConfigDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
listen_addr = "0.0.0.0:4000"
admin_addr = "127.0.0.1:9090"
max_buffered_bytes = 4096
idle_timeout = "30s"
`)
	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:4000" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if cfg.AdminAddr != "127.0.0.1:9090" {
		t.Fatalf("unexpected admin addr: %q", cfg.AdminAddr)
	}
	if cfg.Session.MaxBufferedBytes != 4096 {
		t.Fatalf("unexpected max buffered: %d", cfg.Session.MaxBufferedBytes)
	}
	if cfg.Session.IdleTimeout != 30*time.Second {
		t.Fatalf("unexpected idle timeout: %v", cfg.Session.IdleTimeout)
	}
	def := server.DefaultServiceConfig()
	if cfg.Session.ReadChunkSize != def.Session.ReadChunkSize {
		t.Fatalf("read chunk size should keep default, got %d", cfg.Session.ReadChunkSize)
	}
	if cfg.Session.WriteTimeout != def.Session.WriteTimeout {
		t.Fatalf("write timeout should keep default, got %v", cfg.Session.WriteTimeout)
	}
}

func TestLoadServiceConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		check   func(error) bool
	}{
		{
			name:    "duration",
			content: `write_timeout = "soon"`,
			check:   func(err error) bool { return err != nil && strings.Contains(err.Error(), "write_timeout") },
		},
		{
			name:    "unknown key",
			content: `listen = "127.0.0.1:1"`,
			check:   func(err error) bool { return err != nil && strings.Contains(err.Error(), "unknown key") },
		},
		{
			name:    "cap below one frame",
			content: `max_buffered_bytes = 10`,
			check:   func(err error) bool { return errors.Is(err, session.ErrInvalidConfig) },
		},
		{
			name:    "empty listen",
			content: `listen_addr = ""`,
			check:   func(err error) bool { return errors.Is(err, server.ErrListenAddrRequired) },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadServiceConfig(writeConfig(t, tc.content))
			if !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadServiceConfigMissingFile(t *testing.T) {
	if _, err := loadServiceConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
