package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/packetd/internal/server"
)

type fileConfig struct {
	ListenAddr       string `toml:"listen_addr"`
	AdminAddr        string `toml:"admin_addr"`
	ReadChunkSize    int    `toml:"read_chunk_size"`
	MaxBufferedBytes int    `toml:"max_buffered_bytes"`
	IdleTimeout      string `toml:"idle_timeout"`
	WriteTimeout     string `toml:"write_timeout"`
}

func loadServiceConfig(path string) (server.ServiceConfig, error) {
	cfg := server.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return server.ServiceConfig{}, fmt.Errorf("load packetd config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return server.ServiceConfig{}, fmt.Errorf("load packetd config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("read_chunk_size") {
		cfg.Session.ReadChunkSize = raw.ReadChunkSize
	}
	if meta.IsDefined("max_buffered_bytes") {
		cfg.Session.MaxBufferedBytes = raw.MaxBufferedBytes
	}
	if meta.IsDefined("idle_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.IdleTimeout))
		if err != nil {
			return server.ServiceConfig{}, fmt.Errorf("parse idle_timeout: %w", err)
		}
		cfg.Session.IdleTimeout = d
	}
	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return server.ServiceConfig{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.Session.WriteTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return server.ServiceConfig{}, err
	}
	return cfg, nil
}
