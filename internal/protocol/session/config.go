package session

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("session: invalid config")

// Config defines per-connection read/write behavior.
type Config struct {
	// ReadChunkSize is the size of one transport read.
	ReadChunkSize int
	// MaxBufferedBytes caps unframed inbound bytes; past it the connection is dropped.
	MaxBufferedBytes int
	// IdleTimeout bounds the wait for the next transport read; 0 waits forever.
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns per-connection defaults.
func DefaultConfig() Config {
	return Config{
		ReadChunkSize:    1024,
		MaxBufferedBytes: 64 * 1024,
		IdleTimeout:      0,
		WriteTimeout:     10 * time.Second,
	}
}

// WithDefaults fills zero-valued fields that have no meaningful zero.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ReadChunkSize <= 0 {
		c.ReadChunkSize = d.ReadChunkSize
	}
	if c.MaxBufferedBytes < 0 {
		c.MaxBufferedBytes = 0
	}
	if c.WriteTimeout < 0 {
		c.WriteTimeout = 0
	}
	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
	return c
}

func (c Config) Validate() error {
	if c.ReadChunkSize <= 0 {
		return fmt.Errorf("%w: read_chunk_size must be positive", ErrInvalidConfig)
	}
	// One maximal frame must always fit, or a legal peer could be dropped.
	if c.MaxBufferedBytes > 0 && c.MaxBufferedBytes < 2+0xFF {
		return fmt.Errorf("%w: max_buffered_bytes %d below one full frame", ErrInvalidConfig, c.MaxBufferedBytes)
	}
	if c.IdleTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	return nil
}
