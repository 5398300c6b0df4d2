// Package config loads cryptod and cryptoctl settings from TOML files.
//
// Every key is optional; a key that is present overrides the default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/cryptochan/internal/client"
	"github.com/danmuck/cryptochan/internal/transport"
)

// EnvToken overrides the shared channel token of either config.
const EnvToken = "CRYPTOCHAN_TOKEN"

var (
	ErrHandleRange  = errors.New("config: handle out of range")
	ErrNegativeTime = errors.New("config: duration must not be negative")
	ErrAttempts     = errors.New("config: connect_attempts must be at least 1")
	ErrBadOrigin    = errors.New("config: cors origin must be an http or https url")
)

// ClientConfig is the cryptoctl side of a channel.
type ClientConfig struct {
	Stream  transport.StreamConfig
	Handle  transport.Handle
	Timeout time.Duration
	// ConnectAttempts is the number of dials before giving up.
	ConnectAttempts int
}

// ServerConfig is the cryptod side of a channel.
type ServerConfig struct {
	Stream transport.StreamConfig
	// AdminAddress enables the HTTP admin surface when set.
	AdminAddress string
	// AdminCORSOrigins are the browser origins allowed on the admin surface.
	AdminCORSOrigins []string
}

type tlsFile struct {
	Enabled            bool   `toml:"enabled"`
	Mutual             bool   `toml:"mutual"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

type fileConfig struct {
	Network        string   `toml:"network"`
	Address        string   `toml:"address"`
	Token          string   `toml:"token"`
	SecurityMode   string   `toml:"security_mode"`
	ConnectTimeout string   `toml:"connect_timeout"`
	Handle         int64    `toml:"handle"`
	Timeout        string   `toml:"timeout"`
	Attempts       int      `toml:"connect_attempts"`
	AdminAddress   string   `toml:"admin_address"`
	AdminCORS      []string `toml:"admin_cors_origins"`
	TLS            tlsFile  `toml:"tls"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{Stream: transport.DefaultStreamConfig(), Handle: 1, ConnectAttempts: 1}
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{Stream: transport.DefaultStreamConfig()}
}

// LoadClientConfig reads path over the defaults. An empty path yields the
// defaults with environment overrides applied.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path != "" {
		raw, meta, err := decode(path)
		if err != nil {
			return ClientConfig{}, err
		}
		if err := applyStream(&cfg.Stream, raw, meta); err != nil {
			return ClientConfig{}, err
		}
		if meta.IsDefined("handle") {
			if raw.Handle < 0 || raw.Handle > int64(^uint32(0)) {
				return ClientConfig{}, fmt.Errorf("%w: %d", ErrHandleRange, raw.Handle)
			}
			cfg.Handle = transport.Handle(raw.Handle)
		}
		if meta.IsDefined("timeout") {
			d, err := parseDuration("timeout", raw.Timeout)
			if err != nil {
				return ClientConfig{}, err
			}
			cfg.Timeout = d
		}
		if meta.IsDefined("connect_attempts") {
			if raw.Attempts < 1 {
				return ClientConfig{}, fmt.Errorf("%w: %d", ErrAttempts, raw.Attempts)
			}
			cfg.ConnectAttempts = raw.Attempts
		}
	}
	applyEnv(&cfg.Stream)
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path != "" {
		raw, meta, err := decode(path)
		if err != nil {
			return ServerConfig{}, err
		}
		if err := applyStream(&cfg.Stream, raw, meta); err != nil {
			return ServerConfig{}, err
		}
		if meta.IsDefined("admin_address") {
			cfg.AdminAddress = strings.TrimSpace(raw.AdminAddress)
		}
		if meta.IsDefined("admin_cors_origins") {
			cfg.AdminCORSOrigins = nil
			for _, origin := range raw.AdminCORS {
				if origin = strings.TrimSpace(origin); origin != "" {
					cfg.AdminCORSOrigins = append(cfg.AdminCORSOrigins, origin)
				}
			}
		}
	}
	applyEnv(&cfg.Stream)
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if cfg.Timeout < 0 {
		return fmt.Errorf("%w: timeout", ErrNegativeTime)
	}
	if err := cfg.Stream.ValidateClientTransport(); err != nil {
		return fmt.Errorf("client config: %w", err)
	}
	return nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if err := cfg.Stream.ValidateServerTransport(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	for _, origin := range cfg.AdminCORSOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("%w: %q", ErrBadOrigin, origin)
		}
	}
	return nil
}

// Client returns the client settings for this config.
func (c ClientConfig) Client() client.Config {
	return client.Config{Handle: c.Handle, Timeout: c.Timeout}
}

func decode(path string) (fileConfig, toml.MetaData, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fileConfig{}, meta, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fileConfig{}, meta, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}
	return raw, meta, nil
}

func applyStream(cfg *transport.StreamConfig, raw fileConfig, meta toml.MetaData) error {
	if meta.IsDefined("network") {
		cfg.Network = strings.ToLower(strings.TrimSpace(raw.Network))
	}
	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("token") {
		cfg.Token = raw.Token
	}
	if meta.IsDefined("security_mode") {
		cfg.SecurityMode = transport.NormalizeSecurityMode(transport.SecurityMode(raw.SecurityMode))
	}
	if meta.IsDefined("connect_timeout") {
		d, err := parseDuration("connect_timeout", raw.ConnectTimeout)
		if err != nil {
			return err
		}
		cfg.ConnectTimeout = d
	}

	if meta.IsDefined("tls", "enabled") {
		cfg.TLS.Enabled = raw.TLS.Enabled
	}
	if meta.IsDefined("tls", "mutual") {
		cfg.TLS.Mutual = raw.TLS.Mutual
	}
	if meta.IsDefined("tls", "ca_file") {
		cfg.TLS.CAFile = strings.TrimSpace(raw.TLS.CAFile)
	}
	if meta.IsDefined("tls", "cert_file") {
		cfg.TLS.CertFile = strings.TrimSpace(raw.TLS.CertFile)
	}
	if meta.IsDefined("tls", "key_file") {
		cfg.TLS.KeyFile = strings.TrimSpace(raw.TLS.KeyFile)
	}
	if meta.IsDefined("tls", "server_name") {
		cfg.TLS.ServerName = strings.TrimSpace(raw.TLS.ServerName)
	}
	if meta.IsDefined("tls", "insecure_skip_verify") {
		cfg.TLS.InsecureSkipVerify = raw.TLS.InsecureSkipVerify
	}
	return nil
}

func applyEnv(cfg *transport.StreamConfig) {
	if token, ok := os.LookupEnv(EnvToken); ok {
		cfg.Token = token
	}
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNegativeTime, key)
	}
	return d, nil
}
