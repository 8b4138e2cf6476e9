package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"mirror-go/internal/hash"
)

// Config represents the main configuration for mirror.
type Config struct {
	LogDir     string           `toml:"log_dir" yaml:"log_dir"`
	LogLevel   string           `toml:"log_level" yaml:"log_level"` // "debug", "info", "warn" or "error"
	Backup     BackupConfig     `toml:"backup" yaml:"backup"`
	Hash       HashConfig       `toml:"hash" yaml:"hash"`
	Database   DatabaseConfig   `toml:"database" yaml:"database"`
	Filesystem FilesystemConfig `toml:"filesystem" yaml:"filesystem"`
}

// BackupConfig holds the default source and targets used when the backup
// command is run without arguments.
type BackupConfig struct {
	Source  string   `toml:"source" yaml:"source"`
	Targets []string `toml:"targets" yaml:"targets"`
	Workers int      `toml:"workers" yaml:"workers"` // concurrent target syncs; 1 is sequential
}

// HashConfig selects the content digest used to compare files.
type HashConfig struct {
	Algorithm string `toml:"algorithm" yaml:"algorithm"`   // "md5" (default), "sha256" or "xxhash"
	ChunkSize int    `toml:"chunk_size" yaml:"chunk_size"` // read size in bytes
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore" yaml:"ignore"` // gitignore-style patterns excluded from every run
}

// DatabaseConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type" yaml:"type"`                             // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty" yaml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Backup:   BackupConfig{Workers: 1},
		Hash: HashConfig{
			Algorithm: hash.MD5,
			ChunkSize: hash.DefaultChunkSize,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: baseDir,
		},
	}
}

var logLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}

// Validate fills zero values with defaults and rejects settings that cannot work.
func (c *Config) Validate() error {
	if c.Backup.Workers < 0 {
		return fmt.Errorf("backup.workers must not be negative, got %d", c.Backup.Workers)
	}
	if c.Backup.Workers == 0 {
		c.Backup.Workers = 1
	}

	if c.Hash.ChunkSize < 0 {
		return fmt.Errorf("hash.chunk_size must not be negative, got %d", c.Hash.ChunkSize)
	}
	if c.Hash.ChunkSize == 0 {
		c.Hash.ChunkSize = hash.DefaultChunkSize
	}
	if c.Hash.Algorithm == "" {
		c.Hash.Algorithm = hash.MD5
	}
	if !hash.Supported(c.Hash.Algorithm) {
		return fmt.Errorf("unknown hash algorithm: %q", c.Hash.Algorithm)
	}

	if !logLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}

	switch c.Database.Type {
	case "sqlite", "memory":
	case "":
		c.Database.Type = "memory"
	default:
		return fmt.Errorf("unknown database type: %s", c.Database.Type)
	}
	return nil
}

// Format is a config file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from the file extension. Anything that
// is not .yaml or .yml is TOML.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Manager handles reading and writing configuration.
// The zero value reads and writes TOML.
type Manager struct {
	Format Format
}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if m.Format == FormatYAML {
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
		return &cfg, nil
	}
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if m.Format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return nil
	}
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path, choosing the
// encoding from its extension.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{Format: FormatForPath(path)}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{Format: FormatForPath(path)}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
