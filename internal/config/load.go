package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ErrExists is returned by WriteDefault when the target file already exists.
var ErrExists = errors.New("config file already exists")

// Parse decodes TOML text into a Config. Keys absent from the text keep
// their default values. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("parse config: line %d column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// DefaultText renders the default configuration as TOML.
func DefaultText() ([]byte, error) {
	data, err := toml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("render default config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories. It refuses to replace an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}

	data, err := DefaultText()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadOrInit returns the configuration at path, falling back to defaults.
//
// A missing file is created with the default text. An unreadable or invalid
// file is reported through log and the defaults are used; the pipeline never
// refuses to start over configuration.
func LoadOrInit(path string, log *slog.Logger) Config {
	if log == nil {
		log = slog.Default()
	}

	cfg, err := Load(path)
	if err == nil {
		return cfg
	}

	if errors.Is(err, fs.ErrNotExist) {
		if werr := WriteDefault(path, false); werr != nil {
			log.Warn("could not write default config", "path", path, "error", werr)
		} else {
			log.Info("wrote default config", "path", path)
		}
		return Default()
	}

	log.Error("config appears to be corrupted, using defaults", "path", path, "error", err)
	return Default()
}
