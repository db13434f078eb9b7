package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TapService is the service name of the tap pipeline config file.
const TapService = "tap"

// Tap holds the per-context settings for the tap pipeline and the
// commands built on it. All fields are optional; zero values fall back
// to defaults.
type Tap struct {
	// Device is the serial port opened when a command is not given one
	// explicitly, e.g. /dev/ttyUSB0.
	Device string `yaml:"device,omitempty"`

	// Baud is the line rate. Defaults to 115200.
	Baud int `yaml:"baud,omitempty"`

	// Capacity is the ring buffer size in bytes. Defaults to 64 KiB.
	Capacity int `yaml:"capacity,omitempty"`

	// ChunkSize bounds a single port read. Defaults to 4096.
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// Mode is the initial view mode, "ascii" or "hex".
	Mode string `yaml:"mode,omitempty"`

	// Listen is the monitor server address. Defaults to 127.0.0.1:8750.
	Listen string `yaml:"listen,omitempty"`

	// DataDir overrides where the session index and capture files live.
	DataDir string `yaml:"data_dir,omitempty"`

	// Archive selects where 'sessions archive' uploads capture files.
	Archive Archive `yaml:"archive,omitempty"`
}

// Archive configures the capture archive backend.
type Archive struct {
	// Backend is "local" (default) or "s3".
	Backend string `yaml:"backend,omitempty"`

	// Root is the local backend's directory. Defaults to
	// {data_dir}/archive.
	Root string `yaml:"root,omitempty"`

	// S3 backend settings.
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// DefaultTap returns the settings used when no tap.yaml exists.
func DefaultTap() *Tap {
	return &Tap{
		Baud:   115200,
		Mode:   "ascii",
		Listen: "127.0.0.1:8750",
	}
}

// LoadTap loads the tap config for the named context, or the current
// context when name is empty. A missing tap.yaml — or no context at
// all — is not an error: defaults are returned, so every command works
// out of the box.
func (c *Config) LoadTap(name string) (*Tap, error) {
	dir, err := c.ResolveContext(name)
	if err != nil {
		if name == "" && c.CurrentContext == "" {
			return c.fillTap(DefaultTap()), nil
		}
		return nil, err
	}

	t, err := LoadService[Tap](dir, TapService)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.fillTap(DefaultTap()), nil
		}
		return nil, err
	}
	return c.fillTap(t), nil
}

// SaveTap writes the tap config into the named context, or the current
// context when name is empty.
func (c *Config) SaveTap(name string, t *Tap) error {
	dir, err := c.ResolveContext(name)
	if err != nil {
		return err
	}
	return SaveService(dir, TapService, t)
}

// fillTap applies defaults to unset fields.
func (c *Config) fillTap(t *Tap) *Tap {
	def := DefaultTap()
	if t.Baud <= 0 {
		t.Baud = def.Baud
	}
	if t.Mode == "" {
		t.Mode = def.Mode
	}
	if t.Listen == "" {
		t.Listen = def.Listen
	}
	if t.DataDir == "" {
		t.DataDir = c.DataDir()
	}
	return t
}

// IndexDir returns the session index database directory.
func (t *Tap) IndexDir() string {
	return filepath.Join(t.DataDir, "index")
}

// CapturesDir returns the directory capture files are written to.
func (t *Tap) CapturesDir() string {
	return filepath.Join(t.DataDir, "captures")
}

// ArchiveRoot returns the local archive backend root.
func (t *Tap) ArchiveRoot() string {
	if t.Archive.Root != "" {
		return t.Archive.Root
	}
	return filepath.Join(t.DataDir, "archive")
}

// Validate rejects settings the pipeline cannot run with.
func (t *Tap) Validate() error {
	if t.Baud < 0 {
		return fmt.Errorf("baud cannot be negative")
	}
	if t.Capacity < 0 {
		return fmt.Errorf("capacity cannot be negative")
	}
	switch t.Mode {
	case "", "ascii", "hex":
	default:
		return fmt.Errorf("mode must be \"ascii\" or \"hex\", got %q", t.Mode)
	}
	switch t.Archive.Backend {
	case "", "local":
	case "s3":
		if t.Archive.Bucket == "" {
			return fmt.Errorf("archive backend \"s3\" requires a bucket")
		}
	default:
		return fmt.Errorf("archive backend must be \"local\" or \"s3\", got %q", t.Archive.Backend)
	}
	return nil
}
