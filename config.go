package meshcall

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML options file layout.
type FileConfig struct {
	Network  NetworkConfig `yaml:"network"`
	Settings *Settings     `yaml:"settings"`
	LogLevel string        `yaml:"logLevel"`
}

// NetworkConfig holds the network section of the options file.
type NetworkConfig struct {
	Port           int           `yaml:"port"`
	ListenAddress  string        `yaml:"listenAddress"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	PingTimeout    time.Duration `yaml:"pingTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	PingInterval   time.Duration `yaml:"pingInterval"`
	PingWorkers    int           `yaml:"pingWorkers"`
	MaxConnections int           `yaml:"maxConnections"`
	AcceptRate     *float64      `yaml:"acceptRate"`
	AcceptBurst    *int          `yaml:"acceptBurst"`
}

// LoadOptions reads a YAML options file and merges it over NewOptions.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOptions(data)
}

// ParseOptions merges YAML data over NewOptions.
func ParseOptions(data []byte) (*Options, error) {
	var parsed FileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	opts := NewOptions()
	Merge(opts, parsed)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Merge copies every set field of src into dst.
func Merge(dst *Options, src FileConfig) {
	n := src.Network
	if n.Port != 0 {
		dst.Port = n.Port
	}
	if n.ListenAddress != "" {
		dst.ListenAddress = n.ListenAddress
	}
	if n.ConnectTimeout > 0 {
		dst.ConnectTimeout = n.ConnectTimeout
	}
	if n.PingTimeout > 0 {
		dst.PingTimeout = n.PingTimeout
	}
	if n.WriteTimeout > 0 {
		dst.WriteTimeout = n.WriteTimeout
	}
	if n.PingInterval > 0 {
		dst.PingInterval = n.PingInterval
	}
	if n.PingWorkers > 0 {
		dst.PingWorkers = n.PingWorkers
	}
	if n.MaxConnections > 0 {
		dst.MaxConnections = n.MaxConnections
	}
	if n.AcceptRate != nil {
		dst.AcceptRate = *n.AcceptRate
	}
	if n.AcceptBurst != nil {
		dst.AcceptBurst = *n.AcceptBurst
	}
	if src.Settings != nil {
		dst.Settings = *src.Settings
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}

// Validate checks ranges that cannot be defaulted.
func (o *Options) Validate() error {
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, o.Port)
	}
	if o.AcceptRate < 0 || o.AcceptBurst < 0 {
		return fmt.Errorf("%w: negative accept rate or burst", ErrInvalidConfig)
	}
	return nil
}
