package meshcall

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opd-ai/meshcall/signaling"
	"github.com/opd-ai/meshcall/transport"
)

// Settings are the user preferences persisted with the contact list.
type Settings struct {
	Username     string   `json:"username" yaml:"username"`
	BlockUnknown bool     `json:"block_unknown" yaml:"blockUnknown"`
	ICEServers   []string `json:"ice_servers,omitempty" yaml:"iceServers"`
	// Addresses are the own addresses advertised in the exchange document.
	Addresses []string `json:"addresses,omitempty" yaml:"addresses"`
}

// Options contains configuration options for creating a Meshcall instance.
type Options struct {
	Port           int
	ListenAddress  string
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
	WriteTimeout   time.Duration
	// PingInterval enables the periodic ping sweep after Start when positive.
	PingInterval   time.Duration
	PingWorkers    int
	MaxConnections int
	AcceptRate     float64
	AcceptBurst    int

	Settings Settings

	// SecretKey is a 64-byte Ed25519 secret key; a new identity is generated
	// when both SecretKey and SaveData are empty.
	SecretKey []byte
	// SaveData is a blob produced by Savedata; it takes precedence over SecretKey.
	SaveData []byte
	Password []byte

	LogLevel   string
	Registerer prometheus.Registerer
}

// NewOptions creates a new default Options.
func NewOptions() *Options {
	return &Options{
		Port:           transport.DefaultPort,
		ListenAddress:  "",
		ConnectTimeout: transport.DefaultConnectTimeout,
		PingTimeout:    signaling.DefaultPingTimeout,
		WriteTimeout:   signaling.DefaultWriteTimeout,
		PingInterval:   0,
		PingWorkers:    signaling.DefaultPingWorkers,
		MaxConnections: signaling.DefaultMaxConnections,
		AcceptRate:     5,
		AcceptBurst:    10,
		LogLevel:       "info",
	}
}

func (o *Options) engineConfig(slot *signaling.CallSlot) signaling.Config {
	return signaling.Config{
		Username:       o.Settings.Username,
		BlockUnknown:   o.Settings.BlockUnknown,
		ServicePort:    o.Port,
		ConnectTimeout: o.ConnectTimeout,
		PingTimeout:    o.PingTimeout,
		WriteTimeout:   o.WriteTimeout,
		PingWorkers:    o.PingWorkers,
		MaxConnections: o.MaxConnections,
		AcceptRate:     o.AcceptRate,
		AcceptBurst:    o.AcceptBurst,
		Slot:           slot,
		Registerer:     o.Registerer,
	}
}
