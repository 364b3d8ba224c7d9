package source

import (
	"errors"
	"fmt"
	"net"

	"github.com/go-playground/validator/v10"
	"inet.af/netaddr"
)

// Limits and defaults.
const (
	MinFrameSize     = 42
	DefaultFrameSize = 60
)

// ErrConfig indicates an invalid configuration.
var ErrConfig = errors.New("invalid source config")

var validate = validator.New()

// Config contains source configuration.
type Config struct {
	// FrameSize is the Ethernet frame length in octets, excluding FCS.
	// Default is 60.
	FrameSize int `json:"frameSize,omitempty" validate:"omitempty,gte=42,lte=9000"`

	// Burst limits how many packets are generated per breath.
	// Zero means as many as the output link can accept.
	Burst int `json:"burst,omitempty" validate:"gte=0"`

	// Limit stops generation after this many packets. Zero means unlimited.
	Limit uint64 `json:"limit,omitempty"`

	SrcMAC  string `json:"srcMAC,omitempty" validate:"omitempty,mac"`
	DstMAC  string `json:"dstMAC,omitempty" validate:"omitempty,mac"`
	SrcIP   string `json:"srcIP,omitempty" validate:"omitempty,ipv4"`
	DstIP   string `json:"dstIP,omitempty" validate:"omitempty,ipv4"`
	SrcPort uint16 `json:"srcPort,omitempty"`
	DstPort uint16 `json:"dstPort,omitempty"`
}

func (cfg *Config) applyDefaults() error {
	if e := validate.Struct(cfg); e != nil {
		return fmt.Errorf("%w: %v", ErrConfig, e)
	}
	if cfg.FrameSize == 0 {
		cfg.FrameSize = DefaultFrameSize
	}
	if cfg.SrcMAC == "" {
		cfg.SrcMAC = "02:00:00:00:00:01"
	}
	if cfg.DstMAC == "" {
		cfg.DstMAC = "02:00:00:00:00:02"
	}
	if cfg.SrcIP == "" {
		cfg.SrcIP = "192.168.0.1"
	}
	if cfg.DstIP == "" {
		cfg.DstIP = "192.168.0.2"
	}
	if cfg.SrcPort == 0 {
		cfg.SrcPort = 6363
	}
	if cfg.DstPort == 0 {
		cfg.DstPort = 6363
	}
	return nil
}

func mustMAC(s string) net.HardwareAddr {
	a, _ := net.ParseMAC(s)
	return a
}

func mustIPv4(s string) net.IP {
	a := netaddr.MustParseIP(s).As4()
	return a[:]
}
