// Package source implements a synthetic packet generator app.
package source

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pktgraph/pktgraph/core/logging"
	"github.com/pktgraph/pktgraph/graph"
	"github.com/pktgraph/pktgraph/pktbuf"
	"go.uber.org/zap"
)

var logger = logging.New("source")

// PortOutput is the output port name.
const PortOutput = "output"

// Counters contains source counters.
type Counters struct {
	Sent       uint64 `json:"sent"`
	AllocError uint64 `json:"allocError"`
}

// Source generates UDP frames from a template.
// It saturates its output link but never transmits more than the link can accept.
type Source struct {
	name     string
	cfg      Config
	pool     *pktbuf.Pool
	template []byte
	cnt      Counters
}

var (
	_ graph.Puller   = (*Source)(nil)
	_ graph.Reporter = (*Source)(nil)
)

// New creates a source.
func New(name string, pool *pktbuf.Pool, cfg Config) (*Source, error) {
	if e := cfg.applyDefaults(); e != nil {
		return nil, e
	}
	template, e := BuildFrame(cfg)
	if e != nil {
		return nil, e
	}
	logger.Info("template ready", zap.String("app", name), zap.Int("frame-size", len(template)))
	return &Source{
		name:     name,
		cfg:      cfg,
		pool:     pool,
		template: template,
	}, nil
}

// BuildFrame serializes an Ethernet/IPv4/UDP frame of cfg.FrameSize octets.
func BuildFrame(cfg Config) ([]byte, error) {
	if e := cfg.applyDefaults(); e != nil {
		return nil, e
	}
	eth := &layers.Ethernet{
		SrcMAC:       mustMAC(cfg.SrcMAC),
		DstMAC:       mustMAC(cfg.DstMAC),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    mustIPv4(cfg.SrcIP),
		DstIP:    mustIPv4(cfg.DstIP),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(cfg.SrcPort),
		DstPort: layers.UDPPort(cfg.DstPort),
	}
	if e := udp.SetNetworkLayerForChecksum(ip); e != nil {
		return nil, e
	}

	payload := make(gopacket.Payload, cfg.FrameSize-MinFrameSize)
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if e := gopacket.SerializeLayers(buf, opts, eth, ip, udp, payload); e != nil {
		return nil, e
	}
	return buf.Bytes(), nil
}

// Pull implements graph.Puller.
func (src *Source) Pull(p *graph.Ports) error {
	out, e := p.Output(PortOutput)
	if e != nil {
		return e
	}

	n := out.NWritable()
	if src.cfg.Burst > 0 {
		n = min(n, src.cfg.Burst)
	}
	if src.cfg.Limit > 0 {
		n = int(min(uint64(n), src.cfg.Limit-src.cnt.Sent))
	}
	for ; n > 0; n-- {
		pkt, e := src.pool.Alloc(len(src.template))
		if errors.Is(e, pktbuf.ErrNoMem) {
			src.cnt.AllocError++
			return nil
		} else if e != nil {
			return e
		}
		copy(pkt.Bytes(), src.template)
		if e := out.Transmit(pkt); e != nil {
			pkt.Close()
			return e
		}
		src.cnt.Sent++
	}
	return nil
}

// Counters returns source counters.
func (src *Source) Counters() Counters {
	return src.cnt
}

// Report implements graph.Reporter.
func (src *Source) Report() map[string]any {
	return map[string]any{
		"sent":       src.cnt.Sent,
		"allocError": src.cnt.AllocError,
	}
}
