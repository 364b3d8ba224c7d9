package pktbuf

import (
	"errors"
	"fmt"

	"github.com/pktgraph/pktgraph/core/logging"
	"go.uber.org/zap"
)

var logger = logging.New("pktbuf")

// Limits and defaults.
const (
	DefaultDataroom = 2048
	DefaultCapacity = 65535
)

// Error conditions.
var (
	ErrNoMem    = errors.New("packet pool exhausted")
	ErrDataroom = errors.New("packet length exceeds dataroom")
)

// PoolConfig contains packet pool configuration.
type PoolConfig struct {
	// Capacity is the maximum number of packets allocated at the same time.
	// Default is DefaultCapacity.
	Capacity int `json:"capacity,omitempty"`

	// Dataroom is the maximum packet length.
	// Default is DefaultDataroom.
	Dataroom int `json:"dataroom,omitempty"`
}

func (cfg *PoolConfig) applyDefaults() {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Dataroom <= 0 {
		cfg.Dataroom = DefaultDataroom
	}
}

// PoolCounters contains packet pool counters.
type PoolCounters struct {
	Alloc uint64 `json:"alloc"`
	Free  uint64 `json:"free"`
	InUse int    `json:"inUse"`
}

func (cnt PoolCounters) String() string {
	return fmt.Sprintf("%dalloc %dfree %dinuse", cnt.Alloc, cnt.Free, cnt.InUse)
}

// Pool is a bounded pool of packet buffers.
// Released buffers are kept on a free list and reused.
type Pool struct {
	cfg      PoolConfig
	freeList [][]byte
	cnt      PoolCounters
}

// NewPool creates a packet pool.
func NewPool(cfg PoolConfig) *Pool {
	cfg.applyDefaults()
	logger.Debug("pool created", zap.Int("capacity", cfg.Capacity), zap.Int("dataroom", cfg.Dataroom))
	return &Pool{cfg: cfg}
}

// Alloc allocates a packet of given length.
// Payload content is unspecified.
func (p *Pool) Alloc(length int) (*Packet, error) {
	if length > p.cfg.Dataroom {
		return nil, fmt.Errorf("%w (%d>%d)", ErrDataroom, length, p.cfg.Dataroom)
	}
	if p.cnt.InUse >= p.cfg.Capacity {
		return nil, ErrNoMem
	}

	var buf []byte
	if n := len(p.freeList); n > 0 {
		buf, p.freeList = p.freeList[n-1], p.freeList[:n-1]
	} else {
		buf = make([]byte, p.cfg.Dataroom)
	}
	p.cnt.Alloc++
	p.cnt.InUse++
	return &Packet{data: buf[:length], pool: p}, nil
}

// AllocBulk allocates packets of given length into vec.
// It is all-or-nothing: on failure, no packet is allocated.
func (p *Pool) AllocBulk(vec Vector, length int) error {
	if p.cnt.InUse+len(vec) > p.cfg.Capacity {
		return ErrNoMem
	}
	for i := range vec {
		pkt, e := p.Alloc(length)
		if e != nil {
			vec[:i].Close()
			return e
		}
		vec[i] = pkt
	}
	return nil
}

func (p *Pool) free(pkt *Packet) {
	p.freeList = append(p.freeList, pkt.data[:cap(pkt.data)])
	pkt.pool = nil
	p.cnt.Free++
	p.cnt.InUse--
}

// Counters returns pool counters.
func (p *Pool) Counters() PoolCounters {
	return p.cnt
}
