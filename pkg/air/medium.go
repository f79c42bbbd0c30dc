package air

import (
	"math/rand"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
)

// MediumStats are counters of a Medium.
type MediumStats struct {
	Sent      uint64
	Delivered uint64
	Lost      uint64
}

type station struct {
	ch   Channel
	addr Addr
}

// Medium is an in-process radio medium shared by MemLinks.
type Medium struct {
	lock    sync.Mutex
	loss    float64
	latency time.Duration
	rnd     *rand.Rand
	links   map[station]*MemLink
	stats   MediumStats
}

// NewMedium creates a lossless Medium with zero latency.
func NewMedium() *Medium {
	return &Medium{
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		links: make(map[station]*MemLink),
	}
}

// SetLoss sets the probability a datagram is lost, in [0, 1].
func (m *Medium) SetLoss(p float64) *Medium {
	m.lock.Lock()
	m.loss = p
	m.lock.Unlock()
	return m
}

// SetLatency sets the delivery delay.
func (m *Medium) SetLatency(d time.Duration) *Medium {
	m.lock.Lock()
	m.latency = d
	m.lock.Unlock()
	return m
}

// Seed reseeds the loss generator.
func (m *Medium) Seed(seed int64) *Medium {
	m.lock.Lock()
	m.rnd = rand.New(rand.NewSource(seed))
	m.lock.Unlock()
	return m
}

// Stats returns a snapshot of the counters.
func (m *Medium) Stats() MediumStats {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.stats
}

// Join attaches a station to the medium which only talks to peer.
func (m *Medium) Join(ch Channel, self, peer Addr) (*MemLink, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	key := station{ch: ch, addr: self}
	if _, exists := m.links[key]; exists {
		return nil, ErrAddrInUse
	}
	l := &MemLink{
		medium: m,
		self:   key,
		peer:   station{ch: ch, addr: peer},
		closed: make(chan struct{}),
	}
	m.links[key] = l
	return l, nil
}

func (m *Medium) leave(l *MemLink) {
	m.lock.Lock()
	if m.links[l.self] == l {
		delete(m.links, l.self)
	}
	m.lock.Unlock()
}

// transmit decides the fate of a datagram and returns the delay and
// destination, nil if lost.
func (m *Medium) transmit(l *MemLink) (*MemLink, time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.stats.Sent++
	dst := m.links[l.peer]
	if dst == nil || (m.loss > 0 && m.rnd.Float64() < m.loss) {
		m.stats.Lost++
		return nil, 0
	}
	m.stats.Delivered++
	return dst, m.latency
}

// MemLink is a Link on a Medium.
type MemLink struct {
	medium     *Medium
	self, peer station
	gate       SendGate
	receiver   ReceiverSlot
	closeOnce  sync.Once
	closed     chan struct{}
}

// Addr returns the station address.
func (l *MemLink) Addr() Addr {
	return l.self.addr
}

// Send implements Link.
func (l *MemLink) Send(payload []byte) error {
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}
	if err := l.gate.Acquire(); err != nil {
		return err
	}
	data := append([]byte(nil), payload...)
	dst, delay := l.medium.transmit(l)
	go func() {
		defer l.gate.Release()
		if dst == nil {
			glog.V(3).Infof("air: %s datagram lost", l.self.addr)
			return
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-l.closed:
				return
			}
		}
		dst.receiver.Deliver(l.self.addr, data)
	}()
	return nil
}

// Listen implements Link.
func (l *MemLink) Listen(r Receiver) {
	l.receiver.Set(r)
}

// Close implements Link.
func (l *MemLink) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.medium.leave(l)
	})
	return nil
}

var (
	mediaLock sync.Mutex
	media     = make(map[string]*Medium)
)

// NamedMedium returns the process-wide Medium with the name, creating
// it on first use.
func NamedMedium(name string) *Medium {
	mediaLock.Lock()
	defer mediaLock.Unlock()
	m := media[name]
	if m == nil {
		m = NewMedium()
		media[name] = m
	}
	return m
}

// mem://name?loss=0.1&latency=2ms
func memDriver(u *url.URL, conf *Config) (Link, error) {
	m := NamedMedium(u.Host)
	q := u.Query()
	if val := q.Get("loss"); val != "" {
		p, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, err
		}
		m.SetLoss(p)
	}
	if val := q.Get("latency"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, err
		}
		m.SetLatency(d)
	}
	self, peer, err := conf.Addrs()
	if err != nil {
		return nil, err
	}
	return m.Join(conf.Channel, self, peer)
}

func init() {
	Register("mem", memDriver)
}
