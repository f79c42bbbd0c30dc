package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/omnilink/pkg/air"
	"github.com/robotalks/omnilink/pkg/wire"
)

// Mode selects how uplink frames are forwarded.
type Mode int

// Forwarding modes.
const (
	// ForwardDecoupled queues frames for a separate sender task.
	ForwardDecoupled Mode = iota
	// ForwardImmediate sends within the relay loop.
	ForwardImmediate
)

// Defaults.
const (
	DefaultQueueSize  = 10
	DefaultLogEvery   = 100
	DefaultRetryDelay = 10 * time.Millisecond
)

// Recorder receives every uplink frame.
type Recorder interface {
	Record(f wire.Frame)
}

// Recorders fans a frame out to multiple Recorders.
type Recorders []Recorder

// Record implements Recorder.
func (r Recorders) Record(f wire.Frame) {
	for _, rec := range r {
		rec.Record(f)
	}
}

// Stats are counters of a Service.
type Stats struct {
	Transactions uint64
	Short        uint64
	WireErrors   uint64
	Forwarded    uint64
	SendFailures uint64
	QueueDrops   uint64
	Received     uint64
	Rejected     uint64
}

// Service relays frames between the wire and the air link.
type Service struct {
	Name       string
	Wire       Transactor
	Air        air.Link
	State      *State
	Mode       Mode
	QueueSize  int
	LogEvery   uint64
	RetryDelay time.Duration
	Recorder   Recorder

	transactions atomic.Uint64
	short        atomic.Uint64
	wireErrors   atomic.Uint64
	forwarded    atomic.Uint64
	sendFailures atomic.Uint64
	queueDrops   atomic.Uint64
	received     atomic.Uint64
	rejected     atomic.Uint64
}

// NewService creates a Service with defaults.
func NewService(name string, t Transactor, link air.Link) *Service {
	return &Service{
		Name:       name,
		Wire:       t,
		Air:        link,
		State:      &State{},
		QueueSize:  DefaultQueueSize,
		LogEvery:   DefaultLogEvery,
		RetryDelay: DefaultRetryDelay,
	}
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	return Stats{
		Transactions: s.transactions.Load(),
		Short:        s.short.Load(),
		WireErrors:   s.wireErrors.Load(),
		Forwarded:    s.forwarded.Load(),
		SendFailures: s.sendFailures.Load(),
		QueueDrops:   s.queueDrops.Load(),
		Received:     s.received.Load(),
		Rejected:     s.rejected.Load(),
	}
}

// ReceiveDatagram implements air.Receiver.
func (s *Service) ReceiveDatagram(from air.Addr, payload []byte) {
	s.HandleDatagram(payload)
}

// HandleDatagram stores a frame-sized payload into Downlink. Any other
// payload is dropped and Downlink keeps its previous frame.
func (s *Service) HandleDatagram(payload []byte) {
	f, err := wire.FrameFrom(payload)
	if err != nil {
		s.rejected.Add(1)
		glog.V(2).Infof("%s: drop datagram: %v", s.Name, err)
		return
	}
	s.received.Add(1)
	s.State.Downlink.Store(&f)
}

// Run implements framework.Runnable.
func (s *Service) Run(ctx context.Context) error {
	s.Air.Listen(s)
	defer s.Air.Listen(nil)

	var wg sync.WaitGroup
	var queue chan wire.Frame
	if s.Mode == ForwardDecoupled {
		size := s.QueueSize
		if size <= 0 {
			size = DefaultQueueSize
		}
		queue = make(chan wire.Frame, size)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.sendTask(ctx, queue)
		}()
	}
	defer wg.Wait()

	var rx wire.Frame
	for {
		tx, _ := s.State.Downlink.Load()
		n, err := s.Wire.Transact(ctx, tx[:], rx[:])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.wireErrors.Add(1)
			glog.V(2).Infof("%s: transaction failed: %v", s.Name, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.RetryDelay):
			}
			continue
		}
		count := s.transactions.Add(1)
		if n != wire.FrameSize {
			s.short.Add(1)
			glog.V(2).Infof("%s: short transaction (%d bytes)", s.Name, n)
			continue
		}

		frame := rx
		s.State.Uplink.Store(&frame)
		if r := s.Recorder; r != nil {
			r.Record(frame)
		}
		if queue != nil {
			select {
			case queue <- frame:
			default:
				s.queueDrops.Add(1)
			}
		} else {
			s.send(&frame)
		}

		if s.LogEvery > 0 && count%s.LogEvery == 0 {
			s.logStatus(count)
		}
	}
}

func (s *Service) sendTask(ctx context.Context, queue <-chan wire.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-queue:
			s.send(&f)
		}
	}
}

// send makes a single attempt. A failed frame is superseded by the next
// uplink frame rather than retried.
func (s *Service) send(f *wire.Frame) {
	if err := s.Air.Send(f[:]); err != nil {
		s.sendFailures.Add(1)
		glog.V(2).Infof("%s: send failed: %v", s.Name, err)
		return
	}
	s.forwarded.Add(1)
}

func (s *Service) logStatus(count uint64) {
	down, _ := s.State.Downlink.Load()
	up, _ := s.State.Uplink.Load()
	st := s.Stats()
	glog.Infof("%s: %d transactions, forwarded %d, send failures %d, drops %d, rejected %d; down %s; up %s",
		s.Name, count, st.Forwarded, st.SendFailures, st.QueueDrops, st.Rejected,
		wire.Describe(&down), wire.Describe(&up))
}
