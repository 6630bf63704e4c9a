package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ASHISH26940/formrelay/internal/form"
	"github.com/ASHISH26940/formrelay/internal/metrics"
	"github.com/ASHISH26940/formrelay/internal/store"
	"github.com/hashicorp/go-hclog"
)

// RecordStore is the part of the store the listener writes to.
type RecordStore interface {
	Merge(timestamp string, fields form.Submission) error
}

// Listener receives relayed form bodies and merges them into the record
// store. Datagrams are handled one at a time in the order they arrive,
// which keeps merges from ever overlapping.
type Listener struct {
	addr       string
	bufferSize int
	store      RecordStore
	clock      store.Clock
	metrics    *metrics.Recorder
	logger     hclog.Logger

	mu     sync.Mutex
	conn   net.PacketConn
	closed bool
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithClock sets the clock used for record timestamps.
func WithClock(c store.Clock) ListenerOption {
	return func(l *Listener) {
		l.clock = c
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) ListenerOption {
	return func(l *Listener) {
		l.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a listener for addr that reads datagrams into a
// buffer of bufferSize bytes. Longer datagrams are truncated.
func NewListener(addr string, bufferSize int, rs RecordStore, opts ...ListenerOption) *Listener {
	l := &Listener{
		addr:       addr,
		bufferSize: bufferSize,
		store:      rs,
		clock:      store.SystemClock{},
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements supervisor.Service.
func (l *Listener) Name() string {
	return "relay"
}

// Start binds the datagram socket.
func (l *Listener) Start(ctx context.Context) error {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", l.addr)
	if err != nil {
		return fmt.Errorf("bind relay listener %s: %w", l.addr, err)
	}

	l.mu.Lock()
	l.conn = conn
	l.closed = false
	l.mu.Unlock()

	l.logger.Info("listening for submissions", "addr", conn.LocalAddr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Run receives datagrams until the socket is closed by Stop.
func (l *Listener) Run(ctx context.Context) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return errors.New("relay listener not started")
	}

	buf := make([]byte, l.bufferSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}
		l.Handle(buf[:n], from)
	}
}

// Handle decodes one payload and merges it into the store. Undecodable and
// empty submissions are dropped. Store failures are logged, never returned.
func (l *Listener) Handle(payload []byte, from net.Addr) {
	sub, err := form.Decode(payload)
	if err != nil {
		l.logger.Debug("dropping undecodable datagram", "from", from, "bytes", len(payload), "error", err)
		l.metrics.Datagram(metrics.OutcomeUndecodable)
		return
	}
	if sub.Empty() {
		l.logger.Debug("dropping empty submission", "from", from)
		l.metrics.Datagram(metrics.OutcomeEmpty)
		return
	}

	key := store.Timestamp(l.clock.Now())
	start := time.Now()
	err = l.store.Merge(key, sub)
	l.metrics.StoreMerge(time.Since(start))
	if err != nil {
		l.logger.Error("failed to store submission", "timestamp", key, "error", err)
		l.metrics.Datagram(metrics.OutcomeStoreError)
		return
	}

	l.logger.Info("stored submission", "timestamp", key, "fields", len(sub))
	l.metrics.Datagram(metrics.OutcomeStored)
}

// Stop closes the socket, which unblocks Run.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil || l.closed {
		return nil
	}
	l.closed = true
	return l.conn.Close()
}
