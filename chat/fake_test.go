package chat

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitFor = time.Second

type fakeConn struct {
	inbound chan []byte
	errs    chan error
	writes  chan []byte
	closed  chan struct{}
	once    sync.Once

	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte),
		errs:    make(chan error, 1),
		writes:  make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case err := <-c.errs:
		return nil, err
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes <- append([]byte(nil), data...)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) push(t *testing.T, raw string) {
	t.Helper()
	select {
	case c.inbound <- []byte(raw):
	case <-time.After(waitFor):
		t.Fatalf("reader did not take %q", raw)
	}
}

func (c *fakeConn) fail(err error) { c.errs <- err }

func (c *fakeConn) nextWrite(t *testing.T) string {
	t.Helper()
	select {
	case data := <-c.writes:
		return string(data)
	case <-time.After(waitFor):
		t.Fatal("no frame written")
		return ""
	}
}

func (c *fakeConn) noWrite(t *testing.T) {
	t.Helper()
	select {
	case data := <-c.writes:
		t.Fatalf("unexpected frame %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeDialer struct {
	hang     bool
	err      error
	writeErr error
	conns    chan *fakeConn
	dials    atomic.Int32
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeConn, 8)}
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	d.dials.Add(1)
	if d.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	c.writeErr = d.writeErr
	d.conns <- c
	return c, nil
}

func (d *fakeDialer) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-d.conns:
		return c
	case <-time.After(waitFor):
		t.Fatal("no dial")
		return nil
	}
}

type harness struct {
	s      *Session
	dialer *fakeDialer
	failed atomic.Int32
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{dialer: newFakeDialer()}
	if opts.Dialer == nil {
		opts.Dialer = h.dialer
	}
	opts.OnConnectionFailed = func() { h.failed.Add(1) }
	h.s = NewSession("alice", opts)
	t.Cleanup(func() { require.NoError(t, h.s.Close()) })
	return h
}

// connect opens the session and consumes the join frame.
func (h *harness) connect(t *testing.T) *fakeConn {
	t.Helper()
	require.NoError(t, h.s.Connect())
	c := h.dialer.next(t)
	h.waitStatus(t, StatusConnected)
	require.JSONEq(t, `{"type":"join","username":"alice"}`, c.nextWrite(t))
	return c
}

func (h *harness) waitStatus(t *testing.T, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return h.s.State().Status == want },
		waitFor, 5*time.Millisecond, "status never became %s", want)
}
