package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/log"
	"github.com/sirupsen/logrus"
)

const (
	DefaultReplyTimeout   = 800 * time.Millisecond
	DefaultConnectRetries = 10
	DefaultConnectBackoff = 100 * time.Millisecond

	queueSize   = 64
	maxLineSize = 1 << 20
)

var errClosed = errors.New("control connection closed")

// Dialer opens a connection to the control socket at address.
type Dialer func(ctx context.Context, address string) (net.Conn, error)

// Reply is a response line correlated to a command.
type Reply struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
}

// OK reports whether the player accepted the command.
func (r Reply) OK() bool {
	return r.Error == "" || r.Error == "success"
}

// Err converts a rejected reply into a PlaybackError.
func (r Reply) Err() error {
	if r.OK() {
		return nil
	}
	return fault.New(fault.PlaybackError, "player.reply", "mpv: "+r.Error)
}

// Float decodes numeric data. Missing or non-numeric data reports false.
func (r Reply) Float() (float64, bool) {
	var f float64
	if len(r.Data) == 0 || json.Unmarshal(r.Data, &f) != nil {
		return 0, false
	}
	return f, true
}

// TransportOptions configures a Transport.
type TransportOptions struct {
	Socket  string
	Dial    Dialer
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

type request struct {
	ctx          context.Context
	command      []any
	expectsReply bool
	done         chan result
}

type result struct {
	reply Reply
	err   error
}

// Transport sends commands to the player's control socket. Commands are queued and a single
// consumer goroutine executes them strictly one at a time, in submission order.
type Transport struct {
	opts TransportOptions

	queue    chan *request
	reset    chan chan struct{}
	quit     chan struct{}
	finished chan struct{}
	once     sync.Once

	// owned by the consumer goroutine
	conn   *connection
	nextID int64
}

// NewTransport creates a Transport and starts its consumer. Call Shutdown to stop it.
func NewTransport(opts TransportOptions) *Transport {
	if opts.Dial == nil {
		opts.Dial = DialSocket
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultReplyTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultConnectRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultConnectBackoff
	}

	t := &Transport{
		opts:     opts,
		queue:    make(chan *request, queueSize),
		reset:    make(chan chan struct{}),
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	go t.consume()

	return t
}

// Send queues command and waits for it to complete. When expectsReply is false the command
// completes once written.
func (t *Transport) Send(ctx context.Context, expectsReply bool, command ...any) (Reply, error) {
	const op = "player.send"

	if len(command) == 0 {
		return Reply{}, fault.New(fault.ValidationError, op, "empty command")
	}

	req := &request{
		ctx:          ctx,
		command:      command,
		expectsReply: expectsReply,
		done:         make(chan result, 1),
	}

	select {
	case t.queue <- req:
	case <-ctx.Done():
		return Reply{}, fault.Wrap(fault.TransportError, op, ctx.Err())
	case <-t.quit:
		return Reply{}, fault.New(fault.TransportError, op, "transport shut down")
	}

	select {
	case r := <-req.done:
		return r.reply, r.err
	case <-t.finished:
		select {
		case r := <-req.done:
			return r.reply, r.err
		default:
			return Reply{}, fault.New(fault.TransportError, op, "transport shut down")
		}
	case <-ctx.Done():
		return Reply{}, fault.Wrap(fault.TransportError, op, ctx.Err())
	}
}

// Close drops the current connection. Queued commands keep being served and reconnect lazily.
func (t *Transport) Close() {
	ack := make(chan struct{})
	select {
	case t.reset <- ack:
		<-ack
	case <-t.quit:
	}
}

// Shutdown stops the consumer goroutine, failing queued commands, and waits for it to exit.
func (t *Transport) Shutdown() {
	t.once.Do(func() { close(t.quit) })
	<-t.finished
}

func (t *Transport) consume() {
	defer close(t.finished)

	for {
		select {
		case <-t.quit:
			t.teardown()
			t.drain()
			return
		case ack := <-t.reset:
			t.teardown()
			close(ack)
		case req := <-t.queue:
			req.done <- t.execute(req)
		}
	}
}

func (t *Transport) drain() {
	for {
		select {
		case req := <-t.queue:
			req.done <- result{err: fault.New(fault.TransportError, "player.send", "transport shut down")}
		default:
			return
		}
	}
}

// execute runs one command, reconnecting and retrying once on a transport failure.
func (t *Transport) execute(req *request) result {
	if err := req.ctx.Err(); err != nil {
		return result{err: fault.Wrap(fault.TransportError, "player.send", err)}
	}

	reply, err := t.attempt(req)
	if err == nil {
		return result{reply: reply}
	}

	log.With(logrus.Fields{"command": req.command[0], "err": err}).Debug("control command failed, reconnecting")
	t.teardown()

	reply, err = t.attempt(req)
	if err != nil {
		t.teardown()
		return result{err: err}
	}

	return result{reply: reply}
}

func (t *Transport) attempt(req *request) (Reply, error) {
	if t.conn == nil {
		conn, err := t.connect(req.ctx)
		if err != nil {
			return Reply{}, err
		}
		t.conn = conn
	}

	t.nextID++
	return t.conn.roundTrip(req.ctx, t.nextID, req.command, req.expectsReply, t.opts.Timeout)
}

func (t *Transport) connect(ctx context.Context) (*connection, error) {
	var lastErr error

	for i := 0; i < t.opts.Retries; i++ {
		if i > 0 {
			select {
			case <-time.After(t.opts.Backoff):
			case <-ctx.Done():
				return nil, fault.Wrap(fault.TransportError, "player.connect", ctx.Err())
			case <-t.quit:
				return nil, fault.New(fault.TransportError, "player.connect", "transport shut down")
			}
		}

		c, err := t.opts.Dial(ctx, t.opts.Socket)
		if err == nil {
			log.Debugf("player: connected to %s after %d attempt(s)", t.opts.Socket, i+1)
			return newConnection(c), nil
		}
		lastErr = err
	}

	return nil, &fault.Error{
		Op:     "player.connect",
		Kind:   fault.TransportError,
		Detail: "could not connect to mpv IPC server",
		Err:    lastErr,
	}
}

func (t *Transport) teardown() {
	if t.conn != nil {
		t.conn.close()
		t.conn = nil
	}
}

// connection is one open control socket with its reader goroutine and correlation table.
type connection struct {
	rwc io.ReadWriteCloser

	mu      sync.Mutex
	pending map[int64]chan Reply

	closed     chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once
}

func newConnection(rwc io.ReadWriteCloser) *connection {
	c := &connection{
		rwc:        rwc,
		pending:    make(map[int64]chan Reply),
		closed:     make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	go c.read()
	return c
}

type envelope struct {
	RequestID *int64          `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
}

// read dispatches reply lines to their waiters. Event lines carry no request id and are dropped.
func (c *connection) read() {
	defer close(c.readerDone)
	defer c.markClosed()

	scanner := bufio.NewScanner(c.rwc)
	scanner.Buffer(make([]byte, 4096), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			continue
		}

		if env.RequestID == nil {
			if env.Event != "" {
				log.Debugf("player: event %s", env.Event)
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*env.RequestID]
		delete(c.pending, *env.RequestID)
		c.mu.Unlock()

		if ok {
			ch <- Reply{RequestID: *env.RequestID, Error: env.Error, Data: env.Data}
		}
	}
}

func (c *connection) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *connection) roundTrip(ctx context.Context, id int64, command []any, expectsReply bool, timeout time.Duration) (Reply, error) {
	const op = "player.send"

	payload, err := json.Marshal(struct {
		Command   []any `json:"command"`
		RequestID int64 `json:"request_id"`
	}{command, id})
	if err != nil {
		return Reply{}, &fault.Error{Op: op, Kind: fault.ValidationError, Detail: "unencodable command", Err: err}
	}

	var ch chan Reply
	if expectsReply {
		ch = make(chan Reply, 1)
		c.mu.Lock()
		c.pending[id] = ch
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			delete(c.pending, id)
			c.mu.Unlock()
		}()
	}

	select {
	case <-c.closed:
		return Reply{}, fault.Wrap(fault.TransportError, op, errClosed)
	default:
	}

	if d, ok := c.rwc.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = d.SetWriteDeadline(time.Now().Add(timeout))
	}

	if _, err := c.rwc.Write(append(payload, '\n')); err != nil {
		return Reply{}, fault.Wrap(fault.TransportError, op, err)
	}

	if !expectsReply {
		return Reply{RequestID: id}, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		return reply, nil
	case <-c.closed:
		return Reply{}, fault.Wrap(fault.TransportError, op, errClosed)
	case <-timer.C:
		return Reply{}, fault.New(fault.TransportError, op, "timeout")
	case <-ctx.Done():
		return Reply{}, fault.Wrap(fault.TransportError, op, ctx.Err())
	}
}

// close shuts the socket and waits for the reader goroutine to finish.
func (c *connection) close() {
	_ = c.rwc.Close()
	c.markClosed()
	<-c.readerDone
}
