package client

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("not connected")

type CloseInfo struct {
	Code int
	Err  error
}

// Session is one established logical connection. The controller only
// manages its lifecycle; payload routing belongs to the transport.
type Session interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
	Done() <-chan CloseInfo
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// Status is the observable snapshot surfaced to the UI.
type Status struct {
	Phase     Phase
	Err       string
	Failures  int
	Attempts  int
	SessionID string
}

type Option func(*Controller)

func WithClock(c Clock) Option          { return func(ctl *Controller) { ctl.clock = c } }
func WithLogger(l *zap.Logger) Option   { return func(ctl *Controller) { ctl.log = l } }
func WithOnChange(f func(Status)) Option { return func(ctl *Controller) { ctl.onChange = f } }

// Controller drives the pure machine in machine.go: it owns the one
// State value, runs effects, and feeds completions back in as events.
// All outbound intents and the decision to retry go through here.
type Controller struct {
	// mu guards st, sess and the timers; Step itself is pure.
	mu            sync.Mutex
	st            State
	cfg           Config
	dialer        Dialer
	clock         Clock
	log           *zap.Logger
	onChange      func(Status)
	sess          Session
	retryTimer    Timer
	cooldownTimer Timer
}

func New(dialer Dialer, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		st:     NewState(),
		cfg:    cfg,
		dialer: dialer,
		clock:  realClock{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect requests a connection attempt. Subject to the rate-limit
// window and the circuit breaker; a refused request is dropped.
func (c *Controller) Connect() { c.apply(ConnectRequest{}) }

// Reconnect is the manual retry: resets the counters and bypasses the
// window and breaker once.
func (c *Controller) Reconnect() { c.apply(ConnectRequest{Manual: true}) }

// Disconnect is the user-initiated close; automatic retries stop.
func (c *Controller) Disconnect() { c.apply(DisconnectRequest{}) }

// Close tears the controller down. A dial completing afterwards is
// released, never adopted.
func (c *Controller) Close() { c.apply(Teardown{}) }

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status()
}

func (c *Controller) status() Status {
	return Status{
		Phase:     c.st.Phase,
		Err:       c.st.ErrMsg,
		Failures:  c.st.Failures,
		Attempts:  c.st.Attempts,
		SessionID: c.st.SessionID,
	}
}

// Send routes one payload through the current session.
func (c *Controller) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	sess := c.sess
	connected := c.st.Phase == PhaseConnected
	c.mu.Unlock()
	if !connected || sess == nil {
		return ErrNotConnected
	}
	return sess.Send(ctx, payload)
}

// Session returns the live session, or nil.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *Controller) apply(ev Event) {
	c.mu.Lock()
	prev := c.st.Phase
	next, effs := Step(c.st, ev, c.cfg, c.clock.Now())
	c.st = next

	for _, eff := range effs {
		switch ef := eff.(type) {
		case StartDial:
			go c.dial(ef.Gen)

		case StartRetryTimer:
			gen := ef.Gen
			c.retryTimer = c.clock.AfterFunc(ef.Delay, func() {
				c.apply(RetryTimerFired{Gen: gen})
			})

		case StartCooldownTimer:
			gen := ef.Gen
			c.cooldownTimer = c.clock.AfterFunc(ef.Delay, func() {
				c.apply(CooldownElapsed{Gen: gen})
			})

		case CancelTimers:
			if c.retryTimer != nil {
				c.retryTimer.Stop()
				c.retryTimer = nil
			}
			if c.cooldownTimer != nil {
				c.cooldownTimer.Stop()
				c.cooldownTimer = nil
			}

		case ReleaseSession:
			victim := c.sess
			c.sess = nil
			if ds, ok := ev.(DialSucceeded); ok {
				// The stale arrival is the one to discard, not an
				// established session.
				victim = ds.Sess
			}
			if victim != nil {
				go victim.Close()
			}
		}
	}

	// Adopt the session on a genuine success.
	if ds, ok := ev.(DialSucceeded); ok && c.st.Phase == PhaseConnected && c.st.SessionID == ds.SessionID {
		c.sess = ds.Sess
		gen := c.st.Gen
		go c.watch(ds.Sess, gen)
	}

	changed := c.st.Phase != prev
	status := c.status()
	cb := c.onChange
	c.mu.Unlock()

	if changed {
		c.log.Info("connection state changed",
			zap.String("from", string(prev)),
			zap.String("to", string(status.Phase)),
			zap.String("err", status.Err),
			zap.Int("failures", status.Failures),
			zap.Int("attempts", status.Attempts))
		if cb != nil {
			cb(status)
		}
	}
}

func (c *Controller) dial(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()

	sess, err := c.dialer.Dial(ctx)
	if err != nil {
		c.apply(DialFailed{Gen: gen, Err: err})
		return
	}
	c.apply(DialSucceeded{Gen: gen, SessionID: sess.ID(), Sess: sess})
}

func (c *Controller) watch(sess Session, gen uint64) {
	info := <-sess.Done()
	c.mu.Lock()
	if c.sess == sess {
		c.sess = nil
	}
	c.mu.Unlock()
	c.apply(SessionClosed{Gen: gen, Code: info.Code, Err: info.Err})
}
