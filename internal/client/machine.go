package client

import (
	"math"
	"time"
)

type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseConnected    Phase = "connected"
	PhaseError        Phase = "error"
	PhaseReconnecting Phase = "reconnecting"
)

// Close codes shared by the transport-neutral machine. They match the
// websocket status codes the production dialer reports.
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
)

type Config struct {
	AutoReconnect    bool
	MaxAttempts      int           // reconnects scheduled before giving up
	RateWindow       time.Duration // minimum spacing between user-driven attempts
	BreakerThreshold int           // consecutive failures that open the breaker
	CooldownStep     time.Duration // cooldown = failures × step
	CooldownCap      time.Duration
	BackoffBase      time.Duration
	BackoffGrowth    float64
	BackoffCap       time.Duration
	DialTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		AutoReconnect:    true,
		MaxAttempts:      3,
		RateWindow:       5 * time.Second,
		BreakerThreshold: 3,
		CooldownStep:     10 * time.Second,
		CooldownCap:      60 * time.Second,
		BackoffBase:      2 * time.Second,
		BackoffGrowth:    1.5,
		BackoffCap:       15 * time.Second,
		DialTimeout:      10 * time.Second,
	}
}

// Backoff returns the reconnect delay for attempt n (0-indexed):
// min(base × growth^n, cap). Gentler than doubling so a struggling
// backend is not hammered by synchronized retries.
func Backoff(cfg Config, attempt int) time.Duration {
	d := time.Duration(float64(cfg.BackoffBase) * math.Pow(cfg.BackoffGrowth, float64(attempt)))
	if d > cfg.BackoffCap {
		d = cfg.BackoffCap
	}
	return d
}

// State is the whole connection state in one value. Gen invalidates
// stale timers and stale dial completions after a reset or teardown.
type State struct {
	Phase         Phase
	Failures      int
	Attempts      int
	LastAttempt   time.Time
	CooldownUntil time.Time
	Gen           uint64
	SessionID     string
	ErrMsg        string
	Down          bool
}

func NewState() State { return State{Phase: PhaseDisconnected} }

type Event interface{ isEvent() }

type ConnectRequest struct{ Manual bool }

// DialSucceeded carries the session so the driver can adopt or release
// it; the pure machine reads only Gen and SessionID.
type DialSucceeded struct {
	Gen       uint64
	SessionID string
	Sess      Session
}

type DialFailed struct {
	Gen uint64
	Err error
}

type SessionClosed struct {
	Gen  uint64
	Code int
	Err  error
}

type RetryTimerFired struct{ Gen uint64 }

type CooldownElapsed struct{ Gen uint64 }

type DisconnectRequest struct{}

type Teardown struct{}

func (ConnectRequest) isEvent()    {}
func (DialSucceeded) isEvent()     {}
func (DialFailed) isEvent()        {}
func (SessionClosed) isEvent()     {}
func (RetryTimerFired) isEvent()   {}
func (CooldownElapsed) isEvent()   {}
func (DisconnectRequest) isEvent() {}
func (Teardown) isEvent()          {}

type Effect interface{ isEffect() }

type StartDial struct{ Gen uint64 }

type StartRetryTimer struct {
	Gen   uint64
	Delay time.Duration
}

type StartCooldownTimer struct {
	Gen   uint64
	Delay time.Duration
}

type CancelTimers struct{}

// ReleaseSession closes the session associated with the event (a stale
// dial completion) or the current one (disconnect, teardown).
type ReleaseSession struct{}

func (StartDial) isEffect()          {}
func (StartRetryTimer) isEffect()    {}
func (StartCooldownTimer) isEffect() {}
func (CancelTimers) isEffect()       {}
func (ReleaseSession) isEffect()     {}

// Step is the entire transition function: (state, event) -> (state,
// effects), no timers or sockets touched. The driver owns those.
func Step(s State, ev Event, cfg Config, now time.Time) (State, []Effect) {
	if s.Down {
		// Torn down: a late success must be released, everything else
		// is void.
		if _, ok := ev.(DialSucceeded); ok {
			return s, []Effect{ReleaseSession{}}
		}
		return s, nil
	}

	switch e := ev.(type) {
	case ConnectRequest:
		if s.Phase == PhaseConnecting || s.Phase == PhaseConnected {
			return s, nil // attempt already in flight or established
		}
		if e.Manual {
			// Manual retry: counters reset, window and breaker skipped
			// this once, stale work invalidated.
			s.Gen++
			s.Failures = 0
			s.Attempts = 0
			s.CooldownUntil = time.Time{}
			s.ErrMsg = ""
			s.Phase = PhaseConnecting
			s.LastAttempt = now
			return s, []Effect{CancelTimers{}, StartDial{Gen: s.Gen}}
		}
		if s.Failures >= cfg.BreakerThreshold {
			if s.CooldownUntil.IsZero() {
				d := time.Duration(s.Failures) * cfg.CooldownStep
				if d > cfg.CooldownCap {
					d = cfg.CooldownCap
				}
				s.CooldownUntil = now.Add(d)
				return s, []Effect{StartCooldownTimer{Gen: s.Gen, Delay: d}}
			}
			return s, nil // breaker open, already cooling down
		}
		if !s.LastAttempt.IsZero() && now.Sub(s.LastAttempt) < cfg.RateWindow {
			return s, nil // inside the window: dropped, not queued
		}
		s.Phase = PhaseConnecting
		s.LastAttempt = now
		return s, []Effect{StartDial{Gen: s.Gen}}

	case DialSucceeded:
		if e.Gen != s.Gen || s.Phase != PhaseConnecting {
			return s, []Effect{ReleaseSession{}}
		}
		s.Phase = PhaseConnected
		s.Failures = 0
		s.Attempts = 0
		s.SessionID = e.SessionID
		s.ErrMsg = ""
		return s, nil

	case DialFailed:
		if e.Gen != s.Gen || s.Phase != PhaseConnecting {
			return s, nil
		}
		s.Failures++
		s.ErrMsg = Classify(e.Err)
		if cfg.AutoReconnect && s.Attempts < cfg.MaxAttempts && s.Failures < cfg.BreakerThreshold {
			d := Backoff(cfg, s.Attempts)
			s.Attempts++
			s.Phase = PhaseReconnecting
			return s, []Effect{StartRetryTimer{Gen: s.Gen, Delay: d}}
		}
		s.Phase = PhaseError
		return s, nil

	case RetryTimerFired:
		if e.Gen != s.Gen || s.Phase != PhaseReconnecting {
			return s, nil
		}
		s.Phase = PhaseConnecting
		s.LastAttempt = now
		return s, []Effect{StartDial{Gen: s.Gen}}

	case CooldownElapsed:
		if e.Gen != s.Gen {
			return s, nil
		}
		// Breaker closes again; no retry happens until asked.
		s.Failures = 0
		s.CooldownUntil = time.Time{}
		return s, nil

	case SessionClosed:
		if e.Gen != s.Gen || s.Phase != PhaseConnected {
			return s, nil
		}
		s.SessionID = ""
		if e.Code == CloseNormal || e.Code == CloseGoingAway {
			s.Phase = PhaseDisconnected
			return s, nil
		}
		s.ErrMsg = Classify(e.Err)
		if cfg.AutoReconnect && s.Attempts < cfg.MaxAttempts {
			d := Backoff(cfg, s.Attempts)
			s.Attempts++
			s.Phase = PhaseReconnecting
			return s, []Effect{StartRetryTimer{Gen: s.Gen, Delay: d}}
		}
		s.Phase = PhaseError
		return s, nil

	case DisconnectRequest:
		prev := s.Phase
		s.Gen++
		s.SessionID = ""
		s.ErrMsg = ""
		s.Phase = PhaseDisconnected
		effs := []Effect{CancelTimers{}}
		if prev == PhaseConnected || prev == PhaseConnecting {
			effs = append(effs, ReleaseSession{})
		}
		return s, effs

	case Teardown:
		s.Down = true
		s.Gen++
		s.SessionID = ""
		s.Phase = PhaseDisconnected
		return s, []Effect{CancelTimers{}, ReleaseSession{}}
	}
	return s, nil
}
