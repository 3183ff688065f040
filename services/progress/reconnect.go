package progress

import "time"

// Phase is where the upstream connection currently is.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseConnected    Phase = "connected"
	PhaseBackoff      Phase = "backoff"
)

// Policy bounds reconnect attempts after abnormal closes.
type Policy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

// DefaultPolicy waits 1s, 2s, 4s, 8s, 16s and then gives up.
var DefaultPolicy = Policy{
	InitialDelay: time.Second,
	MaxDelay:     30 * time.Second,
	MaxAttempts:  5,
}

// Delay is min(InitialDelay * 2^attempt, MaxDelay) for a zero-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// ReconnectState is the reconnect bookkeeping. Transitions are pure: each
// returns the next state and never touches a socket or a timer.
type ReconnectState struct {
	Phase   Phase         `json:"phase"`
	Attempt int           `json:"attempt"`
	Delay   time.Duration `json:"delay"`
	GaveUp  bool          `json:"gaveUp"`
}

// InitialState is a widget that has never dialed.
func InitialState() ReconnectState {
	return ReconnectState{Phase: PhaseDisconnected}
}

// Dialing moves into connecting, keeping the attempt count.
func (s ReconnectState) Dialing() ReconnectState {
	s.Phase = PhaseConnecting
	s.Delay = 0
	return s
}

// Opened resets the attempt count.
func (s ReconnectState) Opened() ReconnectState {
	return ReconnectState{Phase: PhaseConnected}
}

// Closed handles a close or failed dial. A clean close ends in disconnected
// with nothing scheduled. An abnormal one backs off until MaxAttempts
// reconnects have been spent, then gives up.
func (s ReconnectState) Closed(p Policy, clean bool) ReconnectState {
	if clean {
		return ReconnectState{Phase: PhaseDisconnected}
	}
	if s.Attempt >= p.MaxAttempts {
		return ReconnectState{Phase: PhaseDisconnected, Attempt: s.Attempt, GaveUp: true}
	}
	return ReconnectState{
		Phase:   PhaseBackoff,
		Attempt: s.Attempt + 1,
		Delay:   p.Delay(s.Attempt),
	}
}

// ShouldReconnect reports whether a timer must be scheduled for Delay.
func (s ReconnectState) ShouldReconnect() bool {
	return s.Phase == PhaseBackoff
}
