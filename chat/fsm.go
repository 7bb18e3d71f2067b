package chat

// Status is the connection state shown to the view.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

type event int

const (
	evConnect event = iota
	evOpen
	evWatchdog
	evDialFailed
	evTransportError
	evCleanClose
	evUncleanClose
	evTeardown
)

func (e event) String() string {
	switch e {
	case evConnect:
		return "connect"
	case evOpen:
		return "open"
	case evWatchdog:
		return "watchdog"
	case evDialFailed:
		return "dial-failed"
	case evTransportError:
		return "transport-error"
	case evCleanClose:
		return "clean-close"
	case evUncleanClose:
		return "unclean-close"
	case evTeardown:
		return "teardown"
	}
	return "unknown"
}

// effect is a set of side effects the session loop applies after a transition.
type effect uint16

const (
	effDial effect = 1 << iota
	effStartWatchdog
	effStopWatchdog
	effResetAttempts
	effAddSelf
	effSendJoin
	effCloseTransport
	effClearPresence
	effNotifyFailed
)

func (e effect) has(f effect) bool { return e&f != 0 }

// transition is the whole connection policy. It is pure: the session loop
// owns the transport, timers and callbacks and only does what this returns.
// There is no edge back to connecting other than an explicit connect.
func transition(s Status, ev event) (Status, effect) {
	live := s == StatusConnecting || s == StatusConnected

	switch ev {
	case evConnect:
		if live {
			return s, 0
		}
		return StatusConnecting, effDial | effStartWatchdog

	case evOpen:
		if s != StatusConnecting {
			return s, 0
		}
		return StatusConnected, effStopWatchdog | effResetAttempts | effAddSelf | effSendJoin

	case evWatchdog:
		if s != StatusConnecting {
			return s, 0
		}
		return StatusDisconnected, effStopWatchdog | effCloseTransport | effNotifyFailed

	case evDialFailed:
		if s != StatusConnecting {
			return s, 0
		}
		return StatusError, effStopWatchdog | effCloseTransport | effNotifyFailed

	case evTransportError:
		if !live {
			return s, 0
		}
		return StatusError, effStopWatchdog | effCloseTransport | effClearPresence | effNotifyFailed

	case evCleanClose:
		if !live {
			return s, 0
		}
		return StatusDisconnected, effStopWatchdog | effCloseTransport | effClearPresence

	case evUncleanClose:
		if !live {
			return s, 0
		}
		return StatusDisconnected, effStopWatchdog | effCloseTransport | effClearPresence | effNotifyFailed

	case evTeardown:
		return StatusDisconnected, effStopWatchdog | effCloseTransport | effClearPresence
	}
	return s, 0
}
