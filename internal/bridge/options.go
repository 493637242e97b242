package bridge

import "fmt"

// NotifyPolicy decides whether a Set notifies subscribers.
type NotifyPolicy int

const (
	// NotifyForcedOnly notifies only when force is set, regardless of the
	// commit outcome.
	NotifyForcedOnly NotifyPolicy = iota

	// NotifyOnCommit notifies when the commit succeeded or force is set.
	NotifyOnCommit
)

// String returns the policy name used in scenario files.
func (p NotifyPolicy) String() string {
	switch p {
	case NotifyForcedOnly:
		return "forced_only"
	case NotifyOnCommit:
		return "on_commit"
	default:
		return fmt.Sprintf("NotifyPolicy(%d)", int(p))
	}
}

// ParseNotifyPolicy parses a policy name. The empty string selects the default.
func ParseNotifyPolicy(s string) (NotifyPolicy, error) {
	switch s {
	case "", "forced_only":
		return NotifyForcedOnly, nil
	case "on_commit":
		return NotifyOnCommit, nil
	default:
		return 0, fmt.Errorf("unknown notify policy %q: must be forced_only or on_commit", s)
	}
}

func (p NotifyPolicy) shouldNotify(commitOK, force bool) bool {
	if force {
		return true
	}
	return p == NotifyOnCommit && commitOK
}

// Observer receives store activity. Implementations must not call back into
// the store.
type Observer interface {
	// Committed reports the outcome of one commit attempt.
	Committed(ok bool)
	// Notified reports one completed fan-out and how many handlers it reached.
	Notified(subscribers int)
	// Skipped reports a Set whose notification was suppressed.
	Skipped()
}

type nopObserver struct{}

func (nopObserver) Committed(bool) {}
func (nopObserver) Notified(int)   {}
func (nopObserver) Skipped()       {}

type options struct {
	policy   NotifyPolicy
	observer Observer
}

// Option configures a Store.
type Option func(*options)

// WithNotifyPolicy selects the notification policy.
//
// Default: NotifyForcedOnly.
func WithNotifyPolicy(p NotifyPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithObserver attaches an activity observer (metrics, tracing).
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}
