package bridge

import "errors"

var (
	// ErrDestroyed is returned by operations on a store after Destroy.
	ErrDestroyed = errors.New("bridge: store destroyed")

	// ErrNilSubscriber is returned when subscribing a nil handler.
	ErrNilSubscriber = errors.New("bridge: nil subscriber")

	// ErrUnkeyableSubscriber is returned when a handler's dynamic type cannot
	// be used as a map key (for example a bare func value). Use SubscribeFunc
	// for functions.
	ErrUnkeyableSubscriber = errors.New("bridge: subscriber type is not comparable")
)
