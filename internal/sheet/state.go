package sheet

import "fmt"

// State is the mount state of a controller.
type State int

const (
	// Unmounted has no store and no view.
	Unmounted State = iota
	// Mounting is preparing the window for the first render.
	Mounting
	// Mounted holds a live store and view.
	Mounted
	// Errored failed to prepare and shows an error until closed.
	Errored
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Unmounted:
		return "unmounted"
	case Mounting:
		return "mounting"
	case Mounted:
		return "mounted"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ParseState parses a state name as printed by String.
func ParseState(s string) (State, error) {
	for _, st := range []State{Unmounted, Mounting, Mounted, Errored} {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown sheet state %q", s)
}

// Branch names the path a Render call took.
type Branch string

const (
	BranchMount     Branch = "mount"     // first render built a store and view
	BranchRefresh   Branch = "refresh"   // mounted; forced set of a fresh snapshot
	BranchCoalesced Branch = "coalesced" // overlapped a mount in flight
	BranchErrored   Branch = "errored"   // window is in its error state
)
