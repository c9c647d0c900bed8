package framepool

import (
	"fmt"
	"strings"
)

// Policy selects what the producer does when no slot is free.
type Policy int

const (
	// OverwriteOldest reuses the oldest unread filled slot, dropping its
	// frame.
	OverwriteOldest Policy = iota
	// Block waits until the consumer releases a slot.
	Block
)

func (p Policy) String() string {
	switch p {
	case OverwriteOldest:
		return "overwrite-oldest"
	case Block:
		return "block"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses the names produced by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overwrite-oldest", "overwrite_oldest", "drop-oldest", "":
		return OverwriteOldest, nil
	case "block":
		return Block, nil
	}
	return 0, fmt.Errorf("%w: unknown policy %q", ErrInvalidArgument, s)
}

// State is the ownership state of a slot.
type State int

const (
	// StateFree slots wait in the free queue.
	StateFree State = iota
	// StateFilling slots are held by the producer between AcquireFill and
	// Publish or Recycle.
	StateFilling
	// StateFilled slots wait in the filled queue.
	StateFilled
	// StateCheckedOut slots are held by the consumer until Release.
	StateCheckedOut
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateFilling:
		return "filling"
	case StateFilled:
		return "filled"
	case StateCheckedOut:
		return "checked-out"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
