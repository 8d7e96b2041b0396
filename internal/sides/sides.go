package sides

import (
	"errors"
	"fmt"
	"slices"
)

type Side int

const (
	Other Side = iota
	Left
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "other"
	}
}

var (
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrSameParticipant    = errors.New("left and right are the same participant")
)

// Assignment maps two chat participants onto the left and right columns of
// the chat view. Aliases rename senders for display only.
type Assignment struct {
	Left    string            `json:"left" toml:"left"`
	Right   string            `json:"right" toml:"right"`
	Aliases map[string]string `json:"aliases,omitempty" toml:"aliases"`
}

// Default puts the first participant on the left and the second on the right.
func Default(participants []string) Assignment {
	var a Assignment
	if len(participants) > 0 {
		a.Left = participants[0]
	}
	if len(participants) > 1 {
		a.Right = participants[1]
	}
	return a
}

// Resolve fills whichever side is unset from participants, skipping the
// name already taken by the other side.
func (a Assignment) Resolve(participants []string) Assignment {
	for _, p := range participants {
		if a.Left != "" && a.Right != "" {
			break
		}
		if a.Left == "" && p != a.Right {
			a.Left = p
		} else if a.Right == "" && p != a.Left {
			a.Right = p
		}
	}
	return a
}

func (a Assignment) SideOf(sender string) Side {
	switch {
	case sender == "":
		return Other
	case sender == a.Left:
		return Left
	case sender == a.Right:
		return Right
	default:
		return Other
	}
}

// Name returns the display name for sender.
func (a Assignment) Name(sender string) string {
	if alias := a.Aliases[sender]; alias != "" {
		return alias
	}
	return sender
}

func (a Assignment) Validate(participants []string) error {
	for _, name := range []string{a.Left, a.Right} {
		if name != "" && !slices.Contains(participants, name) {
			return fmt.Errorf("%w: %q", ErrUnknownParticipant, name)
		}
	}
	if a.Left != "" && a.Left == a.Right {
		return fmt.Errorf("%w: %q", ErrSameParticipant, a.Left)
	}
	return nil
}
