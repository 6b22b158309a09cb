package dialogue

import (
	"fmt"
	"strings"
)

// TerminationMode decides which side ends a notify exchange.
type TerminationMode int32

// All termination modes.
const (
	// Auto closes the dialogue right after the notify response.
	Auto TerminationMode = iota
	// LocalClose closes the dialogue right after the notify response.
	LocalClose
	// PeerClose delimits after the notify response and leaves it to the peer to close the dialogue.
	PeerClose
)

// TerminationModeByName allows to access all termination modes by their name.
var TerminationModeByName = map[string]TerminationMode{
	"auto":        Auto,
	"local-close": LocalClose,
	"peer-close":  PeerClose,
}

// ParseTerminationMode returns the termination mode with the given name.
func ParseTerminationMode(s string) (TerminationMode, error) {
	result, ok := TerminationModeByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Auto, fmt.Errorf("unknown termination mode %q", s)
	}
	return result, nil
}

func (m TerminationMode) String() string {
	for name, mode := range TerminationModeByName {
		if mode == m {
			return name
		}
	}
	return fmt.Sprintf("mode-%d", int32(m))
}

// ClosesAfterNotify reports whether a dialogue with this mode is closed after the notify response.
func (m TerminationMode) ClosesAfterNotify() bool {
	return m == Auto || m == LocalClose
}

// MarshalText implements encoding.TextMarshaler.
func (m TerminationMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *TerminationMode) UnmarshalText(text []byte) error {
	mode, err := ParseTerminationMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
