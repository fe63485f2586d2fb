// ABOUTME: Playback states and their cyclic order
// ABOUTME: Off, three noise colours, the memory clip, then each file in turn
package player

import (
	"fmt"
	"strings"

	"github.com/pwmaudio/pwmaudio-go/internal/source"
)

// Mode is the kind of playback state
type Mode int

const (
	ModeOff Mode = iota
	ModeWhite
	ModePink
	ModeBrown
	ModeMemory
	ModeFile
)

// State selects what is playing
type State struct {
	Mode  Mode
	Index int // File index when Mode is ModeFile
}

// Off is the state with output stopped
var Off = State{Mode: ModeOff}

func (s State) String() string {
	switch s.Mode {
	case ModeOff:
		return "off"
	case ModeWhite:
		return "white"
	case ModePink:
		return "pink"
	case ModeBrown:
		return "brown"
	case ModeMemory:
		return "memory"
	case ModeFile:
		return fmt.Sprintf("file[%d]", s.Index)
	default:
		return fmt.Sprintf("mode(%d)", int(s.Mode))
	}
}

// Next returns the state after s given the number of files
func (s State) Next(files int) State {
	switch s.Mode {
	case ModeOff:
		return State{Mode: ModeWhite}
	case ModeWhite:
		return State{Mode: ModePink}
	case ModePink:
		return State{Mode: ModeBrown}
	case ModeBrown:
		return State{Mode: ModeMemory}
	case ModeMemory:
		if files > 0 {
			return State{Mode: ModeFile}
		}
		return Off
	case ModeFile:
		if s.Index+1 < files {
			return State{Mode: ModeFile, Index: s.Index + 1}
		}
		return Off
	default:
		return Off
	}
}

// Colour returns the noise colour of a noise state
func (s State) Colour() (source.Colour, bool) {
	switch s.Mode {
	case ModeWhite:
		return source.White, true
	case ModePink:
		return source.Pink, true
	case ModeBrown:
		return source.Brown, true
	}
	return 0, false
}

// ParseState parses an initial state name: off, white, pink, brown, memory or file[:N]
func ParseState(name string) (State, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "off":
		return Off, nil
	case "white":
		return State{Mode: ModeWhite}, nil
	case "pink":
		return State{Mode: ModePink}, nil
	case "brown":
		return State{Mode: ModeBrown}, nil
	case "memory":
		return State{Mode: ModeMemory}, nil
	case "file":
		return State{Mode: ModeFile}, nil
	}

	var index int
	if _, err := fmt.Sscanf(name, "file:%d", &index); err == nil && index >= 0 {
		return State{Mode: ModeFile, Index: index}, nil
	}
	return Off, fmt.Errorf("unknown state %q", name)
}
