// Package signal turns raw TradingView alerts into canonical trade commands.
package signal

import "strings"

// Command is the canonical trade instruction derived from an alert.
type Command string

const (
	EnterLong        Command = "ENTER_LONG"
	EnterShort       Command = "ENTER_SHORT"
	ExitLong         Command = "EXIT_LONG"
	ExitShort        Command = "EXIT_SHORT"
	ExitLongAll      Command = "EXIT_LONG_ALL"
	ExitShortAll     Command = "EXIT_SHORT_ALL"
	ExitLongPartial  Command = "EXIT_LONG_PARTIAL"
	ExitShortPartial Command = "EXIT_SHORT_PARTIAL"
	CancelAll        Command = "CANCEL_ALL"
)

// Commands lists every canonical command.
var Commands = []Command{
	EnterLong, EnterShort,
	ExitLong, ExitShort,
	ExitLongAll, ExitShortAll,
	ExitLongPartial, ExitShortPartial,
	CancelAll,
}

// Side is the logical position side.
type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseCommand matches s (case and surrounding space insensitive) against the
// canonical set.
func ParseCommand(s string) (Command, bool) {
	c := Command(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Commands {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Side returns the side implied by the command, SideNone for CANCEL_ALL.
func (c Command) Side() Side {
	switch c {
	case EnterLong, ExitLong, ExitLongAll, ExitLongPartial:
		return SideLong
	case EnterShort, ExitShort, ExitShortAll, ExitShortPartial:
		return SideShort
	default:
		return SideNone
	}
}

func (c Command) IsEntry() bool { return c == EnterLong || c == EnterShort }

func (c Command) IsExit() bool { return strings.HasPrefix(string(c), "EXIT_") && c.Side() != SideNone }

func (c Command) String() string { return string(c) }

// ParseSide accepts buy, sell, long or short in any case.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long":
		return SideLong, true
	case "sell", "short":
		return SideShort, true
	}
	return SideNone, false
}

func compose(exit bool, side Side) Command {
	switch {
	case !exit && side == SideLong:
		return EnterLong
	case !exit && side == SideShort:
		return EnterShort
	case exit && side == SideLong:
		return ExitLong
	default:
		return ExitShort
	}
}
