package capture

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("capture: unknown command")
	ErrBadCount       = errors.New("capture: bad frame count")
)

// Verb identifies a trigger command.
type Verb int

const (
	CmdNone       Verb = iota // blank line
	CmdCapture                // cap N
	CmdStart                  // start
	CmdEnd                    // end
	CmdTrigger                // trigger
	CmdQuit                   // die
	CmdRegenerate             // rg
)

var verbNames = map[Verb]string{
	CmdNone:       "none",
	CmdCapture:    "cap",
	CmdStart:      "start",
	CmdEnd:        "end",
	CmdTrigger:    "trigger",
	CmdQuit:       "die",
	CmdRegenerate: "rg",
}

func (v Verb) String() string {
	if name, ok := verbNames[v]; ok {
		return name
	}
	return "Verb(" + strconv.Itoa(int(v)) + ")"
}

// bareVerbs are the commands that take no argument.
var bareVerbs = map[string]Verb{
	"start":   CmdStart,
	"end":     CmdEnd,
	"trigger": CmdTrigger,
	"die":     CmdQuit,
	"rg":      CmdRegenerate,
}

// Command is one parsed trigger line.
type Command struct {
	Verb  Verb
	Count int // frames, for CmdCapture
}

// ParseCommand parses a single trigger line. Words are separated by
// whitespace; surrounding whitespace and a trailing CR are ignored.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Verb: CmdNone}, nil
	}

	verb, args := fields[0], fields[1:]
	if verb == "cap" {
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: usage: cap N", ErrBadCount)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return Command{}, fmt.Errorf("%w: %q", ErrBadCount, args[0])
		}
		return Command{Verb: CmdCapture, Count: n}, nil
	}

	v, ok := bareVerbs[verb]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, verb)
	}
	if len(args) != 0 {
		return Command{}, fmt.Errorf("%w: %q takes no arguments", ErrUnknownCommand, verb)
	}
	return Command{Verb: v}, nil
}

// Dispatch applies cmd to s. It reports quit for CmdQuit. CmdRegenerate is
// accepted for compatibility and has no effect here.
func Dispatch(s *Scheduler, cmd Command) (quit bool, err error) {
	switch cmd.Verb {
	case CmdCapture:
		s.Request(cmd.Count)
	case CmdStart:
		return false, s.Begin()
	case CmdEnd:
		return false, s.End()
	case CmdTrigger:
		if !s.Trigger() {
			return false, errors.New("capture: trigger not supported by this API")
		}
	case CmdQuit:
		return true, nil
	}
	return false, nil
}
