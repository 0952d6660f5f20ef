package capture

import (
	"context"
	"errors"
	"io"

	"capture-assistant/pkg/renderdoc"
)

// maxLineLen bounds a single command line. Longer lines are dropped whole.
const maxLineLen = 256

// ReadCommands reads newline-terminated commands from r and passes each
// parsed command to handle until handle returns false, r reaches EOF or ctx
// is done. Unparseable lines are logged and skipped.
//
// A blocked Read is not interrupted by ctx; close r, or give it a read
// timeout as [OpenSerial] does, to make cancellation prompt. Reads that
// return no data and no error are retried.
func ReadCommands(ctx context.Context, r io.Reader, handle func(Command) bool) error {
	buff := make([]byte, 100)
	line := make([]byte, 0, maxLineLen)
	overflow := false

	// deliver reports false when reading should stop.
	deliver := func() bool {
		defer func() { line = line[:0] }()
		if overflow {
			overflow = false
			renderdoc.Logger().Warn("capture: dropped overlong trigger line", "limit", maxLineLen)
			return true
		}
		cmd, err := ParseCommand(string(line))
		if err != nil {
			renderdoc.Logger().Warn("capture: ignoring trigger line", "line", string(line), "err", err)
			return true
		}
		if cmd.Verb == CmdNone {
			return true
		}
		return handle(cmd)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buff)
		for _, b := range buff[:n] {
			if b == '\n' {
				if !deliver() {
					return nil
				}
				continue
			}
			if len(line) == maxLineLen {
				overflow = true
				continue
			}
			line = append(line, b)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(line) > 0 || overflow {
					deliver()
				}
				return nil
			}
			return err
		}
	}
}
