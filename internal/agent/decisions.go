package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"focusguard/internal/matcher"

	"github.com/pkg/errors"
)

const (
	maxObservationSize = 1 << 20
	readBufferSize     = 64 * 1024
)

var errObservationTooLarge = errors.New("observation exceeds 1 MiB")

// decisionLine is written for every observation read by ServeDecisions.
type decisionLine struct {
	Identifier string `json:"identifier"`
	matcher.Decision
	Error string `json:"error,omitempty"`
}

// ServeDecisions reads one JSON observation per line from r and writes one JSON decision
// per line to w until r is exhausted or ctx is done. Malformed and oversized lines are
// answered with an allow decision carrying the error; the stream continues after them.
func (a *Agent) ServeDecisions(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReaderSize(r, readBufferSize)
	encoder := json.NewEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, oversized, readErr := readObservationLine(reader, maxObservationSize)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return errors.Wrap(readErr, "failed to read observation")
		}

		if oversized || len(line) > 0 {
			if err := encoder.Encode(a.decideLine(line, oversized)); err != nil {
				return errors.Wrap(err, "failed to write decision")
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

func (a *Agent) decideLine(line []byte, oversized bool) decisionLine {
	out := decisionLine{}
	if oversized {
		a.logger.Warn("Oversized observation skipped", slog.Int("limit", maxObservationSize))
		out.Decision = matcher.Decision{Verdict: matcher.Allow, Reason: matcher.ReasonInternalError}
		out.Error = errObservationTooLarge.Error()

		return out
	}

	var obs matcher.Observation
	if err := json.Unmarshal(line, &obs); err != nil {
		a.logger.Debug("Malformed observation", slog.Any("error", err))
		out.Decision = matcher.Decision{Verdict: matcher.Allow, Reason: matcher.ReasonInternalError}
		out.Error = err.Error()

		return out
	}

	out.Identifier = obs.Identifier
	out.Decision = a.Decide(obs)

	return out
}

// readObservationLine returns the next line without surrounding whitespace. A line longer
// than limit is consumed up to its newline and reported as oversized, with at most limit
// bytes kept in memory. io.EOF is returned together with a final unterminated line.
func readObservationLine(r *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	oversized := false

	for {
		chunk, err := r.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > limit+1 {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		return bytes.TrimSpace(line), oversized, err
	}
}
