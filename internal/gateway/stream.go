package gateway

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/tidwall/gjson"

	"chatcore/internal/core"
	"chatcore/internal/observability"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	// maxLineBuffer bounds the unterminated-line buffer. A gateway that
	// streams this much without a newline is violating the framing
	// contract, and an unbounded buffer would be a resource leak.
	maxLineBuffer = 1 << 20

	readChunkSize = 4096
)

// Stream is a finite, forward-only, non-restartable sequence of text
// fragments produced by a streaming chat completion. The caller drives
// consumption: no transport chunk is read until Recv is called again.
//
// Recv returns io.EOF once the gateway sends the termination sentinel or
// the transport closes. After any terminal state, Recv keeps returning
// the same result. Close releases the transport on every exit path,
// including early abandonment, and is idempotent.
type Stream struct {
	body    io.ReadCloser
	logger  *slog.Logger
	metrics *observability.Metrics

	buf     []byte   // unterminated tail carried across chunk reads
	pending []string // extracted fragments not yet delivered
	chunk   []byte   // scratch read buffer

	skipped  int
	err      error // terminal state; io.EOF on normal termination
	released bool
}

func newStream(body io.ReadCloser, logger *slog.Logger, metrics *observability.Metrics) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		body:    body,
		logger:  logger,
		metrics: metrics,
		chunk:   make([]byte, readChunkSize),
	}
}

// Recv returns the next text fragment, in the exact order emitted by the
// gateway. It blocks on the next transport chunk when no fragment is
// buffered. Terminal states: io.EOF on normal end, *core.GatewayError on
// protocol violation, or a transport read error.
func (s *Stream) Recv() (string, error) {
	for {
		if len(s.pending) > 0 {
			fragment := s.pending[0]
			s.pending = s.pending[1:]
			s.metrics.StreamFragment()
			return fragment, nil
		}
		if s.err != nil {
			return "", s.err
		}

		n, readErr := s.body.Read(s.chunk)
		if n > 0 {
			if len(s.buf)+n > maxLineBuffer {
				s.terminate(core.NewStreamError("line buffer overflow: gateway sent over 1MiB without a newline", nil))
				continue
			}
			s.buf = append(s.buf, s.chunk[:n]...)
			s.drainLines()
		}
		if readErr != nil && s.err == nil {
			// End of transport: flush any remaining buffered line using
			// the same rules before terminating.
			s.flushTail()
			if s.err == nil {
				if readErr == io.EOF {
					s.terminate(io.EOF)
				} else {
					s.terminate(core.NewTransportError("stream read failed: "+readErr.Error(), readErr))
				}
			}
		}
	}
}

// SkippedFrames reports how many malformed frames were silently skipped
// so far. Meaningful mainly after the stream terminates.
func (s *Stream) SkippedFrames() int {
	return s.skipped
}

// Close releases the underlying transport. Safe to call at any point and
// more than once; a subsequent Recv reports io.EOF.
func (s *Stream) Close() error {
	if s.err == nil {
		s.err = io.EOF
	}
	return s.release()
}

// drainLines processes every complete line in the buffer, retaining the
// trailing partial line (no newline yet) for the next read.
func (s *Stream) drainLines() {
	for s.err == nil {
		idx := bytes.IndexByte(s.buf, '\n')
		if idx < 0 {
			return
		}
		line := s.buf[:idx]
		s.buf = s.buf[idx+1:]
		s.handleLine(line)
	}
}

// flushTail processes the final unterminated line, if any.
func (s *Stream) flushTail() {
	if len(s.buf) == 0 {
		return
	}
	line := s.buf
	s.buf = nil
	s.handleLine(line)
}

// handleLine applies the frame rules to one complete line. Lines without
// the data-frame prefix (blank separators, comments, event names) are
// ignored. A [DONE] payload ends the stream immediately, discarding
// whatever is still buffered. Payloads that do not parse are skipped and
// counted; partial frames at chunk boundaries are expected, and skipping
// them must not abort the stream.
func (s *Stream) handleLine(line []byte) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return
	}
	payload := bytes.TrimPrefix(line, []byte(dataPrefix))
	if string(bytes.TrimSpace(payload)) == doneSentinel {
		s.buf = nil
		s.terminate(io.EOF)
		return
	}

	if !gjson.ValidBytes(payload) {
		s.skipFrame(payload)
		return
	}
	content := gjson.GetBytes(payload, "choices.0.delta.content")
	if content.Exists() && content.Str != "" {
		s.pending = append(s.pending, content.Str)
	}
}

func (s *Stream) skipFrame(payload []byte) {
	s.skipped++
	s.metrics.SkippedFrame()
	s.logger.Debug("skipping malformed stream frame", "bytes", len(payload))
}

// terminate records the terminal state and releases the transport.
func (s *Stream) terminate(err error) {
	s.err = err
	_ = s.release()
}

func (s *Stream) release() error {
	if s.released {
		return nil
	}
	s.released = true
	return s.body.Close()
}
