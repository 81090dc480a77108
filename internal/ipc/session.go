package ipc

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"

	"gcm/internal/fault"
	"gcm/internal/logging"
)

// receiveBufferSize bounds a single read from the daemon.
const receiveBufferSize = 4096

// sentinel ends the request stream.
const sentinel = "\n"

// Session is one established connection to the daemon.
type Session struct {
	conn   net.Conn
	logger *slog.Logger
	state  State
	closed bool
}

// NewSession wraps an established connection.
func NewSession(conn net.Conn, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Session{conn: conn, logger: logger, state: StateConnected}
}

// State reports the session's phase.
func (s *Session) State() State { return s.state }

// SendVerb writes the command verb followed by a newline.
func (s *Session) SendVerb(verb string) error {
	if _, err := io.WriteString(s.conn, verb+"\n"); err != nil {
		return fault.Transport("send", err)
	}
	return nil
}

// Stream forwards lines from in until a line consisting of just "\n" has been
// forwarded or in is exhausted. Each line is sent as soon as it is read, with
// its newline, and never split or truncated. A final line without a newline is
// forwarded as-is; no terminator is added. When in is exhausted the write side
// of the connection is shut down so the daemon sees EOF.
func (s *Session) Stream(in io.Reader) error {
	s.state = StateStreaming
	reader := bufio.NewReader(in)
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			if _, err := s.conn.Write(line); err != nil {
				return fault.Transport("send", err)
			}
			if string(line) == sentinel {
				return nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				s.closeWrite()
				return nil
			}
			return fault.Transport("read request", readErr)
		}
	}
}

func (s *Session) closeWrite() {
	cw, ok := s.conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		s.logger.Debug("shutdown write failed", logging.Error(err))
	}
}

// Drain copies everything the daemon sends to out, chunk by chunk, until the
// daemon closes the connection. A zero-length receive ends the exchange
// cleanly.
func (s *Session) Drain(out io.Writer) error {
	s.state = StateDraining
	buf := make([]byte, receiveBufferSize)
	for {
		n, readErr := s.conn.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fault.Transport("write response", err)
			}
			if readErr == nil {
				continue
			}
		}
		if readErr == nil || errors.Is(readErr, io.EOF) {
			return nil
		}
		return fault.Transport("recv", readErr)
	}
}

// Close closes the connection. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.state = StateClosed
	return s.conn.Close()
}
