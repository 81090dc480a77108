package daemon

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Request is one credential command read from a client.
type Request struct {
	Verb string
	// Body holds the request lines as sent, without the blank terminator.
	Body []byte
}

// ReadRequest reads the verb line, then request lines until a blank line or
// EOF.
func ReadRequest(r *bufio.Reader) (Request, error) {
	verbLine, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Request{}, fmt.Errorf("read verb: %w", err)
	}
	verb := strings.TrimRight(verbLine, "\r\n")
	if verb == "" {
		return Request{}, errors.New("missing verb")
	}
	if err != nil {
		return Request{Verb: verb}, nil
	}

	var body bytes.Buffer
	for {
		line, err := r.ReadBytes('\n')
		if string(line) == "\n" {
			break
		}
		body.Write(line)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Request{}, fmt.Errorf("read request: %w", err)
		}
	}
	return Request{Verb: verb, Body: body.Bytes()}, nil
}
