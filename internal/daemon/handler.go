package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Handler produces the reply for one request.
type Handler interface {
	Serve(ctx context.Context, req Request, out io.Writer) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request, out io.Writer) error

func (f HandlerFunc) Serve(ctx context.Context, req Request, out io.Writer) error {
	return f(ctx, req, out)
}

// HelperHandler relays requests to a git credential helper. The verb is
// appended to Command, the request body is the helper's stdin, and its stdout
// is the reply.
type HelperHandler struct {
	Command []string
}

// NewHelperHandler returns a HelperHandler for command.
func NewHelperHandler(command []string) (*HelperHandler, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, errors.New("helper command is empty")
	}
	return &HelperHandler{Command: append([]string(nil), command...)}, nil
}

func (h *HelperHandler) Serve(ctx context.Context, req Request, out io.Writer) error {
	args := append(append([]string(nil), h.Command[1:]...), req.Verb)
	cmd := exec.CommandContext(ctx, h.Command[0], args...)
	cmd.Stdin = bytes.NewReader(req.Body)
	cmd.Stdout = out
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("helper %s %s: %w: %s", h.Command[0], req.Verb, err, detail)
		}
		return fmt.Errorf("helper %s %s: %w", h.Command[0], req.Verb, err)
	}
	return nil
}
