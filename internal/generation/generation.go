// Package generation talks to the text generation service that writes
// outlines, world details and story nodes.
package generation

import (
	"context"
	"fmt"
	"strings"

	"storynexus/internal/story"
)

type Request struct {
	SystemPrompt string
	UserPrompt   string
}

type Message struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

type ResponseChoice struct {
	Message Message `json:"message"`
}

type Response struct {
	Choices []ResponseChoice `json:"choices"`
}

// Text returns the first choice's message content.
func (r *Response) Text() (string, error) {
	if r == nil || len(r.Choices) == 0 || strings.TrimSpace(r.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: response has no message content", story.ErrTransport)
	}
	return r.Choices[0].Message.Content, nil
}

type Service interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// TransportError is a failed or non-2xx exchange with the service. It
// matches story.ErrTransport.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", story.ErrTransport, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", story.ErrTransport, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: status %d", story.ErrTransport, e.StatusCode)
	}
}

func (e *TransportError) Is(target error) bool {
	return target == story.ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
