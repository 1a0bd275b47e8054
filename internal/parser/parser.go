// Package parser pulls the JSON object out of free-form generation output
// and decodes it into outlines, world details and story nodes.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"storynexus/internal/story"
)

const snippetLimit = 200

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

var controlStripper = strings.NewReplacer("\n", "", "\t", "", "\r", "")

// ParseError matches story.ErrParseFailure and carries the start of the
// text that could not be parsed.
type ParseError struct {
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", story.ErrParseFailure, e.Snippet)
}

func (e *ParseError) Is(target error) bool {
	return target == story.ErrParseFailure
}

// Extract returns the first JSON object it can recover from text, trying
// the whole text, then the first fenced block, then the text with line
// breaks and tabs removed.
func Extract(text string) (map[string]any, error) {
	if obj, ok := decodeObject(text); ok {
		return obj, nil
	}
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		if obj, ok := decodeObject(m[1]); ok {
			return obj, nil
		}
	}
	cleaned := strings.TrimSpace(controlStripper.Replace(text))
	if obj, ok := decodeObject(cleaned); ok {
		return obj, nil
	}
	return nil, &ParseError{Snippet: snippet(cleaned)}
}

func decodeObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func snippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetLimit {
		return s
	}
	return string([]rune(s)[:snippetLimit])
}

// MissingFieldError reports a required key absent from a parsed object.
type MissingFieldError struct {
	Kind  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s missing required field %q", story.ErrParseFailure, e.Kind, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == story.ErrParseFailure
}

func require(kind string, obj map[string]any, fields ...string) error {
	var errs []error
	for _, f := range fields {
		if v, ok := obj[f]; !ok || v == nil {
			errs = append(errs, &MissingFieldError{Kind: kind, Field: f})
		}
	}
	return errors.Join(errs...)
}

// reshape round-trips obj through JSON into out.
func reshape(kind string, obj map[string]any, out any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("re-encoding %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", story.ErrParseFailure, kind, err)
	}
	return nil
}
