// Package parser implements the SLASH@DASH command grammar.
//
// A command line has the form:
//
//	/verb-name @kind:identifier --key value --flag
//
// The verb is mandatory; the input reference and parameters are optional.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// ErrMissingVerb is returned when the input has no /verb token.
var ErrMissingVerb = errors.New("missing verb")

// ErrMalformedInput is returned when an @kind: reference has an empty identifier.
var ErrMalformedInput = errors.New("malformed input reference")

// ParseError describes a syntax error with its position in the raw input.
type ParseError struct {
	Err      error
	Position int
	Raw      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InputKind identifies the type of an input reference.
type InputKind string

const (
	KindFile      InputKind = "file"
	KindURL       InputKind = "url"
	KindData      InputKind = "data"
	KindDirectory InputKind = "directory"
	KindWorkspace InputKind = "workspace"
	KindSite      InputKind = "site"
	// KindUnknown marks a reference whose kind is not one of the known six.
	// The parse still succeeds; validity is judged downstream by the gate.
	KindUnknown InputKind = "unknown"
)

var knownKinds = map[InputKind]bool{
	KindFile:      true,
	KindURL:       true,
	KindData:      true,
	KindDirectory: true,
	KindWorkspace: true,
	KindSite:      true,
}

// InputRef is a parsed @kind:identifier reference.
type InputRef struct {
	Kind       InputKind `json:"kind"`
	Identifier string    `json:"identifier"`
	Raw        string    `json:"raw"`
}

func (r InputRef) String() string {
	return "@" + string(r.Kind) + ":" + r.Identifier
}

// Param is a single --key value pair.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Command is the immutable result of a successful parse.
// Params preserve insertion order; duplicate keys keep the last occurrence.
type Command struct {
	Raw    string    `json:"raw"`
	Verb   string    `json:"verb"`
	Input  *InputRef `json:"input,omitempty"`
	Params []Param   `json:"params,omitempty"`
}

// Param returns the value for key and whether it was present.
func (c *Command) Param(key string) (string, bool) {
	for _, p := range c.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Flag reports whether a boolean parameter is set to "true".
func (c *Command) Flag(key string) bool {
	v, ok := c.Param(key)
	return ok && v == "true"
}

var verbPattern = regexp.MustCompile(`^/([a-z]+(?:-[a-z]+)*)$`)

// Parse converts a raw input line into a Command.
//
// The line is tokenized quote-aware first, so values like
// `--message "two words"` survive as a single parameter value.
func Parse(raw string) (*Command, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !strings.HasPrefix(trimmed, "/") {
		return nil, &ParseError{Err: ErrMissingVerb, Position: 0, Raw: raw}
	}

	tokens, err := shellwords.Parse(trimmed)
	if err != nil {
		// Unbalanced quotes and similar tokenizer failures; fall back to
		// whitespace splitting so the verb can still be reported.
		tokens = strings.Fields(trimmed)
	}
	if len(tokens) == 0 {
		return nil, &ParseError{Err: ErrMissingVerb, Position: 0, Raw: raw}
	}

	m := verbPattern.FindStringSubmatch(tokens[0])
	if m == nil {
		return nil, &ParseError{Err: ErrMissingVerb, Position: 0, Raw: raw}
	}

	cmd := &Command{Raw: trimmed, Verb: m[1]}

	i := 1
	for i < len(tokens) {
		tok := tokens[i]
		switch {
		case strings.HasPrefix(tok, "@"):
			ref, err := parseInputRef(tok)
			if err != nil {
				return nil, &ParseError{Err: err, Position: i, Raw: raw}
			}
			// Only the first reference counts; later @tokens are opaque values.
			if cmd.Input == nil {
				cmd.Input = ref
			}
			i++
		case strings.HasPrefix(tok, "--"):
			key := strings.TrimPrefix(tok, "--")
			if key == "" {
				i++
				continue
			}
			value := "true"
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "--") {
				value = tokens[i+1]
				i += 2
			} else {
				i++
			}
			cmd.Params = setParam(cmd.Params, key, value)
		default:
			// Bare positional tokens are ignored by the grammar.
			i++
		}
	}

	return cmd, nil
}

func parseInputRef(tok string) (*InputRef, error) {
	body := strings.TrimPrefix(tok, "@")
	kind, ident, found := strings.Cut(body, ":")
	if !found {
		// @name without a colon: opaque identifier of unknown kind.
		if body == "" {
			return nil, ErrMalformedInput
		}
		return &InputRef{Kind: KindUnknown, Identifier: body, Raw: tok}, nil
	}
	if ident == "" {
		return nil, ErrMalformedInput
	}
	k := InputKind(kind)
	if !knownKinds[k] {
		k = KindUnknown
		ident = body
	}
	return &InputRef{Kind: k, Identifier: ident, Raw: tok}, nil
}

// setParam keeps insertion order with last-occurrence-wins: a duplicate key
// stays in its original slot and takes the new value.
func setParam(params []Param, key, value string) []Param {
	for i := range params {
		if params[i].Key == key {
			params[i].Value = value
			return params
		}
	}
	return append(params, Param{Key: key, Value: value})
}
