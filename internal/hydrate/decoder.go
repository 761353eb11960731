// Package hydrate decodes materialized option trees and definition payloads
// into Go structs through their json tags.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-settings/layering"
)

// Origin names the payload being decoded: the option group and, when the
// payload came from a file or an operation, that source.
type Origin struct {
	Group string
	File  string
}

func (o Origin) String() string {
	switch {
	case o.File == "":
		return o.Group
	case o.Group == "":
		return o.File
	default:
		return o.Group + " (" + o.File + ")"
	}
}

// Stage identifies the step of Decode that failed.
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageDecode    Stage = "decode"
	StageCheck     Stage = "check"
)

// Error wraps a failure with the stage and origin it happened in.
type Error struct {
	Origin Origin
	Stage  Stage
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("hydrate: %s %s: %v", e.Stage, e.Origin, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNilPayload is returned when Decode receives a nil map.
var ErrNilPayload = errors.New("payload is nil")

// Normalizer rewrites a payload before decoding. It receives a private copy
// and may mutate it in place; returning nil keeps the copy.
type Normalizer func(Origin, map[string]any) (map[string]any, error)

// Checker inspects or completes the decoded value.
type Checker[T any] func(Origin, *T) error

// DecodeFunc replaces the json decoding step.
type DecodeFunc[T any] func(Origin, map[string]any) (T, error)

// Option configures a Decoder.
type Option[T any] func(*Decoder[T])

// Decoder runs normalizers, decodes, then runs checkers.
type Decoder[T any] struct {
	normalizers []Normalizer
	checkers    []Checker[T]
	decode      DecodeFunc[T]
	strict      bool
	numbers     bool
}

// Normalize appends fn to the normalizers.
func Normalize[T any](fn Normalizer) Option[T] {
	return func(d *Decoder[T]) {
		if fn != nil {
			d.normalizers = append(d.normalizers, fn)
		}
	}
}

// Check appends fn to the checkers.
func Check[T any](fn Checker[T]) Option[T] {
	return func(d *Decoder[T]) {
		if fn != nil {
			d.checkers = append(d.checkers, fn)
		}
	}
}

// Strict rejects payload keys that match no field of T.
func Strict[T any]() Option[T] {
	return func(d *Decoder[T]) { d.strict = true }
}

// Numbers decodes numbers into json.Number instead of float64.
func Numbers[T any]() Option[T] {
	return func(d *Decoder[T]) { d.numbers = true }
}

// Using replaces the json step with fn.
func Using[T any](fn DecodeFunc[T]) Option[T] {
	return func(d *Decoder[T]) { d.decode = fn }
}

// New builds a Decoder for T.
func New[T any](opts ...Option[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T. The caller's payload is never mutated.
func (d *Decoder[T]) Decode(origin Origin, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, &Error{Origin: origin, Stage: StageDecode, Err: ErrNilPayload}
	}

	working := layering.Clone(payload)
	for _, normalize := range d.normalizers {
		next, err := normalize(origin, working)
		if err != nil {
			return zero, &Error{Origin: origin, Stage: StageNormalize, Err: err}
		}
		if next != nil {
			working = next
		}
	}

	decode := d.decode
	if decode == nil {
		decode = d.decodeJSON
	}
	out, err := decode(origin, working)
	if err != nil {
		return zero, &Error{Origin: origin, Stage: StageDecode, Err: err}
	}

	for _, check := range d.checkers {
		if err := check(origin, &out); err != nil {
			return zero, &Error{Origin: origin, Stage: StageCheck, Err: err}
		}
	}
	return out, nil
}

func (d *Decoder[T]) decodeJSON(_ Origin, payload map[string]any) (T, error) {
	var out T
	data, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	if d.numbers {
		dec.UseNumber()
	}
	err = dec.Decode(&out)
	return out, err
}
