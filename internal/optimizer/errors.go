package optimizer

import (
	"errors"
	"fmt"

	"resopt/internal/arsc"
	"resopt/internal/ziputil"
)

// Kind classifies a run failure.
type Kind int

const (
	// Internal covers every unexpected failure, including recovered panics.
	// It is failed-soft: the build goes on with the untouched archive.
	Internal Kind = iota
	MissingInput
	MalformedTable
	Extraction
	Repack
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case MissingInput:
		return "missing input"
	case MalformedTable:
		return "malformed table"
	case Extraction:
		return "extraction"
	case Repack:
		return "repack"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Fatal reports whether the failure must abort the build.
func (k Kind) Fatal() bool { return k != Internal }

// Sentinels matched by errors.Is against any *Error of the same Kind.
var (
	ErrMissingInput   = errors.New("missing input")
	ErrMalformedTable = errors.New("malformed resource table")
	ErrExtraction     = errors.New("extraction failed")
	ErrRepack         = errors.New("repack failed")
	ErrInternal       = errors.New("internal error")
)

var sentinels = map[Kind]error{
	Internal:       ErrInternal,
	MissingInput:   ErrMissingInput,
	MalformedTable: ErrMalformedTable,
	Extraction:     ErrExtraction,
	Repack:         ErrRepack,
}

// Error is the only error type Run returns.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// classify maps lower-level sentinels onto a Kind.
func classify(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	k := Internal
	switch {
	case errors.Is(err, arsc.ErrMalformed):
		k = MalformedTable
	case errors.Is(err, ziputil.ErrExtract):
		k = Extraction
	case errors.Is(err, ziputil.ErrRepack):
		k = Repack
	}
	return &Error{Kind: k, Op: op, Err: err}
}
