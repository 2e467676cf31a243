package usecase

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies why a run stopped.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindDetector
	KindDegenerateTimeline
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindDetector:
		return "detector"
	case KindDegenerateTimeline:
		return "degenerate_timeline"
	case KindRender:
		return "render"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against a *RunError of the same kind.
var (
	ErrConfiguration   = errors.New("invalid configuration")
	ErrDetector        = errors.New("detector failed")
	ErrNothingToRender = errors.New("nothing left to render: every part of the input would be cut")
	ErrRender          = errors.New("render failed")
)

type RunError struct {
	Kind    Kind
	Stage   string
	Elapsed time.Duration
	Err     error
}

func (e *RunError) Error() string {
	if e.Elapsed == 0 {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v (after %.2fs)", e.Stage, e.Err, e.Elapsed.Seconds())
}

func (e *RunError) Unwrap() error { return e.Err }

func (e *RunError) Is(target error) bool {
	return sentinel(e.Kind) == target
}

func sentinel(k Kind) error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindDetector:
		return ErrDetector
	case KindDegenerateTimeline:
		return ErrNothingToRender
	case KindRender:
		return ErrRender
	}
	return nil
}

// KindOf returns the kind of the first *RunError in err's chain, or 0.
func KindOf(err error) Kind {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// NewConfigError wraps a validation failure found before a run starts.
func NewConfigError(err error) *RunError {
	return &RunError{Kind: KindConfiguration, Stage: "config", Err: err}
}
