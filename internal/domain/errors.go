package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")

	// ErrNormalization is part of the taxonomy but is never returned:
	// normalization is total.
	ErrNormalization = errors.New("normalization error")
	ErrStorage       = errors.New("storage error")
	ErrQueue         = errors.New("queue error")
	ErrMail          = errors.New("mail error")
	ErrRender        = errors.New("render error")
)

// Stage names a collaborator call inside the dispatch pipeline.
type Stage string

const (
	StagePersist      Stage = "persist"
	StageLoadTemplate Stage = "load_templates"
	StageReadParam    Stage = "read_param"
	StageEnqueue      Stage = "enqueue"
	StageRender       Stage = "render"
	StageRateLimit    Stage = "rate_limit"
	StageMail         Stage = "mail"
	StageRecordLog    Stage = "record_outcome"
)

func (s Stage) String() string { return string(s) }

// Kind returns the taxonomy sentinel for failures in this stage.
func (s Stage) Kind() error {
	switch s {
	case StagePersist, StageLoadTemplate, StageReadParam, StageRecordLog:
		return ErrStorage
	case StageEnqueue:
		return ErrQueue
	case StageRender:
		return ErrRender
	case StageMail, StageRateLimit:
		return ErrMail
	}
	return nil
}

// StageError is a contained collaborator failure. It matches both the
// stage's taxonomy sentinel and the underlying cause with errors.Is.
type StageError struct {
	Stage Stage
	Err   error
}

func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s stage failed", e.Stage)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e == nil {
		return nil
	}
	unwrapped := make([]error, 0, 2)
	if kind := e.Stage.Kind(); kind != nil {
		unwrapped = append(unwrapped, kind)
	}
	if e.Err != nil {
		unwrapped = append(unwrapped, e.Err)
	}
	return unwrapped
}
