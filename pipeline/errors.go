package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quailyquaily/keen/fetch"
)

type Stage string

const (
	StageValidate Stage = "validate"
	StageGuard    Stage = "guard"
	StageConfig   Stage = "config"
	StageFetch    Stage = "fetch"
	StageExtract  Stage = "extract"
	StageRender   Stage = "render"
	StageSend     Stage = "send"
)

var ErrInvalidURL = errors.New("please enter a valid http(s) url")

// StageError names the step of a send that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return string(e.Stage) + " failed"
	}
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the failing stage of err, or "" when err is not a
// *StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// ValidateURL accepts only absolute http(s) URLs with a host and returns
// the trimmed form.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if _, err := fetch.ParseHTTPURL(raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return raw, nil
}
