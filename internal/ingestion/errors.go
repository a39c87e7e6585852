package ingestion

import (
	"errors"
	"fmt"
)

// Stage names one step of a snapshot cycle.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageTransform Stage = "transform"
	StagePersist   Stage = "persist"
)

// ErrInvalidSnapshot is returned by Transform for snapshots that cannot be stored.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// CycleError reports the stage at which a snapshot cycle failed.
type CycleError struct {
	Stage Stage
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// StageOf returns the failed stage of a cycle error.
func StageOf(err error) (Stage, bool) {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce.Stage, true
	}
	return "", false
}
