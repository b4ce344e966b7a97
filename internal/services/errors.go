package services

import (
	"fmt"
	"time"
)

// ServiceError is a failure reported by the prediction service itself.
type ServiceError struct {
	Model      Model
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (status %d): %s", e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Model, e.Message)
}

// TimeoutError means polling hit its attempt ceiling before the job finished.
type TimeoutError struct {
	Model    Model
	Attempts int
	Waited   time.Duration
	// LastErr is the last transient poll error, if the final attempt failed.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s timed out after %d polls (%s); try a shorter input or a faster model", e.Model, e.Attempts, e.Waited.Round(time.Second))
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.LastErr }
