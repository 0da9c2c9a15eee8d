package triage

import "errors"

// Failure taxonomy. Classifiers catch oracle and storage failures
// internally and degrade to their documented defaults; only
// ErrValidationFailure is surfaced to the caller.
var (
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrOracleUnparseable = errors.New("oracle response unparseable")
	ErrStorageFailure    = errors.New("session storage failure")
	ErrValidationFailure = errors.New("empty question")
)
