package model

import "errors"

// Sentinel errors shared by repositories and services.
//
// ErrNotFound reports a stale reference: the task is no longer active, the
// event was already restored, or the job was already claimed. Callers should
// re-render current state instead of retrying.
// ErrValidation reports malformed input and is never retried.
// Any other error bubbling out of a repository is a store failure wrapped
// with context.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid input")
)
