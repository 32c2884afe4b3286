package domain

import "errors"

var (
	// ErrJobNotFound means the durable job record does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrFileNotFound means the stored document for a job is missing.
	ErrFileNotFound = errors.New("file not found")
)
