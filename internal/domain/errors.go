package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidURL      = errors.New("invalid url")
	ErrArtifactMissing = errors.New("artifact missing")
)
