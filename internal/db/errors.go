package db

import "errors"

// Sentinel errors returned by store operations. Callers match these with
// errors.Is to distinguish not-found conditions from real failures.
var (
	ErrAlertNotFound          = errors.New("anomaly alert not found")
	ErrRecommendationNotFound = errors.New("recommendation not found")
)
