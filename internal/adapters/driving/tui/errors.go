package tui

import "errors"

// ErrMissingPipelineService is returned when the pipeline service is not provided.
var ErrMissingPipelineService = errors.New("tui: pipeline service is required")

// ErrMissingDocument is returned when there is no document to run.
var ErrMissingDocument = errors.New("tui: document is required")
