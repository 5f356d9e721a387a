package types

import "errors"

// Pipeline error kinds. Stages wrap these with context; test with errors.Is.
var (
	ErrInvalidFileType     = errors.New("invalid file type")
	ErrDecodeFailure       = errors.New("failed to decode image")
	ErrDegenerateSelection = errors.New("selection too small")
	ErrEmptyCrop           = errors.New("empty crop rectangle")
	ErrShapeMismatch       = errors.New("tensor shape mismatch")
	ErrModelFailure        = errors.New("model inference failed")

	ErrNoImage           = errors.New("no image loaded")
	ErrNoTensor          = errors.New("no preprocessed region")
	ErrInferenceInFlight = errors.New("inference already in progress")
	ErrSurfaceNotReady   = errors.New("display surface not ready")
	ErrLoadSuperseded    = errors.New("image load superseded by a newer load")
	ErrResultDiscarded   = errors.New("selection changed while inference was running")
)
