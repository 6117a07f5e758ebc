// Package analyzer wraps the external vision model that estimates a meal's
// calories from a photo. The rest of the application treats it as an
// opaque capability that takes an image and returns a description and a
// calorie estimate, and that may fail or time out.
package analyzer

import "context"

// Analysis is the result of analyzing a meal photo.
type Analysis struct {
	Description string `json:"description"`
	Calories    int    `json:"calories"`
}

// Analyzer estimates calories from an image. Implementations must honor
// context cancellation so callers can bound the call with a timeout.
type Analyzer interface {
	AnalyzeMeal(ctx context.Context, mimeType string, image []byte) (*Analysis, error)
}
