package domain

import "errors"

// MinSamples is the smallest series, after range filtering, the engine accepts.
// It equals the moving-variance window of the aliasing detector, the longest
// fixed window any stage needs before it can say anything.
const MinSamples = 10

// MaxAnalyzedSamples caps the series length after gap filling at 31 days of
// one-minute samples. The spectral pass is quadratic in this length.
const MaxAnalyzedSamples = 31 * 24 * 60

// Precondition failures reported by the engine before any stage runs.
var (
	ErrEmptySeries         = errors.New("series is empty")
	ErrInsufficientSamples = errors.New("series has too few samples")
	ErrSeriesTooLong       = errors.New("series spans too many samples")
	ErrNonFiniteLevel      = errors.New("series contains a non-finite level")
	ErrInvalidConfig       = errors.New("invalid analysis config")
	ErrInvalidJob          = errors.New("invalid analysis job")
)

// IsInputError reports whether err was caused by the caller's series, config, or
// job payload rather than by the service itself.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptySeries) ||
		errors.Is(err, ErrInsufficientSamples) ||
		errors.Is(err, ErrSeriesTooLong) ||
		errors.Is(err, ErrNonFiniteLevel) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidJob)
}
