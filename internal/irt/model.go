package irt

import "errors"

// ErrUnsupportedOperation is returned by parameter accessors that a
// particular model parameterization does not define (e.g. a guessing
// parameter on a partial credit model). Callers iterating over mixed
// model types should check the model kind before calling these.
var ErrUnsupportedOperation = errors.New("irt: operation not supported by this model")

// ErrDimensionMismatch is returned when a supplied vector does not match
// the model's category structure.
var ErrDimensionMismatch = errors.New("irt: vector length does not match category count")

// ItemResponseModel is the capability set shared by item response model
// variants. Each model evaluates closed-form quantities for one test item
// given a latent trait value theta.
type ItemResponseModel interface {
	// Probability returns P(response = category | theta). Categories
	// outside [MinCategory, MaxCategory] yield 0.
	Probability(theta float64, category int) float64

	// DerivTheta returns the first derivative of the expected score
	// with respect to theta.
	DerivTheta(theta float64) float64

	// ExpectedValue returns the score-weighted expected response.
	ExpectedValue(theta float64) float64

	// ItemInformationAt returns the Fisher information at theta.
	ItemInformationAt(theta float64) float64

	// Scale permanently rescales the working parameters and their
	// standard errors onto a new metric via theta' = theta*slope + intercept.
	Scale(intercept, slope float64)

	// NumberOfParameters reports how many free parameters the model has.
	NumberOfParameters() int

	// NumberOfCategories reports the number of response categories M.
	NumberOfCategories() int
}
