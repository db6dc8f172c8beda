package models

import "time"

// ModelKind identifies the response-model parameterization of an item.
// Only the PARSCALE generalized partial credit model is implemented;
// the column exists so other parameterizations can join the bank later.
type ModelKind string

const (
	ModelGPCM2 ModelKind = "gpcm2"
)

var ValidModelKinds = map[ModelKind]bool{
	ModelGPCM2: true,
}

// Item is one calibrated test item as stored in the bank. Thresholds
// and their standard errors have length M-1 for an M-category item;
// score weights, when present, have length M.
type Item struct {
	ID                     int64     `json:"id"`
	Name                   string    `json:"name"`
	Form                   string    `json:"form"`
	Model                  ModelKind `json:"model"`
	Discrimination         float64   `json:"discrimination"`
	DiscriminationStdError float64   `json:"discrimination_std_error"`
	Difficulty             float64   `json:"difficulty"`
	DifficultyStdError     float64   `json:"difficulty_std_error"`
	Thresholds             []float64 `json:"thresholds"`
	ThresholdStdErrors     []float64 `json:"threshold_std_errors"`
	ScalingConstant        float64   `json:"scaling_constant"`
	ScoreWeights           []float64 `json:"score_weights,omitempty"`
	IsFixed                bool      `json:"is_fixed"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type CreateItemRequest struct {
	Name            string    `json:"name"`
	Form            string    `json:"form"`
	Discrimination  float64   `json:"discrimination"`
	Difficulty      float64   `json:"difficulty"`
	Thresholds      []float64 `json:"thresholds"`
	ScalingConstant float64   `json:"scaling_constant"`
	ScoreWeights    []float64 `json:"score_weights,omitempty"`
}

// UpdateParametersRequest overwrites the working parameter values and
// standard errors of an item.
type UpdateParametersRequest struct {
	Discrimination         float64   `json:"discrimination"`
	DiscriminationStdError float64   `json:"discrimination_std_error"`
	Difficulty             float64   `json:"difficulty"`
	DifficultyStdError     float64   `json:"difficulty_std_error"`
	Thresholds             []float64 `json:"thresholds"`
	ThresholdStdErrors     []float64 `json:"threshold_std_errors"`
}

// ProposalRequest stages candidate parameter values for an item. The
// values only become authoritative when the accept endpoint is called.
type ProposalRequest struct {
	Discrimination float64   `json:"discrimination"`
	Difficulty     float64   `json:"difficulty"`
	Thresholds     []float64 `json:"thresholds"`
}

type SetFixedRequest struct {
	IsFixed bool `json:"is_fixed"`
}

// ScaleFormRequest carries linear-transform coefficients computed by an
// external linking procedure. Applying it rescales every item on the
// named form in place.
type ScaleFormRequest struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
}

// EvaluationPoint is one theta on an evaluated curve.
type EvaluationPoint struct {
	Theta  float64   `json:"theta"`
	Values []float64 `json:"values,omitempty"`
	Value  float64   `json:"value"`
}

type ProbabilityResponse struct {
	ItemID      int64   `json:"item_id"`
	Theta       float64 `json:"theta"`
	Category    int     `json:"category"`
	Probability float64 `json:"probability"`
}

type ExpectedValueResponse struct {
	ItemID        int64   `json:"item_id"`
	Theta         float64 `json:"theta"`
	ExpectedValue float64 `json:"expected_value"`
	DerivTheta    float64 `json:"deriv_theta"`
	Information   float64 `json:"information"`
}

// CurveResponse is a grid evaluation of one item quantity. For ICC
// curves Values holds one probability per category; for information
// curves Value holds the scalar.
type CurveResponse struct {
	ItemID int64             `json:"item_id,omitempty"`
	Form   string            `json:"form,omitempty"`
	Kind   string            `json:"kind"`
	Points []EvaluationPoint `json:"points"`
}

type ScaleFormResponse struct {
	Form        string  `json:"form"`
	Intercept   float64 `json:"intercept"`
	Slope       float64 `json:"slope"`
	ItemsScaled int     `json:"items_scaled"`
}
