// Package irt implements item response theory models for polytomous
// test items. The GPCM2 type is the PARSCALE parameterization of the
// generalized partial credit model: a discrimination parameter a, a
// difficulty parameter b, and M-1 threshold parameters t for an item
// with M ordered response categories. The step parameters of the plain
// GPCM decompose as b_v = b - t_v (Muraki, 1992).
package irt

import (
	"fmt"
	"math"
	"strings"

	"github.com/itembank/backend/internal/stats"
)

// GPCM2 holds the working parameters of one item, a staged "proposal"
// copy written by an external estimator, and the standard errors of the
// working values. Categories are the contiguous integers 0..M-1.
//
// A GPCM2 has no internal locking. Concurrent reads are safe while the
// parameters are stable; proposal staging, AcceptAllProposalValues and
// Scale must be serialized by the caller.
type GPCM2 struct {
	discrimination         float64
	proposalDiscrimination float64
	discriminationStdError float64

	difficulty         float64
	proposalDifficulty float64
	difficultyStdError float64

	threshold         []float64
	proposalThreshold []float64
	thresholdStdError []float64

	// d is the logistic-to-normal scaling constant, conventionally 1.7
	// or 1.0. Fixed at construction.
	d float64

	ncat        int
	ncatM1      int
	minCategory int
	maxCategory int

	scoreWeight []float64
	fixed       bool
}

var _ ItemResponseModel = (*GPCM2)(nil)

// NewGPCM2 constructs an item with the given discrimination, difficulty,
// threshold vector (length M-1 for M categories) and scaling constant d.
// Score weights default to the category index 0..M-1. The threshold
// slice is copied.
func NewGPCM2(discrimination, difficulty float64, thresholds []float64, d float64) *GPCM2 {
	m := &GPCM2{
		discrimination:         discrimination,
		proposalDiscrimination: discrimination,
		difficulty:             difficulty,
		proposalDifficulty:     difficulty,
		threshold:              append([]float64(nil), thresholds...),
		proposalThreshold:      append([]float64(nil), thresholds...),
		thresholdStdError:      make([]float64, len(thresholds)),
		d:                      d,
	}
	m.ncatM1 = len(thresholds)
	m.ncat = m.ncatM1 + 1
	m.minCategory = 0
	m.maxCategory = m.ncat - 1

	m.scoreWeight = make([]float64, m.ncat)
	for k := range m.scoreWeight {
		m.scoreWeight[k] = float64(k)
	}
	return m
}

// numer evaluates exp(Zk) for a category, where Zk starts from the base
// term D*a*(theta-b) and accumulates one additional term
// D*a*(theta-b+threshold[v-1]) per step up to the category. The base
// term is present for every category, including category 0; it is
// common to all numerators and cancels in the probability ratio.
func (m *GPCM2) numer(theta float64, category int) float64 {
	zk := m.d * m.discrimination * (theta - m.difficulty)
	for k := 0; k < category; k++ {
		zk += m.d * m.discrimination * (theta - m.difficulty + m.threshold[k])
	}
	return math.Exp(zk)
}

// denom is the sum of the numerators over all categories.
func (m *GPCM2) denom(theta float64) float64 {
	var denom float64
	for k := 0; k < m.ncat; k++ {
		denom += m.numer(theta, k)
	}
	return denom
}

// Probability returns P(response = category | theta). A category outside
// [0, M-1] yields 0 rather than an error so that callers can sweep
// category ranges without bounds bookkeeping.
func (m *GPCM2) Probability(theta float64, category int) float64 {
	if category > m.maxCategory || category < m.minCategory {
		return 0
	}
	return m.numer(theta, category) / m.denom(theta)
}

// DerivTheta returns the first derivative of the expected score with
// respect to theta. The derivative of the log-odds for category k is
// D*a*(k+1), so the one-based category weight here is part of the
// formula itself, independent of the configurable score weights.
func (m *GPCM2) DerivTheta(theta float64) float64 {
	d1 := m.denom(theta)
	d2 := d1 * d1
	x1 := m.derivSum(theta)

	var deriv float64
	for k := 0; k < m.ncat; k++ {
		n1 := m.numer(theta, k)
		p1 := (m.d * n1 * (1.0 + float64(k)) * m.discrimination) / d1
		p2 := (n1 * x1) / d2
		deriv += m.scoreWeight[k] * (p1 - p2)
	}
	return deriv
}

func (m *GPCM2) derivSum(theta float64) float64 {
	var sum float64
	for k := 0; k < m.ncat; k++ {
		sum += m.d * m.numer(theta, k) * (1.0 + float64(k)) * m.discrimination
	}
	return sum
}

// ExpectedValue returns the score-weighted expected response at theta.
func (m *GPCM2) ExpectedValue(theta float64) float64 {
	var ev float64
	for k := 0; k < m.ncat; k++ {
		ev += m.scoreWeight[k] * m.Probability(theta, k)
	}
	return ev
}

// ItemInformationAt returns the Fisher information at theta: the
// variance of the weighted score under the category distribution,
// scaled by D^2 * a^2. It is nonnegative for every theta.
func (m *GPCM2) ItemInformationAt(theta float64) float64 {
	a2 := m.discrimination * m.discrimination
	var sum1, sum2 float64
	for k := 0; k < m.ncat; k++ {
		p := m.Probability(theta, k)
		w := m.scoreWeight[k]
		sum1 += w * w * p
		sum2 += w * p
	}
	return m.d * m.d * a2 * (sum1 - sum2*sum2)
}

// IncrementMeanSigma pushes each step value difficulty-threshold[i] into
// externally owned mean and standard deviation accumulators. Used when
// aggregating item statistics across a bank; the model keeps no
// aggregate state of its own.
func (m *GPCM2) IncrementMeanSigma(mean *stats.Mean, sd *stats.StandardDeviation) {
	for i := 0; i < m.ncatM1; i++ {
		mean.Increment(m.difficulty - m.threshold[i])
		sd.Increment(m.difficulty - m.threshold[i])
	}
}

// IncrementMeanMean pushes the discrimination into one accumulator and
// each step value into the other.
func (m *GPCM2) IncrementMeanMean(meanDiscrimination, meanDifficulty *stats.Mean) {
	meanDiscrimination.Increment(m.discrimination)
	for i := 0; i < m.ncatM1; i++ {
		meanDifficulty.Increment(m.difficulty - m.threshold[i])
	}
}

// Scale permanently rescales the working parameters and their standard
// errors onto the metric theta' = theta*slope + intercept. Probabilities
// are invariant: post-scale values at theta' equal pre-scale values at
// theta. Intended to be called once per linking pass.
func (m *GPCM2) Scale(intercept, slope float64) {
	m.discrimination /= slope
	m.discriminationStdError *= slope
	m.difficulty = m.difficulty*slope + intercept
	m.difficultyStdError *= slope
	for i := 0; i < m.ncatM1; i++ {
		m.threshold[i] *= slope
		m.thresholdStdError[i] *= slope
	}
}

// NumberOfParameters reports the free parameter count: a, b, and M-1
// thresholds.
func (m *GPCM2) NumberOfParameters() int {
	return m.ncatM1 + 2
}

// NumberOfCategories reports M.
func (m *GPCM2) NumberOfCategories() int {
	return m.ncat
}

// MinCategory returns the smallest valid category index.
func (m *GPCM2) MinCategory() int {
	return m.minCategory
}

// MaxCategory returns the largest valid category index.
func (m *GPCM2) MaxCategory() int {
	return m.maxCategory
}

// ScalingConstant returns D.
func (m *GPCM2) ScalingConstant() float64 {
	return m.d
}

// ── Linking transforms ──────────────────────────────────
//
// The tStar/tSharp pair are the backward (new form to old scale) and
// forward (old form to new scale) transformations of Kim and Kolen.
// Both recompute the category probability from linearly transformed
// parameters without mutating the model.

// TStarProbability returns the response probability after the backward
// transformation: discrimination/slope, difficulty*slope+intercept,
// thresholds*slope.
func (m *GPCM2) TStarProbability(theta float64, category int, intercept, slope float64) float64 {
	if category > m.maxCategory || category < m.minCategory {
		return 0
	}

	a := m.discrimination / slope
	var numer, denom float64
	for k := 0; k < m.ncat; k++ {
		zk := 0.0
		for v := 1; v < k+1; v++ {
			b := m.difficulty*slope + intercept
			t := m.threshold[v-1] * slope
			zk += m.d * a * (theta - (b - t))
		}
		expZk := math.Exp(zk)
		if k == category {
			numer = expZk
		}
		denom += expZk
	}
	return numer / denom
}

// TStarExpectedValue returns the score-weighted expected response under
// the backward transformation. The sum runs over categories 1..M-1;
// with default score weights category 0 contributes nothing anyway.
func (m *GPCM2) TStarExpectedValue(theta, intercept, slope float64) float64 {
	var ev float64
	for k := 1; k < m.ncat; k++ {
		ev += m.scoreWeight[k] * m.TStarProbability(theta, k, intercept, slope)
	}
	return ev
}

// TSharpProbability returns the response probability after the forward
// transformation: discrimination*slope, (difficulty-intercept)/slope,
// thresholds/slope.
func (m *GPCM2) TSharpProbability(theta float64, category int, intercept, slope float64) float64 {
	if category > m.maxCategory || category < m.minCategory {
		return 0
	}

	a := m.discrimination * slope
	var numer, denom float64
	for k := 0; k < m.ncat; k++ {
		zk := 0.0
		for v := 1; v < k+1; v++ {
			b := (m.difficulty - intercept) / slope
			t := m.threshold[v-1] / slope
			zk += m.d * a * (theta - (b - t))
		}
		expZk := math.Exp(zk)
		if k == category {
			numer = expZk
		}
		denom += expZk
	}
	return numer / denom
}

// TSharpExpectedValue returns the score-weighted expected response under
// the forward transformation, summed over categories 1..M-1.
func (m *GPCM2) TSharpExpectedValue(theta, intercept, slope float64) float64 {
	var ev float64
	for k := 1; k < m.ncat; k++ {
		ev += m.scoreWeight[k] * m.TSharpProbability(theta, k, intercept, slope)
	}
	return ev
}

// String lists the working parameters as [a, b, step_1, ..., step_{M-1}].
func (m *GPCM2) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%g, %g", m.discrimination, m.difficulty)
	for _, s := range m.StepParameters() {
		fmt.Fprintf(&sb, ", %g", s)
	}
	sb.WriteString("]")
	return sb.String()
}

// ── Parameter accessors and proposal protocol ───────────
//
// Setters that take vectors copy their argument; the vectors must have
// length M-1. Length consistency after construction is a caller
// obligation, not checked at runtime. Proposal setters only stage
// values: nothing becomes authoritative until AcceptAllProposalValues.

func (m *GPCM2) Difficulty() float64 {
	return m.difficulty
}

func (m *GPCM2) SetDifficulty(difficulty float64) {
	m.difficulty = difficulty
}

func (m *GPCM2) ProposalDifficulty() float64 {
	return m.proposalDifficulty
}

func (m *GPCM2) SetProposalDifficulty(difficulty float64) {
	m.proposalDifficulty = difficulty
}

func (m *GPCM2) DifficultyStdError() float64 {
	return m.difficultyStdError
}

func (m *GPCM2) SetDifficultyStdError(stdError float64) {
	m.difficultyStdError = stdError
}

func (m *GPCM2) Discrimination() float64 {
	return m.discrimination
}

func (m *GPCM2) SetDiscrimination(discrimination float64) {
	m.discrimination = discrimination
}

func (m *GPCM2) ProposalDiscrimination() float64 {
	return m.proposalDiscrimination
}

func (m *GPCM2) SetProposalDiscrimination(discrimination float64) {
	m.proposalDiscrimination = discrimination
}

func (m *GPCM2) DiscriminationStdError() float64 {
	return m.discriminationStdError
}

func (m *GPCM2) SetDiscriminationStdError(stdError float64) {
	m.discriminationStdError = stdError
}

// Guessing returns 0: this parameterization has no guessing parameter.
func (m *GPCM2) Guessing() float64 {
	return 0
}

func (m *GPCM2) SetGuessing(float64) error {
	return ErrUnsupportedOperation
}

func (m *GPCM2) SetProposalGuessing(float64) error {
	return ErrUnsupportedOperation
}

func (m *GPCM2) GuessingStdError() (float64, error) {
	return 0, ErrUnsupportedOperation
}

func (m *GPCM2) SetGuessingStdError(float64) error {
	return ErrUnsupportedOperation
}

func (m *GPCM2) ThresholdParameters() []float64 {
	return m.threshold
}

func (m *GPCM2) SetThresholdParameters(thresholds []float64) {
	m.threshold = append([]float64(nil), thresholds...)
}

func (m *GPCM2) SetProposalThresholds(thresholds []float64) {
	m.proposalThreshold = append([]float64(nil), thresholds...)
}

func (m *GPCM2) ThresholdStdError() []float64 {
	return m.thresholdStdError
}

func (m *GPCM2) SetThresholdStdError(stdError []float64) {
	m.thresholdStdError = append([]float64(nil), stdError...)
}

// StepParameters returns the Muraki step decomposition b - t_v.
func (m *GPCM2) StepParameters() []float64 {
	t := make([]float64, m.ncatM1)
	for k := 0; k < m.ncatM1; k++ {
		t[k] = m.difficulty - m.threshold[k]
	}
	return t
}

// Step parameters are derived in this parameterization, not free, so
// the step setters and step standard errors are unsupported.

func (m *GPCM2) SetStepParameters([]float64) error {
	return ErrUnsupportedOperation
}

func (m *GPCM2) StepStdError() ([]float64, error) {
	return nil, ErrUnsupportedOperation
}

func (m *GPCM2) SetStepStdError([]float64) error {
	return ErrUnsupportedOperation
}

// ScoreWeights returns the per-category weights used by ExpectedValue
// and ItemInformationAt.
func (m *GPCM2) ScoreWeights() []float64 {
	return m.scoreWeight
}

// SetScoreWeights overrides the default 0..M-1 weights. The slice must
// have length M.
func (m *GPCM2) SetScoreWeights(weights []float64) error {
	if len(weights) != m.ncat {
		return fmt.Errorf("%w: got %d weights for %d categories", ErrDimensionMismatch, len(weights), m.ncat)
	}
	m.scoreWeight = append([]float64(nil), weights...)
	return nil
}

// IsFixed reports whether the item is excluded from re-estimation.
func (m *GPCM2) IsFixed() bool {
	return m.fixed
}

// SetFixed marks the item as fixed; AcceptAllProposalValues becomes a
// no-op while set.
func (m *GPCM2) SetFixed(fixed bool) {
	m.fixed = fixed
}

// AcceptAllProposalValues copies the staged proposal parameters over the
// working parameters unless the item is fixed. Standard errors are
// untouched; the estimator sets them separately.
func (m *GPCM2) AcceptAllProposalValues() {
	if m.fixed {
		return
	}
	m.difficulty = m.proposalDifficulty
	m.discrimination = m.proposalDiscrimination
	m.threshold = append([]float64(nil), m.proposalThreshold...)
}
