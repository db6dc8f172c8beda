package irt

import (
	"errors"
	"math"
	"testing"

	"github.com/itembank/backend/internal/stats"
)

// testItem is the reference 3-category item used throughout: a=1.2,
// b=0, thresholds [-0.5, 0.5], D=1.7.
func testItem() *GPCM2 {
	return NewGPCM2(1.2, 0.0, []float64{-0.5, 0.5}, 1.7)
}

func TestProbabilitySumsToOne(t *testing.T) {
	m := testItem()
	for _, theta := range []float64{-3, -1.5, -0.25, 0, 0.7, 2, 4} {
		var sum float64
		for k := m.MinCategory(); k <= m.MaxCategory(); k++ {
			sum += m.Probability(theta, k)
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("probabilities at theta=%g sum to %.12f, want 1", theta, sum)
		}
	}
}

func TestProbabilityReferenceValues(t *testing.T) {
	// Hand-computed at theta=0: Z0=0, Z1=-1.02, Z2=0, so the two
	// extreme categories are equally likely and the middle is rarest.
	m := testItem()

	p0 := m.Probability(0, 0)
	p1 := m.Probability(0, 1)
	p2 := m.Probability(0, 2)

	if math.Abs(p0-0.423622) > 1e-4 {
		t.Errorf("P(0) = %f, want ~0.4236", p0)
	}
	if math.Abs(p1-0.152756) > 1e-4 {
		t.Errorf("P(1) = %f, want ~0.1528", p1)
	}
	if math.Abs(p0-p2) > 1e-9 {
		t.Errorf("P(0)=%f and P(2)=%f should be symmetric", p0, p2)
	}

	// Reversed thresholds make the middle category dominant.
	m2 := NewGPCM2(1.2, 0.0, []float64{0.5, -0.5}, 1.7)
	if got := m2.Probability(0, 1); got <= m2.Probability(0, 0) || got <= m2.Probability(0, 2) {
		t.Errorf("middle category should dominate: P = %f, %f, %f",
			m2.Probability(0, 0), got, m2.Probability(0, 2))
	}
}

func TestProbabilityOutOfRangeCategory(t *testing.T) {
	m := testItem()
	tests := []int{-1, -100, 3, 7}
	for _, k := range tests {
		if got := m.Probability(0, k); got != 0 {
			t.Errorf("Probability(0, %d) = %f, want 0", k, got)
		}
		if got := m.TStarProbability(0, k, 0.3, 1.1); got != 0 {
			t.Errorf("TStarProbability(0, %d) = %f, want 0", k, got)
		}
		if got := m.TSharpProbability(0, k, 0.3, 1.1); got != 0 {
			t.Errorf("TSharpProbability(0, %d) = %f, want 0", k, got)
		}
	}
}

func TestExpectedValueSymmetric(t *testing.T) {
	// Symmetric thresholds at b=0 put the expected score exactly at the
	// middle of 0..2.
	m := testItem()
	if got := m.ExpectedValue(0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("ExpectedValue(0) = %f, want 1", got)
	}

	// Expected value is increasing in theta.
	if !(m.ExpectedValue(-1) < m.ExpectedValue(0) && m.ExpectedValue(0) < m.ExpectedValue(1)) {
		t.Errorf("expected value not increasing: %f, %f, %f",
			m.ExpectedValue(-1), m.ExpectedValue(0), m.ExpectedValue(1))
	}
}

func TestDerivThetaMatchesNumericGradient(t *testing.T) {
	m := testItem()
	const h = 1e-5
	for _, theta := range []float64{-2, -0.5, 0, 0.3, 1.8} {
		want := (m.ExpectedValue(theta+h) - m.ExpectedValue(theta-h)) / (2 * h)
		got := m.DerivTheta(theta)
		if math.Abs(got-want) > 1e-5 {
			t.Errorf("DerivTheta(%g) = %f, numeric gradient %f", theta, got, want)
		}
	}
}

func TestItemInformationNonNegative(t *testing.T) {
	m := testItem()
	for theta := -4.0; theta <= 4.0; theta += 0.25 {
		if info := m.ItemInformationAt(theta); info < 0 {
			t.Errorf("ItemInformationAt(%g) = %f, want >= 0", theta, info)
		}
	}

	// Information peaks near the item location for a centered item.
	if m.ItemInformationAt(0) <= m.ItemInformationAt(3.5) {
		t.Errorf("information at 0 (%f) should exceed information at 3.5 (%f)",
			m.ItemInformationAt(0), m.ItemInformationAt(3.5))
	}
}

func TestScaleInvariance(t *testing.T) {
	const intercept, slope = 0.5, 1.2

	m := testItem()
	scaled := testItem()
	scaled.Scale(intercept, slope)

	for _, theta := range []float64{-2, -0.7, 0, 0.4, 1.5} {
		for k := 0; k < 3; k++ {
			want := m.Probability(theta, k)
			got := scaled.Probability(theta*slope+intercept, k)
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("scaled P(theta'=%g, %d) = %.10f, want %.10f",
					theta*slope+intercept, k, got, want)
			}
		}
	}
}

func TestScaleTransformsStdErrors(t *testing.T) {
	m := testItem()
	m.SetDiscriminationStdError(0.10)
	m.SetDifficultyStdError(0.20)
	m.SetThresholdStdError([]float64{0.30, 0.40})

	m.Scale(0.5, 2.0)

	if math.Abs(m.Discrimination()-0.6) > 1e-12 {
		t.Errorf("discrimination = %f, want 0.6", m.Discrimination())
	}
	if math.Abs(m.Difficulty()-0.5) > 1e-12 {
		t.Errorf("difficulty = %f, want 0.5", m.Difficulty())
	}
	if math.Abs(m.DiscriminationStdError()-0.20) > 1e-12 {
		t.Errorf("discrimination SE = %f, want 0.20", m.DiscriminationStdError())
	}
	if math.Abs(m.DifficultyStdError()-0.40) > 1e-12 {
		t.Errorf("difficulty SE = %f, want 0.40", m.DifficultyStdError())
	}
	wantT := []float64{-1.0, 1.0}
	wantSE := []float64{0.60, 0.80}
	for i := range wantT {
		if math.Abs(m.ThresholdParameters()[i]-wantT[i]) > 1e-12 {
			t.Errorf("threshold[%d] = %f, want %f", i, m.ThresholdParameters()[i], wantT[i])
		}
		if math.Abs(m.ThresholdStdError()[i]-wantSE[i]) > 1e-12 {
			t.Errorf("threshold SE[%d] = %f, want %f", i, m.ThresholdStdError()[i], wantSE[i])
		}
	}
}

func TestProposalAcceptCycle(t *testing.T) {
	m := testItem()
	m.SetProposalDiscrimination(1.5)
	m.SetProposalDifficulty(-0.3)
	m.SetProposalThresholds([]float64{-0.6, 0.6})

	// Staging alone changes nothing.
	if m.Discrimination() != 1.2 || m.Difficulty() != 0.0 {
		t.Fatalf("staging mutated working values: a=%f b=%f", m.Discrimination(), m.Difficulty())
	}

	m.AcceptAllProposalValues()

	if m.Discrimination() != 1.5 {
		t.Errorf("discrimination = %f, want 1.5", m.Discrimination())
	}
	if m.Difficulty() != -0.3 {
		t.Errorf("difficulty = %f, want -0.3", m.Difficulty())
	}
	got := m.ThresholdParameters()
	if got[0] != -0.6 || got[1] != 0.6 {
		t.Errorf("thresholds = %v, want [-0.6 0.6]", got)
	}
}

func TestAcceptIsNoOpWhenFixed(t *testing.T) {
	m := testItem()
	m.SetFixed(true)
	m.SetProposalDiscrimination(9.9)
	m.SetProposalDifficulty(9.9)
	m.SetProposalThresholds([]float64{9.9, 9.9})

	m.AcceptAllProposalValues()

	if m.Discrimination() != 1.2 || m.Difficulty() != 0.0 {
		t.Errorf("fixed item mutated: a=%f b=%f", m.Discrimination(), m.Difficulty())
	}
	if got := m.ThresholdParameters(); got[0] != -0.5 || got[1] != 0.5 {
		t.Errorf("fixed item thresholds mutated: %v", got)
	}
}

func TestSetProposalThresholdsCopiesArgument(t *testing.T) {
	m := testItem()
	staged := []float64{-0.8, 0.8}
	m.SetProposalThresholds(staged)
	staged[0] = 99 // caller mutation must not leak into staged state

	m.AcceptAllProposalValues()
	if got := m.ThresholdParameters(); got[0] != -0.8 || got[1] != 0.8 {
		t.Errorf("thresholds = %v, want [-0.8 0.8]", got)
	}
}

func TestAcceptWithoutStagingKeepsWorkingValues(t *testing.T) {
	m := testItem()
	m.AcceptAllProposalValues()
	if m.Discrimination() != 1.2 || m.Difficulty() != 0.0 {
		t.Errorf("accept without staging changed parameters: a=%f b=%f",
			m.Discrimination(), m.Difficulty())
	}
}

func TestUnsupportedOperations(t *testing.T) {
	m := testItem()

	if got := m.Guessing(); got != 0 {
		t.Errorf("Guessing() = %f, want 0", got)
	}
	if err := m.SetGuessing(0.2); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("SetGuessing error = %v, want ErrUnsupportedOperation", err)
	}
	if err := m.SetProposalGuessing(0.2); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("SetProposalGuessing error = %v, want ErrUnsupportedOperation", err)
	}
	if _, err := m.GuessingStdError(); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("GuessingStdError error = %v, want ErrUnsupportedOperation", err)
	}
	if err := m.SetGuessingStdError(0.1); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("SetGuessingStdError error = %v, want ErrUnsupportedOperation", err)
	}
	if err := m.SetStepParameters([]float64{0.1}); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("SetStepParameters error = %v, want ErrUnsupportedOperation", err)
	}
	if _, err := m.StepStdError(); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("StepStdError error = %v, want ErrUnsupportedOperation", err)
	}
	if err := m.SetStepStdError([]float64{0.1}); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("SetStepStdError error = %v, want ErrUnsupportedOperation", err)
	}
}

func TestStepParametersAndString(t *testing.T) {
	m := testItem()

	steps := m.StepParameters()
	if steps[0] != 0.5 || steps[1] != -0.5 {
		t.Errorf("StepParameters() = %v, want [0.5 -0.5]", steps)
	}

	if got, want := m.String(), "[1.2, 0, 0.5, -0.5]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	if got := m.NumberOfParameters(); got != 4 {
		t.Errorf("NumberOfParameters() = %d, want 4", got)
	}
	if got := m.NumberOfCategories(); got != 3 {
		t.Errorf("NumberOfCategories() = %d, want 3", got)
	}
}

func TestSetScoreWeights(t *testing.T) {
	m := testItem()

	if err := m.SetScoreWeights([]float64{0, 1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("short weight vector error = %v, want ErrDimensionMismatch", err)
	}

	if err := m.SetScoreWeights([]float64{0, 2, 4}); err != nil {
		t.Fatalf("SetScoreWeights: %v", err)
	}
	// Doubling every weight doubles the expected value.
	if got := m.ExpectedValue(0); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("ExpectedValue(0) with doubled weights = %f, want 2", got)
	}
}

func TestIncrementAccumulators(t *testing.T) {
	m := testItem()

	var mean stats.Mean
	var sd stats.StandardDeviation
	m.IncrementMeanSigma(&mean, &sd)

	// Step values are 0.5 and -0.5.
	if got := mean.Result(); math.Abs(got) > 1e-12 {
		t.Errorf("mean of steps = %f, want 0", got)
	}
	if got, want := sd.Result(), math.Sqrt(0.5); math.Abs(got-want) > 1e-12 {
		t.Errorf("sd of steps = %f, want %f", got, want)
	}

	var meanA, meanB stats.Mean
	m.IncrementMeanMean(&meanA, &meanB)
	if got := meanA.Result(); math.Abs(got-1.2) > 1e-12 {
		t.Errorf("mean discrimination = %f, want 1.2", got)
	}
	if got := meanB.Result(); math.Abs(got) > 1e-12 {
		t.Errorf("mean step = %f, want 0", got)
	}
}
