package items

import (
	"errors"
	"fmt"
	"log"

	"github.com/itembank/backend/internal/irt"
	"github.com/itembank/backend/internal/models"
)

// ErrNoProposal is returned when acceptance is requested for an item
// with no staged proposal values.
var ErrNoProposal = errors.New("items: no proposal staged")

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// materialize builds a response model from a stored item row. Each
// request gets a fresh instance, so concurrent evaluations never share
// mutable model state.
func (s *Service) materialize(item *models.Item) (*irt.GPCM2, error) {
	m := irt.NewGPCM2(item.Discrimination, item.Difficulty, item.Thresholds, item.ScalingConstant)
	m.SetDiscriminationStdError(item.DiscriminationStdError)
	m.SetDifficultyStdError(item.DifficultyStdError)
	m.SetThresholdStdError(item.ThresholdStdErrors)
	m.SetFixed(item.IsFixed)
	if len(item.ScoreWeights) > 0 {
		if err := m.SetScoreWeights(item.ScoreWeights); err != nil {
			return nil, fmt.Errorf("item %d: %w", item.ID, err)
		}
	}
	return m, nil
}

// ── Evaluation ──────────────────────────────────────────

func (s *Service) Probability(id int64, theta float64, category int) (*models.ProbabilityResponse, error) {
	item, err := s.store.GetItem(id)
	if err != nil {
		return nil, err
	}
	m, err := s.materialize(item)
	if err != nil {
		return nil, err
	}
	return &models.ProbabilityResponse{
		ItemID:      id,
		Theta:       theta,
		Category:    category,
		Probability: m.Probability(theta, category),
	}, nil
}

func (s *Service) Evaluate(id int64, theta float64) (*models.ExpectedValueResponse, error) {
	item, err := s.store.GetItem(id)
	if err != nil {
		return nil, err
	}
	m, err := s.materialize(item)
	if err != nil {
		return nil, err
	}
	return &models.ExpectedValueResponse{
		ItemID:        id,
		Theta:         theta,
		ExpectedValue: m.ExpectedValue(theta),
		DerivTheta:    m.DerivTheta(theta),
		Information:   m.ItemInformationAt(theta),
	}, nil
}

// ICC evaluates the category characteristic curves on an even theta
// grid: one probability per category at each point.
func (s *Service) ICC(id int64, from, to float64, points int) (*models.CurveResponse, error) {
	item, err := s.store.GetItem(id)
	if err != nil {
		return nil, err
	}
	m, err := s.materialize(item)
	if err != nil {
		return nil, err
	}

	resp := &models.CurveResponse{ItemID: id, Kind: "icc"}
	for _, theta := range thetaGrid(from, to, points) {
		values := make([]float64, m.NumberOfCategories())
		for k := range values {
			values[k] = m.Probability(theta, k)
		}
		resp.Points = append(resp.Points, models.EvaluationPoint{Theta: theta, Values: values})
	}
	return resp, nil
}

func (s *Service) InformationCurve(id int64, from, to float64, points int) (*models.CurveResponse, error) {
	item, err := s.store.GetItem(id)
	if err != nil {
		return nil, err
	}
	m, err := s.materialize(item)
	if err != nil {
		return nil, err
	}

	resp := &models.CurveResponse{ItemID: id, Kind: "information"}
	for _, theta := range thetaGrid(from, to, points) {
		resp.Points = append(resp.Points, models.EvaluationPoint{
			Theta: theta,
			Value: m.ItemInformationAt(theta),
		})
	}
	return resp, nil
}

// TCC evaluates the form's test characteristic curve: the sum of item
// expected scores at each theta.
func (s *Service) TCC(form string, from, to float64, points int) (*models.CurveResponse, error) {
	stored, err := s.store.ListForm(form)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("form %q has no items", form)
	}

	ms := make([]*irt.GPCM2, 0, len(stored))
	for i := range stored {
		m, err := s.materialize(&stored[i])
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}

	resp := &models.CurveResponse{Form: form, Kind: "tcc"}
	for _, theta := range thetaGrid(from, to, points) {
		resp.Points = append(resp.Points, models.EvaluationPoint{
			Theta: theta,
			Value: formExpectedScore(ms, theta),
		})
	}
	return resp, nil
}

func formExpectedScore(ms []*irt.GPCM2, theta float64) float64 {
	var sum float64
	for _, m := range ms {
		sum += m.ExpectedValue(theta)
	}
	return sum
}

// thetaGrid returns points evenly spaced values over [from, to],
// inclusive of both endpoints. points must be at least 2.
func thetaGrid(from, to float64, points int) []float64 {
	grid := make([]float64, points)
	step := (to - from) / float64(points-1)
	for i := range grid {
		grid[i] = from + float64(i)*step
	}
	return grid
}

// ── Parameter lifecycle ─────────────────────────────────

func (s *Service) CreateItem(req models.CreateItemRequest) (*models.Item, error) {
	return s.store.CreateItem(req)
}

func (s *Service) GetItem(id int64) (*models.Item, error) {
	return s.store.GetItem(id)
}

func (s *Service) ListItems(form *string, limit, offset int) ([]models.Item, error) {
	return s.store.ListItems(form, limit, offset)
}

func (s *Service) UpdateParameters(id int64, req models.UpdateParametersRequest) (*models.Item, error) {
	err := s.store.SaveWorkingParameters(id,
		req.Discrimination, req.DiscriminationStdError,
		req.Difficulty, req.DifficultyStdError,
		req.Thresholds, req.ThresholdStdErrors)
	if err != nil {
		return nil, err
	}
	return s.store.GetItem(id)
}

func (s *Service) StageProposal(id int64, req models.ProposalRequest) error {
	return s.store.StageProposal(id, req)
}

func (s *Service) SetFixed(id int64, fixed bool) error {
	return s.store.SetFixed(id, fixed)
}

// AcceptProposals commits the staged proposal of an item through the
// model's accept protocol. A fixed item leaves its working values and
// staged proposal untouched.
func (s *Service) AcceptProposals(id int64) (*models.Item, error) {
	item, err := s.store.GetItem(id)
	if err != nil {
		return nil, err
	}
	proposal, err := s.store.GetProposal(id)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, ErrNoProposal
	}

	m, err := s.materialize(item)
	if err != nil {
		return nil, err
	}
	m.SetProposalDiscrimination(proposal.Discrimination)
	m.SetProposalDifficulty(proposal.Difficulty)
	m.SetProposalThresholds(proposal.Thresholds)
	m.AcceptAllProposalValues()

	if m.IsFixed() {
		return item, nil
	}

	err = s.store.SaveWorkingParameters(id,
		m.Discrimination(), m.DiscriminationStdError(),
		m.Difficulty(), m.DifficultyStdError(),
		m.ThresholdParameters(), m.ThresholdStdError())
	if err != nil {
		return nil, err
	}
	if err := s.store.ClearProposal(id); err != nil {
		return nil, err
	}
	return s.store.GetItem(id)
}

// ScaleForm applies an externally computed linear transformation to
// every item on a form and persists the rescaled parameters and
// standard errors.
func (s *Service) ScaleForm(form string, intercept, slope float64) (int, error) {
	stored, err := s.store.ListForm(form)
	if err != nil {
		return 0, err
	}
	if len(stored) == 0 {
		return 0, fmt.Errorf("form %q has no items", form)
	}

	scaled := 0
	for i := range stored {
		m, err := s.materialize(&stored[i])
		if err != nil {
			return scaled, err
		}
		m.Scale(intercept, slope)
		err = s.store.SaveWorkingParameters(stored[i].ID,
			m.Discrimination(), m.DiscriminationStdError(),
			m.Difficulty(), m.DifficultyStdError(),
			m.ThresholdParameters(), m.ThresholdStdError())
		if err != nil {
			return scaled, err
		}
		scaled++
	}

	log.Printf("ScaleForm: form=%s intercept=%g slope=%g items=%d", form, intercept, slope, scaled)
	return scaled, nil
}
