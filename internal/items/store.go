package items

import (
	"database/sql"
	"fmt"

	"github.com/itembank/backend/internal/models"
	"github.com/lib/pq"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const itemColumns = `id, name, form, model, discrimination, discrimination_se,
	difficulty, difficulty_se, thresholds, threshold_ses,
	scaling_constant, score_weights, is_fixed, created_at, updated_at`

func scanItem(row interface{ Scan(...interface{}) error }) (*models.Item, error) {
	var item models.Item
	var thresholds, thresholdSEs, scoreWeights pq.Float64Array
	err := row.Scan(&item.ID, &item.Name, &item.Form, &item.Model,
		&item.Discrimination, &item.DiscriminationStdError,
		&item.Difficulty, &item.DifficultyStdError,
		&thresholds, &thresholdSEs,
		&item.ScalingConstant, &scoreWeights, &item.IsFixed,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Thresholds = thresholds
	item.ThresholdStdErrors = thresholdSEs
	item.ScoreWeights = scoreWeights
	return &item, nil
}

// ── Item CRUD ───────────────────────────────────────────

func (s *Store) CreateItem(req models.CreateItemRequest) (*models.Item, error) {
	item, err := scanItem(s.db.QueryRow(
		fmt.Sprintf(`INSERT INTO items
			(name, form, model, discrimination, difficulty, thresholds, threshold_ses,
			 scaling_constant, score_weights)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING %s`, itemColumns),
		req.Name, req.Form, models.ModelGPCM2,
		req.Discrimination, req.Difficulty,
		pq.Float64Array(req.Thresholds),
		pq.Float64Array(make([]float64, len(req.Thresholds))),
		req.ScalingConstant,
		nullableArray(req.ScoreWeights),
	))
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

func (s *Store) GetItem(id int64) (*models.Item, error) {
	item, err := scanItem(s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM items WHERE id = $1`, itemColumns), id,
	))
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (s *Store) ListItems(form *string, limit, offset int) ([]models.Item, error) {
	var rows *sql.Rows
	var err error

	if form != nil {
		rows, err = s.db.Query(
			fmt.Sprintf(`SELECT %s FROM items WHERE form = $1
			 ORDER BY form, name LIMIT $2 OFFSET $3`, itemColumns),
			*form, limit, offset,
		)
	} else {
		rows, err = s.db.Query(
			fmt.Sprintf(`SELECT %s FROM items
			 ORDER BY form, name LIMIT $1 OFFSET $2`, itemColumns),
			limit, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *Store) ListForm(form string) ([]models.Item, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM items WHERE form = $1 ORDER BY name`, itemColumns),
		form,
	)
	if err != nil {
		return nil, fmt.Errorf("list form: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ── Parameter updates ───────────────────────────────────

// SaveWorkingParameters overwrites the working parameter values and
// standard errors. Used after direct updates, proposal acceptance, and
// form rescaling.
func (s *Store) SaveWorkingParameters(id int64, discrimination, discriminationSE, difficulty, difficultySE float64, thresholds, thresholdSEs []float64) error {
	_, err := s.db.Exec(
		`UPDATE items
		 SET discrimination = $1, discrimination_se = $2,
		     difficulty = $3, difficulty_se = $4,
		     thresholds = $5, threshold_ses = $6,
		     updated_at = NOW()
		 WHERE id = $7`,
		discrimination, discriminationSE, difficulty, difficultySE,
		pq.Float64Array(thresholds), pq.Float64Array(thresholdSEs), id,
	)
	if err != nil {
		return fmt.Errorf("save parameters: %w", err)
	}
	return nil
}

func (s *Store) SetFixed(id int64, fixed bool) error {
	res, err := s.db.Exec(
		`UPDATE items SET is_fixed = $1, updated_at = NOW() WHERE id = $2`,
		fixed, id,
	)
	if err != nil {
		return fmt.Errorf("set fixed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ── Proposal staging ────────────────────────────────────

func (s *Store) StageProposal(id int64, req models.ProposalRequest) error {
	res, err := s.db.Exec(
		`UPDATE items
		 SET proposal_discrimination = $1, proposal_difficulty = $2,
		     proposal_thresholds = $3, updated_at = NOW()
		 WHERE id = $4`,
		req.Discrimination, req.Difficulty, pq.Float64Array(req.Thresholds), id,
	)
	if err != nil {
		return fmt.Errorf("stage proposal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetProposal returns the staged proposal for an item, or nil when
// nothing is staged.
func (s *Store) GetProposal(id int64) (*models.ProposalRequest, error) {
	var a, b sql.NullFloat64
	var thresholds pq.Float64Array
	err := s.db.QueryRow(
		`SELECT proposal_discrimination, proposal_difficulty, proposal_thresholds
		 FROM items WHERE id = $1`, id,
	).Scan(&a, &b, &thresholds)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if !a.Valid || !b.Valid || thresholds == nil {
		return nil, nil
	}
	return &models.ProposalRequest{
		Discrimination: a.Float64,
		Difficulty:     b.Float64,
		Thresholds:     thresholds,
	}, nil
}

func (s *Store) ClearProposal(id int64) error {
	_, err := s.db.Exec(
		`UPDATE items
		 SET proposal_discrimination = NULL, proposal_difficulty = NULL,
		     proposal_thresholds = NULL, updated_at = NOW()
		 WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("clear proposal: %w", err)
	}
	return nil
}

// nullableArray maps an empty slice to SQL NULL so optional vector
// columns stay NULL instead of becoming '{}'.
func nullableArray(v []float64) interface{} {
	if len(v) == 0 {
		return nil
	}
	return pq.Float64Array(v)
}
