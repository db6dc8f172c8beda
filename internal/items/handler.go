package items

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/itembank/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Name == "" || req.Form == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "name and form are required"})
		return
	}
	if len(req.Thresholds) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "thresholds must contain at least one value"})
		return
	}
	if req.ScoreWeights != nil && len(req.ScoreWeights) != len(req.Thresholds)+1 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "score_weights must have one entry per category"})
		return
	}
	if req.Discrimination == 0 {
		req.Discrimination = 1.0
	}
	// PARSCALE convention
	if req.ScalingConstant == 0 {
		req.ScalingConstant = 1.7
	}

	item, err := h.service.CreateItem(req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create item: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var form *string
	if f := query.Get("form"); f != "" {
		form = &f
	}
	limit := intQueryParam(query, "limit", 50)
	offset := intQueryParam(query, "offset", 0)

	items, err := h.service.ListItems(form, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list items"})
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	item, err := h.service.GetItem(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Item not found"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) UpdateParameters(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req models.UpdateParametersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if len(req.Thresholds) == 0 || len(req.ThresholdStdErrors) != len(req.Thresholds) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "thresholds and threshold_std_errors must be non-empty and the same length"})
		return
	}

	item, err := h.service.UpdateParameters(id, req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to update parameters"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ── Evaluation endpoints ────────────────────────────────

func (h *Handler) GetProbability(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()

	theta, ok := floatQueryParam(query, "theta")
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "theta query parameter is required"})
		return
	}
	category, err := strconv.Atoi(query.Get("category"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "category query parameter is required"})
		return
	}

	resp, err := h.service.Probability(id, theta, category)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Item not found"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetExpectedValue(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	theta, ok := floatQueryParam(r.URL.Query(), "theta")
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "theta query parameter is required"})
		return
	}

	resp, err := h.service.Evaluate(id, theta)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Item not found"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetICC(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	from, to, points, ok := gridParams(w, r)
	if !ok {
		return
	}

	resp, err := h.service.ICC(id, from, to, points)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Item not found"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetInformation(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	from, to, points, ok := gridParams(w, r)
	if !ok {
		return
	}

	resp, err := h.service.InformationCurve(id, from, to, points)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Item not found"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetTCC(w http.ResponseWriter, r *http.Request) {
	form := mux.Vars(r)["form"]
	from, to, points, ok := gridParams(w, r)
	if !ok {
		return
	}

	resp, err := h.service.TCC(form, from, to, points)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Proposal and linking endpoints ──────────────────────

func (h *Handler) StageProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req models.ProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if len(req.Thresholds) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "thresholds must contain at least one value"})
		return
	}

	if err := h.service.StageProposal(id, req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to stage proposal"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AcceptProposals(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.service.AcceptProposals(id)
	if err != nil {
		if errors.Is(err, ErrNoProposal) {
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "No proposal staged for this item"})
			return
		}
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Item not found"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) SetFixed(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req models.SetFixedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.SetFixed(id, req.IsFixed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to update item"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ScaleForm(w http.ResponseWriter, r *http.Request) {
	form := mux.Vars(r)["form"]

	var req models.ScaleFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Slope == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "slope must be nonzero"})
		return
	}

	count, err := h.service.ScaleForm(form, req.Intercept, req.Slope)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, models.ScaleFormResponse{
		Form:        form,
		Intercept:   req.Intercept,
		Slope:       req.Slope,
		ItemsScaled: count,
	})
}

// ── Helpers ─────────────────────────────────────────────

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid item ID"})
		return 0, false
	}
	return id, true
}

// gridParams parses the shared from/to/points query parameters used by
// the curve endpoints. Defaults cover the conventional theta range.
func gridParams(w http.ResponseWriter, r *http.Request) (from, to float64, points int, ok bool) {
	query := r.URL.Query()

	from = floatQueryParamDefault(query, "from", -4)
	to = floatQueryParamDefault(query, "to", 4)
	points = intQueryParam(query, "points", 33)

	if points < 2 || to <= from {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "points must be >= 2 and to must exceed from"})
		return 0, 0, 0, false
	}
	return from, to, points, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}

func floatQueryParam(query url.Values, key string) (float64, bool) {
	v, err := strconv.ParseFloat(query.Get(key), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func floatQueryParamDefault(query url.Values, key string, defaultVal float64) float64 {
	if v, ok := floatQueryParam(query, key); ok {
		return v
	}
	return defaultVal
}
