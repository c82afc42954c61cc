package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/poolside/staking-engine/internal/metrics"
	"github.com/poolside/staking-engine/internal/model"
	"github.com/poolside/staking-engine/internal/params"
)

// --- Request/Response types ---

// StakeRequest is the JSON body for POST /stake.
type StakeRequest struct {
	Participant string          `json:"participant"`
	Amount      decimal.Decimal `json:"amount"`
}

// StakeResponse is returned from POST /stake.
type StakeResponse struct {
	Participant string          `json:"participant"`
	PositionID  int             `json:"position_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// PositionRequest is the JSON body for POST /claim and POST /unstake.
type PositionRequest struct {
	Participant string `json:"participant"`
	PositionID  int    `json:"position_id"`
}

// ClaimResponse is returned from POST /claim.
type ClaimResponse struct {
	Participant string          `json:"participant"`
	PositionID  int             `json:"position_id"`
	Reward      decimal.Decimal `json:"reward"`
}

// UnstakeResponse is returned from POST /unstake.
type UnstakeResponse struct {
	Participant string          `json:"participant"`
	PositionID  int             `json:"position_id"`
	Principal   decimal.Decimal `json:"principal"`
	Reward      decimal.Decimal `json:"reward"`
	Payout      decimal.Decimal `json:"payout"`
}

// PositionsResponse is returned from GET /positions/{participant}.
type PositionsResponse struct {
	Participant string               `json:"participant"`
	Active      []model.PositionView `json:"active"`
	Inactive    []model.PositionView `json:"inactive"`
}

// TotalsResponse is returned from GET /totals.
type TotalsResponse struct {
	TotalStaked       decimal.Decimal `json:"total_staked"`
	TotalActiveReward decimal.Decimal `json:"total_active_reward"`
	At                time.Time       `json:"at"`
}

// AdminRequest is the JSON body for admin pause/unpause/withdraw calls.
type AdminRequest struct {
	Caller string          `json:"caller"`
	Amount decimal.Decimal `json:"amount,omitempty"`
}

// ConfigRequest is the JSON body for POST /admin/config. Only the fields
// present are applied; durations are given in seconds.
type ConfigRequest struct {
	Caller            string           `json:"caller"`
	RewardNumerator   *decimal.Decimal `json:"reward_numerator,omitempty"`
	RewardDenominator *decimal.Decimal `json:"reward_denominator,omitempty"`
	RewardIntervalSec *int64           `json:"reward_interval_seconds,omitempty"`
	MinStakingSec     *int64           `json:"min_staking_period_seconds,omitempty"`
	MaxStakingSec     *int64           `json:"max_staking_period_seconds,omitempty"`
	StakeUnit         *string          `json:"stake_unit,omitempty"`
	RewardUnit        *string          `json:"reward_unit,omitempty"`
}

// ApplyConfig applies every field present in req, administrator only.
// Stops at the first invalid value.
func (s *Service) ApplyConfig(req ConfigRequest) error {
	if req.Caller != s.admin {
		return ErrUnauthorized
	}

	if req.RewardNumerator != nil {
		if err := s.params.SetRewardNumerator(*req.RewardNumerator); err != nil {
			return err
		}
	}
	if req.RewardDenominator != nil {
		if err := s.params.SetRewardDenominator(*req.RewardDenominator); err != nil {
			return err
		}
	}
	if req.RewardIntervalSec != nil {
		if err := s.params.SetRewardInterval(time.Duration(*req.RewardIntervalSec) * time.Second); err != nil {
			return err
		}
	}
	if req.MinStakingSec != nil {
		if err := s.params.SetMinStakingPeriod(time.Duration(*req.MinStakingSec) * time.Second); err != nil {
			return err
		}
	}
	if req.MaxStakingSec != nil {
		if err := s.params.SetMaxStakingPeriod(time.Duration(*req.MaxStakingSec) * time.Second); err != nil {
			return err
		}
	}
	if req.StakeUnit != nil {
		if err := s.params.SetStakeUnit(*req.StakeUnit); err != nil {
			return err
		}
	}
	if req.RewardUnit != nil {
		if err := s.params.SetRewardUnit(*req.RewardUnit); err != nil {
			return err
		}
	}
	return nil
}

// --- HTTP Handlers ---

// HandleStake handles POST /api/v1/stake.
func (s *Service) HandleStake(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Participant == "" {
		writeError(w, "participant is required", http.StatusBadRequest)
		return
	}

	id, err := s.Open(r.Context(), req.Participant, req.Amount, s.clock())
	if err != nil {
		writeOpError(w, "open", err)
		return
	}

	writeJSON(w, http.StatusCreated, StakeResponse{
		Participant: req.Participant,
		PositionID:  id,
		Amount:      req.Amount,
	})
}

// HandleClaim handles POST /api/v1/claim.
func (s *Service) HandleClaim(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Participant == "" {
		writeError(w, "participant is required", http.StatusBadRequest)
		return
	}

	amount, err := s.Claim(r.Context(), req.Participant, req.PositionID, s.clock())
	if err != nil {
		writeOpError(w, "claim", err)
		return
	}

	writeJSON(w, http.StatusOK, ClaimResponse{
		Participant: req.Participant,
		PositionID:  req.PositionID,
		Reward:      amount,
	})
}

// HandleUnstake handles POST /api/v1/unstake.
func (s *Service) HandleUnstake(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Participant == "" {
		writeError(w, "participant is required", http.StatusBadRequest)
		return
	}

	payout, finalReward, err := s.Close(r.Context(), req.Participant, req.PositionID, s.clock())
	if err != nil {
		writeOpError(w, "close", err)
		return
	}

	writeJSON(w, http.StatusOK, UnstakeResponse{
		Participant: req.Participant,
		PositionID:  req.PositionID,
		Principal:   payout.Sub(finalReward),
		Reward:      finalReward,
		Payout:      payout,
	})
}

// HandlePositions handles GET /api/v1/positions/{participant}.
func (s *Service) HandlePositions(w http.ResponseWriter, r *http.Request) {
	participant := chi.URLParam(r, "participant")

	active, inactive, err := s.ListPositions(r.Context(), participant)
	if err != nil {
		writeError(w, "failed to list positions", http.StatusInternalServerError)
		return
	}
	if active == nil {
		active = []model.PositionView{}
	}
	if inactive == nil {
		inactive = []model.PositionView{}
	}

	writeJSON(w, http.StatusOK, PositionsResponse{
		Participant: participant,
		Active:      active,
		Inactive:    inactive,
	})
}

// HandleReward handles GET /api/v1/reward/{participant}.
// Accepts ?at=RFC3339 to evaluate accrual at a specific instant.
func (s *Service) HandleReward(w http.ResponseWriter, r *http.Request) {
	participant := chi.URLParam(r, "participant")

	now, ok := atOrClock(w, r, s.clock)
	if !ok {
		return
	}

	accrued, err := s.AccruedFor(r.Context(), participant, now)
	if err != nil {
		writeError(w, "failed to compute accrued reward", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"participant": participant,
		"accrued":     accrued,
		"at":          now,
	})
}

// HandleTotals handles GET /api/v1/totals. This is the expensive reporting
// path — cost grows with every position ever opened.
func (s *Service) HandleTotals(w http.ResponseWriter, r *http.Request) {
	now, ok := atOrClock(w, r, s.clock)
	if !ok {
		return
	}

	staked, err := s.TotalStaked(r.Context())
	if err != nil {
		writeError(w, "failed to compute total staked", http.StatusInternalServerError)
		return
	}
	accrued, err := s.TotalActiveReward(r.Context(), now)
	if err != nil {
		writeError(w, "failed to compute total reward", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, TotalsResponse{
		TotalStaked:       staked,
		TotalActiveReward: accrued,
		At:                now,
	})
}

// HandleEvents handles GET /api/v1/events/{participant}.
func (s *Service) HandleEvents(w http.ResponseWriter, r *http.Request) {
	participant := chi.URLParam(r, "participant")

	events, err := s.Events(r.Context(), participant)
	if err != nil {
		writeError(w, "failed to list events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// HandlePause handles POST /api/v1/admin/pause.
func (s *Service) HandlePause(w http.ResponseWriter, r *http.Request) {
	s.handleAdminToggle(w, r, "pause", s.Pause)
}

// HandleUnpause handles POST /api/v1/admin/unpause.
func (s *Service) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	s.handleAdminToggle(w, r, "unpause", s.Unpause)
}

func (s *Service) handleAdminToggle(w http.ResponseWriter, r *http.Request, op string, toggle func(string) error) {
	var req AdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := toggle(req.Caller); err != nil {
		writeOpError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleWithdraw handles POST /api/v1/admin/withdraw.
func (s *Service) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req AdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.Withdraw(r.Context(), req.Caller, req.Amount); err != nil {
		writeOpError(w, "withdraw", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleConfig handles POST /api/v1/admin/config.
func (s *Service) HandleConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ApplyConfig(req); err != nil {
		writeOpError(w, "config", err)
		return
	}

	writeJSON(w, http.StatusOK, s.params.Snapshot())
}

// --- helpers ---

// atOrClock resolves the optional ?at=RFC3339 query parameter, defaulting
// to the service clock. Reports false after writing a 400 on parse failure.
func atOrClock(w http.ResponseWriter, r *http.Request, clock func() time.Time) (time.Time, bool) {
	at := r.URL.Query().Get("at")
	if at == "" {
		return clock(), true
	}
	now, err := time.Parse(time.RFC3339, at)
	if err != nil {
		writeError(w, "invalid at parameter, expected RFC3339", http.StatusBadRequest)
		return time.Time{}, false
	}
	return now.UTC(), true
}

// statusFor maps the ledger error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, params.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotStaked),
		errors.Is(err, ErrInvalidID):
		return http.StatusNotFound
	case errors.Is(err, ErrPaused),
		errors.Is(err, ErrInactivePosition),
		errors.Is(err, ErrClaimTooSoon),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInsufficientPoolReserve):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeOpError records the rejection and writes the mapped status.
func writeOpError(w http.ResponseWriter, op string, err error) {
	metrics.OperationErrors.WithLabelValues(op).Inc()
	writeError(w, err.Error(), statusFor(err))
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
