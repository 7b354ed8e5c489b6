package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"decisionjar/internal/http/response"
	"decisionjar/internal/jar"
	"decisionjar/internal/selection"
)

type SpinHandler struct {
	Jars *jar.Service
	Svc  *selection.Service
}

type spinReq struct {
	MaxDuration *float64 `json:"max_duration"`
	MaxCost     string   `json:"max_cost"`
	MaxActivity string   `json:"max_activity"`
	TimeOfDay   string   `json:"time_of_day"`
	Weather     string   `json:"weather"`
	LocalOnly   bool     `json:"local_only"`
	Category    string   `json:"category"`
}

type spinResp struct {
	RoundID   string  `json:"round_id"`
	Idea      ideaDTO `json:"idea"`
	CanEdit   bool    `json:"can_edit"`
	CanDelete bool    `json:"can_delete"`
}

// Spin picks a random matching idea from the caller's active jar.
// An empty body spins without filters.
func (h *SpinHandler) Spin(w http.ResponseWriter, r *http.Request) {
	uid, gid, ok := activeJar(w, r, h.Jars)
	if !ok {
		return
	}

	var req spinReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	res, err := h.Svc.Spin(r.Context(), selection.Request{
		UserID:  uid,
		GroupID: gid,
		Filters: selection.Filters{
			MaxDuration: req.MaxDuration,
			MaxCost:     req.MaxCost,
			MaxActivity: req.MaxActivity,
			TimeOfDay:   req.TimeOfDay,
			Weather:     req.Weather,
			LocalOnly:   req.LocalOnly,
			Category:    req.Category,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, selection.ErrGroupRequired):
			response.Error(w, http.StatusConflict, "no_active_jar", "join or create a jar first")
		case errors.Is(err, selection.ErrNoMatchingIdeas):
			response.Error(w, http.StatusNotFound, "no_matching_ideas", "no ideas match these filters")
		case errors.Is(err, selection.ErrSelectionConflict):
			response.Error(w, http.StatusConflict, "selection_conflict", "ideas were taken by other spins, try again")
		default:
			serverError(w, r, err)
		}
		return
	}

	response.OK(w, spinResp{
		RoundID:   res.RoundID,
		Idea:      toIdeaDTO(res.Idea, res.CanEdit),
		CanEdit:   res.CanEdit,
		CanDelete: res.CanDelete,
	})
}
