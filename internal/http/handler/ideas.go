package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"decisionjar/internal/auth"
	"decisionjar/internal/http/response"
	"decisionjar/internal/jar"
	"decisionjar/internal/rewards"
)

type IdeaHandler struct {
	Jars    *jar.Service
	Rewards *rewards.Recorder
}

type ideaDTO struct {
	ID             uint64     `json:"id"`
	JarID          uint64     `json:"jar_id"`
	CreatedBy      uint64     `json:"created_by"`
	Description    string     `json:"description"`
	Details        string     `json:"details"`
	Address        string     `json:"address,omitempty"`
	Website        string     `json:"website,omitempty"`
	GoogleRating   *float64   `json:"google_rating,omitempty"`
	Duration       float64    `json:"duration"`
	Cost           string     `json:"cost"`
	ActivityLevel  string     `json:"activity_level"`
	TimeOfDay      string     `json:"time_of_day"`
	Weather        string     `json:"weather"`
	RequiresTravel bool       `json:"requires_travel"`
	Indoor         bool       `json:"indoor"`
	Category       string     `json:"category"`
	IsPrivate      bool       `json:"is_private"`
	Tags           []string   `json:"tags"`
	SelectedAt     *time.Time `json:"selected_at"`
	Rating         *int       `json:"rating"`
	Notes          string     `json:"notes,omitempty"`
	PhotoURL       string     `json:"photo_url,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CanEdit        bool       `json:"can_edit"`
	CanDelete      bool       `json:"can_delete"`
}

func toIdeaDTO(i jar.Idea, canManage bool) ideaDTO {
	tags := []string(i.Tags)
	if tags == nil {
		tags = []string{}
	}
	return ideaDTO{
		ID:             i.ID,
		JarID:          i.GroupID,
		CreatedBy:      i.CreatedBy,
		Description:    i.Description,
		Details:        i.Details,
		Address:        i.Address,
		Website:        i.Website,
		GoogleRating:   i.GoogleRating,
		Duration:       i.Duration,
		Cost:           i.Cost,
		ActivityLevel:  i.ActivityLevel,
		TimeOfDay:      i.TimeOfDay,
		Weather:        i.Weather,
		RequiresTravel: i.RequiresTravel,
		Indoor:         i.Indoor,
		Category:       i.Category,
		IsPrivate:      i.IsPrivate,
		Tags:           tags,
		SelectedAt:     i.SelectedAt,
		Rating:         i.Rating,
		Notes:          i.Notes,
		PhotoURL:       i.PhotoURL,
		CreatedAt:      i.CreatedAt,
		CanEdit:        canManage,
		CanDelete:      canManage,
	}
}

// List returns the active jar's ideas. Optional filters: ?tag=, ?q= (case-insensitive
// description search), ?status=open|done.
func (h *IdeaHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, gid, ok := activeJar(w, r, h.Jars)
	if !ok {
		return
	}

	tag := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("tag")))
	qText := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("q")))
	status := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("status")))

	views, err := h.Jars.ListIdeas(r.Context(), uid, gid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]ideaDTO, 0, len(views))
	for _, v := range views {
		if tag != "" && !slices.Contains(v.Tags, tag) {
			continue
		}
		if qText != "" && !strings.Contains(strings.ToLower(v.Description), qText) {
			continue
		}
		if (status == "open" && v.SelectedAt != nil) || (status == "done" && v.SelectedAt == nil) {
			continue
		}
		out = append(out, toIdeaDTO(v.Idea, v.CanEdit))
	}
	response.OK(w, out)
}

type createIdeaReq struct {
	Description    string   `json:"description"`
	Details        string   `json:"details"`
	Address        string   `json:"address"`
	Website        string   `json:"website"`
	GoogleRating   *float64 `json:"google_rating"`
	Duration       float64  `json:"duration"`
	Cost           string   `json:"cost"`
	ActivityLevel  string   `json:"activity_level"`
	TimeOfDay      string   `json:"time_of_day"`
	Weather        string   `json:"weather"`
	RequiresTravel bool     `json:"requires_travel"`
	Indoor         bool     `json:"indoor"`
	Category       string   `json:"category"`
	IsPrivate      bool     `json:"is_private"`
}

func (h *IdeaHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, gid, ok := activeJar(w, r, h.Jars)
	if !ok {
		return
	}

	var req createIdeaReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	idea, err := h.Jars.CreateIdea(r.Context(), uid, gid, jar.IdeaInput{
		Description:    req.Description,
		Details:        req.Details,
		Address:        req.Address,
		Website:        req.Website,
		GoogleRating:   req.GoogleRating,
		Duration:       req.Duration,
		Cost:           req.Cost,
		ActivityLevel:  req.ActivityLevel,
		TimeOfDay:      req.TimeOfDay,
		Weather:        req.Weather,
		RequiresTravel: req.RequiresTravel,
		Indoor:         req.Indoor,
		Category:       req.Category,
		IsPrivate:      req.IsPrivate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.record(r.Context(), gid, rewards.ActionAddIdea)
	response.JSON(w, http.StatusCreated, toIdeaDTO(*idea, true))
}

func (h *IdeaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if _, err := h.Jars.DeleteIdea(r.Context(), uid, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rateIdeaReq struct {
	Rating int    `json:"rating"`
	Notes  string `json:"notes"`
}

func (h *IdeaHandler) Rate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req rateIdeaReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	idea, err := h.Jars.RateIdea(r.Context(), uid, id, req.Rating, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	role, err := h.Jars.Role(r.Context(), idea.GroupID, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.record(r.Context(), idea.GroupID, rewards.ActionRateIdea)
	response.OK(w, toIdeaDTO(*idea, jar.CanManage(idea.CreatedBy, uid, role)))
}

// record is best effort: the idea is already saved.
func (h *IdeaHandler) record(ctx context.Context, groupID uint64, a rewards.Action) {
	if h.Rewards == nil {
		return
	}
	if err := h.Rewards.Record(ctx, groupID, a); err != nil {
		slog.Warn("reward not recorded", "group_id", groupID, "action", a, "err", err)
	}
}
