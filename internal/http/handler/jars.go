package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"decisionjar/internal/auth"
	"decisionjar/internal/http/response"
	"decisionjar/internal/jar"
	"decisionjar/internal/rewards"
)

type JarHandler struct {
	Jars      *jar.Service
	Evaluator *rewards.Evaluator
}

type jarDTO struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	ReferenceCode string    `json:"reference_code"`
	XP            int       `json:"xp"`
	Level         int       `json:"level"`
	Role          string    `json:"role,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toJarDTO(g jar.Group, role string) jarDTO {
	return jarDTO{
		ID:            g.ID,
		Name:          g.Name,
		ReferenceCode: g.ReferenceCode,
		XP:            g.XP,
		Level:         g.Level,
		Role:          role,
		CreatedAt:     g.CreatedAt,
	}
}

type createJarReq struct {
	Name string `json:"name"`
}

func (h *JarHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createJarReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	g, err := h.Jars.CreateGroup(r.Context(), uid, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, toJarDTO(*g, jar.RoleAdmin))
}

func (h *JarHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	views, err := h.Jars.ListGroups(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]jarDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toJarDTO(v.Group, v.Role))
	}
	response.OK(w, out)
}

type joinJarReq struct {
	Code string `json:"code"`
}

func (h *JarHandler) Join(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req joinJarReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	g, err := h.Jars.JoinGroup(r.Context(), uid, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	role, err := h.Jars.Role(r.Context(), g.ID, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, toJarDTO(*g, role))
}

type setActiveReq struct {
	JarID uint64 `json:"jar_id"`
}

func (h *JarHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req setActiveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JarID == 0 {
		response.Error(w, http.StatusBadRequest, "invalid_input", "jar_id required")
		return
	}
	if err := h.Jars.SetActiveGroup(r.Context(), uid, req.JarID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *JarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Jars.DeleteGroup(r.Context(), uid, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type achievementDTO struct {
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

func (h *JarHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	_, gid, ok := activeJar(w, r, h.Jars)
	if !ok {
		return
	}

	rows, err := h.Evaluator.Unlocked(r.Context(), gid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]achievementDTO, 0, len(rows))
	for _, row := range rows {
		a, _ := rewards.Lookup(row.Code)
		out = append(out, achievementDTO{
			Code:        row.Code,
			Title:       a.Title,
			Description: a.Description,
			UnlockedAt:  row.UnlockedAt,
		})
	}
	response.OK(w, out)
}
