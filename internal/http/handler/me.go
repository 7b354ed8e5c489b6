package handler

import (
	"net/http"

	"decisionjar/internal/auth"
	"decisionjar/internal/http/response"
	"decisionjar/internal/jar"
)

type MeHandler struct {
	Jars *jar.Service
}

type meResp struct {
	UserID      uint64  `json:"user_id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	ActiveJarID *uint64 `json:"active_jar_id"`
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var u auth.User
	if err := h.Jars.DB.WithContext(r.Context()).First(&u, uid).Error; err != nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "unknown user")
		return
	}

	out := meResp{UserID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
	gid, ok, err := h.Jars.ActiveGroup(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ok {
		out.ActiveJarID = &gid
	}
	response.OK(w, out)
}
