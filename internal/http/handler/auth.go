package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"decisionjar/internal/auth"
	"decisionjar/internal/http/response"

	"gorm.io/gorm"
)

type AuthHandler struct {
	DB  *gorm.DB
	JWT *auth.JWT
}

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type tokenResp struct {
	Token  string `json:"token"`
	UserID uint64 `json:"user_id"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		response.Error(w, http.StatusBadRequest, "invalid_input", "valid email required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		response.Error(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}

	u := auth.User{Email: req.Email, DisplayName: strings.TrimSpace(req.DisplayName), PasswordHash: hash}
	if err := h.DB.WithContext(r.Context()).Create(&u).Error; err != nil {
		response.Error(w, http.StatusConflict, "email_taken", "email already used")
		return
	}

	token, err := h.JWT.Sign(u.ID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	slog.Info("user registered", "user_id", u.ID)
	response.JSON(w, http.StatusCreated, tokenResp{Token: token, UserID: u.ID})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		response.Error(w, http.StatusBadRequest, "invalid_input", "email and password required")
		return
	}

	var u auth.User
	if err := h.DB.WithContext(r.Context()).Where("email = ?", req.Email).First(&u).Error; err != nil {
		response.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}
	if !auth.ComparePassword(u.PasswordHash, req.Password) {
		response.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	token, err := h.JWT.Sign(u.ID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	response.OK(w, tokenResp{Token: token, UserID: u.ID})
}
