package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"decisionjar/internal/auth"
	"decisionjar/internal/http/handler"
	"decisionjar/internal/jar"
	"decisionjar/internal/rewards"
	"decisionjar/internal/selection"
	"decisionjar/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asUser(uid uint64, method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	return req.WithContext(auth.WithUserID(req.Context(), uid))
}

func TestSpinAndAchievementsHandlers(t *testing.T) {
	gdb := testutil.NewDB(t)
	u := auth.User{Email: "solo@example.com", PasswordHash: "x"}
	require.NoError(t, gdb.Create(&u).Error)

	jars := &jar.Service{DB: gdb}
	spinH := &handler.SpinHandler{Jars: jars, Svc: &selection.Service{Store: &selection.GormStore{DB: gdb}}}
	jarH := &handler.JarHandler{Jars: jars, Evaluator: &rewards.Evaluator{DB: gdb}}

	rec := httptest.NewRecorder()
	spinH.Spin(rec, asUser(u.ID, http.MethodPost, ""))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_active_jar")

	g, err := jars.CreateGroup(context.Background(), u.ID, "Solo")
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	spinH.Spin(rec, asUser(u.ID, http.MethodPost, `{"max_cost":"FREE"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_matching_ideas")

	idea, err := jars.CreateIdea(context.Background(), u.ID, g.ID, jar.IdeaInput{Description: "Stargazing", Cost: jar.CostFree})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	spinH.Spin(rec, asUser(u.ID, http.MethodPost, `{"max_cost":"FREE"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var spun struct {
		Idea struct {
			ID uint64 `json:"id"`
		} `json:"idea"`
		CanDelete bool `json:"can_delete"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spun))
	assert.Equal(t, idea.ID, spun.Idea.ID)
	assert.True(t, spun.CanDelete)

	_, err = jarH.Evaluator.Unlock(context.Background(), g.ID)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	jarH.Achievements(rec, asUser(u.ID, http.MethodGet, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "FIRST_SPIN")
	assert.Contains(t, rec.Body.String(), "Leap of Faith")
}
