package adjustments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/cadenza-hq/cadenza/internal/observability"
	"github.com/cadenza-hq/cadenza/internal/rbac"
	"github.com/cadenza-hq/cadenza/internal/shared"
	_ "github.com/cadenza-hq/cadenza/internal/testing/guard"
)

type fakeMemberships struct {
	roles map[int64]rbac.Role
}

func (f fakeMemberships) RoleInOrg(_ context.Context, userID, _ int64) (rbac.Role, bool, error) {
	role, ok := f.roles[userID]
	return role, ok, nil
}

func TestHandlerPreviewAndConfirm(t *testing.T) {
	f := newFixture(t)
	f.giveStudentRateCard(5000)
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	wf, _, _ := f.newWorkflow(t)
	handler := NewHandler(logger, validator.New(), f.calc, wf, nil, observability.NewMetrics())

	guard := rbac.Middleware{
		Memberships: fakeMemberships{roles: map[int64]rbac.Role{1: rbac.RoleAdmin, 2: rbac.RoleTeacher}},
		Logger:      logger,
	}
	actorID := int64(1)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if actorID != 0 {
				req = req.WithContext(shared.ContextWithActor(req.Context(), &shared.Actor{UserID: actorID, Name: "tester"}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/orgs/{orgID}", func(r chi.Router) {
		handler.MountRoutes(r, guard)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	post := func(path string, body string) *http.Response {
		resp, err := http.Post(srv.URL+path, "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		return resp
	}

	// Preview.
	resp := post("/orgs/1/term-adjustments/preview", `{
		"adjustment_type": "withdrawal",
		"student_id": 42,
		"recurrence_id": 5,
		"effective_date": "2026-01-06T00:00:00Z"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var preview PreviewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&preview))
	resp.Body.Close()
	require.Equal(t, 6, preview.LessonsDifference)
	require.Equal(t, int64(36000), preview.TotalAdjustmentMinor)

	// Confirm.
	resp = post(fmt.Sprintf("/orgs/1/term-adjustments/%d/confirm", preview.AdjustmentID), `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var confirm ConfirmResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&confirm))
	resp.Body.Close()
	require.True(t, confirm.Success)
	require.Equal(t, 6, confirm.CancelledCount)

	// Second confirm maps the conflict to 404 so retries cannot probe
	// whether the id ever existed.
	resp = post(fmt.Sprintf("/orgs/1/term-adjustments/%d/confirm", preview.AdjustmentID), `{}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Validation failure.
	resp = post("/orgs/1/term-adjustments/preview", `{"adjustment_type": "sabbatical"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Teacher role is not billing-capable.
	actorID = 2
	resp = post("/orgs/1/term-adjustments/preview", `{
		"adjustment_type": "withdrawal",
		"student_id": 42,
		"recurrence_id": 5,
		"effective_date": "2026-01-06T00:00:00Z"
	}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// No actor at all.
	actorID = 0
	resp = post("/orgs/1/term-adjustments/preview", `{}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
