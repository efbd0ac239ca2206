package appointments

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/auth"
	"github.com/novadent/novadent/internal/shared"
	_ "github.com/novadent/novadent/testing"
)

func newHandlerFixture(t *testing.T) (*memoryAppointmentRepo, http.Handler) {
	t.Helper()
	repo := newMemoryAppointmentRepo()
	svc := NewService(repo, nil, nil, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, auth.Middleware{})

	router := chi.NewRouter()
	router.Route("/appointments", handler.MountRoutes)
	return repo, router
}

func doJSON(t *testing.T, router http.Handler, actor shared.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor.ID != "" {
		req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var (
	asAdmin        = shared.Actor{ID: "u1", Name: "Admin", Role: auth.RoleAdmin}
	asReceptionist = shared.Actor{ID: "u2", Name: "Front Desk", Role: auth.RoleReceptionist}
)

func TestHandlerRequiresAuth(t *testing.T) {
	_, router := newHandlerFixture(t)

	rec := doJSON(t, router, shared.Actor{}, http.MethodGet, "/appointments", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerDeleteIsAdminOnly(t *testing.T) {
	repo, router := newHandlerFixture(t)
	repo.appointments["a1"] = Appointment{ID: "a1", Status: StatusPending}

	rec := doJSON(t, router, asReceptionist, http.MethodDelete, "/appointments/a1", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, asAdmin, http.MethodDelete, "/appointments/a1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, repo.appointments)
}

func TestHandlerCreate(t *testing.T) {
	_, router := newHandlerFixture(t)

	rec := doJSON(t, router, asReceptionist, http.MethodPost, "/appointments",
		`{"patient_name":"Grace Wanjiku","dentist_name":"Dr. Otieno","date":"2025-03-20","time":"10:00","treatment":"Cleaning","duration":30}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var payload struct {
		Success     bool `json:"success"`
		Appointment struct {
			ID     string `json:"id"`
			Status Status `json:"status"`
		} `json:"appointment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.True(t, payload.Success)
	require.NotEmpty(t, payload.Appointment.ID)
	require.Equal(t, StatusPending, payload.Appointment.Status)

	// A malformed date is a client error.
	rec = doJSON(t, router, asReceptionist, http.MethodPost, "/appointments",
		`{"patient_name":"Grace","dentist_name":"Dr. Otieno","date":"20/03/2025"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerTransitionConflict(t *testing.T) {
	repo, router := newHandlerFixture(t)
	repo.appointments["a1"] = Appointment{ID: "a1", Status: StatusPending}

	rec := doJSON(t, router, asReceptionist, http.MethodPost, "/appointments/a1/status", `{"status":"completed"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, asReceptionist, http.MethodPost, "/appointments/a1/status", `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, StatusConfirmed, repo.appointments["a1"].Status)

	rec = doJSON(t, router, asReceptionist, http.MethodPost, "/appointments/missing/status", `{"status":"confirmed"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerCancel(t *testing.T) {
	repo, router := newHandlerFixture(t)
	repo.appointments["a1"] = Appointment{ID: "a1", Status: StatusConfirmed}

	rec := doJSON(t, router, asReceptionist, http.MethodPost, "/appointments/a1/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, StatusCancelled, repo.appointments["a1"].Status)
}
