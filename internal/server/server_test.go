package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avoronkov/tutorhub/internal/model"
)

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", model.ErrNotFound, http.StatusNotFound},
		{"conflict", model.ErrConflict, http.StatusConflict},
		{"nothing to settle", model.ErrNothingToSettle, http.StatusConflict},
		{"invalid transition", model.ErrInvalidTransition, http.StatusConflict},
		{"invalid range", model.ErrInvalidRange, http.StatusBadRequest},
		{"forbidden", model.ErrForbidden, http.StatusForbidden},
		{"storage unavailable", model.ErrUnavailable, http.StatusServiceUnavailable},
		{"unknown error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Server{logger: zap.NewNop()}
			app := fiber.New(fiber.Config{ErrorHandler: s.handleError})
			app.Get("/boom", func(c *fiber.Ctx) error {
				return tc.err
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.code, resp.StatusCode)
		})
	}
}

func TestHealth(t *testing.T) {
	srv := New(nil, nil, nil, nil, zap.NewNop())

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// Запросы, которые отбрасываются до обращения к сервисам
func TestRequestValidation(t *testing.T) {
	cases := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"bad tutor id", http.MethodGet, "/tutors/abc/availability?from=2025-01-01&to=2025-01-07", ""},
		{"bad from date", http.MethodGet, "/tutors/1/availability?from=tomorrow&to=2025-01-07", ""},
		{"bad to date", http.MethodGet, "/tutors/1/availability?from=2025-01-01&to=", ""},
		{"appointments without filter", http.MethodGet, "/appointments", ""},
		{"appointments with both filters", http.MethodGet, "/appointments?tutor_id=1&student_id=2", ""},
		{"booking with malformed body", http.MethodPost, "/bookings", "{"},
		{"booking without subject", http.MethodPost, "/bookings", `{"tutor_id":1,"student_id":2,"start":"2025-01-01T10:00:00Z","end":"2025-01-01T11:00:00Z"}`},
		{"rule with bad weekday", http.MethodPost, "/tutors/1/rules", `{"weekday":7,"start_hour":9,"end_hour":10}`},
		{"transition to unknown status", http.MethodPatch, "/appointments/1", `{"status":"archived","actor_id":1}`},
		{"settlement without subject", http.MethodPost, "/settlements", `{"student_id":1,"tutor_id":2}`},
		{"ledgers with bad student id", http.MethodGet, "/ledgers?student_id=abc", ""},
		{"user with malformed email", http.MethodPost, "/users", `{"name":"Anna","email":"not-an-email"}`},
		{"timezone change without zone", http.MethodPatch, "/users/1/timezone", `{}`},
	}

	srv := New(nil, nil, nil, nil, zap.NewNop())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tc.method, tc.target, nil)
			}

			resp, err := srv.App().Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}
