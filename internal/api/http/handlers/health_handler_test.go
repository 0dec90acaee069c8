package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyReportsEachDependency(t *testing.T) {
	h := NewHealthHandler("supportpilot", "1.2.3", map[string]Pinger{
		"store": pingFunc(func(context.Context) error { return nil }),
		"cache": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	app := fiber.New()
	app.Get("/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ready", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Error struct {
			Code    string                      `json:"code"`
			Details map[string]DependencyStatus `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", body.Error.Code)
	assert.Equal(t, "ok", body.Error.Details["store"].Status)
	assert.Equal(t, "unavailable", body.Error.Details["cache"].Status)
	assert.Equal(t, "connection refused", body.Error.Details["cache"].Error)
}

func TestLive(t *testing.T) {
	app := fiber.New()
	app.Get("/live", NewHealthHandler("supportpilot", "1.2.3", nil).Live)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/live", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}
