package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koyaani/titaniumcar/cereal"
	"github.com/Koyaani/titaniumcar/chassis"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func newServer(t *testing.T) (*Server, *Live) {
	t.Helper()
	p, err := chassis.Preset("f1")
	require.NoError(t, err)
	live := &Live{}
	return New(p, live), live
}

func TestHealthBeforeFirstTick(t *testing.T) {
	s, _ := newServer(t)

	w := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"starting"}`, w.Body.String())

	w = get(t, s.Handler(), "/api/v1/status")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatus(t *testing.T) {
	s, live := newServer(t)
	live.Update(cereal.ControlState{
		Profile:   "f1",
		Mode:      "line",
		Direction: chassis.Output{Channel: "direction", Pin: 15, Pulse: 450, State: chassis.State{Target: 0.4, Current: 0.33}},
	})

	w := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, s.Handler(), "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		State cereal.ControlState `json:"state"`
		AgeMs int64               `json:"age_ms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "f1", body.State.Profile)
	assert.Equal(t, 450, body.State.Direction.Pulse)
	assert.Equal(t, 0.33, body.State.Direction.State.Current)
}

func TestProfile(t *testing.T) {
	s, _ := newServer(t)

	w := get(t, s.Handler(), "/api/v1/profile")
	require.Equal(t, http.StatusOK, w.Code)

	var p chassis.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "f1", p.Name)
	assert.Equal(t, 15, p.Direction.Pin)
	assert.Equal(t, chassis.POLICY_HYSTERESIS, p.Speed.Policy.Type)
	assert.Equal(t, 1.2, p.Speed.Policy.Hysteresis.Max)
}
