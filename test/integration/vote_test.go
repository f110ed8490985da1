package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecheck/api/internal/core/domain"
)

func postVote(t *testing.T, app *TestApp, event, vibe string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"vibe": vibe})
	resp, err := app.Client.Post(app.Server.URL+"/api/votes?event="+event, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestSubmitAndCount(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	for _, vibe := range []string{"fire", "fire", "sleep"} {
		resp := postVote(t, app, "concert1", vibe)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	// Votes land with server-assigned ids and timestamps.
	var rows int
	require.NoError(t, app.DB.QueryRow(
		"SELECT COUNT(*) FROM votes WHERE event_id = $1 AND created_at IS NOT NULL", "concert1").Scan(&rows))
	assert.Equal(t, 3, rows)

	resp, err := app.Client.Get(app.Server.URL + "/api/votes/counts?event=concert1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Event  string        `json:"event"`
		Counts domain.Counts `json:"counts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "concert1", got.Event)
	assert.Equal(t, domain.Counts{domain.VibeFire: 2, domain.VibeMeh: 0, domain.VibeSleep: 1}, got.Counts)
}

func TestInvalidVibeRejectedEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	resp := postVote(t, app, "concert1", "rage")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var rows int
	require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM votes").Scan(&rows))
	assert.Equal(t, 0, rows)
}

func TestEventScopeDefaultsToSentinel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	body, _ := json.Marshal(map[string]string{"vibe": "meh"})
	resp, err := app.Client.Post(app.Server.URL+"/api/votes", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var event string
	require.NoError(t, app.DB.QueryRow("SELECT event_id FROM votes").Scan(&event))
	assert.Equal(t, domain.DefaultEvent, event)
}
