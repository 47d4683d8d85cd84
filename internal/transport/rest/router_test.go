package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exemplarparty/internal/game"
	"exemplarparty/internal/model"
	"exemplarparty/internal/repository/memstore"
	"exemplarparty/internal/service"
)

type fixture struct {
	router http.Handler
	games  *service.GameService
	code   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	auth := service.NewAuthService("secret", "letmein")
	games := service.NewGameService(store, auth, service.Options{}, nil)
	t.Cleanup(func() { games.Shutdown(context.Background()) })

	code, err := games.CreateRoom("gm")
	require.NoError(t, err)
	for _, n := range []string{"Bob", "Ann"} {
		_, err := games.JoinRoom(n, code, n)
		require.NoError(t, err)
	}

	router := NewRouter(&Container{
		Games:          games,
		AuthService:    auth,
		ExportService:  service.NewExportService(store),
		AllowedOrigins: []string{"https://party.example"},
	})
	return &fixture{router: router, games: games, code: code}
}

func (f *fixture) get(path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.get("/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "https://party.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetRoom(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/v1/rooms/"+strings.ToLower(f.code), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state service.GameState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, f.code, state.Code)
	assert.Equal(t, game.PhaseLobby, state.Phase)
	assert.Len(t, state.Players, 2)

	rec = f.get("/v1/rooms/ZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/v1/rooms/"+f.code+"/leaderboard?top=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Leaderboard []struct {
			Nickname string `json:"nickname"`
			Rank     int    `json:"rank"`
		} `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Leaderboard, 1)
	assert.Equal(t, "Ann", body.Leaderboard[0].Nickname)

	assert.Equal(t, http.StatusBadRequest, f.get("/v1/rooms/"+f.code+"/leaderboard?top=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/v1/rooms/"+f.code+"/leaderboard?top=0", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.get("/v1/rooms/ZZZZ/leaderboard", nil).Code)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.get("/v1/export.csv", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.get("/v1/export.csv?password=nope", nil).Code)

	for _, rec := range []*httptest.ResponseRecorder{
		f.get("/v1/export.csv?password=letmein", nil),
		f.get("/v1/export.csv", map[string]string{"X-Export-Password": "letmein"}),
	} {
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
		firstLine := strings.SplitN(rec.Body.String(), "\n", 2)[0]
		assert.Equal(t, strings.Join(model.ExportHeader, ","), firstLine)
	}
}
