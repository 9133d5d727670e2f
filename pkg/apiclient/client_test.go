package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetica-academy/presenciales/internal/auth"
)

func writeEnvelope(w http.ResponseWriter, status int, data any, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data, "error": msg})
}

func TestListPollsSendsBearer(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/presenciales/polls", r.URL.Path)
		writeEnvelope(w, http.StatusOK, []map[string]any{{"id": id, "title": "Taller", "status": "open", "options": []any{}}}, "")
	}))
	defer srv.Close()

	c := New(srv.URL+"/", StaticToken("tok"))
	polls, err := c.ListPolls(context.Background())
	require.NoError(t, err)
	require.Len(t, polls, 1)
	assert.Equal(t, id, polls[0].ID)
	assert.True(t, polls[0].IsOpen())
}

func TestVoteErrorCarriesServerMessage(t *testing.T) {
	pollID, optID := uuid.New(), uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, optID.String(), body["optionId"])
		writeEnvelope(w, http.StatusConflict, nil, "poll is closed")
	}))
	defer srv.Close()

	_, err := New(srv.URL, StaticToken("tok")).Vote(context.Background(), pollID, optID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "poll is closed", apiErr.Message)
}

func TestSearchUsersEscapesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ana maria&x", r.URL.Query().Get("search"))
		writeEnvelope(w, http.StatusOK, []any{}, "")
	}))
	defer srv.Close()

	users, err := New(srv.URL, StaticToken("tok")).SearchUsers(context.Background(), "ana maria&x")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestAccessAndCourses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/presenciales/access", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]bool{"has_access": true}, "")
	})
	mux.HandleFunc("/me/courses", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string][]string{"course_ids": {"c1", "c2"}}, "")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, StaticToken("tok"))
	has, err := c.Access(context.Background())
	require.NoError(t, err)
	assert.True(t, has)
	ids, err := c.MyCourses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)
}

func TestMissingTokenStopsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	_, err := New(srv.URL, StaticToken("")).ListPolls(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, called)
}

func TestFileTokenSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth-token-storage.json")

	_, err := FileTokenSource{Path: path}.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, os.WriteFile(path, []byte(`{"state":{"token":" abc ","user":{"id":"u"}},"version":0}`), 0o600))
	tok, err := FileTokenSource{Path: path}.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, os.WriteFile(path, []byte(`{"state":{}}`), 0o600))
	_, err = FileTokenSource{Path: path}.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestIdentityFromToken(t *testing.T) {
	uid := uuid.New()
	tok, err := auth.NewJWTService("secret", 1).Generate(uid, "ana@example.com", "Ana", "student")
	require.NoError(t, err)

	id, err := IdentityFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uid, id.UserID)
	assert.Equal(t, "ana@example.com", id.Email)
	assert.Equal(t, "student", id.Role)

	_, err = IdentityFromToken("not-a-token")
	assert.Error(t, err)
}
