package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

type recorded struct {
	Method      string
	Path        string
	ContentType string
	RequestID   string
	Body        map[string]any
}

// recordingServer answers every request with status and body, remembering
// what it saw.
func recordingServer(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var seen []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			RequestID:   r.Header.Get(RequestIDHeader),
		}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			assert.NoError(t, json.Unmarshal(b, &rec.Body))
		}
		seen = append(seen, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "todos", "ftp://host/api", "http://"} {
		_, err := New(raw)
		assert.Error(t, err, raw)
	}

	c, err := New("https://example.com/api/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api", c.BaseURL())
}

func TestClient_List(t *testing.T) {
	srv, seen := recordingServer(t, http.StatusOK,
		`[{"id":2,"text":"B","completed":true},{"id":1,"text":"A","completed":false}]`)
	c, err := New(srv.URL + "/api")
	require.NoError(t, err)

	todos, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Todo{
		{ID: 2, Text: "B", Completed: true},
		{ID: 1, Text: "A", Completed: false},
	}, todos)

	require.Len(t, *seen, 1)
	got := (*seen)[0]
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/todos", got.Path)
	assert.NotEmpty(t, got.RequestID)
}

func TestClient_ListEmptyArrayIsNotNil(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusOK, `[]`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	todos, err := c.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)
}

func TestClient_ListBadJSON(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusOK, `{"oops":`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.List(context.Background())
	assert.ErrorContains(t, err, "decode")
}

func TestClient_Create(t *testing.T) {
	srv, seen := recordingServer(t, http.StatusCreated, `{"id":7,"text":"Buy milk","completed":false}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	created, err := c.Create(context.Background(), "Buy milk")
	require.NoError(t, err)
	assert.Equal(t, 7, created.ID)

	got := (*seen)[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/todos", got.Path)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, map[string]any{"text": "Buy milk", "completed": false}, got.Body)
}

func TestClient_CreateToleratesEmptyBody(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusNoContent, ``)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Create(context.Background(), "x")
	assert.NoError(t, err)
}

func TestClient_SetCompleted(t *testing.T) {
	todo := model.Todo{ID: 3, Text: "Walk", Completed: false}

	t.Run("patch", func(t *testing.T) {
		srv, seen := recordingServer(t, http.StatusOK, `{}`)
		c, err := New(srv.URL)
		require.NoError(t, err)

		_, err = c.SetCompleted(context.Background(), todo, true)
		require.NoError(t, err)
		got := (*seen)[0]
		assert.Equal(t, http.MethodPatch, got.Method)
		assert.Equal(t, "/todos/3", got.Path)
		assert.Equal(t, map[string]any{"completed": true}, got.Body)
	})

	t.Run("put", func(t *testing.T) {
		srv, seen := recordingServer(t, http.StatusOK, `{}`)
		c, err := New(srv.URL, WithUpdateMethod(UpdatePut))
		require.NoError(t, err)

		_, err = c.SetCompleted(context.Background(), todo, true)
		require.NoError(t, err)
		got := (*seen)[0]
		assert.Equal(t, http.MethodPut, got.Method)
		assert.Equal(t, map[string]any{"id": float64(3), "text": "Walk", "completed": true}, got.Body)
	})
}

func TestClient_Delete(t *testing.T) {
	srv, seen := recordingServer(t, http.StatusNoContent, ``)
	c, err := New(srv.URL)
	require.NoError(t, err)

	require.NoError(t, c.Delete(context.Background(), 9))
	got := (*seen)[0]
	assert.Equal(t, http.MethodDelete, got.Method)
	assert.Equal(t, "/todos/9", got.Path)
	assert.Nil(t, got.Body)
}

func TestClient_NonSuccessIsStatusError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		srv, _ := recordingServer(t, status, `boom`)
		c, err := New(srv.URL)
		require.NoError(t, err)

		err = c.Delete(context.Background(), 1)
		var se *StatusError
		require.True(t, errors.As(err, &se), "status %d", status)
		assert.Equal(t, status, se.StatusCode)
		assert.Equal(t, "boom", se.Body)
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	_, err = c.List(context.Background())
	assert.Error(t, err)
}

func TestParseUpdateMethod(t *testing.T) {
	m, err := ParseUpdateMethod("PUT")
	require.NoError(t, err)
	assert.Equal(t, UpdatePut, m)

	m, err = ParseUpdateMethod("")
	require.NoError(t, err)
	assert.Equal(t, UpdatePatch, m)

	_, err = ParseUpdateMethod("post")
	assert.Error(t, err)
}
