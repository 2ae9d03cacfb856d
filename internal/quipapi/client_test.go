package quipapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/1", "test-token", WithRateLimit(rate.Inf, 0))
}

func TestGetFolder_ParsesChildrenInOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/folders/F1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"folder": {"id": "F1", "title": "Team Docs"},
			"children": [
				{"thread_id": "T1"},
				{"folder_id": "F2"},
				{"thread_id": "T2"}
			]
		}`))
	}))

	folder, err := client.GetFolder(context.Background(), "F1")
	require.NoError(t, err)
	assert.Equal(t, "F1", folder.ID)
	assert.Equal(t, "Team Docs", folder.Title)
	assert.Equal(t, []string{"T1", "T2"}, folder.ThreadIDs)
	assert.Equal(t, []string{"F2"}, folder.FolderIDs)
}

func TestGetFolder_LegacyIDArrays(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"folder": {"title": "Archive"},
			"thread_ids": ["T9"],
			"folder_ids": ["F9"]
		}`))
	}))

	folder, err := client.GetFolder(context.Background(), "F1")
	require.NoError(t, err)
	assert.Equal(t, "F1", folder.ID, "missing wire id falls back to requested id")
	assert.Equal(t, []string{"T9"}, folder.ThreadIDs)
	assert.Equal(t, []string{"F9"}, folder.FolderIDs)
}

func TestGetThread_ParsesMetadata(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/threads/T1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"thread": {"id": "T1", "title": "Q3 Plan", "type": "spreadsheet", "updated_usec": 1700000000000000}
		}`))
	}))

	thread, err := client.GetThread(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "T1", thread.ID)
	assert.Equal(t, "Q3 Plan", thread.Title)
	assert.Equal(t, "spreadsheet", thread.Type)
	assert.Equal(t, int64(1700000000000000), thread.UpdatedUsec)
}

func TestExportThread_ReturnsRawBytes(t *testing.T) {
	content := []byte("%PDF-1.7 fake content")
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/threads/T1/export/pdf", r.URL.Path)
		w.Write(content)
	}))

	data, err := client.ExportThread(context.Background(), "T1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantClass Class
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, ClassUnauthorized, false},
		{"forbidden", http.StatusForbidden, ClassUnauthorized, false},
		{"not found", http.StatusNotFound, ClassNotFound, false},
		{"rate limited", http.StatusTooManyRequests, ClassRateLimited, true},
		{"server error", http.StatusInternalServerError, ClassTransient, true},
		{"bad gateway", http.StatusBadGateway, ClassTransient, true},
		{"teapot", http.StatusTeapot, ClassUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := client.GetFolder(context.Background(), "F1")
			require.Error(t, err)

			apiErr, ok := err.(*APIError)
			require.True(t, ok, "expected *APIError, got %T", err)
			assert.Equal(t, tt.wantClass, apiErr.Class)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.retryable, apiErr.Retryable())
		})
	}
}

func TestSingleAttemptPerCall(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.GetThread(context.Background(), "T1")
	require.Error(t, err)
	assert.Equal(t, 1, calls, "client must not retry on its own")
}

func TestCancelledContextIsNotAnAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetFolder(ctx, "F1")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(&APIError{Class: ClassUnauthorized}))
	assert.False(t, IsUnauthorized(&APIError{Class: ClassNotFound}))
	assert.False(t, IsUnauthorized(context.Canceled))
	assert.False(t, IsUnauthorized(nil))
}
