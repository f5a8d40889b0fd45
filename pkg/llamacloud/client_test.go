package llamacloud

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngl-strategy/rim-assistant/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestListFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/pipelines/pipe-1/files2", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]any{
				{"id": "f-1", "name": "lpg250610.pdf", "file_size": 120_000, "status": "SUCCESS", "indexed_page_count": 4},
				{"id": "f-2", "name": "lpg250630.pdf", "file_size": 98_000, "status": "SUCCESS", "indexed_page_count": 3},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", "pipe-1", WithBaseURL(server.URL), WithRetry(fastRetry()))

	files, err := client.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "f-1", files[0].ID)
	assert.Equal(t, "lpg250610.pdf", files[0].Name)
	assert.Equal(t, 4, files[0].IndexedPages)
}

func TestResolvePipelineByName(t *testing.T) {
	var lookups atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pipelines":
			lookups.Add(1)
			assert.Equal(t, "NGL_Strategy", r.URL.Query().Get("pipeline_name"))
			assert.Equal(t, "Default", r.URL.Query().Get("project_name"))
			json.NewEncoder(w).Encode([]map[string]string{{"id": "pipe-9", "name": "NGL_Strategy"}})
		case "/pipelines/pipe-9/files2":
			json.NewEncoder(w).Encode(map[string]any{
				"files": []map[string]any{{"id": "f-1", "name": "lpg250610.pdf"}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient("test-key", "",
		WithBaseURL(server.URL),
		WithRetry(fastRetry()),
		WithPipelineName("NGL_Strategy", "Default"))

	files, err := client.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)

	// Resolution is cached: a second call must not look the pipeline up again.
	_, err = client.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), lookups.Load())
}

func TestResolvePipelineByName_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{})
	}))
	defer server.Close()

	client := NewClient("test-key", "",
		WithBaseURL(server.URL),
		WithRetry(fastRetry()),
		WithPipelineName("Missing_Index", "Default"))

	_, err := client.ListFiles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no pipeline named "Missing_Index"`)
}

func TestResolvePipeline_NothingConfigured(t *testing.T) {
	client := NewClient("test-key", "")

	_, err := client.Retrieve(context.Background(), "propane")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pipeline id and no index name")
}

func TestListFiles_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]any{{"id": "f-1", "name": "lpg250610.pdf"}},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", "pipe-1", WithBaseURL(server.URL), WithRetry(fastRetry()))

	files, err := client.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDeleteFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/pipelines/pipe-1/files/f-9", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient("test-key", "pipe-1", WithBaseURL(server.URL), WithRetry(fastRetry()))

	err := client.DeleteFile(context.Background(), "f-9")
	require.NoError(t, err)
}

func TestDeleteFile_EmptyID(t *testing.T) {
	client := NewClient("test-key", "pipe-1")

	err := client.DeleteFile(context.Background(), "")
	assert.Error(t, err)
}

func TestDeleteFile_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"file not found"}`)
	}))
	defer server.Close()

	client := NewClient("test-key", "pipe-1", WithBaseURL(server.URL), WithRetry(fastRetry()))

	err := client.DeleteFile(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestUploadFile(t *testing.T) {
	var attached atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, header, err := r.FormFile("upload_file")
			require.NoError(t, err)
			defer file.Close()

			assert.Equal(t, "lpg250610.pdf", header.Filename)
			content, err := io.ReadAll(file)
			require.NoError(t, err)
			assert.Equal(t, "%PDF-1.4 fake", string(content))

			json.NewEncoder(w).Encode(map[string]any{"id": "f-new", "name": "lpg250610.pdf"})
		case r.Method == http.MethodPut && r.URL.Path == "/pipelines/pipe-1/files":
			var body []map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body, 1)
			assert.Equal(t, "f-new", body[0]["file_id"])
			attached.Store(true)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient("test-key", "pipe-1", WithBaseURL(server.URL), WithRetry(fastRetry()))

	file, err := client.UploadFile(context.Background(), "lpg250610.pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "f-new", file.ID)
	assert.Equal(t, "lpg250610.pdf", file.Name)
	assert.True(t, attached.Load())
}

func TestRetrieve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pipelines/pipe-1/retrieve", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "propane price", req["query"])

		json.NewEncoder(w).Encode(map[string]any{
			"retrieval_nodes": []map[string]any{
				{
					"node": map[string]any{
						"text": "CFR South China propane was assessed at $620/mt.",
						"metadata": map[string]any{
							"file_name":  "lpg250610.pdf",
							"page_label": 2,
						},
					},
					"score": 0.87,
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", "pipe-1", WithBaseURL(server.URL), WithRetry(fastRetry()))

	nodes, err := client.Retrieve(context.Background(), "propane price")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "CFR South China propane was assessed at $620/mt.", nodes[0].Text)
	assert.InDelta(t, 0.87, nodes[0].Score, 1e-9)
	assert.Equal(t, "lpg250610.pdf", nodes[0].Metadata["file_name"])
	// Non-string metadata values are dropped, not stringified.
	_, ok := nodes[0].Metadata["page_label"]
	assert.False(t, ok)
}

func TestExtractionJobLifecycle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/extraction/jobs":
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "agent-1", req["extraction_agent_id"])
			assert.Equal(t, "f-1", req["file_id"])
			json.NewEncoder(w).Encode(map[string]any{"id": "job-1", "status": "PENDING"})
		case r.Method == http.MethodGet && r.URL.Path == "/extraction/jobs/job-1":
			json.NewEncoder(w).Encode(map[string]any{"id": "job-1", "status": "SUCCESS"})
		case r.Method == http.MethodGet && r.URL.Path == "/extraction/jobs/job-1/result":
			json.NewEncoder(w).Encode(map[string]any{
				"run_id": "run-1",
				"data": []map[string]any{
					{"Location": "South China", "Price": "620-630/mt"},
				},
			})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient("test-key", "pipe-1", WithBaseURL(server.URL), WithRetry(fastRetry()))
	ctx := context.Background()

	jobID, err := client.CreateExtractionJob(ctx, "agent-1", "f-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	job, err := client.GetExtractionJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", job.Status)

	result, err := client.GetExtractionResult(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "run-1", result.RunID)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "South China", result.Rows[0]["Location"])
}
