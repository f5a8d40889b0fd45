// Package llamacloud provides a client for the LlamaCloud pipeline API:
// document listing, upload, deletion, retrieval, and extraction jobs.
package llamacloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/ngl-strategy/rim-assistant/internal/resilience"
)

// DefaultBaseURL is the production LlamaCloud API endpoint.
const DefaultBaseURL = "https://api.cloud.llamaindex.ai/api/v1"

// Client defines the LlamaCloud operations used by the assistant.
type Client interface {
	// ListFiles returns the files currently indexed in the pipeline.
	ListFiles(ctx context.Context) ([]File, error)
	// DeleteFile removes a file from the pipeline.
	DeleteFile(ctx context.Context, fileID string) error
	// UploadFile uploads content and attaches it to the pipeline.
	UploadFile(ctx context.Context, name string, content io.Reader) (*File, error)
	// Retrieve runs semantic retrieval over the pipeline.
	Retrieve(ctx context.Context, query string) ([]RetrievedNode, error)

	// CreateExtractionJob starts a hosted extraction agent over a file.
	CreateExtractionJob(ctx context.Context, agentID, fileID string) (string, error)
	// GetExtractionJob reports the status of an extraction job.
	GetExtractionJob(ctx context.Context, jobID string) (*ExtractionJob, error)
	// GetExtractionResult fetches the extracted rows of a finished job.
	GetExtractionResult(ctx context.Context, jobID string) (*ExtractionResult, error)
}

// File is a document indexed in a pipeline.
type File struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FileSize       int64  `json:"file_size"`
	Status         string `json:"status"`
	IndexedPages   int    `json:"indexed_page_count"`
	LastModifiedAt string `json:"last_modified_at"`
}

// RetrievedNode is one retrieval hit: a passage, its score, and whatever
// metadata the pipeline attached at index time.
type RetrievedNode struct {
	Text     string
	Score    float64
	Metadata map[string]string
}

// ExtractionJob is the status of a hosted extraction run.
type ExtractionJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ExtractionResult holds the rows produced by an extraction agent.
type ExtractionResult struct {
	RunID string           `json:"run_id"`
	Rows  []map[string]any `json:"data"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit overrides the default requests-per-second cap.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithRetry overrides the default retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

// WithPipelineName sets the index and project names used to look up the
// pipeline when no pipeline ID is configured.
func WithPipelineName(indexName, projectName string) Option {
	return func(c *httpClient) {
		c.indexName = indexName
		c.projectName = projectName
	}
}

type httpClient struct {
	apiKey      string
	baseURL     string
	indexName   string
	projectName string
	http        *http.Client
	limiter     *rate.Limiter
	retry       resilience.RetryConfig

	mu         sync.Mutex
	pipelineID string
}

// NewClient creates a LlamaCloud client bound to one pipeline. An empty
// pipelineID is resolved on first use from the names given via
// WithPipelineName.
func NewClient(apiKey, pipelineID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:     apiKey,
		pipelineID: pipelineID,
		baseURL:    DefaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("llamacloud", "request")
	}
	return c
}

// do executes one request with rate limiting and transient-failure retries,
// returning the response body and status code. Request bodies are buffered
// up front so retries can replay them.
func (c *httpClient) do(ctx context.Context, method, url string, contentType string, payload []byte) ([]byte, int, error) {
	var (
		body   []byte
		status int
	)

	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return eris.Wrap(err, "llamacloud: create request")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "llamacloud: read response body")
		}
		status = resp.StatusCode

		if resilience.IsTransientHTTPStatus(status) {
			return resilience.NewTransientError(
				eris.Errorf("llamacloud: status %d: %s", status, string(body)), status)
		}
		return nil
	})
	if err != nil {
		return nil, status, err
	}
	return body, status, nil
}

// pipeline returns the target pipeline ID, resolving it by index and project
// name on first use. The resolved ID is cached for the client's lifetime.
func (c *httpClient) pipeline(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipelineID != "" {
		return c.pipelineID, nil
	}
	if c.indexName == "" {
		return "", eris.New("llamacloud: no pipeline id and no index name configured")
	}

	q := url.Values{"pipeline_name": {c.indexName}}
	if c.projectName != "" {
		q.Set("project_name", c.projectName)
	}
	lookupURL := fmt.Sprintf("%s/pipelines?%s", c.baseURL, q.Encode())

	body, status, err := c.do(ctx, http.MethodGet, lookupURL, "", nil)
	if err != nil {
		return "", eris.Wrapf(err, "llamacloud: look up pipeline %q", c.indexName)
	}
	if status != http.StatusOK {
		return "", eris.Errorf("llamacloud: look up pipeline %q: status %d: %s", c.indexName, status, string(body))
	}

	var pipelines []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &pipelines); err != nil {
		return "", eris.Wrap(err, "llamacloud: unmarshal pipeline listing")
	}
	if len(pipelines) == 0 {
		return "", eris.Errorf("llamacloud: no pipeline named %q in project %q", c.indexName, c.projectName)
	}

	c.pipelineID = pipelines[0].ID
	return c.pipelineID, nil
}

func (c *httpClient) ListFiles(ctx context.Context) ([]File, error) {
	pipelineID, err := c.pipeline(ctx)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/pipelines/%s/files2", c.baseURL, pipelineID)

	body, status, err := c.do(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return nil, eris.Wrap(err, "llamacloud: list files")
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("llamacloud: list files: status %d: %s", status, string(body))
	}

	var result struct {
		Files []File `json:"files"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "llamacloud: unmarshal file listing")
	}
	return result.Files, nil
}

func (c *httpClient) DeleteFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return eris.New("llamacloud: file id is required")
	}
	pipelineID, err := c.pipeline(ctx)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/pipelines/%s/files/%s", c.baseURL, pipelineID, fileID)

	body, status, err := c.do(ctx, http.MethodDelete, url, "", nil)
	if err != nil {
		return eris.Wrapf(err, "llamacloud: delete file %s", fileID)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return eris.Errorf("llamacloud: delete file %s: status %d: %s", fileID, status, string(body))
	}
	return nil
}

func (c *httpClient) UploadFile(ctx context.Context, name string, content io.Reader) (*File, error) {
	if name == "" {
		return nil, eris.New("llamacloud: file name is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("upload_file", name)
	if err != nil {
		return nil, eris.Wrap(err, "llamacloud: create multipart")
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, eris.Wrapf(err, "llamacloud: read %s", name)
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "llamacloud: close multipart")
	}

	url := fmt.Sprintf("%s/files", c.baseURL)
	body, status, err := c.do(ctx, http.MethodPost, url, mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, eris.Wrapf(err, "llamacloud: upload %s", name)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, eris.Errorf("llamacloud: upload %s: status %d: %s", name, status, string(body))
	}

	var file File
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, eris.Wrap(err, "llamacloud: unmarshal uploaded file")
	}

	// Attach the uploaded file to the pipeline so it gets indexed.
	attach, err := json.Marshal([]map[string]string{{"file_id": file.ID}})
	if err != nil {
		return nil, eris.Wrap(err, "llamacloud: marshal attach request")
	}
	pipelineID, err := c.pipeline(ctx)
	if err != nil {
		return nil, err
	}
	attachURL := fmt.Sprintf("%s/pipelines/%s/files", c.baseURL, pipelineID)
	body, status, err = c.do(ctx, http.MethodPut, attachURL, "application/json", attach)
	if err != nil {
		return nil, eris.Wrapf(err, "llamacloud: attach %s to pipeline", name)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return nil, eris.Errorf("llamacloud: attach %s: status %d: %s", name, status, string(body))
	}

	if file.Name == "" {
		file.Name = name
	}
	return &file, nil
}

// retrieval wire format: nodes nest the passage under "node" with metadata
// values of mixed JSON types; only string values are carried over.
type retrievalResponse struct {
	Nodes []struct {
		Node struct {
			Text     string         `json:"text"`
			Metadata map[string]any `json:"metadata"`
		} `json:"node"`
		Score float64 `json:"score"`
	} `json:"retrieval_nodes"`
}

func (c *httpClient) Retrieve(ctx context.Context, query string) ([]RetrievedNode, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, eris.Wrap(err, "llamacloud: marshal retrieve request")
	}

	pipelineID, err := c.pipeline(ctx)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/pipelines/%s/retrieve", c.baseURL, pipelineID)
	body, status, err := c.do(ctx, http.MethodPost, url, "application/json", payload)
	if err != nil {
		return nil, eris.Wrap(err, "llamacloud: retrieve")
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("llamacloud: retrieve: status %d: %s", status, string(body))
	}

	var result retrievalResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "llamacloud: unmarshal retrieval response")
	}

	nodes := make([]RetrievedNode, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		meta := make(map[string]string, len(n.Node.Metadata))
		for k, v := range n.Node.Metadata {
			if s, ok := v.(string); ok {
				meta[k] = s
			}
		}
		nodes = append(nodes, RetrievedNode{
			Text:     n.Node.Text,
			Score:    n.Score,
			Metadata: meta,
		})
	}
	return nodes, nil
}

func (c *httpClient) CreateExtractionJob(ctx context.Context, agentID, fileID string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"extraction_agent_id": agentID,
		"file_id":             fileID,
	})
	if err != nil {
		return "", eris.Wrap(err, "llamacloud: marshal extraction request")
	}

	url := fmt.Sprintf("%s/extraction/jobs", c.baseURL)
	body, status, err := c.do(ctx, http.MethodPost, url, "application/json", payload)
	if err != nil {
		return "", eris.Wrap(err, "llamacloud: create extraction job")
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", eris.Errorf("llamacloud: create extraction job: status %d: %s", status, string(body))
	}

	var job ExtractionJob
	if err := json.Unmarshal(body, &job); err != nil {
		return "", eris.Wrap(err, "llamacloud: unmarshal extraction job")
	}
	return job.ID, nil
}

func (c *httpClient) GetExtractionJob(ctx context.Context, jobID string) (*ExtractionJob, error) {
	url := fmt.Sprintf("%s/extraction/jobs/%s", c.baseURL, jobID)

	body, status, err := c.do(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return nil, eris.Wrapf(err, "llamacloud: get extraction job %s", jobID)
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("llamacloud: get extraction job %s: status %d: %s", jobID, status, string(body))
	}

	var job ExtractionJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, eris.Wrap(err, "llamacloud: unmarshal extraction job")
	}
	return &job, nil
}

func (c *httpClient) GetExtractionResult(ctx context.Context, jobID string) (*ExtractionResult, error) {
	url := fmt.Sprintf("%s/extraction/jobs/%s/result", c.baseURL, jobID)

	body, status, err := c.do(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return nil, eris.Wrapf(err, "llamacloud: get extraction result %s", jobID)
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("llamacloud: get extraction result %s: status %d: %s", jobID, status, string(body))
	}

	var result ExtractionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "llamacloud: unmarshal extraction result")
	}
	return &result, nil
}
