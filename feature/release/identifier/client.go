package identifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// CreateRequest asks the identifier service for one permanent id.
type CreateRequest struct {
	// UUID is the authoring system id to register.
	UUID string
	// Namespace is the issuing namespace (0 for international content).
	Namespace int
	// PartitionID encodes the component kind and namespace format.
	PartitionID string
	// Comment is free text recorded against the generation.
	Comment string
}

// BulkCreateRequest asks the service for permanent ids for many uuids in
// one job.
type BulkCreateRequest struct {
	UUIDs       []string
	Namespace   int
	PartitionID string
	Comment     string
}

// Client is the identifier service protocol. Implementations are
// synchronous; bulk creation hides the service's job submission and
// polling behind one call.
type Client interface {
	// CreateSCTID registers a single uuid and returns its permanent id.
	CreateSCTID(ctx context.Context, req CreateRequest) (int64, error)
	// CreateSCTIDs registers a batch of uuids and returns uuid to id.
	CreateSCTIDs(ctx context.Context, req BulkCreateRequest) (map[string]int64, error)
}

// HTTPClient talks to a component identifier service over its JSON API.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

// NewHTTPClient creates a client from the service configuration.
func NewHTTPClient(cfg Config) *HTTPClient {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

// jobStatusCompleted is the service's terminal success status for bulk
// jobs.
const jobStatusCompleted = "2"

type generateBody struct {
	Namespace   int      `json:"namespace"`
	PartitionID string   `json:"partitionId"`
	SystemID    string   `json:"systemId,omitempty"`
	SystemIDs   []string `json:"systemIds,omitempty"`
	Software    string   `json:"software"`
	Comment     string   `json:"comment"`
}

// CreateSCTID implements Client using the single-generation endpoint.
func (c *HTTPClient) CreateSCTID(ctx context.Context, req CreateRequest) (int64, error) {
	body := generateBody{
		Namespace:   req.Namespace,
		PartitionID: req.PartitionID,
		SystemID:    req.UUID,
		Software:    c.cfg.Software,
		Comment:     req.Comment,
	}
	var result struct {
		SCTID json.Number `json:"sctid"`
	}
	if err := c.post(ctx, "/sct/generate", body, &result); err != nil {
		return 0, fmt.Errorf("generate sctid for %s: %w", req.UUID, err)
	}
	id, err := strconv.ParseInt(result.SCTID.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("identifier service returned non-numeric sctid %q for %s", result.SCTID, req.UUID)
	}
	return id, nil
}

// CreateSCTIDs implements Client: submit a bulk job, poll until it
// completes or the poll budget runs out, then fetch its records.
func (c *HTTPClient) CreateSCTIDs(ctx context.Context, req BulkCreateRequest) (map[string]int64, error) {
	body := generateBody{
		Namespace:   req.Namespace,
		PartitionID: req.PartitionID,
		SystemIDs:   req.UUIDs,
		Software:    c.cfg.Software,
		Comment:     req.Comment,
	}
	var job struct {
		ID json.Number `json:"id"`
	}
	if err := c.post(ctx, "/sct/bulk/generate", body, &job); err != nil {
		return nil, fmt.Errorf("submit bulk sctid job: %w", err)
	}

	if err := c.awaitJob(ctx, job.ID.String()); err != nil {
		return nil, err
	}

	var records []struct {
		SCTID    json.Number `json:"sctid"`
		SystemID string      `json:"systemId"`
	}
	if err := c.get(ctx, "/bulk/jobs/"+job.ID.String()+"/records", &records); err != nil {
		return nil, fmt.Errorf("fetch bulk sctid records: %w", err)
	}

	ids := make(map[string]int64, len(records))
	for _, record := range records {
		id, err := strconv.ParseInt(record.SCTID.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("identifier service returned non-numeric sctid %q for %s", record.SCTID, record.SystemID)
		}
		ids[record.SystemID] = id
	}
	return ids, nil
}

// awaitJob polls the bulk job until the completed status is observed or
// the poll timeout elapses.
func (c *HTTPClient) awaitJob(ctx context.Context, jobID string) error {
	interval := c.cfg.PollIntervalSeconds
	if interval <= 0 {
		interval = 2
	}
	timeout := c.cfg.PollTimeoutSeconds
	if timeout <= 0 {
		timeout = 300
	}
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)

	for {
		var job struct {
			Status string `json:"status"`
			Log    string `json:"log"`
		}
		if err := c.get(ctx, "/bulk/jobs/"+jobID, &job); err != nil {
			return fmt.Errorf("poll bulk sctid job %s: %w", jobID, err)
		}
		if job.Status == jobStatusCompleted {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("bulk sctid job %s did not complete within %ds (status %s)", jobID, timeout, job.Status)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(interval) * time.Second):
		}
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *HTTPClient) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

func (c *HTTPClient) url(path string) string {
	url := c.cfg.BaseURL + path
	if c.cfg.Token != "" {
		url += "?token=" + c.cfg.Token
	}
	return url
}

func (c *HTTPClient) do(req *http.Request, result any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("identifier service returned %d: %s", resp.StatusCode, string(detail))
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
