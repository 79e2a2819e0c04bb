// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/lightwiki/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing page embeddings.
	DefaultCollectionName = "lightwiki"

	// DefaultPageSize is the number of embeddings fetched per get request
	// while loading.
	DefaultPageSize = 500

	defaultMaxRetries    = 5
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 10 * time.Second

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Source and vector.Sink using Chroma's REST API.
// Records returned by LoadAll are in vector.FormatRaw.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	pageSize       int
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// PageSize bounds each get request made by LoadAll.
	// Defaults to DefaultPageSize.
	PageSize int

	// MaxRetries is how many times connecting to the collection is attempted
	// before giving up. Chroma is often still starting when lightwiki runs.
	MaxRetries int

	// RetryDelay is the initial backoff between connection attempts. It
	// doubles on each retry up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver, retrying the initial
// collection lookup with exponential backoff.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		pageSize:       pageSize,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	ctx := context.Background()
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		collectionID, err := d.getOrCreateCollection(ctx)
		if err == nil {
			d.collectionID = collectionID
			break
		}
		lastErr = err

		if attempt == maxRetries {
			return nil, fmt.Errorf("%w: getting or creating collection %q after %d attempts: %w",
				vector.ErrStorage, collectionName, maxRetries, lastErr)
		}

		logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		time.Sleep(delay)
		delay = min(delay*2, maxDelay)
	}

	logger.Info("connected to Chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", d.collectionID,
	)

	return d, nil
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var collection chromaCollection

	// Try to get existing collection first
	err := d.do(ctx, http.MethodGet, collectionsPath+"/"+d.collectionName, nil, &collection, http.StatusOK)
	if err == nil {
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	err = d.do(ctx, http.MethodPost, collectionsPath, map[string]string{"name": d.collectionName},
		&collection, http.StatusOK, http.StatusCreated)
	if err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}

	return collection.ID, nil
}

// Upsert stores documents with their embeddings.
// If a document with the same ID already exists, it is updated.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	reqBody := chromaUpsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
	}
	for i, doc := range docs {
		reqBody.IDs[i] = doc.ID
		reqBody.Embeddings[i] = doc.Embedding
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("upsert"), reqBody, nil,
		http.StatusOK, http.StatusCreated); err != nil {
		return d.wrapErr(ctx, "upserting documents", err)
	}

	d.logger.Debug("upserted documents to chroma", "count", len(docs))
	return nil
}

// LoadAll pages through the collection and returns every embedding in
// vector.FormatRaw.
func (d *Driver) LoadAll(ctx context.Context) ([]vector.Record, error) {
	var records []vector.Record

	for offset := 0; ; offset += d.pageSize {
		reqBody := chromaGetRequest{
			Include: []string{"embeddings"},
			Limit:   d.pageSize,
			Offset:  offset,
		}

		var getResp chromaGetResponse
		if err := d.do(ctx, http.MethodPost, d.collectionPath("get"), reqBody, &getResp, http.StatusOK); err != nil {
			return nil, d.wrapErr(ctx, "loading embeddings", err)
		}

		page, err := toRecords(getResp)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)

		if len(page) < d.pageSize {
			break
		}
	}

	d.logger.Debug("loaded embeddings from chroma", "rows", len(records))
	return records, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

func (d *Driver) collectionPath(op string) string {
	return fmt.Sprintf("%s/%s/%s", collectionsPath, d.collectionID, op)
}

// do sends a JSON request and decodes the JSON response into out when it is
// non-nil. Any status outside ok is an error carrying the response body.
func (d *Driver) do(ctx context.Context, method, path string, in, out any, ok ...int) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	accepted := false
	for _, code := range ok {
		if resp.StatusCode == code {
			accepted = true
			break
		}
	}
	if !accepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (d *Driver) wrapErr(ctx context.Context, op string, err error) error {
	if cerr := vector.Cancelled(ctx); cerr != nil {
		return cerr
	}
	return fmt.Errorf("%w: chroma %s: %w", vector.ErrStorage, op, err)
}

// toRecords converts a get response into raw-format records. A response whose
// id and embedding lists disagree in length is a decode failure.
func toRecords(resp chromaGetResponse) ([]vector.Record, error) {
	if len(resp.Embeddings) != len(resp.IDs) {
		return nil, fmt.Errorf("%w: chroma returned %d ids but %d embeddings",
			vector.ErrDecode, len(resp.IDs), len(resp.Embeddings))
	}

	records := make([]vector.Record, len(resp.IDs))
	for i, id := range resp.IDs {
		records[i] = vector.Record{
			ID:   id,
			Blob: vector.FormatRaw.Encode(resp.Embeddings[i]),
		}
	}
	return records, nil
}

var (
	_ vector.Source = (*Driver)(nil)
	_ vector.Sink   = (*Driver)(nil)
)
