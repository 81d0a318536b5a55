package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

var _ CatalogClient = (*googleBooksClient)(nil) // ensure googleBooksClient implements CatalogClient.

// CatalogClient issues read-only queries against the external book catalog.
// Each call performs exactly one request: no retries, no caching.
type CatalogClient interface {
	Search(ctx context.Context, query SearchQuery, maxResults int) ([]BookRecord, error)
	FetchByID(ctx context.Context, id string) (BookRecord, error)
}

type googleBooksClient struct {
	logger   *zap.Logger
	config   *CatalogConfig
	client   *http.Client
	sanitize *bluemonday.Policy
}

// NewCatalogClient provides a client for the google books volumes api.
func NewCatalogClient(logger *zap.Logger, config *CatalogConfig) CatalogClient {
	gc := &googleBooksClient{
		logger: logger,
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
	if config.SanitizeDescription {
		gc.sanitize = bluemonday.StrictPolicy()
	}
	return gc
}

// Search runs a volumes query and returns the decoded items. An envelope
// without items is an empty result, not an error.
func (gc *googleBooksClient) Search(ctx context.Context, query SearchQuery, maxResults int) ([]BookRecord, error) {
	params := url.Values{}
	params.Set("maxResults", strconv.Itoa(maxResults))
	if gc.config.APIKey != "" {
		params.Set("key", gc.config.APIKey)
	}
	// q goes first and keeps its `+` separators.
	endpoint := gc.config.BaseURL + "/volumes?q=" + query.Encode() + "&" + params.Encode()

	var envelope volumesEnvelope
	if err := gc.get(ctx, "search", endpoint, &envelope); err != nil {
		return nil, err
	}

	records := make([]BookRecord, 0, len(envelope.Items))
	for _, item := range envelope.Items {
		records = append(records, gc.record(item))
	}
	gc.logger.Debug("catalog: search succeeded", zap.String("catalog.query", query.String()), zap.Int("catalog.count", len(records)))
	return records, nil
}

// FetchByID retrieves a single volume by its identifier.
func (gc *googleBooksClient) FetchByID(ctx context.Context, id string) (BookRecord, error) {
	endpoint := gc.config.BaseURL + "/volumes/" + url.PathEscape(id)
	if gc.config.APIKey != "" {
		endpoint += "?key=" + url.QueryEscape(gc.config.APIKey)
	}

	var item volume
	if err := gc.get(ctx, "lookup", endpoint, &item); err != nil {
		return BookRecord{}, err
	}
	if item.ID == "" {
		return BookRecord{}, &CatalogError{Op: "lookup", Kind: KindNotFound, Err: fmt.Errorf("empty volume for id %q", id)}
	}
	return gc.record(item), nil
}

// get performs the request and decodes a successful json response into out.
func (gc *googleBooksClient) get(ctx context.Context, op, endpoint string, out interface{}) error {
	start := time.Now()
	status := "error"
	defer func() {
		CatalogRequestsTotal.WithLabelValues(op, status).Inc()
		CatalogRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &CatalogError{Op: op, Kind: KindNetwork, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := gc.client.Do(req)
	if err != nil {
		return &CatalogError{Op: op, Kind: KindNetwork, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		gc.logger.Debug("catalog: unexpected status code",
			zap.String("catalog.op", op),
			zap.Int("catalog.status", resp.StatusCode),
			zap.String("catalog.response", string(body)),
		)
		kind := KindNetwork
		if op == "lookup" && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest) {
			kind = KindNotFound
		}
		return &CatalogError{Op: op, Kind: kind, StatusCode: resp.StatusCode}
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &CatalogError{Op: op, Kind: KindNetwork, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (gc *googleBooksClient) record(v volume) BookRecord {
	record := v.toRecord()
	if gc.sanitize != nil && record.Description != "" {
		// the strict policy strips every tag but leaves entities escaped.
		record.Description = strings.TrimSpace(html.UnescapeString(gc.sanitize.Sanitize(record.Description)))
	}
	return record
}
