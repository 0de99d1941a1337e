// Package extractor calls the document extraction service (Python/OCR+LLM).
// The service turns an uploaded file into structured document metadata; this
// client treats it as opaque and only validates the envelope.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/infra/resilience"
)

var tracer = otel.Tracer("extractor")

// Client calls the extraction service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewClient creates a new extraction client.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// extractRequest is the wire format of the extraction endpoint. Content is
// base64-encoded by encoding/json.
type extractRequest struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// Extract sends a document to the extraction service and returns the
// structured metadata, with retry, circuit breaker, and tracing.
func (c *Client) Extract(ctx context.Context, filename string, content []byte) (*domain.DocumentMetadata, error) {
	ctx, span := tracer.Start(ctx, "Extractor.Extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.filename", filename),
		attribute.Int("document.size_bytes", len(content)),
	)

	var meta domain.DocumentMetadata

	result, err := c.cb.Execute(func() (any, error) {
		var innerErr error
		innerErr = resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(extractRequest{Filename: filename, Content: content})
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/v1/extract", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusUnprocessableEntity {
				return resilience.Permanent(&domain.ErrValidation{Field: "document", Message: "extraction service rejected the file"})
			}
			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("extractor API returned status %d", resp.StatusCode)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return resilience.Permanent(err)
				}
				return err
			}

			return json.NewDecoder(resp.Body).Decode(&meta)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &meta, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "extractor", Err: err}
	}

	return result.(*domain.DocumentMetadata), nil
}
