package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"logbook/internal/domain"
)

// OCRResult is what the odometer photo recognizer returns. A low confidence
// is data to store alongside the reading, not an error.
type OCRResult struct {
	OdometerKm float64 `json:"odometer_km"`
	Confidence float64 `json:"confidence"`
}

// Recognizer is the interface for the external odometer OCR service.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (*OCRResult, error)
}

// Exporter is the interface for the external report renderer. It consumes a
// finalized report and returns an artifact reference; this service never
// formats documents itself.
type Exporter interface {
	Export(ctx context.Context, report *domain.VatReport) (string, error)
}

// HTTPRecognizer calls the odometer OCR service over HTTP. The image is
// posted raw; the service replies with the reading and its confidence.
type HTTPRecognizer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRecognizer creates a recognizer backed by the service at baseURL.
// Per-attempt deadlines come from the caller's context.
func NewHTTPRecognizer(baseURL string) *HTTPRecognizer {
	return &HTTPRecognizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, image []byte) (*OCRResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/recognize", bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr service returned %d", resp.StatusCode)
	}

	var result OCRResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HTTPExporter calls the report rendering service over HTTP.
type HTTPExporter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExporter creates an exporter backed by the renderer at baseURL.
func NewHTTPExporter(baseURL string) *HTTPExporter {
	return &HTTPExporter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

type exportReply struct {
	ArtifactRef string `json:"artifact_ref"`
}

func (e *HTTPExporter) Export(ctx context.Context, report *domain.VatReport) (string, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/render", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("export service returned %d", resp.StatusCode)
	}

	var reply exportReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", err
	}
	if reply.ArtifactRef == "" {
		return "", errors.New("export service returned no artifact reference")
	}
	return reply.ArtifactRef, nil
}

// callExternal invokes fn with a per-attempt deadline and bounded retries.
// A deadline overrun after all attempts surfaces as ErrExternalServiceTimeout,
// never as ledger corruption; other errors abort immediately.
func callExternal[T any](ctx context.Context, timeout time.Duration, attempts int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := fn(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}

		if !errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("%w: %d attempts: %v", ErrExternalServiceTimeout, attempts, lastErr)
}
