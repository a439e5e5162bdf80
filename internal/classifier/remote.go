// Package classifier provides the model capability used by the triage engine.
// The neural network itself runs out of process as a sidecar service; Remote
// speaks its JSON contract. Uniform is the stand-in used when no sidecar is
// configured, so the triage loop stays usable before a model exists.
package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/lewtec/triador/internal/domain"
)

// Remote calls a model sidecar over HTTP. The sidecar owns the weights, the
// training loop and the category index; this client only ferries images and
// labels.
type Remote struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewRemote creates a sidecar client. Fit calls can take arbitrarily long, so
// the client carries no global timeout; callers bound them with contexts.
func NewRemote(baseURL string, logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{baseURL: baseURL, client: &http.Client{}, logger: logger}
}

type predictRequest struct {
	ImageData string `json:"image_data"`
}

type predictResponse struct {
	Predictions map[string]float64 `json:"predictions"`
}

type fitExample struct {
	ContentHash string `json:"content_hash"`
	Category    string `json:"category"`
	ImageData   string `json:"image_data"`
}

type fitRequest struct {
	Examples []fitExample `json:"examples"`
}

// Predict returns the sidecar's per-category confidences for an image.
func (r *Remote) Predict(ctx context.Context, image []byte) (map[string]float64, error) {
	var resp predictResponse
	req := predictRequest{ImageData: base64.StdEncoding.EncodeToString(image)}
	if err := r.post(ctx, "/predict", req, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

// FitIncremental updates the model with newly committed examples only.
func (r *Remote) FitIncremental(ctx context.Context, examples []domain.TrainingExample) error {
	r.logger.Info("incremental fit", zap.Int("examples", len(examples)))
	return r.post(ctx, "/fit", toFitRequest(examples), nil)
}

// FitInitial trains the model from scratch on the full labeled set.
func (r *Remote) FitInitial(ctx context.Context, examples []domain.TrainingExample) error {
	r.logger.Info("initial fit", zap.Int("examples", len(examples)))
	return r.post(ctx, "/fit-initial", toFitRequest(examples), nil)
}

func toFitRequest(examples []domain.TrainingExample) fitRequest {
	req := fitRequest{Examples: make([]fitExample, 0, len(examples))}
	for _, ex := range examples {
		req.Examples = append(req.Examples, fitExample{
			ContentHash: ex.ContentHash,
			Category:    ex.Category,
			ImageData:   base64.StdEncoding.EncodeToString(ex.Data),
		})
	}
	return req
}

func (r *Remote) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("while encoding request for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("while building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("while calling classifier %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("classifier %s returned %d: %s", path, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("while decoding classifier %s response: %w", path, err)
	}
	return nil
}

// Verify that Remote implements domain.Classifier
var _ domain.Classifier = (*Remote)(nil)
