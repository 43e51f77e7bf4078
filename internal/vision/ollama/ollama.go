package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vbonduro/wastecapture/internal/photostore"
	"github.com/vbonduro/wastecapture/internal/vision"
)

type OllamaClassifier struct {
	host   string
	model  string
	photos photostore.PhotoStore
	client *http.Client
}

func NewOllamaClassifier(host, model string, photos photostore.PhotoStore) *OllamaClassifier {
	return &OllamaClassifier{
		host:   host,
		model:  model,
		photos: photos,
		client: &http.Client{},
	}
}

func (a *OllamaClassifier) Classify(ctx context.Context, photoRef string) (*vision.Result, error) {
	imageData, _, err := vision.ReadPhoto(ctx, a.photos, photoRef)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"model":  a.model,
		"prompt": vision.ClassificationPrompt,
		"images": []string{base64.StdEncoding.EncodeToString(imageData)},
		"stream": false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call ollama: %v", vision.ErrClassificationFailed, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ollama returned status %d", vision.ErrClassificationFailed, resp.StatusCode)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", vision.ErrClassificationFailed, err)
	}

	return vision.ParseResponse(respBody.Response)
}
