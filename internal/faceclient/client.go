package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoCollection is returned by SearchByImage when the face collection has
// not been created yet. Callers treat it as "no match".
var ErrNoCollection = errors.New("face collection not found")

// Match is one similarity-ranked candidate from a gallery search. ExternalID
// is the caller-supplied reference attached at index time.
type Match struct {
	FaceID     string  `json:"face_id"`
	ExternalID string  `json:"external_id"`
	Similarity float64 `json:"similarity"`
}

// IndexResult contains the face-index response.
type IndexResult struct {
	FaceID     string  `json:"face_id"`
	ExternalID string  `json:"external_id"`
	Confidence float64 `json:"confidence"`
}

// Client calls the face recognition service. One client is bound to a single
// named collection.
type Client struct {
	BaseURL    string
	Collection string
	HTTP       *http.Client
	Skip       bool
}

// New creates a client. Skip short-circuits every call with permissive mock
// responses so the service runs without the face backend in dev.
func New(baseURL, collection string, skip bool) *Client {
	return &Client{
		BaseURL:    baseURL,
		Collection: collection,
		Skip:       skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // face processing can take time
		},
	}
}

// EnsureCollection creates the collection, treating "already exists" as
// success. Called once at startup.
func (c *Client) EnsureCollection(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	body, _ := json.Marshal(map[string]string{"collection_id": c.Collection})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/collections", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}
	return nil
}

// IndexFace indexes the face in image (base64 data URL or raw base64) under
// externalID and returns the assigned face id.
func (c *Client) IndexFace(ctx context.Context, externalID, image string) (*IndexResult, error) {
	if c.Skip {
		return &IndexResult{FaceID: "skip-" + externalID, ExternalID: externalID, Confidence: 0.99}, nil
	}
	if image == "" {
		return nil, fmt.Errorf("image required")
	}

	body, _ := json.Marshal(map[string]string{
		"external_id": externalID,
		"image":       image,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/collections/"+c.Collection+"/faces", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out IndexResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// SearchByImage runs a 1:N search against the collection and returns
// candidates at or above threshold (a 0-100 similarity percentage). Returns
// ErrNoCollection when the collection does not exist yet.
func (c *Client) SearchByImage(ctx context.Context, image string, threshold float64, maxMatches int) ([]Match, error) {
	if c.Skip {
		return nil, nil
	}
	if image == "" {
		return nil, fmt.Errorf("image required")
	}
	if maxMatches <= 0 {
		maxMatches = 5
	}

	body, _ := json.Marshal(map[string]any{
		"image":       image,
		"threshold":   threshold,
		"max_matches": maxMatches,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/collections/"+c.Collection+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoCollection
	}
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Matches []Match `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Matches, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}
