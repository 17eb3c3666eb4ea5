package stub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Client is an offline diagnoser for local development without an API key.
// It emits schema-shaped JSON derived from image properties only; swap in
// the real client via config for actual diagnoses.
type Client struct{}

func New() *Client { return &Client{} }

type output struct {
	Diagnosis  string  `json:"diagnosis"`
	Advice     string  `json:"advice"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
}

func (c *Client) Diagnose(_ context.Context, image []byte, mimeType string) (string, error) {
	out := output{
		Diagnosis:  fmt.Sprintf("Stub diagnosis for a %d-byte %s image; no model was consulted.", len(image), mimeType),
		Advice:     "Configure a real inference provider to receive treatment advice.",
		Severity:   "low",
		Confidence: 0.5,
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
