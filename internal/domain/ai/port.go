package ai

import "context"

// Client is the transport boundary to the multimodal inference service.
// Diagnose returns the raw model text verbatim; parsing happens elsewhere.
type Client interface {
	Diagnose(ctx context.Context, image []byte, mimeType string) (string, error)
}
