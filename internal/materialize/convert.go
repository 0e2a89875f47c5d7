// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package materialize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Converter turns raw PDF bytes into Markdown with <!-- page N --> markers.
// The byte-level PDF parsing itself lives behind an external service.
type Converter interface {
	Convert(ctx context.Context, pdf []byte) (string, error)
}

// RemoteConverter posts PDF bytes to a markitdown-style conversion service
// and returns the Markdown it produces.
type RemoteConverter struct {
	URL    string
	Client *http.Client
}

// Convert implements Converter.
func (c *RemoteConverter) Convert(ctx context.Context, pdf []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(pdf))
	if err != nil {
		return "", fmt.Errorf("creating conversion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("conversion service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("conversion service returned HTTP %d", resp.StatusCode)
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading conversion output: %w", err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return "", fmt.Errorf("conversion service produced empty output")
	}
	return string(out), nil
}
