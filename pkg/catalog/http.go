package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxCatalogSize caps remote catalog documents.
const maxCatalogSize = 4 << 20

// fetch reads a catalog from the case-type endpoint. The endpoint may answer
// with the API envelope, which Parse unwraps.
func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	if l.http == nil {
		return nil, fmt.Errorf("catalog: no http client for %s", location)
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch %s: %w", location, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch %s: %w", location, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: fetch %s: unexpected status %s", location, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogSize+1))
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch %s: %w", location, err)
	}
	if len(data) > maxCatalogSize {
		return nil, fmt.Errorf("catalog: %s exceeds %d bytes", location, maxCatalogSize)
	}
	return data, nil
}
