package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxServerResponse = 16 << 20

func (a *App) serverURL(override string) string {
	if s := strings.TrimRight(override, "/"); s != "" {
		return s
	}
	return strings.TrimRight(a.Config.Server.PublicURL, "/")
}

// serverGet fetches endpoint from a running arbfinder server and returns the body of a 200 reply.
func serverGet(ctx context.Context, endpoint string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxServerResponse))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > 512 {
			body = body[:512]
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, sanitizeInline(string(body)))
	}
	return body, nil
}
