package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Export downloads a product's price history from a running server as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.ProductID == "" {
		return errors.New("--product is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	base := a.serverURL(opts.Server) + "/products/" + url.PathEscape(opts.ProductID) + "/history"

	if opts.CSVPath != "" {
		query := url.Values{"format": {"csv"}}
		if opts.Limit > 0 {
			query.Set("limit", strconv.Itoa(opts.Limit))
		}
		if err := a.downloadTo(ctx, base+"?"+query.Encode(), opts.CSVPath, opts); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := a.downloadTo(ctx, base+"/chart.png", opts.PNGPath, opts); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) downloadTo(ctx context.Context, endpoint, path string, opts ExportOptions) error {
	body, err := serverGet(ctx, endpoint, opts.Timeout)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	a.Logger.Info().Str("path", path).Int("bytes", len(body)).Msg("history exported")
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
