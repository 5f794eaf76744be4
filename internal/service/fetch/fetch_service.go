package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ougirez/covtrack/internal/pkg/constants"
	"github.com/ougirez/covtrack/internal/pkg/logger"
)

type Service struct {
	client   *http.Client
	retries  uint64
	interval time.Duration
}

func NewFetchService(client *http.Client, retries uint64) *Service {
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	return &Service{client: client, retries: retries, interval: time.Second}
}

// Fetch downloads every file from baseURL into dir. Each file replaces the
// local copy only once it has been received completely.
func (s *Service) Fetch(ctx context.Context, baseURL, dir string, files []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create '%s': %w", constants.ErrIO, dir, err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, name := range files {
		name := name
		eg.Go(func() error {
			url := strings.TrimSuffix(baseURL, "/") + "/" + name
			if err := s.download(egCtx, url, filepath.Join(dir, name)); err != nil {
				return fmt.Errorf("%w: download %s: %w", constants.ErrIO, url, err)
			}
			logger.Infof(ctx, "fetched %s", name)
			return nil
		})
	}

	return eg.Wait()
}

func (s *Service) download(ctx context.Context, url, path string) (err error) {
	var resp *http.Response
	err = backoff.Retry(
		func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if reqErr != nil {
				return backoff.Permanent(reqErr)
			}

			var httpErr error
			resp, httpErr = s.client.Do(req)
			if httpErr != nil {
				return fmt.Errorf("http.Get: %w", httpErr)
			}
			// Проверяем статус ответа, он должен быть 200 OK
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return fmt.Errorf("status code error: %d %s", resp.StatusCode, resp.Status)
			}

			return nil
		},
		backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(s.interval), s.retries),
			ctx,
		),
	)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close reader: %w", closeErr)
		}
	}()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
