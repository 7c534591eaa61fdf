package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dishplayapp/dishplay-server/internal/logger"
)

const (
	// maxImageSize limits download size to prevent memory exhaustion.
	maxImageSize = 10 * 1024 * 1024 // 10MB

	// downloadTimeout is the maximum time for an image download.
	downloadTimeout = 30 * time.Second

	// Some image hosts refuse requests without a browser user agent.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// StoredImage describes a downloaded image after processing and storage.
type StoredImage struct {
	ID       string
	Path     string
	Width    int
	Height   int
	BlurHash string
}

// Downloader fetches remote dish images, validates and re-encodes them, and
// stores them content-addressed with a BlurHash placeholder.
type Downloader struct {
	httpClient *http.Client
	storage    *Storage
	logger     *logger.Logger
}

// NewDownloader creates a new image downloader.
func NewDownloader(storage *Storage, log *logger.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: downloadTimeout,
		},
		storage: storage,
		logger:  log,
	}
}

// Download fetches an image from the URL, processes it, and stores it.
func (d *Downloader) Download(ctx context.Context, url string) (*StoredImage, error) {
	if url == "" {
		return nil, fmt.Errorf("empty image URL")
	}

	downloadCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	processed, width, height, err := Process(data)
	if err != nil {
		return nil, fmt.Errorf("process image from %s: %w", url, err)
	}

	id, err := d.storage.Save(processed)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	hash, err := ComputeBlurHash(processed)
	if err != nil {
		// The stored image is still usable without a placeholder.
		d.logger.WithError(err).Warn("blurhash computation failed", "id", id)
		hash = ""
	}

	return &StoredImage{
		ID:       id,
		Path:     d.storage.Path(id),
		Width:    width,
		Height:   height,
		BlurHash: hash,
	}, nil
}
