package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// maxImageEdge bounds the decoded image before embedding; cells are far
// smaller, so anything bigger is wasted bytes in the PDF.
const maxImageEdge = 300

// ImageFetcher downloads and prepares product images for embedding. Bytes are
// cached by URL so repeated renders of the same catalog do not refetch.
type ImageFetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string][]byte
}

// NewImageFetcher constructs a fetcher with the given per-request timeout. A
// single slow URL must not hang a render indefinitely.
func NewImageFetcher(timeout time.Duration) *ImageFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ImageFetcher{
		client: &http.Client{Timeout: timeout},
		cache:  make(map[string][]byte),
	}
}

// Fetch returns the raw image bytes for a URL.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	cached, ok := f.cache[url]
	f.mu.Unlock()
	if ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("render: build image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render: fetch image: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("render: fetch image: status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("render: read image: %w", err)
	}
	data := buf.Bytes()

	f.mu.Lock()
	f.cache[url] = data
	f.mu.Unlock()
	return data, nil
}

// PrepareFile fetches, decodes and downscales an image, writing it as a PNG
// into dir. The caller owns cleanup of dir.
func (f *ImageFetcher) PrepareFile(ctx context.Context, url, dir string) (string, error) {
	data, err := f.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("render: decode image: %w", err)
	}
	img = downscale(img)

	path := filepath.Join(dir, uuid.NewString()+".png")
	if err := imaging.Save(img, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("render: save image: %w", err)
	}
	return path, nil
}

// downscale fits the image inside the maximum edge box, preserving the
// aspect ratio. Smaller images pass through untouched.
func downscale(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxImageEdge && b.Dy() <= maxImageEdge {
		return img
	}
	return imaging.Fit(img, maxImageEdge, maxImageEdge, imaging.Lanczos)
}
