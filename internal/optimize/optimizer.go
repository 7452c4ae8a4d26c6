package optimize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"sync"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"github.com/local/imageplanner/internal/imagery"
)

// Options is the size/quality budget for one optimization batch.
type Options struct {
	MaxWidth    int `json:"maxWidth,omitempty"`
	MaxHeight   int `json:"maxHeight,omitempty"`
	Quality     int `json:"quality,omitempty"`
	Concurrency int `json:"concurrency,omitempty"`
}

// DefaultOptions returns the baseline optimization budget.
func DefaultOptions() Options {
	return Options{MaxWidth: 1200, MaxHeight: 900, Quality: 80, Concurrency: 4}
}

func (o Options) withDefaults() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = 1200
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = 900
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 80
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	return o
}

// ImageOptimizer downscales and re-encodes images to fit a byte/pixel budget.
// Batch items are independent and run concurrently under a worker limit.
type ImageOptimizer struct {
	client  *http.Client
	limiter HostLimiter
}

// HostLimiter throttles fetches per remote host. Optional.
type HostLimiter interface {
	InCooldown(ctx context.Context, host string) bool
	Cooldown(ctx context.Context, host string)
	Reset(ctx context.Context, host string)
	Acquire(host string) (func(), bool)
}

// New builds an optimizer. A nil client gets a 20s-timeout default.
func New(client *http.Client) *ImageOptimizer {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ImageOptimizer{client: client}
}

// WithLimiter attaches a per-host fetch limiter and returns the optimizer.
func (o *ImageOptimizer) WithLimiter(l HostLimiter) *ImageOptimizer {
	o.limiter = l
	return o
}

// Optimize processes a batch. Every input image yields exactly one result in
// input order; items that cannot be fetched or decoded pass through unchanged
// with a ratio of 1.0 and an error message, so placement still sees them.
func (o *ImageOptimizer) Optimize(ctx context.Context, images []imagery.Image, opts Options) ([]imagery.OptimizationResult, []string, error) {
	opts = opts.withDefaults()
	if len(images) == 0 {
		return nil, nil, nil
	}

	results := make([]imagery.OptimizationResult, len(images))
	itemErrs := make([]string, len(images))

	sem := make(chan struct{}, opts.Concurrency)
	var wg sync.WaitGroup
	for i := range images {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := o.optimizeOne(ctx, images[i], opts)
			if err != nil {
				itemErrs[i] = fmt.Sprintf("optimize %s: %v", images[i].URL, err)
				res = passthrough(images[i])
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	var errs []string
	for _, e := range itemErrs {
		if e != "" {
			errs = append(errs, e)
		}
	}
	log.Debug().Int("images", len(images)).Int("errors", len(errs)).Msg("optimized image batch")
	return results, errs, nil
}

func (o *ImageOptimizer) optimizeOne(ctx context.Context, img imagery.Image, opts Options) (imagery.OptimizationResult, error) {
	raw := img.Data
	if len(raw) == 0 {
		fetched, err := o.fetch(ctx, img.URL)
		if err != nil {
			return imagery.OptimizationResult{}, err
		}
		raw = fetched
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return imagery.OptimizationResult{}, fmt.Errorf("decode: %w", err)
	}

	bounds := decoded.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tw, th := fitWithin(w, h, opts.MaxWidth, opts.MaxHeight)
	if tw != w || th != h {
		dst := image.NewRGBA(image.Rect(0, 0, tw, th))
		draw.CatmullRom.Scale(dst, dst.Bounds(), decoded, bounds, draw.Over, nil)
		decoded = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return imagery.OptimizationResult{}, fmt.Errorf("encode jpeg: %w", err)
	}

	out := img
	out.Width = tw
	out.Height = th
	out.Format = "jpeg"
	out.SizeBytes = buf.Len()
	out.Data = buf.Bytes()

	return imagery.OptimizationResult{
		Image:            out,
		OriginalSize:     len(raw),
		OptimizedSize:    buf.Len(),
		CompressionRatio: float64(buf.Len()) / float64(len(raw)),
	}, nil
}

func passthrough(img imagery.Image) imagery.OptimizationResult {
	size := img.SizeBytes
	if size == 0 {
		size = len(img.Data)
	}
	return imagery.OptimizationResult{
		Image:            img,
		OriginalSize:     size,
		OptimizedSize:    size,
		CompressionRatio: 1.0,
	}
}

// fitWithin scales (w, h) down to fit maxW x maxH preserving aspect ratio.
// Images already inside the budget keep their dimensions.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	tw := int(float64(w) * scale)
	th := int(float64(h) * scale)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

func (o *ImageOptimizer) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if o.limiter != nil {
		host := req.URL.Host
		if o.limiter.InCooldown(ctx, host) {
			return nil, fmt.Errorf("fetch: host %s cooling down", host)
		}
		release, ok := o.limiter.Acquire(host)
		if !ok {
			return nil, fmt.Errorf("fetch: host %s at inflight limit", host)
		}
		defer release()
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		if o.limiter != nil {
			o.limiter.Cooldown(ctx, req.URL.Host)
		}
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}
	if o.limiter != nil {
		o.limiter.Reset(ctx, req.URL.Host)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
