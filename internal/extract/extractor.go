package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/local/imageplanner/internal/filetype"
	"github.com/local/imageplanner/internal/imagery"
)

// Options bounds one extraction pass.
type Options struct {
	MaxImages int `json:"maxImages,omitempty"`
	MinWidth  int `json:"minWidth,omitempty"`
	MinHeight int `json:"minHeight,omitempty"`
}

// DefaultOptions returns the baseline extraction configuration.
func DefaultOptions() Options {
	return Options{MaxImages: 10, MinWidth: 100, MinHeight: 100}
}

// HTMLExtractor discovers candidate images in page markup. One malformed
// image never fails the batch; per-item problems come back as messages.
type HTMLExtractor struct {
	client   *http.Client
	detector *filetype.Detector
}

// New builds an extractor. A nil client gets a 10s-timeout default.
func New(client *http.Client) *HTMLExtractor {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTMLExtractor{client: client, detector: filetype.New()}
}

// Extract parses the content HTML and returns candidate images plus per-item
// extraction errors. Images declaring dimensions below the configured minimum
// are dropped; images without declared dimensions are kept and sized later.
func (e *HTMLExtractor) Extract(ctx context.Context, content imagery.Content, opts Options) ([]imagery.Image, []string, error) {
	if opts.MaxImages <= 0 {
		opts.MaxImages = 10
	}
	if strings.TrimSpace(content.HTML) == "" {
		return nil, nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content.HTML))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	base, _ := url.Parse(content.SourceURL)

	var images []imagery.Image
	var errs []string
	seen := map[string]bool{}

	doc.Find("img").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(images) >= opts.MaxImages {
			return false
		}
		src, ok := s.Attr("src")
		if !ok || src == "" {
			src, _ = s.Attr("data-src")
		}
		if src == "" {
			errs = append(errs, fmt.Sprintf("img[%d]: missing src", i))
			return true
		}
		if strings.HasPrefix(src, "data:") {
			errs = append(errs, fmt.Sprintf("img[%d]: inline data URI skipped", i))
			return true
		}

		abs, err := resolveURL(base, src)
		if err != nil {
			errs = append(errs, fmt.Sprintf("img[%d]: bad src %q: %v", i, src, err))
			return true
		}
		if seen[abs] {
			return true
		}
		seen[abs] = true

		w := attrInt(s, "width")
		h := attrInt(s, "height")
		if (w > 0 && w < opts.MinWidth) || (h > 0 && h < opts.MinHeight) {
			return true
		}

		alt, _ := s.Attr("alt")
		title, _ := s.Attr("title")
		images = append(images, imagery.Image{
			URL:     abs,
			Alt:     strings.TrimSpace(alt),
			Caption: strings.TrimSpace(title),
			Width:   w,
			Height:  h,
			Format:  formatFromURL(abs),
		})
		return true
	})

	log.Debug().Int("images", len(images)).Int("errors", len(errs)).
		Str("source", content.SourceURL).Msg("extracted candidate images")
	return images, errs, nil
}

// ValidateImageURL checks that an image URL is reachable and actually serves
// an image. It prefers HEAD and falls back to a ranged GET with magic-byte
// detection for servers that refuse HEAD or lie about content types.
func (e *HTMLExtractor) ValidateImageURL(ctx context.Context, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("image url %s: status %d", imageURL, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
			return nil
		}
	}

	// HEAD refused or inconclusive: fetch the first bytes and sniff.
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Range", "bytes=0-1023")
	resp, err = e.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", imageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("image url %s: status %d", imageURL, resp.StatusCode)
	}
	head, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return fmt.Errorf("read %s: %w", imageURL, err)
	}
	info, err := e.detector.Detect(head)
	if err != nil {
		return fmt.Errorf("sniff %s: %w", imageURL, err)
	}
	if !strings.HasPrefix(info.MIMEType, "image/") {
		return fmt.Errorf("url %s serves %s, not an image", imageURL, info.MIMEType)
	}
	return nil
}

func resolveURL(base *url.URL, src string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return "", err
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", ref.Scheme)
	}
	return ref.String(), nil
}

func attrInt(s *goquery.Selection, name string) int {
	v, ok := s.Attr(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func formatFromURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	switch ext {
	case "jpg", "jpeg":
		return "jpeg"
	case "png", "gif", "webp", "svg", "bmp":
		return ext
	default:
		return ""
	}
}
