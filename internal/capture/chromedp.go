package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/local/imageplanner/internal/imagery"
)

// ChromeCapturer captures video frames by screenshotting the embedded player
// in a headless browser. One failed shot never aborts the batch.
type ChromeCapturer struct {
	allocOpts   []chromedp.ExecAllocatorOption
	loadTimeout time.Duration
}

// NewChromeCapturer builds a capturer with the usual headless flags.
func NewChromeCapturer(loadTimeout time.Duration) *ChromeCapturer {
	if loadTimeout <= 0 {
		loadTimeout = 20 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("mute-audio", true),
	)
	return &ChromeCapturer{allocOpts: opts, loadTimeout: loadTimeout}
}

// Capture takes screenshots at the planned timestamps and returns them as
// image records plus per-shot error messages.
func (c *ChromeCapturer) Capture(ctx context.Context, video imagery.Video, opts Options) ([]imagery.Image, []string, error) {
	shots := PlanShots(video, opts)
	if len(shots) == 0 {
		return nil, nil, nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var images []imagery.Image
	var errs []string
	for _, shot := range shots {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Sprintf("capture aborted: %v", ctx.Err()))
			break
		}
		img, err := c.captureOne(browserCtx, video.ID, shot)
		if err != nil {
			errs = append(errs, fmt.Sprintf("screenshot at %.0fs: %v", shot.Timestamp, err))
			continue
		}
		images = append(images, img)
	}

	log.Debug().Str("video", video.ID).Int("shots", len(images)).Int("errors", len(errs)).
		Msg("captured video screenshots")
	return images, errs, nil
}

func (c *ChromeCapturer) captureOne(browserCtx context.Context, videoID string, shot Shot) (imagery.Image, error) {
	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.loadTimeout)
	defer cancelTimeout()

	embedURL := fmt.Sprintf("https://www.youtube.com/embed/%s?start=%d&autoplay=1&controls=0",
		videoID, int(shot.Timestamp))

	var buf []byte
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(1280, 720),
		chromedp.Navigate(embedURL),
		chromedp.Sleep(2*time.Second),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return imagery.Image{}, err
	}

	alt := shot.Description
	if alt == "" {
		alt = fmt.Sprintf("Video frame at %.0fs", shot.Timestamp)
	}
	return imagery.Image{
		URL:       fmt.Sprintf("youtube://%s?t=%d", videoID, int(shot.Timestamp)),
		Alt:       alt,
		Width:     1280,
		Height:    720,
		Format:    "png",
		SizeBytes: len(buf),
		Relevance: importanceRelevance(shot.Importance),
		Data:      buf,
	}, nil
}
