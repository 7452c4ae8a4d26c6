package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates readiness checks for the external dependencies of the
// pipeline: the status store, the plan archive, the browser used for
// screenshot capture, and YouTube itself.
type Checker struct {
	redis         RedisPinger
	archiveBucket string
	httpClient    *http.Client
}

// Options configures the Checker.
type Options struct {
	Redis         RedisPinger
	ArchiveBucket string
	HTTPClient    *http.Client
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Redis   Status `json:"redis"`
	Archive Status `json:"archive"`
	Browser Status `json:"browser"`
	YouTube Status `json:"youtube"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Checker{
		redis:         opts.Redis,
		archiveBucket: opts.ArchiveBucket,
		httpClient:    client,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis:   c.checkRedis(ctx),
		Archive: c.checkArchive(ctx),
		Browser: c.checkBrowser(),
		YouTube: c.checkYouTube(ctx),
	}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{OK: false, Message: "client unavailable"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Message: err.Error()}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkArchive(ctx context.Context) Status {
	if c.archiveBucket == "" {
		return Status{OK: false, Message: "Bucket not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return Status{OK: false, Message: err.Error()}
	}
	cli := s3.NewFromConfig(cfg)
	_, err = cli.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &c.archiveBucket})
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

// checkBrowser looks for any Chrome-family binary chromedp can drive.
func (c *Checker) checkBrowser() Status {
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return Status{OK: true, Message: name}
		}
	}
	return Status{OK: false, Message: "Binary not found"}
}

func (c *Checker) checkYouTube(ctx context.Context) Status {
	req, _ := http.NewRequestWithContext(ctx, http.MethodHead, "https://www.youtube.com", nil)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Status{OK: false, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return Status{OK: true, Message: "Reachable"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
