package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/local/imageplanner/internal/imagery"
)

// Client fetches lightweight video metadata and captions straight from the
// public watch page and timedtext endpoints, no API key required.
type Client struct {
	http      *http.Client
	userAgent string
}

// New builds a client. A nil httpClient gets a 15s-timeout default.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		http:      httpClient,
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	}
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/v/([^&\n?#]+)`),
}

// ParseVideoID extracts the video id from any common YouTube URL form.
func ParseVideoID(rawURL string) (string, error) {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("not a recognizable youtube url: %s", rawURL)
}

// Info is basic watch-page metadata.
type Info struct {
	VideoID     string
	Title       string
	Description string
	Duration    float64
	Thumbnail   string
}

var (
	titleRe    = regexp.MustCompile(`"title":"([^"]+)"`)
	descRe     = regexp.MustCompile(`"shortDescription":"([^"]+)"`)
	durationRe = regexp.MustCompile(`"lengthSeconds":"(\d+)"`)
)

// VideoInfo scrapes title, description and duration from the watch page.
func (c *Client) VideoInfo(ctx context.Context, rawURL string) (Info, error) {
	id, err := ParseVideoID(rawURL)
	if err != nil {
		return Info{}, err
	}
	body, err := c.get(ctx, "https://www.youtube.com/watch?v="+id)
	if err != nil {
		return Info{}, fmt.Errorf("fetch watch page: %w", err)
	}

	info := Info{
		VideoID:   id,
		Title:     "Unknown Title",
		Thumbnail: fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", id),
	}
	if m := titleRe.FindStringSubmatch(body); m != nil {
		info.Title = unescapeJSON(m[1])
	}
	if m := descRe.FindStringSubmatch(body); m != nil {
		info.Description = unescapeJSON(m[1])
	}
	if m := durationRe.FindStringSubmatch(body); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil {
			info.Duration = float64(secs)
		}
	}
	return info, nil
}

// Segment is one caption line with its timing.
type Segment struct {
	Start    float64
	Duration float64
	Text     string
}

type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

// Transcript fetches the timedtext captions for a video in the given language.
// An empty lang defaults to English.
func (c *Client) Transcript(ctx context.Context, rawURL, lang string) ([]Segment, error) {
	id, err := ParseVideoID(rawURL)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = "en"
	}
	body, err := c.get(ctx, fmt.Sprintf("https://www.youtube.com/api/timedtext?lang=%s&v=%s", lang, id))
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	return ParseTranscript(body)
}

// ParseTranscript decodes a timedtext XML document into segments.
func ParseTranscript(body string) ([]Segment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("no transcript available")
	}
	var tt timedText
	if err := xml.Unmarshal([]byte(body), &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext: %w", err)
	}
	segments := make([]Segment, 0, len(tt.Texts))
	for _, tx := range tt.Texts {
		text := strings.TrimSpace(tx.Body)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Start: tx.Start, Duration: tx.Dur, Text: text})
	}
	return segments, nil
}

// CaptionTrack is one entry from the timedtext track listing.
type CaptionTrack struct {
	LangCode string
	Name     string
	URL      string
}

type trackList struct {
	Tracks []struct {
		LangCode string `xml:"lang_code,attr"`
		Name     string `xml:"name,attr"`
	} `xml:"track"`
}

// ListCaptionTracks fetches the caption tracks published for a video, with a
// ready-to-fetch timedtext URL per track.
func (c *Client) ListCaptionTracks(ctx context.Context, rawURL string) ([]CaptionTrack, error) {
	id, err := ParseVideoID(rawURL)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "https://www.youtube.com/api/timedtext?type=list&v="+id)
	if err != nil {
		return nil, fmt.Errorf("fetch caption list: %w", err)
	}
	tracks, err := ParseCaptionList(body)
	if err != nil {
		return nil, err
	}
	for i := range tracks {
		tracks[i].URL = fmt.Sprintf("https://www.youtube.com/api/timedtext?lang=%s&v=%s", tracks[i].LangCode, id)
	}
	return tracks, nil
}

// ParseCaptionList decodes a timedtext track listing. An empty body means the
// video simply has no captions, not an error.
func ParseCaptionList(body string) ([]CaptionTrack, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	var tl trackList
	if err := xml.Unmarshal([]byte(body), &tl); err != nil {
		return nil, fmt.Errorf("parse caption list: %w", err)
	}
	tracks := make([]CaptionTrack, 0, len(tl.Tracks))
	for _, tr := range tl.Tracks {
		lang := tr.LangCode
		if lang == "" {
			lang = "en"
		}
		name := tr.Name
		if name == "" {
			name = lang
		}
		tracks = append(tracks, CaptionTrack{LangCode: lang, Name: name})
	}
	return tracks, nil
}

// Action verbs that mark a caption line as a likely key moment.
var actionWords = []string{
	"click", "select", "open", "install", "download", "configure",
	"press", "choose", "enter", "type", "run", "start", "create",
}

// MomentsFromTranscript derives key moments from caption lines containing
// action verbs, tiering the first occurrences higher. It caps the result so a
// chatty tutorial does not flood the capture plan.
func MomentsFromTranscript(segments []Segment, max int) []imagery.VideoMoment {
	if max <= 0 {
		max = 8
	}
	var moments []imagery.VideoMoment
	for _, seg := range segments {
		if len(moments) >= max {
			break
		}
		lower := strings.ToLower(seg.Text)
		for _, w := range actionWords {
			if strings.Contains(lower, w) {
				importance := imagery.ImportanceMedium
				if len(moments) < 3 {
					importance = imagery.ImportanceHigh
				}
				moments = append(moments, imagery.VideoMoment{
					Timestamp:   seg.Start,
					Description: seg.Text,
					Importance:  importance,
					ActionType:  "step",
				})
				break
			}
		}
	}
	return moments
}

// Enrich fills in what the caller left blank on a video record: duration from
// the watch page, then transcript text and inferred key moments. Fields the
// caller populated are kept as-is.
func (c *Client) Enrich(ctx context.Context, v *imagery.Video) error {
	if v == nil || v.ID == "" {
		return fmt.Errorf("no video id")
	}
	watchURL := "https://www.youtube.com/watch?v=" + v.ID

	if v.Duration == 0 {
		info, err := c.VideoInfo(ctx, watchURL)
		if err != nil {
			return err
		}
		v.Duration = info.Duration
	}

	if v.Transcript == "" && len(v.KeyMoments) == 0 {
		// Prefer whichever caption track the video actually publishes;
		// fall back to English when the listing is unavailable.
		lang := ""
		if tracks, err := c.ListCaptionTracks(ctx, watchURL); err == nil && len(tracks) > 0 {
			lang = tracks[0].LangCode
		}
		segments, err := c.Transcript(ctx, watchURL, lang)
		if err != nil {
			return err
		}
		lines := make([]string, len(segments))
		for i, seg := range segments {
			lines[i] = seg.Text
		}
		v.Transcript = strings.Join(lines, " ")
		v.KeyMoments = MomentsFromTranscript(segments, 0)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unescapeJSON undoes the escaping found in inline watch-page JSON. The page
// escapes ampersands as & rather than entity-encoding them.
func unescapeJSON(s string) string {
	r := strings.NewReplacer(`&`, "&", `\"`, `"`, `\\`, `\`, `\n`, "\n", `\/`, "/")
	return r.Replace(s)
}
