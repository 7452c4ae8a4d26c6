package filetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ImageInfo contains detected image type information.
type ImageInfo struct {
	MIMEType       string
	Extension      string
	Format         string
	Supported      bool
	NeedsTranscode bool
	Description    string
}

// Detector classifies image payloads by magic bytes, not by URL or filename.
type Detector struct{}

func New() *Detector {
	return &Detector{}
}

// Detect sniffs the payload and classifies it. Non-image content comes back
// with Supported=false rather than an error; an error means the payload was
// empty.
func (d *Detector) Detect(data []byte) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	mtype := mimetype.Detect(data)
	info := &ImageInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}
	d.classify(info)
	return info, nil
}

// classify fills Format and the processing flags. JPEG and PNG pass through
// the optimizer natively; GIF and WebP decode but always re-encode to JPEG.
func (d *Detector) classify(info *ImageInfo) {
	switch info.MIMEType {
	case "image/jpeg":
		info.Format = "jpeg"
		info.Supported = true
		info.Description = "JPEG image"
	case "image/png":
		info.Format = "png"
		info.Supported = true
		info.Description = "PNG image"
	case "image/gif":
		info.Format = "gif"
		info.Supported = true
		info.NeedsTranscode = true
		info.Description = "GIF image"
	case "image/webp":
		info.Format = "webp"
		info.Supported = true
		info.NeedsTranscode = true
		info.Description = "WebP image"
	case "image/svg+xml":
		info.Format = "svg"
		info.Description = "SVG vector image (not rasterized)"
	default:
		if strings.HasPrefix(info.MIMEType, "image/") {
			info.Format = strings.TrimPrefix(info.MIMEType, "image/")
			info.Description = fmt.Sprintf("Unsupported image type: %s", info.MIMEType)
		} else {
			info.Description = fmt.Sprintf("Not an image: %s", info.MIMEType)
		}
	}
}

// IsImage reports whether the payload sniffs as any image type.
func (d *Detector) IsImage(data []byte) bool {
	info, err := d.Detect(data)
	return err == nil && strings.HasPrefix(info.MIMEType, "image/")
}
