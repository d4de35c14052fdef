package archive

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	// Raster decoders used to validate image bytes.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrCorrupt is returned by Probe for bytes that are not a readable image.
var ErrCorrupt = errors.New("image data is corrupt")

// rasterTypes are validated by decoding their header.
var rasterTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

var rasterExts = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true,
	"bmp": true, "tif": true, "tiff": true, "webp": true,
}

// Info describes probed image bytes. Width and Height are zero for vector
// formats.
type Info struct {
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Probe checks image bytes and fills in whatever the container did not
// declare. The content type is sniffed when declaredType is empty; raster
// formats must have a decodable header.
func Probe(data []byte, declaredType, declaredExt string) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("%w: no data", ErrCorrupt)
	}

	sniffed := mimetype.Detect(data)
	info := Info{
		ContentType: strings.ToLower(declaredType),
		Ext:         NormalizeExt(declaredExt),
	}
	if info.ContentType == "" {
		info.ContentType, _, _ = strings.Cut(sniffed.String(), ";")
	}
	if info.Ext == "" {
		info.Ext = NormalizeExt(sniffed.Extension())
	}
	if info.Ext == "" {
		return info, fmt.Errorf("%w: unrecognized content %s", ErrCorrupt, sniffed.String())
	}

	if rasterTypes[info.ContentType] || rasterTypes[sniffed.String()] || rasterExts[info.Ext] {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return info, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		info.Width, info.Height = cfg.Width, cfg.Height
	}
	return info, nil
}
