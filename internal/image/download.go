package imagepkg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/disintegration/imaging"

	"github.com/youruser/cardbatch/internal/util"
)

// DecodeImage decodes any format imaging understands, applying EXIF
// orientation so phone photos come out upright.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// DownloadImage fetches and decodes an image from an http(s) URL.
func DownloadImage(ctx context.Context, url string, timeout time.Duration) (image.Image, error) {
	body, err := util.GetBytes(ctx, url, timeout)
	if err != nil {
		return nil, err
	}
	return DecodeImage(bytes.NewReader(body))
}
