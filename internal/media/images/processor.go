package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// minDimension rejects thumbnails and icons.
	minDimension = 200
	// aspect ratio limits reject banners and strips.
	minAspectRatio = 0.3
	maxAspectRatio = 3.0
	// maxDimension caps stored images; larger images are scaled down.
	maxDimension = 1024
	jpegQuality  = 85
)

// Process decodes, validates, and re-encodes downloaded image bytes as JPEG.
// Images larger than maxDimension on either side are scaled down with
// aspect ratio preserved.
func Process(data []byte) ([]byte, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width < minDimension || height < minDimension {
		return nil, 0, 0, fmt.Errorf("image too small: %dx%d", width, height)
	}
	ratio := float64(width) / float64(height)
	if ratio < minAspectRatio || ratio > maxAspectRatio {
		return nil, 0, 0, fmt.Errorf("extreme aspect ratio: %dx%d", width, height)
	}

	if width > maxDimension || height > maxDimension {
		img = scaleDown(img, maxDimension)
		b := img.Bounds()
		width, height = b.Dx(), b.Dy()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), width, height, nil
}

// scaleDown resizes an image so its longest side equals maxSide, using
// bilinear interpolation.
func scaleDown(img image.Image, maxSide int) image.Image {
	bounds := img.Bounds()
	srcWidth, srcHeight := bounds.Dx(), bounds.Dy()

	var dstWidth, dstHeight int
	if srcWidth > srcHeight {
		dstWidth = maxSide
		dstHeight = (srcHeight * maxSide) / srcWidth
	} else {
		dstHeight = maxSide
		dstWidth = (srcWidth * maxSide) / srcHeight
	}
	if dstWidth < 1 {
		dstWidth = 1
	}
	if dstHeight < 1 {
		dstHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
