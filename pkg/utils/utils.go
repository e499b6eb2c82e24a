package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrEmptyFrame = errors.New("empty frame")

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	DecodeFrame(frame []byte) (image.Image, string, error)
	EncodeForLandmarks(img image.Image) ([]byte, error)
}

type utils struct {
	maxWidth  int
	maxHeight int
	quality   int
}

func New() IUtils {
	return &utils{
		maxWidth:  640,
		maxHeight: 480,
		quality:   85,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// DecodeFrame decodes a jpeg, png or webp payload sent by the browser.
func (u *utils) DecodeFrame(frame []byte) (image.Image, string, error) {
	if len(frame) == 0 {
		return nil, "", ErrEmptyFrame
	}

	img, format, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, "", fmt.Errorf("decode frame: %w", err)
	}

	return img, format, nil
}

// EncodeForLandmarks downsizes img to fit maxWidth x maxHeight, keeping the
// aspect ratio, and re-encodes it as jpeg.
func (u *utils) EncodeForLandmarks(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()
	if origWidth == 0 || origHeight == 0 {
		return nil, ErrEmptyFrame
	}

	newWidth, newHeight := fitWithin(origWidth, origHeight, u.maxWidth, u.maxHeight)

	if newWidth != origWidth || newHeight != origHeight {
		dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: u.quality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	if scaledHeight := maxWidth * height / width; scaledHeight <= maxHeight {
		return maxWidth, max(1, scaledHeight)
	}
	return max(1, maxHeight*width/height), maxHeight
}
