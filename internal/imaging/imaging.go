// Package imaging handles cover-image uploads: data-URI codec and the
// best-effort compression loop applied before a post image is stored.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
)

// Target box for stored cover images.
const (
	maxWidth  = 600
	maxHeight = 400
)

const (
	startQuality = 80
	qualityStep  = 10
)

var ErrNotDataURI = errors.New("imaging: not a base64 data URI")

// DecodeDataURI splits a `data:<mime>;base64,<payload>` string into its MIME
// type and raw bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, ErrNotDataURI
	}
	mime := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return mime, data, nil
}

func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Compress re-encodes an image as JPEG, downscaled into the target box, at
// decreasing quality until the result fits maxBytes or the quality floor is
// hit. Best effort: the returned bytes may still exceed maxBytes, and the
// caller must treat the budget as advisory.
func Compress(data []byte, maxBytes, minQuality int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	scaled := fitToBox(src)

	var out []byte
	for quality := startQuality; quality >= minQuality; quality -= qualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
		out = buf.Bytes()
		if len(out) <= maxBytes {
			return out, nil
		}
	}
	return out, nil
}

// fitToBox shrinks an image to fit maxWidth x maxHeight, preserving aspect
// ratio. Images already inside the box pass through untouched.
func fitToBox(src image.Image) image.Image {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxWidth && height <= maxHeight {
		return src
	}

	var targetW, targetH int
	if width*maxHeight > height*maxWidth {
		targetW = maxWidth
		targetH = height * maxWidth / width
	} else {
		targetH = maxHeight
		targetW = width * maxHeight / height
	}
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}
	return resample(src, targetW, targetH)
}

// resample is a nearest-neighbor downscale. Quality is secondary here; the
// JPEG quality loop dominates the final byte size.
func resample(src image.Image, width, height int) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < width; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/width
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
