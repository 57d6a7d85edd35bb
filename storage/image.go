package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	xdraw "golang.org/x/image/draw"
)

const (
	// MaxEdge caps the longest side of a stored photo.
	MaxEdge = 1280
	// JPEGQuality is the encoding quality of stored photos.
	JPEGQuality = 75
	// MaxUploadBytes limits the raw upload.
	MaxUploadBytes = 12 << 20
)

// Downscale decodes a JPEG or PNG, shrinks it so the longest edge is at most
// MaxEdge and re-encodes it as JPEG. Smaller images keep their size.
func Downscale(r io.Reader) ([]byte, error) {
	src, _, err := image.Decode(io.LimitReader(r, MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("decode image: empty bounds")
	}

	dst := src
	if w > MaxEdge || h > MaxEdge {
		nw, nh := fit(w, h, MaxEdge)
		canvas := image.NewRGBA(image.Rect(0, 0, nw, nh))
		xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), src, b, xdraw.Src, nil)
		dst = canvas
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

// fit scales (w, h) so the longer side equals edge, keeping the ratio.
func fit(w, h, edge int) (int, int) {
	if w >= h {
		nh := h * edge / w
		if nh < 1 {
			nh = 1
		}
		return edge, nh
	}
	nw := w * edge / h
	if nw < 1 {
		nw = 1
	}
	return nw, edge
}
