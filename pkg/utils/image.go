package utils

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
)

// MaxImagePixels matches the decompression bomb threshold of common imaging
// libraries.
const MaxImagePixels = 178_956_970

var ErrImageTooLarge = errors.New("image dimensions exceed the pixel limit")

// DecodeImageFile reads the header of path before decoding it, so an image
// claiming more than maxPixels pixels is rejected before its buffer is
// allocated. maxPixels <= 0 means MaxImagePixels.
func DecodeImageFile(path string, maxPixels int64) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeImage(f, maxPixels)
}

func DecodeImage(r io.ReadSeeker, maxPixels int64) (image.Image, error) {
	if maxPixels <= 0 {
		maxPixels = MaxImagePixels
	}

	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, err
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(r)
	return img, err
}
