package video

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	"PollinatorTracker/pkg/utils"

	"golang.org/x/image/draw"
)

var ErrNoFrames = errors.New("no frames to compose")

// DefaultMontageFrames bounds the montage when the caller passes no limit.
const DefaultMontageFrames = 9

// BuildMontage scales up to maxFrames frames, spread evenly over the clip,
// to tileWidth pixels wide and lays them out in a near-square grid written
// to dst as JPEG.
func BuildMontage(frames []string, dst string, maxFrames, tileWidth int) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if tileWidth <= 0 {
		tileWidth = 320
	}

	picked := pickFrames(frames, maxFrames)

	tiles := make([]image.Image, 0, len(picked))
	for _, p := range picked {
		img, err := decodeFile(p)
		if err != nil {
			return err
		}
		tiles = append(tiles, img)
	}

	first := tiles[0].Bounds()
	tileHeight := int(math.Round(float64(first.Dy()) * float64(tileWidth) / float64(first.Dx())))
	if tileHeight <= 0 {
		tileHeight = tileWidth
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(tiles)))))
	rows := (len(tiles) + cols - 1) / cols

	canvas := image.NewRGBA(image.Rect(0, 0, cols*tileWidth, rows*tileHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for i, tile := range tiles {
		x := (i % cols) * tileWidth
		y := (i / cols) * tileHeight
		draw.BiLinear.Scale(canvas, image.Rect(x, y, x+tileWidth, y+tileHeight), tile, tile.Bounds(), draw.Src, nil)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create montage: %w", err)
	}
	if err := jpeg.Encode(out, canvas, &jpeg.Options{Quality: 90}); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("encode montage: %w", err)
	}
	return out.Close()
}

func pickFrames(frames []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMontageFrames
	}
	if len(frames) <= limit {
		return frames
	}
	out := make([]string, 0, limit)
	step := float64(len(frames)) / float64(limit)
	for i := 0; i < limit; i++ {
		out = append(out, frames[int(float64(i)*step)])
	}
	return out
}

func decodeFile(path string) (image.Image, error) {
	img, err := utils.DecodeImageFile(path, utils.MaxImagePixels)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", path, err)
	}
	return img, nil
}
