// Package annotate burns detection boxes and labels into a copy of an image.
package annotate

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"PollinatorTracker/internal/entity"
	"PollinatorTracker/pkg/utils"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var ErrSameFile = errors.New("annotated image must not overwrite its source")

type IAnnotator interface {
	AnnotateFile(src, dst string, detections []entity.Detection) error
	UsesFallbackFont() bool
}

type Options struct {
	Color       color.RGBA
	StrokeWidth int
	// LabelOffset is how far above the box the label's top edge sits.
	LabelOffset int
	FontPaths   []string
	FontSize    float64
	JPEGQuality int
	// MaxPixels caps width*height of decoded sources; <= 0 means
	// utils.MaxImagePixels.
	MaxPixels int64
}

func DefaultOptions() Options {
	return Options{
		Color:       color.RGBA{R: 255, A: 255},
		StrokeWidth: 3,
		LabelOffset: 10,
		FontPaths:   DefaultFontPaths,
		FontSize:    20,
		JPEGQuality: 95,
	}
}

type annotator struct {
	opts  Options
	fonts *fontSource
}

func New(opts Options) IAnnotator {
	if opts.StrokeWidth <= 0 {
		opts.StrokeWidth = 1
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = jpeg.DefaultQuality
	}
	return &annotator{
		opts:  opts,
		fonts: loadFont(opts.FontPaths, opts.FontSize),
	}
}

func (a *annotator) UsesFallbackFont() bool {
	return a.fonts.isFallback()
}

// Label is the text drawn next to a detection box.
func Label(d entity.Detection) string {
	return fmt.Sprintf("%s (%.2f%%)", d.Class, d.Confidence*100)
}

// AnnotateFile decodes src, draws every detection onto a copy and writes the
// result to dst, encoded as PNG or JPEG according to dst's extension. src is
// only read.
func (a *annotator) AnnotateFile(src, dst string, detections []entity.Detection) error {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return ErrSameFile
	}

	img, err := utils.DecodeImageFile(src, a.opts.MaxPixels)
	if err != nil {
		return fmt.Errorf("decode source image: %w", err)
	}

	canvas := a.Annotate(img, detections)

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create annotated image: %w", err)
	}

	if err := a.encode(out, dst, canvas); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("encode annotated image: %w", err)
	}

	return out.Close()
}

// Annotate returns a new RGBA image with detections drawn over img.
func (a *annotator) Annotate(img image.Image, detections []entity.Detection) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	face, release := a.fonts.face()
	defer release()

	for _, d := range detections {
		rect := toRect(d.BBox)
		drawRect(canvas, rect, a.opts.StrokeWidth, a.opts.Color)
		drawLabel(canvas, face, Label(d), image.Pt(rect.Min.X, rect.Min.Y-a.opts.LabelOffset), a.opts.Color)
	}

	return canvas
}

func (a *annotator) encode(f *os.File, name string, img image.Image) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return png.Encode(f, img)
	default:
		return jpeg.Encode(f, img, &jpeg.Options{Quality: a.opts.JPEGQuality})
	}
}

func toRect(b entity.BoundingBox) image.Rectangle {
	return image.Rect(
		int(math.Round(b.X1)), int(math.Round(b.Y1)),
		int(math.Round(b.X2)), int(math.Round(b.Y2)),
	)
}

// drawRect strokes r inward with the given width. Parts outside the image
// are clipped.
func drawRect(img *image.RGBA, r image.Rectangle, width int, c color.Color) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X+1, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width+1, r.Max.X+1, r.Max.Y+1),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y+1),
		image.Rect(r.Max.X-width+1, r.Min.Y, r.Max.X+1, r.Max.Y+1),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(img.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawLabel writes text with its top-left corner at topLeft, pulled back
// inside the image when the box touches the top or left edge.
func drawLabel(img *image.RGBA, face font.Face, text string, topLeft image.Point, c color.Color) {
	bounds := img.Bounds()
	if topLeft.X < bounds.Min.X {
		topLeft.X = bounds.Min.X
	}
	if topLeft.Y < bounds.Min.Y {
		topLeft.Y = bounds.Min.Y
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(topLeft.X, topLeft.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}
