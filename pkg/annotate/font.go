package annotate

import (
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// DefaultFontPaths are tried, in order, after the configured font path.
var DefaultFontPaths = []string{
	"arial.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"/Library/Fonts/Arial.ttf",
	`C:\Windows\Fonts\arial.ttf`,
}

// fontSource hands out faces for one annotation at a time. opentype faces
// keep scratch buffers and must not be shared between goroutines, so only the
// parsed font is kept and a face is built per call.
type fontSource struct {
	font *opentype.Font
	size float64
}

// loadFont parses the first readable TrueType/OpenType file in paths. A nil
// font means the built-in bitmap face will be used.
func loadFont(paths []string, size float64) *fontSource {
	src := &fontSource{size: size}
	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		f, err := opentype.Parse(data)
		if err != nil {
			continue
		}
		src.font = f
		break
	}
	return src
}

// face never fails: any problem building the TrueType face falls back to
// basicfont.Face7x13. The returned func releases the face.
func (s *fontSource) face() (font.Face, func()) {
	if s.font != nil && s.size > 0 {
		f, err := opentype.NewFace(s.font, &opentype.FaceOptions{
			Size:    s.size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			return f, func() { _ = f.Close() }
		}
	}
	return basicfont.Face7x13, func() {}
}

func (s *fontSource) isFallback() bool {
	return s.font == nil
}
