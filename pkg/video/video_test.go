package video

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"PollinatorTracker/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFrame(t *testing.T, dir string, i int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	p := filepath.Join(dir, fmt.Sprintf("frame_%04d.jpg", i))
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
	return p
}

func TestBuildMontageGrid(t *testing.T) {
	dir := t.TempDir()
	var frames []string
	for i := 1; i <= 5; i++ {
		frames = append(frames, writeFrame(t, dir, i, color.White))
	}

	dst := filepath.Join(dir, "montage.jpg")
	require.NoError(t, BuildMontage(frames, dst, 9, 32))

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)

	// 5 tiles -> 3 columns x 2 rows of 32x24
	assert.Equal(t, 96, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestBuildMontageLimitsFrames(t *testing.T) {
	dir := t.TempDir()
	var frames []string
	for i := 1; i <= 20; i++ {
		frames = append(frames, writeFrame(t, dir, i, color.Black))
	}

	dst := filepath.Join(dir, "montage.jpg")
	require.NoError(t, BuildMontage(frames, dst, 4, 16))

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 24, cfg.Height)
}

func TestBuildMontageWithoutFrames(t *testing.T) {
	err := BuildMontage(nil, filepath.Join(t.TempDir(), "m.jpg"), 9, 32)
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestPickFramesSpreadsEvenly(t *testing.T) {
	frames := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	assert.Equal(t, []string{"a", "c", "e", "g"}, pickFrames(frames, 4))
	assert.Equal(t, frames, pickFrames(frames, 0))
	assert.Equal(t, frames[:2], pickFrames(frames[:2], 9))
}

func TestPickFramesWithoutLimitUsesDefault(t *testing.T) {
	frames := make([]string, 40)
	for i := range frames {
		frames[i] = fmt.Sprintf("f%02d", i)
	}
	assert.Len(t, pickFrames(frames, 0), DefaultMontageFrames)
	assert.Len(t, pickFrames(frames, -1), DefaultMontageFrames)
}

func TestBuildMontageRejectsOversizedFrame(t *testing.T) {
	dir := t.TempDir()
	bomb := filepath.Join(dir, "frame_0002.png")
	require.NoError(t, os.WriteFile(bomb, oversizedPNGHeader(), 0o644))
	frames := []string{writeFrame(t, dir, 1, color.White), bomb}

	dst := filepath.Join(dir, "montage.jpg")
	err := BuildMontage(frames, dst, 9, 32)
	assert.ErrorIs(t, err, utils.ErrImageTooLarge)
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

// oversizedPNGHeader declares a 20000x20000 image and carries no pixel data.
func oversizedPNGHeader() []byte {
	ihdr := []byte{'I', 'H', 'D', 'R', 0, 0, 0x4e, 0x20, 0, 0, 0x4e, 0x20, 8, 2, 0, 0, 0}
	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}

func TestExtractWithoutFFmpeg(t *testing.T) {
	e := NewFFmpeg(filepath.Join(t.TempDir(), "no-such-ffmpeg"), 1)
	assert.False(t, e.Available())

	_, err := e.Extract(context.Background(), "clip.mp4", t.TempDir())
	assert.ErrorIs(t, err, ErrFFmpegNotFound)
}
