// Package video splits uploaded clips into still frames and tiles them.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
)

var ErrFFmpegNotFound = errors.New("ffmpeg executable not found")

type IFrameExtractor interface {
	// Extract writes frames of input into outDir as frame_0001.jpg, ... and
	// returns their paths in order.
	Extract(ctx context.Context, input, outDir string) ([]string, error)
	Available() bool
}

type ffmpegExtractor struct {
	binary string
	fps    float64
}

func NewFFmpeg(binary string, fps float64) IFrameExtractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	if fps <= 0 {
		fps = 1
	}
	return &ffmpegExtractor{binary: binary, fps: fps}
}

func (e *ffmpegExtractor) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

func (e *ffmpegExtractor) Extract(ctx context.Context, input, outDir string) ([]string, error) {
	bin, err := exec.LookPath(e.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFFmpegNotFound, e.binary)
	}

	pattern := filepath.Join(outDir, "frame_%04d.jpg")
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vf", "fps="+strconv.FormatFloat(e.fps, 'f', -1, 64),
		"-q:v", "2",
		pattern,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	frames, err := filepath.Glob(filepath.Join(outDir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(frames)

	return frames, nil
}
