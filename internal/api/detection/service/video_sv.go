package detectionService

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"

	"PollinatorTracker/internal/api/detection"
	contextPkg "PollinatorTracker/pkg/context"
	"PollinatorTracker/pkg/response"
	"PollinatorTracker/pkg/storage"
	"PollinatorTracker/pkg/video"

	"github.com/sirupsen/logrus"
)

// ProcessVideo stores a clip, extracts frames and tiles a sample of them
// into a montage. No detection is run on video frames.
func (s *detectionService) ProcessVideo(ctx context.Context, file *multipart.FileHeader) (result *detection.VideoResult, err error) {
	defer func() {
		s.metrics.RecordUpload(outcome(err))
	}()

	if err := s.validate(file, VideoExtensions, detection.ErrUnsupportedVideoType); err != nil {
		return nil, err
	}
	if s.frames == nil {
		return nil, response.WithDetails(detection.ErrVideoProcessing, "frame extraction is not configured")
	}

	src, err := file.Open()
	if err != nil {
		return nil, response.WithDetails(detection.ErrVideoProcessing, err.Error())
	}
	defer src.Close()

	stored, err := s.save(src, file.Filename)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"request_id":  contextPkg.GetRequestID(ctx),
		"file_name":   stored.OriginalName,
		"unique_name": stored.UniqueName,
	}

	framesDir, err := s.storage.FramesDir(stored.UniqueName)
	if err != nil {
		return nil, response.WithDetails(detection.ErrVideoProcessing, err.Error())
	}

	frames, err := s.frames.Extract(ctx, stored.Path, framesDir)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("[detectionService.ProcessVideo] frame extraction failed")
		if errors.Is(err, video.ErrFFmpegNotFound) {
			return nil, response.WithDetails(detection.ErrVideoProcessing, "ffmpeg is not installed")
		}
		return nil, response.WithDetails(detection.ErrVideoProcessing, err.Error())
	}

	result = &detection.VideoResult{
		StoredName: stored.UniqueName,
		Frames:     len(frames),
	}

	if len(frames) > 0 {
		montageName := storage.MontageName(stored.UniqueName)
		montagePath := filepath.Join(s.storage.Dir(), montageName)
		if err := video.BuildMontage(frames, montagePath, s.cfg.MontageFrames, s.cfg.MontageTileWidth); err != nil {
			s.log.WithFields(fields).WithError(err).Warn("[detectionService.ProcessVideo] montage failed")
		} else {
			result.MontageName = montageName
		}
	}

	fields["frames"] = len(frames)
	s.log.WithFields(fields).Info("[detectionService.ProcessVideo] video stored")

	return result, nil
}
