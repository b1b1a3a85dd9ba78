package detectionService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"time"

	"PollinatorTracker/internal/api/detection"
	"PollinatorTracker/internal/entity"
	contextPkg "PollinatorTracker/pkg/context"
	"PollinatorTracker/pkg/detector"
	"PollinatorTracker/pkg/response"
	"PollinatorTracker/pkg/storage"

	"github.com/sirupsen/logrus"
)

func (s *detectionService) ProcessUpload(ctx context.Context, file *multipart.FileHeader) (result *detection.Result, err error) {
	defer func() {
		s.metrics.RecordUpload(outcome(err))
	}()

	if err := s.validate(file, ImageExtensions, detection.ErrUnsupportedType); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, response.WithDetails(detection.ErrProcessing, err.Error())
	}
	defer src.Close()

	stored, err := s.save(src, file.Filename)
	if err != nil {
		return nil, err
	}

	return s.process(ctx, stored)
}

// ProcessFrame runs the image pipeline on raw bytes received over the
// detection socket. The format is sniffed from the content.
func (s *detectionService) ProcessFrame(ctx context.Context, frame []byte) (result *detection.Result, err error) {
	defer func() {
		s.metrics.RecordUpload(outcome(err))
	}()

	if len(frame) == 0 {
		return nil, detection.ErrNoFilePart
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(frame)) > s.cfg.MaxUploadBytes {
		return nil, detection.ErrPayloadTooLarge
	}

	ext, err := s.utils.SniffImageExtension(frame)
	if err != nil {
		return nil, detection.ErrUnsupportedFrame
	}

	stored, err := s.save(bytes.NewReader(frame), "frame."+ext)
	if err != nil {
		return nil, err
	}

	return s.process(ctx, stored)
}

// validate checks presence, name, extension and size, in that order, before
// anything touches the disk.
func (s *detectionService) validate(file *multipart.FileHeader, allowed []string, errType error) error {
	if file == nil {
		return detection.ErrNoFilePart
	}
	if file.Filename == "" {
		return detection.ErrEmptyFilename
	}
	if !s.utils.HasAllowedExtension(file.Filename, allowed) {
		return errType
	}
	if s.cfg.MaxUploadBytes > 0 && file.Size > s.cfg.MaxUploadBytes {
		return detection.ErrPayloadTooLarge
	}
	return nil
}

func (s *detectionService) save(src io.Reader, name string) (*entity.StoredFile, error) {
	stored, err := s.storage.Save(src, name)
	if errors.Is(err, storage.ErrInvalidName) {
		return nil, detection.ErrInvalidFilename
	}
	if err != nil {
		return nil, response.WithDetails(detection.ErrProcessing, err.Error())
	}
	return stored, nil
}

// process runs detect, annotate and summarize on a stored image. The stored
// original is kept even when a later step fails.
func (s *detectionService) process(ctx context.Context, stored *entity.StoredFile) (*detection.Result, error) {
	fields := logrus.Fields{
		"request_id":  contextPkg.GetRequestID(ctx),
		"file_name":   stored.OriginalName,
		"unique_name": stored.UniqueName,
	}

	dets, err := s.detector.Detect(ctx, stored.Path)
	if err != nil {
		if errors.Is(err, detector.ErrUnavailable) {
			return nil, detection.ErrModelUnavailable
		}
		s.log.WithFields(fields).WithError(err).Error("[detectionService.process] inference failed")
		return nil, response.WithDetails(detection.ErrProcessing, err.Error())
	}
	if dets == nil {
		dets = []entity.Detection{}
	}

	annotatedName := storage.AnnotatedName(stored.UniqueName)
	annotatedPath := filepath.Join(filepath.Dir(stored.Path), annotatedName)

	start := time.Now()
	if err := s.annotator.AnnotateFile(stored.Path, annotatedPath, dets); err != nil {
		s.log.WithFields(fields).WithError(err).Error("[detectionService.process] annotation failed")
		return nil, response.WithDetails(detection.ErrProcessing, fmt.Sprintf("annotate image: %v", err))
	}
	s.metrics.ObserveAnnotation(time.Since(start))

	summary := Summarize(dets)
	s.metrics.RecordDetections(summary.ClassCounts)

	fields["count"] = summary.Count
	fields["presence"] = summary.Presence
	s.log.WithFields(fields).Debug("[detectionService.process] image processed")

	return &detection.Result{
		Summary:       summary,
		Detections:    dets,
		StoredName:    stored.UniqueName,
		AnnotatedName: annotatedName,
	}, nil
}
