package detectionService

import (
	"context"
	"errors"
	"mime/multipart"

	"PollinatorTracker/internal/api/detection"
	"PollinatorTracker/internal/entity"
	"PollinatorTracker/pkg/annotate"
	"PollinatorTracker/pkg/metrics"
	"PollinatorTracker/pkg/response"
	"PollinatorTracker/pkg/storage"
	"PollinatorTracker/pkg/utils"
	"PollinatorTracker/pkg/video"

	"github.com/sirupsen/logrus"
)

var (
	ImageExtensions = []string{"jpg", "jpeg", "png"}
	VideoExtensions = []string{"mp4", "avi", "mov", "webm"}
)

type IDetectionService interface {
	ProcessUpload(ctx context.Context, file *multipart.FileHeader) (*detection.Result, error)
	ProcessFrame(ctx context.Context, frame []byte) (*detection.Result, error)
	ProcessVideo(ctx context.Context, file *multipart.FileHeader) (*detection.VideoResult, error)
}

// Detector is the part of the detector model the pipeline needs.
type Detector interface {
	Detect(ctx context.Context, imagePath string) ([]entity.Detection, error)
}

type Config struct {
	MaxUploadBytes   int64
	MontageFrames    int
	MontageTileWidth int
}

type detectionService struct {
	log       *logrus.Logger
	cfg       Config
	storage   storage.ItfStorage
	detector  Detector
	annotator annotate.IAnnotator
	frames    video.IFrameExtractor
	metrics   *metrics.Metrics
	utils     utils.IUtils
}

func NewDetectionService(
	log *logrus.Logger,
	cfg Config,
	storage storage.ItfStorage,
	detector Detector,
	annotator annotate.IAnnotator,
	frames video.IFrameExtractor,
	metrics *metrics.Metrics,
	utils utils.IUtils,
) IDetectionService {
	return &detectionService{
		log:       log,
		cfg:       cfg,
		storage:   storage,
		detector:  detector,
		annotator: annotator,
		frames:    frames,
		metrics:   metrics,
		utils:     utils,
	}
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	var respErr *response.Error
	if errors.As(err, &respErr) && respErr.Code < 500 {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
