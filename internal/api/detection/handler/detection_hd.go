package detectionHandler

import (
	"errors"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"PollinatorTracker/internal/api/detection"
	"PollinatorTracker/internal/entity"
	"PollinatorTracker/internal/middleware"
	contextPkg "PollinatorTracker/pkg/context"
	"PollinatorTracker/pkg/handlerUtil"
	"PollinatorTracker/pkg/log"
	"PollinatorTracker/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

func (h *DetectionHandler) Upload(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.cfg.RequestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := formFile(ctx, "file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_form_file")
	}

	if file != nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing image upload")
	}

	result, err := h.detectionService.ProcessUpload(c, file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_upload")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id":  requestID,
			"path":        ctx.Path(),
			"unique_name": result.StoredName,
			"count":       result.Count,
		}).Info("Image processed")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.UploadResponse{
			Presence:       result.Presence,
			Count:          result.Count,
			Frequency:      result.Frequency,
			Accuracy:       result.Accuracy,
			Detections:     result.Detections,
			ClassCounts:    result.ClassCounts,
			File:           result.StoredName,
			AnnotatedImage: h.fileURL(h.baseURL(ctx), result.AnnotatedName),
		})
	}
}

func (h *DetectionHandler) UploadVideo(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.cfg.RequestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := formFile(ctx, "file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_form_file")
	}

	result, err := h.detectionService.ProcessVideo(c, file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_video")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		montage := ""
		if result.MontageName != "" {
			montage = h.fileURL(h.baseURL(ctx), result.MontageName)
		}
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.VideoUploadResponse{
			Presence:       detection.NoPresence,
			Frequency:      detection.NoFrequency,
			Detections:     []entity.Detection{},
			File:           result.StoredName,
			AnnotatedImage: montage,
			IsVideo:        true,
			Frames:         result.Frames,
			Message:        detection.VideoMessage,
		})
	}
}

// handleDetectSocket treats every binary message as one image and answers
// it with the same summary the upload endpoint returns.
func (h *DetectionHandler) handleDetectSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	baseURL, _ := c.Locals(baseURLLocal).(string)

	fields := log.Fields{
		"request_id": requestID,
		"path":       "/ws/detect",
	}
	h.log.WithFields(fields).Info("Detection WebSocket client connected")
	defer h.log.WithFields(fields).Info("Detection WebSocket client disconnected")

	errHandler := func(err error) bool {
		body := detection.ErrorResponse{Error: err.Error()}
		var respErr *response.Error
		if errors.As(err, &respErr) {
			body.Details = respErr.Details
		}
		if writeErr := c.WriteJSON(body); writeErr != nil {
			h.log.WithFields(fields).Errorf("Error sending error response: %v", writeErr)
			return false
		}
		return true
	}

	for {
		if err := c.SetReadDeadline(time.Now().Add(h.cfg.RequestTimeout)); err != nil {
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithFields(fields).Errorf("Detection WebSocket error: %v", err)
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			if !errHandler(detection.ErrUnsupportedFrame) {
				break
			}
			continue
		}

		frameCtx, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), requestID), h.cfg.RequestTimeout)
		result, err := h.detectionService.ProcessFrame(frameCtx, message)
		cancel()

		if err != nil {
			h.log.WithFields(fields).Warnf("Error processing frame: %v", err)
			if !errHandler(err) {
				break
			}
			continue
		}

		if err := c.WriteJSON(detection.FrameResponse{
			Presence:       result.Presence,
			Count:          result.Count,
			Frequency:      result.Frequency,
			Accuracy:       result.Accuracy,
			Detections:     result.Detections,
			ClassCounts:    result.ClassCounts,
			AnnotatedImage: h.fileURL(baseURL, result.AnnotatedName),
		}); err != nil {
			h.log.WithFields(fields).Errorf("Error writing JSON response: %v", err)
			break
		}
	}
}

// formFile returns the uploaded file for field. A part sent with an empty
// file name is parsed as a plain value; it is reported as a header with no
// name so validation answers "no selected file". A nil header means the
// field is missing.
func formFile(ctx *fiber.Ctx, field string) (*multipart.FileHeader, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		if errors.Is(err, fiber.ErrRequestEntityTooLarge) {
			return nil, detection.ErrPayloadTooLarge
		}
		return nil, nil
	}

	if files := form.File[field]; len(files) > 0 {
		return files[0], nil
	}
	if _, ok := form.Value[field]; ok {
		return &multipart.FileHeader{}, nil
	}
	return nil, nil
}

func (h *DetectionHandler) baseURL(ctx *fiber.Ctx) string {
	if h.cfg.PublicBaseURL != "" {
		return h.cfg.PublicBaseURL
	}
	return ctx.BaseURL()
}

func (h *DetectionHandler) fileURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/uploads/" + url.PathEscape(name)
}
