package detectionHandler

import (
	"time"

	"PollinatorTracker/internal/api/detection"
	contextPkg "PollinatorTracker/pkg/context"
	"PollinatorTracker/pkg/handlerUtil"
	"PollinatorTracker/pkg/log"
	"PollinatorTracker/pkg/response"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

// ServeUpload returns an original or annotated image by its exact stored name.
func (h *DetectionHandler) ServeUpload(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	name := ctx.Params("filename")
	path, err := h.storage.Lookup(name)
	if err != nil {
		return errHandler.Handle(ctx, requestID, response.WithDetails(detection.ErrFileNotFound, err.Error()), ctx.Path(), "serve_upload")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  name,
	}).Debug("Serving uploaded file")

	return ctx.SendFile(path)
}

// Health re-checks the detector and always answers 200; a missing detector
// only degrades the service.
func (h *DetectionHandler) Health(ctx *fiber.Ctx) error {
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	available := h.model.Refresh(c)

	resp := detection.HealthResponse{
		Status:         "ok",
		Detector:       h.model.Name(),
		ModelAvailable: available,
	}
	if !available {
		resp.Status = "degraded"
		resp.Reason = h.model.Reason()
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
}
