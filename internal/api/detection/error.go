package detection

import (
	"net/http"

	"PollinatorTracker/pkg/response"
)

var (
	ErrNoFilePart           = response.NewError(http.StatusBadRequest, "No file part in the request")
	ErrEmptyFilename        = response.NewError(http.StatusBadRequest, "No selected file")
	ErrInvalidFilename      = response.NewError(http.StatusBadRequest, "Invalid file name")
	ErrUnsupportedType      = response.NewError(http.StatusBadRequest, "Invalid file type. Only images allowed.")
	ErrUnsupportedVideoType = response.NewError(http.StatusBadRequest, "Invalid file type. Only videos allowed.")
	ErrUnsupportedFrame     = response.NewError(http.StatusBadRequest, "Frame is not a JPEG or PNG image")
	ErrPayloadTooLarge      = response.NewError(http.StatusRequestEntityTooLarge, "File too large")
	ErrModelUnavailable     = response.NewError(http.StatusInternalServerError, "Detection model is not available")
	ErrProcessing           = response.NewError(http.StatusInternalServerError, "Error processing image")
	ErrVideoProcessing      = response.NewError(http.StatusInternalServerError, "Error processing video")
	ErrFileNotFound         = response.NewError(http.StatusNotFound, "File not found")
)
