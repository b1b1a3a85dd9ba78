package detection

import "PollinatorTracker/internal/entity"

const (
	NoPresence   = "None"
	NoFrequency  = "N/A"
	VideoMessage = "Video uploaded. Frame-by-frame detection is not available yet."
)

// Summary is the aggregate view of one image's detections.
type Summary struct {
	Presence    string
	Count       int
	Frequency   string
	Accuracy    float64
	ClassCounts map[string]int
}

// Result is what the pipeline produces for a single processed upload.
type Result struct {
	Summary
	Detections    []entity.Detection
	StoredName    string
	AnnotatedName string
}

type VideoResult struct {
	StoredName  string
	MontageName string
	Frames      int
}

type UploadResponse struct {
	Presence       string             `json:"presence"`
	Count          int                `json:"count"`
	Frequency      string             `json:"frequency"`
	Accuracy       float64            `json:"accuracy"`
	Detections     []entity.Detection `json:"detections"`
	ClassCounts    map[string]int     `json:"class_counts"`
	File           string             `json:"file"`
	AnnotatedImage string             `json:"annotated_image"`
}

type VideoUploadResponse struct {
	Presence       string             `json:"presence"`
	Count          int                `json:"count"`
	Frequency      string             `json:"frequency"`
	Accuracy       float64            `json:"accuracy"`
	Detections     []entity.Detection `json:"detections"`
	File           string             `json:"file"`
	AnnotatedImage string             `json:"annotated_image"`
	IsVideo        bool               `json:"is_video"`
	Frames         int                `json:"frames"`
	Message        string             `json:"message"`
}

// FrameResponse is sent back for every frame received on the detection socket.
type FrameResponse struct {
	Presence       string             `json:"presence"`
	Count          int                `json:"count"`
	Frequency      string             `json:"frequency"`
	Accuracy       float64            `json:"accuracy"`
	Detections     []entity.Detection `json:"detections"`
	ClassCounts    map[string]int     `json:"class_counts"`
	AnnotatedImage string             `json:"annotated_image"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	Detector       string `json:"detector"`
	ModelAvailable bool   `json:"model_available"`
	Reason         string `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
