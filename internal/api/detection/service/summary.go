package detectionService

import (
	"fmt"

	"PollinatorTracker/internal/api/detection"
	"PollinatorTracker/internal/entity"
)

// Summarize aggregates detections. The most frequent class wins; on a tie
// the class that reached the winning count first in detection order is
// kept. Accuracy is the highest confidence over all detections.
func Summarize(detections []entity.Detection) detection.Summary {
	summary := detection.Summary{
		Presence:    detection.NoPresence,
		Frequency:   detection.NoFrequency,
		Count:       len(detections),
		ClassCounts: make(map[string]int),
	}

	best := 0
	for _, d := range detections {
		summary.ClassCounts[d.Class]++
		if n := summary.ClassCounts[d.Class]; n > best {
			best = n
			summary.Presence = d.Class
		}
		if d.Confidence > summary.Accuracy {
			summary.Accuracy = d.Confidence
		}
	}

	if best > 0 {
		summary.Frequency = fmt.Sprintf("%s: %d times", summary.Presence, best)
	}

	return summary
}
