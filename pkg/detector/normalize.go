package detector

import (
	"math"

	"PollinatorTracker/internal/entity"
)

const predictionFields = 6

// Normalize turns raw [x1, y1, x2, y2, confidence, class] rows into
// detections, preserving order. Rows that are too short, reference an
// unknown class, carry non-finite values, a confidence outside [0, 1] or a
// box without area are dropped. The result is never nil.
func Normalize(predictions [][]float64, names ClassNames) []entity.Detection {
	out := make([]entity.Detection, 0, len(predictions))

	for _, row := range predictions {
		if len(row) < predictionFields {
			continue
		}
		if !allFinite(row[:predictionFields]) {
			continue
		}

		cls := row[5]
		if cls < 0 || cls != math.Trunc(cls) {
			continue
		}
		name, ok := names[int(cls)]
		if !ok || name == "" {
			continue
		}

		conf := row[4]
		if conf < 0 || conf > 1 {
			continue
		}

		box := entity.BoundingBox{X1: row[0], Y1: row[1], X2: row[2], Y2: row[3]}
		if !box.Valid() {
			continue
		}

		out = append(out, entity.Detection{
			Class:      name,
			Confidence: conf,
			BBox:       box,
		})
	}

	return out
}

func allFinite(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
