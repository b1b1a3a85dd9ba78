package entity

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// BoundingBox is expressed in source-image pixels. It travels on the wire as
// [x1, y1, x2, y2].
type BoundingBox struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := jsoniter.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) != 4 {
		return fmt.Errorf("bbox must have 4 coordinates, got %d", len(coords))
	}
	b.X1, b.Y1, b.X2, b.Y2 = coords[0], coords[1], coords[2], coords[3]
	return nil
}

func (b BoundingBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Detection is one object found by the detector. Confidence is in [0, 1].
type Detection struct {
	Class      string      `json:"class"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// StoredFile is an upload persisted under a collision-free name.
type StoredFile struct {
	OriginalName string
	UniqueName   string
	Path         string
	Size         int64
}
