package detector

import (
	"math"
	"testing"

	"PollinatorTracker/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNames = ClassNames{0: "bee", 1: "butterfly", 2: "wasp"}

func TestNormalizeKeepsValidRowsInOrder(t *testing.T) {
	got := Normalize([][]float64{
		{10, 10, 50, 60, 0.91, 0},
		{5, 5, 20, 20, 0.5, 2},
	}, testNames)

	require.Len(t, got, 2)
	assert.Equal(t, entity.Detection{
		Class:      "bee",
		Confidence: 0.91,
		BBox:       entity.BoundingBox{X1: 10, Y1: 10, X2: 50, Y2: 60},
	}, got[0])
	assert.Equal(t, "wasp", got[1].Class)
}

func TestNormalizeDropsInvalidRows(t *testing.T) {
	tests := []struct {
		name string
		row  []float64
	}{
		{"too short", []float64{1, 2, 3, 4, 0.5}},
		{"unknown class", []float64{1, 2, 3, 4, 0.5, 7}},
		{"negative class", []float64{1, 2, 3, 4, 0.5, -1}},
		{"fractional class", []float64{1, 2, 3, 4, 0.5, 0.5}},
		{"confidence above one", []float64{1, 2, 3, 4, 1.5, 0}},
		{"negative confidence", []float64{1, 2, 3, 4, -0.1, 0}},
		{"nan coordinate", []float64{math.NaN(), 2, 3, 4, 0.5, 0}},
		{"infinite coordinate", []float64{1, 2, math.Inf(1), 4, 0.5, 0}},
		{"zero width", []float64{3, 2, 3, 4, 0.5, 0}},
		{"inverted height", []float64{1, 5, 3, 4, 0.5, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([][]float64{tt.row}, testNames)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestNormalizeAcceptsExtraFieldsAndBoundaryConfidence(t *testing.T) {
	got := Normalize([][]float64{
		{0, 0, 1, 1, 0, 1, 99},
		{0, 0, 1, 1, 1, 1},
	}, testNames)

	require.Len(t, got, 2)
	assert.Equal(t, 0.0, got[0].Confidence)
	assert.Equal(t, 1.0, got[1].Confidence)
}

func TestNormalizeEmpty(t *testing.T) {
	got := Normalize(nil, testNames)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClassNamesUnmarshal(t *testing.T) {
	var fromList ClassNames
	require.NoError(t, json.Unmarshal([]byte(`["bee","butterfly"]`), &fromList))
	assert.Equal(t, ClassNames{0: "bee", 1: "butterfly"}, fromList)

	var fromMap ClassNames
	require.NoError(t, json.Unmarshal([]byte(`{"0":"bee","3":"moth"}`), &fromMap))
	assert.Equal(t, ClassNames{0: "bee", 3: "moth"}, fromMap)

	var bad ClassNames
	assert.Error(t, json.Unmarshal([]byte(`{"x":"bee"}`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestDecodeResponse(t *testing.T) {
	dets, err := decodeResponse([]byte(`{"predictions":[[1,2,30,40,0.8,1]],"names":{"1":"butterfly"}}`), nil)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "butterfly", dets[0].Class)

	dets, err = decodeResponse([]byte(`{"predictions":[[1,2,30,40,0.8,2]]}`), testNames)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "wasp", dets[0].Class)

	_, err = decodeResponse([]byte(`{"error":"model crashed"}`), nil)
	assert.ErrorContains(t, err, "model crashed")

	_, err = decodeResponse(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = decodeResponse([]byte(`not json`), nil)
	assert.Error(t, err)
}
