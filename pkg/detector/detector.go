// Package detector talks to the external object detection service.
package detector

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"PollinatorTracker/internal/entity"

	jsoniter "github.com/json-iterator/go"
)

var (
	ErrUnavailable   = errors.New("detector is not available")
	ErrEmptyResponse = errors.New("detector returned an empty response")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type IDetector interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	Detect(ctx context.Context, imagePath string) ([]entity.Detection, error)
	CheckHealth(ctx context.Context) error
	Close() error
}

// ClassNames maps a class index to its label. The detector may send it
// either as a list or as an object keyed by the index.
type ClassNames map[int]string

func (n *ClassNames) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		names := make(ClassNames, len(list))
		for i, name := range list {
			names[i] = name
		}
		*n = names
		return nil
	}

	var keyed map[string]string
	if err := json.Unmarshal(data, &keyed); err != nil {
		return fmt.Errorf("names must be a list or an index map: %w", err)
	}

	names := make(ClassNames, len(keyed))
	for k, name := range keyed {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("class index %q is not an integer", k)
		}
		names[idx] = name
	}
	*n = names
	return nil
}

// Response is the body both backends receive for one image.
type Response struct {
	Predictions [][]float64 `json:"predictions"`
	Names       ClassNames  `json:"names"`
	Error       string      `json:"error,omitempty"`
}

// decodeResponse parses body and converts it into detections. fallback is
// used when the response carries no names table.
func decodeResponse(body []byte, fallback ClassNames) ([]entity.Detection, error) {
	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("detector error: %s", resp.Error)
	}

	names := resp.Names
	if len(names) == 0 {
		names = fallback
	}

	return Normalize(resp.Predictions, names), nil
}
