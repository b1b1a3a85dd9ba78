package utils

import (
	"crypto/rand"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var ErrUnknownImageFormat = errors.New("unrecognised image format")

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	HasAllowedExtension(filename string, allowed []string) bool
	SniffImageExtension(data []byte) (string, error)
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// HasAllowedExtension reports whether filename has an extension (compared
// case-insensitively, without the dot) contained in allowed.
func (u *utils) HasAllowedExtension(filename string, allowed []string) bool {
	ext := Extension(filename)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// SniffImageExtension inspects the leading bytes of data and returns the
// extension to store it under.
func (u *utils) SniffImageExtension(data []byte) (string, error) {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	default:
		return "", ErrUnknownImageFormat
	}
}

// Extension returns the lower-cased text after the last dot, or "" when the
// name has none.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}
