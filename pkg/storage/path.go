package storage

import (
	"runtime"
	"strings"
)

// PathNormalizer reduces a client supplied file name to its final element.
// The strategy is picked once at startup for the platform the service runs on.
type PathNormalizer interface {
	Base(name string) string
}

type posixNormalizer struct{}

func (posixNormalizer) Base(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}

type windowsNormalizer struct{}

func (windowsNormalizer) Base(name string) string {
	if len(name) >= 2 && name[1] == ':' {
		name = name[2:]
	}
	return name[strings.LastIndexAny(name, `/\`)+1:]
}

// NormalizerFor returns the strategy for goos ("windows" or anything else).
func NormalizerFor(goos string) PathNormalizer {
	if goos == "windows" {
		return windowsNormalizer{}
	}
	return posixNormalizer{}
}

// DefaultNormalizer is the strategy for the running platform.
func DefaultNormalizer() PathNormalizer {
	return NormalizerFor(runtime.GOOS)
}
