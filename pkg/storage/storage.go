package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"PollinatorTracker/internal/entity"

	"github.com/google/uuid"
)

const (
	annotatedPrefix = "annotated_"
	montagePrefix   = "montage_"
	framesDirName   = "frames"

	// Keeps {uuid}_{name} below the 255 byte limit of common filesystems.
	maxBaseNameLength = 200
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("file not found")
)

type ItfStorage interface {
	Save(src io.Reader, originalName string) (*entity.StoredFile, error)
	Path(name string) (string, error)
	Lookup(name string) (string, error)
	FramesDir(uniqueName string) (string, error)
	Dir() string
}

type localStorage struct {
	dir        string
	normalizer PathNormalizer
}

// New prepares dir (and its frames subdirectory) and returns a flat-file
// store rooted there.
func New(dir string, normalizer PathNormalizer) (ItfStorage, error) {
	if normalizer == nil {
		normalizer = DefaultNormalizer()
	}

	if err := os.MkdirAll(filepath.Join(dir, framesDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}

	return &localStorage{
		dir:        dir,
		normalizer: normalizer,
	}, nil
}

func (s *localStorage) Dir() string {
	return s.dir
}

// Save writes src under {uuid}_{basename}. The file is created exclusively,
// so two uploads can never share a path.
func (s *localStorage) Save(src io.Reader, originalName string) (*entity.StoredFile, error) {
	base, err := s.sanitize(originalName)
	if err != nil {
		return nil, err
	}

	uniqueName := generateUniqueFileName(base)
	path := filepath.Join(s.dir, uniqueName)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", uniqueName, err)
	}

	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write %s: %w", uniqueName, err)
	}

	return &entity.StoredFile{
		OriginalName: originalName,
		UniqueName:   uniqueName,
		Path:         path,
		Size:         written,
	}, nil
}

// Path resolves an exact file name inside the upload directory. Anything
// that is not a plain base name is rejected.
func (s *localStorage) Path(name string) (string, error) {
	if !s.validBaseName(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// Lookup is Path for a file that must already exist as a regular file.
func (s *localStorage) Lookup(name string) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}

// FramesDir creates and returns uploads/frames/<unique name without extension>.
func (s *localStorage) FramesDir(uniqueName string) (string, error) {
	if _, err := s.Path(uniqueName); err != nil {
		return "", err
	}
	dir := filepath.Join(s.dir, framesDirName, strings.TrimSuffix(uniqueName, filepath.Ext(uniqueName)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create frames directory: %w", err)
	}
	return dir, nil
}

func (s *localStorage) validBaseName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, "/\\\x00") &&
		s.normalizer.Base(name) == name
}

// sanitize reduces a client file name to a base name Path accepts. Browsers
// on Windows send names like C:\fakepath\bee.png, so backslashes separate
// path elements on every platform.
func (s *localStorage) sanitize(name string) (string, error) {
	base := s.normalizer.Base(name)
	base = strings.TrimSpace(base[strings.LastIndexAny(base, `/\`)+1:])

	if len(base) > maxBaseNameLength {
		ext := filepath.Ext(base)
		if len(ext) >= maxBaseNameLength {
			return "", ErrInvalidName
		}
		base = strings.ToValidUTF8(base[:maxBaseNameLength-len(ext)], "") + ext
	}

	if !s.validBaseName(base) {
		return "", ErrInvalidName
	}
	return base, nil
}

// AnnotatedName is the name the annotated copy of uniqueName is stored under.
func AnnotatedName(uniqueName string) string {
	return annotatedPrefix + uniqueName
}

// MontageName is the name of the frame montage built for a video upload.
func MontageName(uniqueName string) string {
	return montagePrefix + strings.TrimSuffix(uniqueName, filepath.Ext(uniqueName)) + ".jpg"
}

func generateUniqueFileName(base string) string {
	return fmt.Sprintf("%s_%s", uuid.NewString(), base)
}
