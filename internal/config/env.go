package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendHTTP = "http"
	BackendWS   = "ws"

	defaultHTTPDetectorURL = "http://localhost:8000/predict"
	defaultWSDetectorURL   = "ws://localhost:8000/ws"
)

type AppConfig struct {
	Port           string        `validate:"required,numeric"`
	Env            string        `validate:"omitempty,oneof=local development staging production test"`
	UploadDir      string        `validate:"required"`
	MaxUploadBytes int64         `validate:"gt=0"`
	PublicBaseURL  string        `validate:"omitempty,url"`
	RequestTimeout time.Duration `validate:"gt=0"`

	DetectorBackend   string        `validate:"oneof=http ws"`
	DetectorURL       string        `validate:"required,url"`
	DetectorHealthURL string        `validate:"omitempty,url"`
	DetectorTimeout   time.Duration `validate:"gt=0"`
	DetectorSerialize bool

	FontPath string
	FontSize float64 `validate:"gt=0"`

	CacheTTL      time.Duration `validate:"gte=0"`
	RedisAddress  string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	RateLimitRPS   float64 `validate:"gte=0"`
	RateLimitBurst int     `validate:"gte=0"`

	FFmpegPath         string
	VideoFrameRate     float64 `validate:"gt=0"`
	VideoMontageFrames int     `validate:"gt=0"`
}

// LoadEnv reads .env when present (a missing file is not an error) and
// builds the validated application config from the environment.
func LoadEnv(validate *validator.Validate) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv(validate)
}

func FromEnv(validate *validator.Validate) (*AppConfig, error) {
	p := &envParser{}

	cfg := &AppConfig{
		Port:           getEnv("APP_PORT", "3000"),
		Env:            os.Getenv("APP_ENV"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: p.getInt64("MAX_UPLOAD_BYTES", 16<<20),
		PublicBaseURL:  strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		RequestTimeout: p.getDuration("REQUEST_TIMEOUT", 2*time.Minute),

		DetectorBackend:   strings.ToLower(getEnv("DETECTOR_BACKEND", BackendHTTP)),
		DetectorHealthURL: os.Getenv("DETECTOR_HEALTH_URL"),
		DetectorTimeout:   p.getDuration("DETECTOR_TIMEOUT", 60*time.Second),
		DetectorSerialize: p.getBool("DETECTOR_SERIALIZE", false),

		FontPath: os.Getenv("FONT_PATH"),
		FontSize: p.getFloat("FONT_SIZE", 20),

		CacheTTL:      p.getDuration("CACHE_TTL", 10*time.Minute),
		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       p.getInt("REDIS_DB", 0),

		RateLimitRPS:   p.getFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: p.getInt("RATE_LIMIT_BURST", 0),

		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		VideoFrameRate:     p.getFloat("VIDEO_FRAME_RATE", 1),
		VideoMontageFrames: p.getInt("VIDEO_MONTAGE_FRAMES", 9),
	}

	defaultURL := defaultHTTPDetectorURL
	if cfg.DetectorBackend == BackendWS {
		defaultURL = defaultWSDetectorURL
	}
	cfg.DetectorURL = getEnv("DETECTOR_URL", defaultURL)

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// envParser collects every malformed value so they are reported together.
type envParser struct {
	errs []error
}

func (p *envParser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (p *envParser) getInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *envParser) getInt64(key string, fallback int64) int64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *envParser) getFloat(key string, fallback float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *envParser) getBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func (p *envParser) getDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}
