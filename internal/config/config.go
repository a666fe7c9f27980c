package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
)

type Config struct {
	ListenAddr string
	DBPath     string

	// DirectoryBackend selects where tables and layouts live: the local
	// sqlite database or the remote Table Directory and Layout Persistence
	// services.
	DirectoryBackend string
	DirectoryURL     string
	LayoutURL        string
	RemoteTimeout    time.Duration

	SnapshotPath string

	StageWidth       float64
	StageHeight      float64
	MaxStageSize     float64
	CanonicalWidth   float64
	CanonicalHeight  float64
	GridSize         float64
	SnapEnabled      bool
	DefaultSeats     int
	ExportPixelRatio float64

	// SessionIdleTimeout closes editor sessions left untouched this long.
	// Zero disables the sweep.
	SessionIdleTimeout time.Duration

	LogLevel string
	LogFile  string
	TestMode bool
}

// Load reads the configuration from the environment. Every malformed value is
// reported, not just the first.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		DBPath:           getEnv("DB_PATH", "/data/floorplan.db"),
		DirectoryBackend: getEnv("DIRECTORY_BACKEND", BackendSQLite),
		DirectoryURL:     getEnv("DIRECTORY_URL", ""),
		LayoutURL:        getEnv("LAYOUT_URL", ""),
		RemoteTimeout:    p.getDuration("REMOTE_TIMEOUT", 10*time.Second),
		SnapshotPath:     getEnv("SNAPSHOT_PATH", "/data/snapshots"),
		StageWidth:       p.getFloat("STAGE_WIDTH", 1200),
		StageHeight:      p.getFloat("STAGE_HEIGHT", 800),
		MaxStageSize:     p.getFloat("MAX_STAGE_SIZE", 10000),
		CanonicalWidth:   p.getFloat("CANONICAL_WIDTH", 0),
		CanonicalHeight:  p.getFloat("CANONICAL_HEIGHT", 0),
		GridSize:         p.getFloat("GRID_SIZE", 20),
		SnapEnabled:      p.getBool("SNAP_ENABLED", true),
		DefaultSeats:     p.getInt("DEFAULT_SEATS", 4),
		ExportPixelRatio: p.getFloat("EXPORT_PIXEL_RATIO", 2),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          getEnv("LOG_FILE", ""),
		TestMode:         os.Getenv("FLOORPLAN_TEST_MODE") == "1",

		SessionIdleTimeout: p.getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
	}
	if err := errors.Join(append(p.errs, cfg.validate()...)...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	switch c.DirectoryBackend {
	case BackendSQLite:
	case BackendHTTP:
		if c.DirectoryURL == "" {
			errs = append(errs, errors.New("DIRECTORY_URL is required when DIRECTORY_BACKEND=http"))
		}
		if c.LayoutURL == "" {
			errs = append(errs, errors.New("LAYOUT_URL is required when DIRECTORY_BACKEND=http"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DIRECTORY_BACKEND %q (want %q or %q)", c.DirectoryBackend, BackendSQLite, BackendHTTP))
	}
	if c.StageWidth <= 0 || c.StageHeight <= 0 {
		errs = append(errs, fmt.Errorf("stage size must be positive, got %gx%g", c.StageWidth, c.StageHeight))
	}
	if c.MaxStageSize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_STAGE_SIZE must be positive, got %g", c.MaxStageSize))
	} else if c.StageWidth > c.MaxStageSize || c.StageHeight > c.MaxStageSize {
		errs = append(errs, fmt.Errorf("stage size %gx%g exceeds MAX_STAGE_SIZE %g", c.StageWidth, c.StageHeight, c.MaxStageSize))
	}
	if c.SessionIdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("SESSION_IDLE_TIMEOUT must not be negative, got %s", c.SessionIdleTimeout))
	}
	if c.DefaultSeats < 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_SEATS must be at least 1, got %d", c.DefaultSeats))
	}
	if c.ExportPixelRatio <= 0 {
		errs = append(errs, fmt.Errorf("EXPORT_PIXEL_RATIO must be positive, got %g", c.ExportPixelRatio))
	}
	return errs
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// parser collects conversion errors so Load can report them together.
type parser struct {
	errs []error
}

func (p *parser) lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	return val, ok && val != ""
}

func (p *parser) fail(key, val string, err error) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s=%q: %w", key, val, err))
}

func (p *parser) getFloat(key string, defaultVal float64) float64 {
	val, ok := p.lookup(key)
	if !ok {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
		return defaultVal
	}
	return f
}

func (p *parser) getInt(key string, defaultVal int) int {
	val, ok := p.lookup(key)
	if !ok {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
		return defaultVal
	}
	return n
}

func (p *parser) getBool(key string, defaultVal bool) bool {
	val, ok := p.lookup(key)
	if !ok {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		p.fail(key, val, err)
		return defaultVal
	}
	return b
}

func (p *parser) getDuration(key string, defaultVal time.Duration) time.Duration {
	val, ok := p.lookup(key)
	if !ok {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		p.fail(key, val, err)
		return defaultVal
	}
	return d
}
