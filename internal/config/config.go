package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	StoreBackend string `yaml:"store_backend"`
	DBPath       string `yaml:"db_path"`
	BoltPath     string `yaml:"bolt_path"`
	PhotoPath    string `yaml:"photo_local_path"`

	VisionBackend   string        `yaml:"vision_backend"`
	ClassifyDelay   time.Duration `yaml:"classify_delay"`
	ClassifyTimeout time.Duration `yaml:"classify_timeout"`
	SimulatedLabel  string        `yaml:"simulated_label"`
	ClaudeAPIKey    string        `yaml:"claude_api_key"`
	ClaudeModel     string        `yaml:"claude_model"`
	OllamaHost      string        `yaml:"ollama_host"`
	OllamaModel     string        `yaml:"ollama_model"`

	LocationEnabled bool          `yaml:"location_enabled"`
	DeviceLatitude  string        `yaml:"device_latitude"`
	DeviceLongitude string        `yaml:"device_longitude"`
	LocationTimeout time.Duration `yaml:"location_timeout"`
	IPGeoURL        string        `yaml:"ipgeo_url"`
	NominatimURL    string        `yaml:"nominatim_url"`
	NominatimAgent  string        `yaml:"nominatim_user_agent"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:      ":8080",
		StoreBackend:    "sqlite",
		DBPath:          "/data/wastecapture.db",
		BoltPath:        "/data/wastecapture.bolt",
		PhotoPath:       "/data/photos",
		VisionBackend:   "simulated",
		ClassifyDelay:   5 * time.Second,
		ClassifyTimeout: 30 * time.Second,
		ClaudeModel:     "claude-sonnet-4-5",
		OllamaHost:      "http://localhost:11434",
		OllamaModel:     "moondream",
		LocationEnabled: true,
		LocationTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then the environment.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.StoreBackend = getEnv("STORE_BACKEND", cfg.StoreBackend)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.BoltPath = getEnv("BOLT_PATH", cfg.BoltPath)
	cfg.PhotoPath = getEnv("PHOTO_LOCAL_PATH", cfg.PhotoPath)
	cfg.VisionBackend = getEnv("VISION_BACKEND", cfg.VisionBackend)
	cfg.SimulatedLabel = getEnv("SIMULATED_LABEL", cfg.SimulatedLabel)
	cfg.ClaudeAPIKey = getEnv("CLAUDE_API_KEY", cfg.ClaudeAPIKey)
	cfg.ClaudeModel = getEnv("CLAUDE_MODEL", cfg.ClaudeModel)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.OllamaModel = getEnv("OLLAMA_MODEL", cfg.OllamaModel)
	cfg.DeviceLatitude = getEnv("DEVICE_LATITUDE", cfg.DeviceLatitude)
	cfg.DeviceLongitude = getEnv("DEVICE_LONGITUDE", cfg.DeviceLongitude)
	cfg.IPGeoURL = getEnv("IPGEO_URL", cfg.IPGeoURL)
	cfg.NominatimURL = getEnv("NOMINATIM_URL", cfg.NominatimURL)
	cfg.NominatimAgent = getEnv("NOMINATIM_USER_AGENT", cfg.NominatimAgent)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	var err error
	if cfg.ClassifyDelay, err = getDuration("CLASSIFY_DELAY", cfg.ClassifyDelay); err != nil {
		return nil, err
	}
	if cfg.ClassifyTimeout, err = getDuration("CLASSIFY_TIMEOUT", cfg.ClassifyTimeout); err != nil {
		return nil, err
	}
	if cfg.LocationTimeout, err = getDuration("LOCATION_TIMEOUT", cfg.LocationTimeout); err != nil {
		return nil, err
	}
	if cfg.LocationEnabled, err = getBool("LOCATION_ENABLED", cfg.LocationEnabled); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// DevicePosition returns the fixed device coordinates, if both are set.
func (c *Config) DevicePosition() (lat, lon float64, ok bool, err error) {
	if c.DeviceLatitude == "" || c.DeviceLongitude == "" {
		return 0, 0, false, nil
	}
	if lat, err = strconv.ParseFloat(c.DeviceLatitude, 64); err != nil {
		return 0, 0, false, fmt.Errorf("invalid DEVICE_LATITUDE: %w", err)
	}
	if lon, err = strconv.ParseFloat(c.DeviceLongitude, 64); err != nil {
		return 0, 0, false, fmt.Errorf("invalid DEVICE_LONGITUDE: %w", err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false, fmt.Errorf("device position %v, %v is out of range", lat, lon)
	}
	return lat, lon, true, nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultVal bool) (bool, error) {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
