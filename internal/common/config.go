package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Output    OutputConfig    `yaml:"output"`
	OCR       OCRConfig       `yaml:"ocr"`
	Reference ReferenceConfig `yaml:"reference"`
	Geocode   GeocodeConfig   `yaml:"geocode"`
	Run       RunConfig       `yaml:"run"`
	LogLevel  string          `yaml:"log_level"`
}

// SourceConfig says where marigram images come from.
type SourceConfig struct {
	FolderIDs       []string `yaml:"folder_ids"`
	Dir             string   `yaml:"dir"`
	CredentialsFile string   `yaml:"credentials_file"`
	CacheDir        string   `yaml:"cache_dir"`
}

// OutputConfig holds the spreadsheet, progress log and OCR artifact locations.
type OutputConfig struct {
	XLSXPath   string `yaml:"xlsx_path"`
	LogPath    string `yaml:"log_path"`
	SaveOCRDir string `yaml:"save_ocr_dir"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string `yaml:"engine"` // "cli" | "gosseract"
	Tesseract   string `yaml:"tesseract"`
	Lang        string `yaml:"lang"`
	TessdataDir string `yaml:"tessdata_dir"`
	PSM         int    `yaml:"psm"`
	OEM         int    `yaml:"oem"`
}

// ReferenceConfig points at the allow-list and station directory services.
type ReferenceConfig struct {
	NOAABaseURL  string        `yaml:"noaa_base_url"`
	IOCListURL   string        `yaml:"ioc_list_url"`
	IOCCacheHTML string        `yaml:"ioc_cache_html"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
}

// GeocodeConfig holds the optional Nominatim settings.
type GeocodeConfig struct {
	Enabled   bool   `yaml:"enabled"`
	URL       string `yaml:"url"`
	UserAgent string `yaml:"user_agent"`
}

// RunConfig holds per-run behaviour switches.
type RunConfig struct {
	Resume              bool   `yaml:"resume"`
	Interactive         bool   `yaml:"interactive"`
	MicrofilmName       string `yaml:"microfilm_name"`
	MicrofilmFromFolder bool   `yaml:"microfilm_name_from_folder"`
	MaxFiles            int    `yaml:"max_files"`
	Shuffle             bool   `yaml:"shuffle"`
	Seed                int64  `yaml:"seed"`
	Sort                bool   `yaml:"sort"`
}

// Known OCR engine names.
const (
	EngineCLI       = "cli"
	EngineGosseract = "gosseract"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Source: SourceConfig{
			FolderIDs:       splitList(getEnv("DRIVE_FOLDER_IDS", "")),
			Dir:             getEnv("MARIGRAM_DIR", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", "credentials.json"),
			CacheDir:        getEnv("DRIVE_CACHE_DIR", "./_drive_cache"),
		},
		Output: OutputConfig{
			XLSXPath:   getEnv("OUT_XLSX", ""),
			LogPath:    getEnv("PROGRESS_LOG", "./_progress/processed.jsonl"),
			SaveOCRDir: getEnv("SAVE_OCR_DIR", ""),
		},
		OCR: OCRConfig{
			Engine:      getEnv("OCR_ENGINE", EngineCLI),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Lang:        getEnv("TESSERACT_LANG", "eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			PSM:         getEnvAsInt("OCR_PSM", 6),
			OEM:         getEnvAsInt("OCR_OEM", 3),
		},
		Reference: ReferenceConfig{
			NOAABaseURL:  getEnv("NOAA_BASE_URL", "https://www.ngdc.noaa.gov/hazel/hazard-service/api/v1/descriptors/tsunamis/marigrams"),
			IOCListURL:   getEnv("IOC_LIST_URL", "https://www.ioc-sealevelmonitoring.org/list.php"),
			IOCCacheHTML: getEnv("IOC_CACHE_HTML", "./_cache/ioc_list.html"),
			HTTPTimeout:  getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		},
		Geocode: GeocodeConfig{
			Enabled:   getEnvAsBool("ENABLE_GEOCODE", false),
			URL:       getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
			UserAgent: getEnv("NOMINATIM_USER_AGENT", "wavesource_marigram_geocoder"),
		},
		Run: RunConfig{
			MicrofilmName: getEnv("MICROFILM_NAME", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// MergeYAMLFile overlays the keys present in a YAML file onto c.
// Keys absent from the file keep their current value.
func (c *Config) MergeYAMLFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewAppError(CodeConfig, "read config file", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("parse config file %s", path), err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		out = append(out, part)
	}
	return out
}

// SlogLevel maps LogLevel onto a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Check(len(c.Source.FolderIDs) > 0 || c.Source.Dir != "", "source", c.Source.FolderIDs, "one of --folder-ids or --dir is required")
	v.Check(len(c.Source.FolderIDs) == 0 || c.Source.Dir == "", "source", c.Source.Dir, "--folder-ids and --dir are mutually exclusive")
	v.Field("out_xlsx", c.Output.XLSXPath, Required)
	v.Field("log_path", c.Output.LogPath, Required)
	v.Field("ocr.engine", c.OCR.Engine, OneOf(EngineCLI, EngineGosseract))
	v.Field("ocr.psm", c.OCR.PSM, NonNegative)
	v.Field("ocr.oem", c.OCR.OEM, NonNegative)
	v.Field("run.max_files", c.Run.MaxFiles, NonNegative)
	v.Field("reference.noaa_base_url", c.Reference.NOAABaseURL, Required)
	if c.Geocode.Enabled {
		v.Field("geocode.user_agent", c.Geocode.UserAgent, Required)
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
