// This file defines the configuration structure for the application.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Replacement rewrites a raw model fragment into its canonical form.
type Replacement struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Upload struct {
		MaxBytes int64 `mapstructure:"max_bytes"`
	} `mapstructure:"upload"`
	Extract struct {
		MinTextChars int `mapstructure:"min_text_chars"`
	} `mapstructure:"extract"`
	OCR struct {
		Tesseract    string  `mapstructure:"tesseract"`
		Lang         string  `mapstructure:"lang"`
		DPI          float64 `mapstructure:"dpi"`
		PSM          int     `mapstructure:"psm"`
		TessdataDir  string  `mapstructure:"tessdata_dir"`
		MaxDimension int     `mapstructure:"max_dimension"`
	} `mapstructure:"ocr"`
	Report struct {
		Sheet     string `mapstructure:"sheet"`
		Highlight string `mapstructure:"highlight"`
		Columns   struct {
			FileName string `mapstructure:"file_name"`
			Model    string `mapstructure:"model"`
			QANumber string `mapstructure:"qa_number"`
			Author   string `mapstructure:"author"`
			Status   string `mapstructure:"status"`
			Reason   string `mapstructure:"reason"`
		} `mapstructure:"columns"`
	} `mapstructure:"report"`
	Results struct {
		TTLMinutes   int `mapstructure:"ttl_minutes"`
		SweepMinutes int `mapstructure:"sweep_minutes"`
	} `mapstructure:"results"`
	Matching struct {
		UnwantedAuthors []string      `mapstructure:"unwanted_authors"`
		Standardization []Replacement `mapstructure:"standardization"`
	} `mapstructure:"matching"`
}

// StandardizationMap returns the model replacements keyed by raw fragment.
func (c *Config) StandardizationMap() map[string]string {
	out := make(map[string]string, len(c.Matching.Standardization))
	for _, r := range c.Matching.Standardization {
		if r.From != "" {
			out[r.From] = r.To
		}
	}
	return out
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with config.yml looked up in dir.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")
	v.AddConfigPath(dir)

	// QA_DATABASE_PATH overrides `database.path`, and so on.
	v.SetEnvPrefix("QA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("database.path", "./qa-harvest.db")
	v.SetDefault("upload.max_bytes", 512<<20)
	v.SetDefault("extract.min_text_chars", 50)
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.psm", 0)
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.max_dimension", 4000)
	v.SetDefault("report.sheet", "")
	v.SetDefault("report.highlight", "FFF2CC")
	v.SetDefault("report.columns.file_name", "File Name")
	v.SetDefault("report.columns.model", "Meta")
	v.SetDefault("report.columns.qa_number", "QA Numbers")
	v.SetDefault("report.columns.author", "Author")
	v.SetDefault("report.columns.status", "Status")
	v.SetDefault("report.columns.reason", "Review Reason")
	v.SetDefault("results.ttl_minutes", 60)
	v.SetDefault("results.sweep_minutes", 5)
	v.SetDefault("matching.unwanted_authors", []string{"Knowledge Import"})
	v.SetDefault("matching.standardization", []map[string]string{
		{"from": "TASKalfa-", "to": "TASKalfa "},
		{"from": "ECOSYS-", "to": "ECOSYS "},
	})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
