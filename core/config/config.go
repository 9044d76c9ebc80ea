// Package config loads runtime settings: page layouts per export target,
// the pagination height heuristics, branding and the image service.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML
// file, `.env` files loaded with godotenv, and AULAGIA_* environment
// variables (dots become underscores: AULAGIA_IMAGES_API_KEY).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/medtosdigital/aulagia/core"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "AULAGIA"

// Config is the validated runtime configuration.
type Config struct {
	Env          string     `mapstructure:"env" validate:"required"`
	LogMode      string     `mapstructure:"log_mode" validate:"oneof=dev prod production"`
	Brand        string     `mapstructure:"brand" validate:"required"`
	TemplatesDir string     `mapstructure:"templates_dir"`
	Layouts      Layouts    `mapstructure:"layouts"`
	Heuristics   Heuristics `mapstructure:"heuristics"`
	Images       Images     `mapstructure:"images"`
}

// Layouts holds the page geometry of each paginated export target.
type Layouts struct {
	Print Layout `mapstructure:"print"`
	Word  Layout `mapstructure:"word"`
	Slide Layout `mapstructure:"slide"`
}

// Layout is the fixed geometry of one export target, in CSS pixels.
type Layout struct {
	PageWidth    float64 `mapstructure:"page_width" validate:"gt=0"`
	PageHeight   float64 `mapstructure:"page_height" validate:"gt=0"`
	HeaderHeight float64 `mapstructure:"header_height" validate:"gte=0"`
	FooterHeight float64 `mapstructure:"footer_height" validate:"gte=0"`
	SafetyMargin float64 `mapstructure:"safety_margin" validate:"gte=0"`
}

// Budget is the content height available on one page.
func (l Layout) Budget() float64 {
	return l.PageHeight - l.HeaderHeight - l.FooterHeight - l.SafetyMargin
}

// Heuristics are the empirically tuned constants of the height estimator.
type Heuristics struct {
	QuestionBase  float64 `mapstructure:"question_base" validate:"gte=0"`
	LineHeight    float64 `mapstructure:"line_height" validate:"gt=0"`
	CharsPerLine  int     `mapstructure:"chars_per_line" validate:"gt=0"`
	OptionHeight  float64 `mapstructure:"option_height" validate:"gte=0"`
	DiagramHeight float64 `mapstructure:"diagram_height" validate:"gte=0"`
	BlockBase     float64 `mapstructure:"block_base" validate:"gte=0"`
	SectionHeight float64 `mapstructure:"section_height" validate:"gt=0"`
}

// Images configures the image generation service used for slide decks.
type Images struct {
	Enabled    bool          `mapstructure:"enabled"`
	Endpoint   string        `mapstructure:"endpoint" validate:"omitempty,url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Size       string        `mapstructure:"size"`
	Delay      time.Duration `mapstructure:"delay" validate:"gte=0"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxPerDeck int           `mapstructure:"max_per_deck" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Env:     "dev",
		LogMode: "dev",
		Brand:   "AulagIA",
		Layouts: Layouts{
			// A4 at 96dpi.
			Print: Layout{PageWidth: 794, PageHeight: 1123, HeaderHeight: 130, FooterHeight: 60, SafetyMargin: 33},
			Word:  Layout{PageWidth: 794, PageHeight: 1123, HeaderHeight: 110, FooterHeight: 50, SafetyMargin: 43},
			Slide: Layout{PageWidth: 1280, PageHeight: 720},
		},
		Heuristics: Heuristics{
			QuestionBase:  110,
			LineHeight:    24,
			CharsPerLine:  70,
			OptionHeight:  24,
			DiagramHeight: 180,
			BlockBase:     40,
			SectionHeight: 280,
		},
		Images: Images{
			Endpoint:   "https://api.openai.com/v1/images/generations",
			Model:      "gpt-image-1",
			Size:       "1536x1024",
			Delay:      2 * time.Second,
			Timeout:    90 * time.Second,
			MaxPerDeck: 12,
		},
	}
}

// Load reads the configuration. path names an optional YAML file; an empty
// path skips it.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that every layout leaves a
// positive page budget.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, l := range map[string]Layout{"print": c.Layouts.Print, "word": c.Layouts.Word, "slide": c.Layouts.Slide} {
		if l.Budget() <= 0 {
			return fmt.Errorf("invalid config: layout %s leaves no room for content (budget %.0f)", name, l.Budget())
		}
	}
	return nil
}

// Layout returns the geometry used to paginate for format. Markdown and
// JSON exports share the print layout.
func (c *Config) Layout(format core.Format) Layout {
	switch format {
	case core.FormatWord:
		return c.Layouts.Word
	case core.FormatSlide:
		return c.Layouts.Slide
	default:
		return c.Layouts.Print
	}
}

// loadDotEnv loads .env.<env> then .env from the working directory when
// present. godotenv never overrides variables already set.
func loadDotEnv() {
	env := strings.ToLower(os.Getenv(EnvPrefix + "_ENV"))
	if env == "" {
		env = "dev"
	}
	for _, name := range []string{".env." + env, ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("env", d.Env)
	v.SetDefault("log_mode", d.LogMode)
	v.SetDefault("brand", d.Brand)
	v.SetDefault("templates_dir", d.TemplatesDir)

	for name, l := range map[string]Layout{"print": d.Layouts.Print, "word": d.Layouts.Word, "slide": d.Layouts.Slide} {
		prefix := "layouts." + name + "."
		v.SetDefault(prefix+"page_width", l.PageWidth)
		v.SetDefault(prefix+"page_height", l.PageHeight)
		v.SetDefault(prefix+"header_height", l.HeaderHeight)
		v.SetDefault(prefix+"footer_height", l.FooterHeight)
		v.SetDefault(prefix+"safety_margin", l.SafetyMargin)
	}

	h := d.Heuristics
	v.SetDefault("heuristics.question_base", h.QuestionBase)
	v.SetDefault("heuristics.line_height", h.LineHeight)
	v.SetDefault("heuristics.chars_per_line", h.CharsPerLine)
	v.SetDefault("heuristics.option_height", h.OptionHeight)
	v.SetDefault("heuristics.diagram_height", h.DiagramHeight)
	v.SetDefault("heuristics.block_base", h.BlockBase)
	v.SetDefault("heuristics.section_height", h.SectionHeight)

	i := d.Images
	v.SetDefault("images.enabled", i.Enabled)
	v.SetDefault("images.endpoint", i.Endpoint)
	v.SetDefault("images.api_key", i.APIKey)
	v.SetDefault("images.model", i.Model)
	v.SetDefault("images.size", i.Size)
	v.SetDefault("images.delay", i.Delay)
	v.SetDefault("images.timeout", i.Timeout)
	v.SetDefault("images.max_per_deck", i.MaxPerDeck)
}
