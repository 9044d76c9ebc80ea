// Package cmd implements the aulagia CLI using Cobra.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/config"
	"github.com/medtosdigital/aulagia/core/logger"
	"github.com/medtosdigital/aulagia/core/templates"
)

var (
	flagConfig       string
	flagTemplatesDir string

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "aulagia",
	Short: "aulagia: paginate and export lesson materials",
	Long: `aulagia turns structured teaching material (lesson plans, activities,
assessments, slide decks, support documents) into paginated pages and
exports them as print HTML, Word documents, slide PDFs, Markdown or JSON.

Usage:
  aulagia render <content.json> --format word
  aulagia preview <content.json>
  aulagia validate <content.json>
  aulagia templates`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(flagConfig); err != nil {
			return err
		}
		if flagTemplatesDir != "" {
			cfg.TemplatesDir = flagTemplatesDir
		}
		if log, err = logger.New(cfg.LogMode); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&flagTemplatesDir, "templates_dir", "", "Directory of template overrides (*.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadRegistry returns the built-in templates plus any overrides from the
// configured templates directory.
func loadRegistry() (*templates.Registry, error) {
	reg, err := templates.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("loading default templates: %w", err)
	}
	if cfg.TemplatesDir != "" {
		if err := reg.LoadDir(cfg.TemplatesDir); err != nil {
			return nil, fmt.Errorf("loading templates from %s: %w", cfg.TemplatesDir, err)
		}
	}
	return reg, nil
}

// selectTemplate returns the template with id, or the default template of
// the material type when id is empty.
func selectTemplate(reg *templates.Registry, id string, mt core.MaterialType) (core.Template, error) {
	if id != "" {
		return reg.Get(id)
	}
	return reg.ForType(mt)
}

// readContent decodes a raw material from path, or stdin when path is "-".
func readContent(path string) (map[string]any, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening content: %w", err)
		}
		defer f.Close()
		r = f
	}
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding content %s: %w", path, err)
	}
	return raw, nil
}

func printWarnings(w io.Writer, warnings []core.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "  ! %s\n", warn)
	}
}
