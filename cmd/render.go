package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/config"
	"github.com/medtosdigital/aulagia/core/fetch"
	"github.com/medtosdigital/aulagia/core/images"
	"github.com/medtosdigital/aulagia/core/output"
	"github.com/medtosdigital/aulagia/core/pipeline"
)

var (
	flagFormat    string
	flagTemplate  string
	flagOutputDir string
	flagImages    bool
)

var renderCmd = &cobra.Command{
	Use:   "render <content.json>",
	Short: "Render a material and export it",
	Long: `Render normalizes the material, compiles it with its template, paginates
and composes the pages, and writes the export artifact.

Formats: print (HTML), word (.docx), slide (PDF), markdown, json.

Examples:
  aulagia render plano.json
  aulagia render prova.json --format word --output_dir ./out
  aulagia render slides.json --format slide --images`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&flagFormat, "format", string(core.FormatPrint), "Export format: print, word, slide, markdown or json")
	renderCmd.Flags().StringVar(&flagTemplate, "template", "", "Template id (default: the material type's default template)")
	renderCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
	renderCmd.Flags().BoolVar(&flagImages, "images", false, "Generate slide images with the configured image service")
}

func runRender(cmd *cobra.Command, args []string) error {
	format := core.Format(flagFormat)

	raw, err := readContent(args[0])
	if err != nil {
		return err
	}
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	opts := []pipeline.Option{pipeline.WithFetcher(fetch.New(cfg.Images.Timeout))}
	if flagImages || cfg.Images.Enabled {
		if cfg.Images.APIKey == "" {
			return fmt.Errorf("image generation needs %s_IMAGES_API_KEY", config.EnvPrefix)
		}
		gen := images.NewHTTPGenerator(cfg.Images)
		opts = append(opts, pipeline.WithIllustrator(images.NewIllustrator(gen, log, cfg.Images)))
	}
	engine := pipeline.New(cfg, log, opts...)
	if !engine.Supports(format) {
		return fmt.Errorf("%w: %q", pipeline.ErrUnknownFormat, flagFormat)
	}

	m, warnings := engine.NormalizeAndValidate(raw)
	if len(warnings) > 0 {
		fmt.Fprintf(os.Stderr, "%d warnings:\n", len(warnings))
		printWarnings(os.Stderr, warnings)
	}
	tpl, err := selectTemplate(reg, flagTemplate, m.Type)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	artifact, rendering, err := engine.RenderForExport(ctx, tpl, m, format)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", m.Title, err)
	}
	path, err := writer.WriteArtifact(m.Title, artifact)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ %s (%d pages) written to %s\n", format, len(rendering.Pages), path)
	return nil
}
