package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medtosdigital/aulagia/core/pipeline"
)

var flagPreviewJSON bool

var previewCmd = &cobra.Command{
	Use:   "preview <content.json>",
	Short: "Show how a material paginates",
	Long: `Preview runs the shared pipeline in the print layout and lists the
composed pages, or prints them as JSON with --json.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringVar(&flagTemplate, "template", "", "Template id (default: the material type's default template)")
	previewCmd.Flags().BoolVar(&flagPreviewJSON, "json", false, "Print the composed pages as JSON")
}

func runPreview(cmd *cobra.Command, args []string) error {
	raw, err := readContent(args[0])
	if err != nil {
		return err
	}
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	engine := pipeline.New(cfg, log)
	m, warnings := engine.NormalizeAndValidate(raw)
	tpl, err := selectTemplate(reg, flagTemplate, m.Type)
	if err != nil {
		return err
	}
	pages, err := engine.RenderForPreview(tpl, m)
	if err != nil {
		return err
	}

	if flagPreviewJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pages)
	}

	fmt.Fprintf(os.Stdout, "%s (%s, template %s)\n", m.Title, m.Type, tpl.ID)
	for _, p := range pages {
		fmt.Fprintf(os.Stdout, "  %s: %d blocks\n", p.Footer.Label, len(p.Blocks))
	}
	if len(warnings) > 0 {
		fmt.Fprintf(os.Stdout, "%d warnings (run %s validate for details)\n", len(warnings), strings.Fields(rootCmd.Use)[0])
	}
	return nil
}
