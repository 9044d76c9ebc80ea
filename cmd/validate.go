package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medtosdigital/aulagia/core/normalize"
	"github.com/medtosdigital/aulagia/core/pipeline"
)

var errInvalid = errors.New("content has structural errors")

var validateCmd = &cobra.Command{
	Use:   "validate <content.json>",
	Short: "Report what normalization repairs in a material",
	Long: `Validate normalizes the material without rendering it and lists every
repair and structural finding. It fails only when the normalized question
set still has structural errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	raw, err := readContent(args[0])
	if err != nil {
		return err
	}
	m, warnings := pipeline.New(cfg, log).NormalizeAndValidate(raw)

	fmt.Fprintf(os.Stdout, "%s (%s)\n", m.Title, m.Type)
	if len(warnings) == 0 {
		fmt.Fprintln(os.Stdout, "✓ no findings")
	} else {
		fmt.Fprintf(os.Stdout, "%d findings:\n", len(warnings))
		printWarnings(os.Stdout, warnings)
	}
	if m.QuestionSet != nil && !normalize.ValidateSet(m.QuestionSet.Questions).Valid {
		return errInvalid
	}
	return nil
}
