package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pyapi/csig/internal/extract"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <include_path>",
	Short: "Print the function signatures declared by the C API headers",
	Long: `Preprocess a fixed preamble that includes Python.h, frameobject.h,
datetime.h and structmember.h from <include_path>, parse the result as C and
print every declared function as

  name;return_type;param1|param2|...

The output is sorted. Duplicate declarations are kept unless --unique is set.
With --source, a C file is parsed as-is instead and no preprocessor runs.

Examples:
  csig extract /usr/include/python3.12
  csig extract ./Include -I ./fake_libc_include --lenient
  csig extract /usr/include/python3.12 --save 3.12
  csig extract --source preprocessed.i --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

var (
	extractSave   string
	extractSource string
)

func init() {
	rootCmd.AddCommand(extractCmd)

	addExtractFlags(extractCmd)
	extractCmd.Flags().StringVar(&extractSave, "save", "", "Store the listing as a named snapshot")
	extractCmd.Flags().StringVar(&extractSource, "source", "", "Extract from a C file without preprocessing")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractSource == "" && len(args) == 0 {
		return fmt.Errorf("an include path is required unless --source is set")
	}
	if extractSource != "" && len(args) > 0 {
		return fmt.Errorf("--source cannot be combined with an include path")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyExtractFlags(cmd, cfg)

	var (
		sigs   []extract.Signature
		origin string
	)
	if extractSource != "" {
		logf("extracting from %s", extractSource)
		sigs, err = extract.ExtractFile(cmd.Context(), extractSource, extractOptions(cfg))
		origin = extractSource
	} else {
		sigs, err = extractHeaders(cmd.Context(), cfg, args[0])
		origin = args[0]
	}
	if err != nil {
		return err
	}

	if extractSave != "" {
		if abs, err := filepath.Abs(origin); err == nil {
			origin = abs
		}
		c, err := openCache(true)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.SaveSnapshot(extractSave, origin, sigs); err != nil {
			return fmt.Errorf("save snapshot %s: %w", extractSave, err)
		}
		logf("saved %d signatures as snapshot %s", len(sigs), extractSave)
	}

	return writeOutput(cmd, cfg, sigs)
}
