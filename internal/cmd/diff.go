package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pyapi/csig/internal/extract"
	"github.com/pyapi/csig/internal/sigdiff"
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Compare two signature listings",
	Long: `Compare two signature listings by function name.

Each operand is a listing file written by 'csig extract', '-' for standard
input, or @name for a snapshot saved with 'csig extract --save name'.

Functions only in <new> are added, functions only in <old> are removed, and
functions whose signature lines differ are signature changes. Removals and
signature changes are breaking.

Examples:
  csig diff @3.11 @3.12
  csig diff old.txt new.txt
  csig extract ./Include | csig diff @baseline - --exit-code`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

var diffExitCode bool

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().BoolVar(&diffExitCode, "exit-code", false, "Exit with status 1 when the listings differ")
}

func runDiff(cmd *cobra.Command, args []string) error {
	if args[0] == "-" && args[1] == "-" {
		return fmt.Errorf("only one operand can be read from standard input")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	oldSigs, err := loadListing(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	newSigs, err := loadListing(cmd.InOrStdin(), args[1])
	if err != nil {
		return err
	}
	logf("comparing %d old and %d new signatures", len(oldSigs), len(newSigs))

	report := sigdiff.Compare(oldSigs, newSigs)
	if err := writeOutput(cmd, cfg, report); err != nil {
		return err
	}

	if diffExitCode && !report.Empty() {
		return errDifferences
	}
	return nil
}

// loadListing resolves a diff operand to a signature listing.
func loadListing(stdin io.Reader, operand string) ([]extract.Signature, error) {
	if name, ok := strings.CutPrefix(operand, "@"); ok {
		c, err := openCache(false)
		if err != nil {
			return nil, err
		}
		defer c.Close()

		return c.LoadSnapshot(name)
	}

	if operand == "-" {
		sigs, err := sigdiff.Read(stdin)
		if err != nil {
			return nil, fmt.Errorf("standard input: %w", err)
		}
		return sigs, nil
	}

	return sigdiff.LoadFile(operand)
}
