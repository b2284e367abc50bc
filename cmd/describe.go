package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/healthgap-cli/internal/config"
	"github.com/KaramelBytes/healthgap-cli/internal/dataset"
	"github.com/KaramelBytes/healthgap-cli/internal/describe"
	"github.com/KaramelBytes/healthgap-cli/internal/report"
	"github.com/KaramelBytes/healthgap-cli/internal/utils"
)

var (
	descDelimiter  string
	descSheetName  string
	descSheetIndex int
	descMaxRows    int
	descColumns    []string
	descDecimal    string
	descThousands  string
	descOutlierThr float64
	descJSON       bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Describe the numeric columns of a CSV/TSV/XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := dataset.ReadOptions{Sheet: descSheetName, SheetIndex: descSheetIndex, MaxRows: descMaxRows}
		switch descDelimiter {
		case "":
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", descDelimiter)
		}
		dec, err := cfgpkg.Separator(descDecimal)
		if err != nil {
			return fmt.Errorf("--decimal: %w", err)
		}
		thou, err := cfgpkg.Separator(descThousands)
		if err != nil {
			return fmt.Errorf("--thousands: %w", err)
		}
		opt.Number = dataset.NumberFormat{DecimalSeparator: dec, ThousandsSeparator: thou}

		t, err := dataset.ReadTable(args[0], opt)
		if err != nil {
			return err
		}
		dopt := describe.DefaultOptions()
		if cmd.Flags().Changed("outlier-threshold") {
			dopt.OutlierThreshold = descOutlierThr
		}
		frame, skipped, err := describeTable(t, descColumns, opt.Number, dopt)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if descJSON {
			b, err := utils.PrettyJSON(map[string]any{"file": t.Name, "rows": len(t.Rows), "columns": report.Summaries(frame)})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "File: %s\nRows: %d\n\n", t.Name, len(t.Rows))
		if len(frame) == 0 {
			fmt.Fprintln(out, "No numeric columns found.")
		} else {
			fmt.Fprint(out, frame.Markdown())
		}
		if len(skipped) > 0 {
			fmt.Fprintf(out, "\nNon-numeric columns: %s\n", strings.Join(skipped, ", "))
		}
		return nil
	},
}

// describeTable summarizes the requested columns, or every column in which
// most non-empty cells are numeric. Missing cells are left out of each summary.
func describeTable(t *dataset.Table, columns []string, nf dataset.NumberFormat, opt describe.Options) (describe.Frame, []string, error) {
	var idx []int
	explicit := len(columns) > 0
	if explicit {
		for _, name := range columns {
			i, err := t.Column(name)
			if err != nil {
				return nil, nil, err
			}
			idx = append(idx, i)
		}
	} else {
		for i := range t.Header {
			idx = append(idx, i)
		}
	}

	var frame describe.Frame
	var skipped []string
	for _, i := range idx {
		vals, missing := t.Floats(i, nf)
		nonEmpty := 0
		for _, row := range t.Rows {
			if strings.TrimSpace(row[i]) != "" {
				nonEmpty++
			}
		}
		parsed := len(vals) - missing
		if !explicit && (parsed == 0 || parsed*2 < nonEmpty) {
			skipped = append(skipped, t.Header[i])
			continue
		}
		clean := make([]float64, 0, parsed)
		for _, v := range vals {
			if !math.IsNaN(v) {
				clean = append(clean, v)
			}
		}
		frame = append(frame, describe.Describe(t.Header[i], clean, opt))
	}
	return frame, skipped, nil
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVar(&descDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	describeCmd.Flags().StringVar(&descSheetName, "sheet-name", "", "XLSX sheet name")
	describeCmd.Flags().IntVar(&descSheetIndex, "sheet-index", 0, "XLSX sheet index (1-based)")
	describeCmd.Flags().IntVar(&descMaxRows, "max-rows", 0, "limit rows read (0 = all)")
	describeCmd.Flags().StringSliceVar(&descColumns, "columns", nil, "columns to describe (default: all numeric)")
	describeCmd.Flags().StringVar(&descDecimal, "decimal", "", "decimal separator: '.' | 'comma' (auto when empty; a lone comma before three digits groups thousands)")
	describeCmd.Flags().StringVar(&descThousands, "thousands", "", "thousands separator: ',' | '.' | 'space'")
	describeCmd.Flags().Float64Var(&descOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (0 disables)")
	describeCmd.Flags().BoolVar(&descJSON, "json", false, "print JSON instead of Markdown")
}
