package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ASHISH26940/formrelay/internal/store"
	"github.com/spf13/cobra"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRecordsCommand creates the records command, which prints the stored
// submissions in capture order.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Print captured form submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(format) {
				return fmt.Errorf("invalid format %q: must be one of %v", format, ValidFormats)
			}
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
			records := store.NewStore(cfg.StorePath, logger.Named("store")).Records()
			return writeRecords(cmd.OutOrStdout(), records, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (json|text)")
	return cmd
}

func writeRecords(w io.Writer, records store.Records, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	for _, ts := range records.Keys() {
		sub := records[ts]
		fields := make([]string, 0, len(sub))
		for k := range sub {
			fields = append(fields, k)
		}
		sort.Strings(fields)

		if _, err := fmt.Fprintln(w, ts); err != nil {
			return err
		}
		for _, k := range fields {
			if _, err := fmt.Fprintf(w, "  %s: %s\n", k, sub[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
