// Package display renders analysis results as terminal tables.
//
// Block tables show one row per block with hit rate, false alarm rates and
// d-prime values; indeterminate metrics print as "-". History tables list a
// subject's sessions most recent first:
//
//	display.BlockTable(os.Stdout, result.Summary, result.Blocks, display.Options{Color: true})
//	display.HistoryTable(os.Stdout, "366122", entries, display.Options{})
//
// Warnings for files that could not be analyzed are printed in yellow:
//
//	display.WarnSkippedFiles(failed).Display(os.Stderr)
//
// All functions write to an io.Writer. Color is opt-in per call so output
// piped to files or tests stays plain.
package display
