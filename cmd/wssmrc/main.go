// Command wssmrc runs working-set-size and miss-ratio-curve analytics over
// a binary trace file (spec.md §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var v = viper.New()

func main() {
	root := &cobra.Command{
		Use:   "wssmrc",
		Short: "working-set-size and miss-ratio-curve analytics over cache traces",
	}

	root.PersistentFlags().String("config", "", "path to a TOML configuration file")
	root.PersistentFlags().Uint8("precision", 14, "HLL precision b, [4,16]")
	root.PersistentFlags().Uint64("bucket-width", 32<<20, "MRC histogram bucket width in bytes")
	root.PersistentFlags().Uint32("fixed-block", 4<<10, "fixed block size in bytes (0 selects running-mean sizing)")
	root.PersistentFlags().Uint32("min-block", 64, "minimum block size in bytes, clamped at ingestion")
	root.PersistentFlags().Uint32("max-block", 8<<20, "maximum block size in bytes, clamped at ingestion")

	if err := v.BindPFlags(root.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, "wssmrc: bind flags:", err)
		os.Exit(1)
	}

	root.AddCommand(newWSSCommand())
	root.AddCommand(newMRCCommand())
	root.AddCommand(newServeReportCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
