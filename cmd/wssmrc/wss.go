package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cachesight/wssmrc/config"
	"github.com/cachesight/wssmrc/trace"
	"github.com/cachesight/wssmrc/wss"
)

func newWSSCommand() *cobra.Command {
	var mode string
	var exact bool
	var batchSize int

	cmd := &cobra.Command{
		Use:   "wss <trace-file>",
		Short: "estimate working-set size over a trace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEngineConfig(cmd)
			if err != nil {
				return err
			}
			return runWSS(cfg, args[0], mode, exact, batchSize)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "variable", "block-size mode: fixed|variable|running")
	cmd.Flags().BoolVar(&exact, "exact", false, "use the exact calculator instead of the HLL-bank estimator")
	cmd.Flags().IntVar(&batchSize, "batch", 4096, "records decoded per trace-reader batch")

	return cmd
}

func runWSS(cfg config.Engine, path string, modeFlag string, exact bool, batchSize int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("wssmrc: open %s: %w", path, err)
	}
	defer f.Close()

	r := trace.New(f, batchSize)

	if exact {
		return runExactWSS(cfg, r, batchSize)
	}
	return runEstimatedWSS(cfg, r, modeFlag, batchSize)
}

func runEstimatedWSS(cfg config.Engine, r *trace.Reader, modeFlag string, batchSize int) error {
	mode := wss.VariableBlock
	switch modeFlag {
	case "fixed":
		mode = wss.FixedBlock
	case "running":
		mode = wss.RunningAverage
	}

	est, err := wss.New(wss.Config{
		Precision:       cfg.Precision,
		MinBlock:        cfg.MinBlock,
		MaxBlock:        cfg.MaxBlock,
		FixedBlockBytes: cfg.FixedBlockBytes,
		TTLAware:        true,
		Mode:            mode,
	})
	if err != nil {
		return err
	}

	var nRecords uint64
	for {
		batch, rerr := r.ReadBatch(batchSize)
		for _, req := range batch {
			nRecords++
			size := cfg.ClampBlock(req.BlockSize())
			est.Add(req.KeyHash, size, req.EvictionTime)
		}
		if rerr != nil {
			break
		}
	}

	wssBytes := est.WSS()
	log.Printf("wssmrc: processed %d records, digest=%x", nRecords, r.Digest())
	fmt.Printf("working set size: %s (%d bytes)\n", humanize.Bytes(wssBytes), wssBytes)
	return nil
}

func runExactWSS(cfg config.Engine, r *trace.Reader, batchSize int) error {
	est := wss.NewExact(cfg.MaxDistinctObjects)

	var nRecords uint64
	for {
		batch, rerr := r.ReadBatch(batchSize)
		for _, req := range batch {
			nRecords++
			size := cfg.ClampBlock(req.BlockSize())
			est.Add(req.KeyHash, size, req.EvictionTime)
		}
		if rerr != nil {
			break
		}
	}

	wssBytes := est.WSS()
	log.Printf("wssmrc: processed %d records (exact), dropped=%d, digest=%x", nRecords, est.Dropped(), r.Digest())
	fmt.Printf("working set size (exact): %s (%d bytes)\n", humanize.Bytes(wssBytes), wssBytes)
	return nil
}
