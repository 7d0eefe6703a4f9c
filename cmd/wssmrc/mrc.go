package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cachesight/wssmrc/config"
	"github.com/cachesight/wssmrc/mrc"
	"github.com/cachesight/wssmrc/trace"
)

func newMRCCommand() *cobra.Command {
	var method string
	var batchSize int
	var out string
	var rate float64
	var sampleCap int

	cmd := &cobra.Command{
		Use:   "mrc <trace-file>",
		Short: "build a miss-ratio curve from a trace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEngineConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("rate") {
				cfg.SamplingRate = rate
			}
			if cmd.Flags().Changed("sample-cap") || cfg.SampleCap <= 0 {
				cfg.SampleCap = sampleCap
			}
			return runMRC(cfg, args[0], method, batchSize, out)
		},
	}

	cmd.Flags().StringVar(&method, "method", "olken", "olken|shards-rate|shards-size|counterstacks")
	cmd.Flags().IntVar(&batchSize, "batch", 4096, "records decoded per trace-reader batch")
	cmd.Flags().StringVar(&out, "out", "", "output CSV path (default: stdout)")
	cmd.Flags().Float64Var(&rate, "rate", 0.1, "SHARDS++ fixed-rate sampling rate R")
	cmd.Flags().IntVar(&sampleCap, "sample-cap", 8192, "SHARDS++ fixed-size sample cap")

	return cmd
}

// histogramOwner is satisfied by every MRC generator; method-specific
// Finalize steps (SHARDS++ fixed-rate's adjusted-mode correction) run
// before this is called.
type histogramOwner interface {
	Histogram() *mrc.Histogram
}

func runMRC(cfg config.Engine, path, method string, batchSize int, out string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("wssmrc: open %s: %w", path, err)
	}
	defer f.Close()
	r := trace.New(f, batchSize)

	var gen histogramOwner
	var finalize func()

	switch method {
	case "shards-rate":
		s := mrc.NewShardsFixedRate(mrc.ShardsFixedRateConfig{
			Rate:        cfg.SamplingRate,
			BucketWidth: cfg.BucketWidthBytes,
			MaxDistinct: cfg.MaxDistinctObjects,
			FixedBlock:  cfg.FixedBlockBytes,
			Adjusted:    true,
		})
		gen, finalize = s, s.Finalize
	case "shards-size":
		gen = mrc.NewShardsFixedSize(mrc.ShardsFixedSizeConfig{
			SMax:        cfg.SampleCap,
			BucketWidth: cfg.BucketWidthBytes,
			FixedBlock:  cfg.FixedBlockBytes,
		})
	case "counterstacks":
		cs, err := mrc.NewCounterStacks(mrc.CounterStacksConfig{
			Precision:    cfg.Precision,
			Capacity:     cfg.CounterCapacity,
			BucketWidth:  cfg.BucketWidthBytes,
			Fidelity:     cfg.Fidelity,
			FixedBlock:   cfg.FixedBlockBytes,
			MergeWorkers: cfg.MergeWorkers,
		})
		if err != nil {
			return err
		}
		gen = cs
	default:
		gen = mrc.NewOlken(mrc.OlkenConfig{
			BucketWidth: cfg.BucketWidthBytes,
			MaxDistinct: cfg.MaxDistinctObjects,
			FixedBlock:  cfg.FixedBlockBytes,
		})
	}

	var nRecords uint64
	for {
		batch, rerr := r.ReadBatch(batchSize)
		for _, req := range batch {
			nRecords++
			size := cfg.ClampBlock(req.BlockSize())
			switch g := gen.(type) {
			case *mrc.ShardsFixedRate:
				g.Add(req.KeyHash, req.Timestamp, size, req.EvictionTime)
			case *mrc.ShardsFixedSize:
				g.Add(req.KeyHash, req.Timestamp, size, req.EvictionTime)
			case *mrc.CounterStacks:
				g.Add(req.KeyHash, req.Timestamp, size, req.EvictionTime)
			case *mrc.Olken:
				g.Add(req.KeyHash, req.Timestamp, size, req.EvictionTime)
			}
		}
		if rerr != nil {
			break
		}
	}
	if finalize != nil {
		finalize()
	}

	log.Printf("wssmrc: processed %d records, digest=%x", nRecords, r.Digest())

	csv := gen.Histogram().WriteCSV()
	if out == "" {
		fmt.Print(csv)
		return nil
	}
	return os.WriteFile(out, []byte(csv), 0o644)
}
