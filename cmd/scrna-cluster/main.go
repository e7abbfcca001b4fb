package main

// scrna-cluster runs the single-cell clustering pipeline over a counts table.
//
// Input is a TSV with one header row naming the genes and one row per cell:
//
//	cell	CD3D	CD79A	MT-ND1	...
//	AAACATACAACCAC	0	3	12	...
//
// Outputs are a per-cell metadata table (QC stats, cluster label, 2D layout
// coordinates), the selected variable genes, and per-cluster marker genes.
// An output path ending in .gz is gzip-compressed.
//
// Example:
//
//	scrna-cluster -counts pbmc.tsv.gz -out-dir out -resolution 0.8

import (
	"bufio"
	"context"
	"flag"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/scrna/singlecell"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

type cmdFlags struct {
	countsPath   string
	outDir       string
	mitoPrefixes string
	permRounds   int
}

// loadCounts reads the counts TSV into a dataset.
func loadCounts(ctx context.Context, path string) (*singlecell.Dataset, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	var r io.Reader = in.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: open gzip", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<26)
	if !scanner.Scan() {
		return nil, errors.Errorf("%s: empty counts file", path)
	}
	header := strings.Split(scanner.Text(), "\t")
	if len(header) < 2 {
		return nil, errors.Errorf("%s: header must name at least one gene", path)
	}
	geneIDs := header[1:]

	var cellIDs []string
	var rows [][]float64
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != len(header) {
			return nil, errors.Errorf("%s: row %d has %d fields, header has %d",
				path, len(rows)+2, len(fields), len(header))
		}
		row := make([]float64, len(geneIDs))
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: row %d, gene %s", path, len(rows)+2, geneIDs[i])
			}
			row[i] = v
		}
		cellIDs = append(cellIDs, fields[0])
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	counts, err := singlecell.NewMatrixFromRows(rows)
	if err != nil {
		return nil, err
	}
	return singlecell.NewDataset(counts, cellIDs, geneIDs)
}

// writeTSV creates path (gzipped if it ends in .gz) and hands the writer to
// emit.
func writeTSV(ctx context.Context, path string, emit func(io.Writer) error) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := out.Writer(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(w)
		defer func() {
			if e := gz.Close(); e != nil && err == nil {
				err = e
			}
		}()
		return emit(gz)
	}
	return emit(w)
}

func run(ctx context.Context, flags cmdFlags, opts singlecell.Opts) error {
	if flags.countsPath == "" {
		return errors.New("-counts is required")
	}
	data, err := loadCounts(ctx, flags.countsPath)
	if err != nil {
		return err
	}
	log.Printf("loaded %d cells x %d genes from %s", data.NCells(), data.NGenes(), flags.countsPath)

	result, err := singlecell.Run(ctx, data, opts)
	if err != nil {
		return err
	}
	if flags.permRounds > 0 {
		// Advisory only: reported to help choose the component count.
		scaled, err := result.Data.ScaleFeatures(result.Features, opts.MaxScaleValue)
		if err != nil {
			return err
		}
		pvals, err := result.PCA.PermutationSignificance(scaled, flags.permRounds, 0.1, opts.Seed)
		if err != nil {
			return err
		}
		for i, p := range pvals {
			log.Printf("PC%d: variance explained %.4f, permutation p %.4f", i+1, result.PCA.VarExplained[i], p)
		}
	}

	markers, mstats, err := singlecell.FindAllMarkers(result.Data, result.Labels, opts)
	if err != nil {
		return err
	}
	log.Printf("markers: %d genes tested, %d reported across %d clusters",
		mstats.GenesTested, len(markers), result.Stats.Clusters)

	if err := writeTSV(ctx, filepath.Join(flags.outDir, "cells.tsv"), func(w io.Writer) error {
		return singlecell.WriteCellsTSV(w, result.Data)
	}); err != nil {
		return err
	}
	if err := writeTSV(ctx, filepath.Join(flags.outDir, "hvg.tsv"), func(w io.Writer) error {
		return singlecell.WriteHVGTSV(w, result.Data, result.Features)
	}); err != nil {
		return err
	}
	return writeTSV(ctx, filepath.Join(flags.outDir, "markers.tsv"), func(w io.Writer) error {
		return singlecell.WriteMarkersTSV(w, markers)
	})
}

func main() {
	opts := singlecell.DefaultOpts
	var flags cmdFlags
	defaults := singlecell.DefaultOpts

	flag.StringVar(&flags.countsPath, "counts", "", "TSV (optionally .gz) of raw counts: header of gene names, one row per cell.")
	flag.StringVar(&flags.outDir, "out-dir", ".", "Directory for the output tables.")
	flag.StringVar(&flags.mitoPrefixes, "mito-prefixes", strings.Join(defaults.MitoPrefixes, ","),
		"Comma-separated gene-name prefixes identifying mitochondrial genes.")
	flag.IntVar(&flags.permRounds, "pc-permutations", 0,
		"If positive, run this many permutation rounds to score PC significance (slow).")
	flag.IntVar(&opts.MinFeatures, "min-features", defaults.MinFeatures, "QC: minimum detected genes per cell.")
	flag.IntVar(&opts.MaxFeatures, "max-features", defaults.MaxFeatures, "QC: maximum detected genes per cell.")
	flag.Float64Var(&opts.MaxMitoFrac, "max-mito", defaults.MaxMitoFrac, "QC: maximum mitochondrial fraction (exclusive).")
	flag.Float64Var(&opts.ScaleFactor, "scale-factor", defaults.ScaleFactor, "Per-cell target sum for total-count normalization.")
	flag.IntVar(&opts.NFeatures, "n-features", defaults.NFeatures, "Number of highly variable genes to select.")
	flag.Float64Var(&opts.MaxScaleValue, "scale-max", defaults.MaxScaleValue, "Clip for scaled expression values.")
	flag.IntVar(&opts.NPCs, "pcs", defaults.NPCs, "Number of principal components.")
	flag.IntVar(&opts.Neighbors, "neighbors", defaults.Neighbors, "k of the nearest-neighbor graph.")
	flag.Float64Var(&opts.PruneSNN, "snn-prune", defaults.PruneSNN, "Drop SNN edges with Jaccard weight below this.")
	flag.Float64Var(&opts.Resolution, "resolution", defaults.Resolution, "Clustering resolution; higher finds more clusters.")
	flag.Int64Var(&opts.Seed, "seed", defaults.Seed, "Random seed for clustering and layout.")
	flag.Float64Var(&opts.MinPct, "min-pct", defaults.MinPct, "Markers: minimum detected fraction in one of the compared groups.")
	flag.Float64Var(&opts.LogFCThreshold, "logfc-threshold", defaults.LogFCThreshold, "Markers: minimum average log fold-change.")
	flag.BoolVar(&opts.OnlyPositive, "only-pos", defaults.OnlyPositive, "Markers: report up-regulated genes only.")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	opts.MitoPrefixes = strings.Split(flags.mitoPrefixes, ",")
	if err := run(ctx, flags, opts); err != nil {
		log.Fatalf("scrna-cluster: %v", err)
	}
}
