package singlecell

import (
	"context"

	"github.com/grailbio/base/log"
)

// Result bundles the outputs of a pipeline run. Data is the QC-filtered
// dataset with annotated cell metadata (cluster labels and 2D coordinates
// filled in); the other fields expose each stage's product directly.
type Result struct {
	Data     *Dataset
	Features FeatureSet
	PCA      *PCA
	Graph    *Graph
	Labels   []int
	Layout   [][2]float64
	Stats    Stats
}

// Run executes the full pipeline on d with options o: QC filter,
// normalization, feature selection, scaling, PCA, SNN graph, Louvain
// clustering and the 2D layout. d's matrices are never modified; QC annotates
// d's cell metadata with mitochondrial fractions, and all later annotation
// happens on the returned Result.Data, a new filtered dataset.
//
// Configuration errors from any stage surface unchanged: QC bounds that
// reject every cell or a component count exceeding min(cells, selected
// features) are reported for the caller to retune, never adjusted silently.
//
// ctx is checked between stages only: a stage always runs to completion, so
// cancellation gives up the run at the next stage boundary, never mid-stage.
// Marker testing is a separate operation (FindMarkers / FindAllMarkers) on
// the Result, since it is typically re-run with different groups.
func Run(ctx context.Context, d *Dataset, o Opts) (*Result, error) {
	if err := o.check(); err != nil {
		return nil, err
	}

	filtered, stats, err := d.ApplyQC(o)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := filtered.Normalize(o); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features, hvgStats, err := filtered.SelectFeatures(o)
	if err != nil {
		return nil, err
	}
	stats = stats.Merge(hvgStats)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scaled, err := filtered.ScaleFeatures(features, o.MaxScaleValue)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pca, err := RunPCA(scaled, o.NPCs)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graph, err := BuildSNNGraph(pca.Embedding, o.Neighbors, o.PruneSNN)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels, err := ClusterLouvain(graph, o.Resolution, o.Seed)
	if err != nil {
		return nil, err
	}
	nClusters := 0
	for _, l := range labels {
		if l+1 > nClusters {
			nClusters = l + 1
		}
	}
	stats.Clusters = nClusters
	log.Printf("clustering: %d cells in %d clusters (resolution %g)", len(labels), nClusters, o.Resolution)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layout, err := Layout2D(pca, graph, o.LayoutIters, o.Seed)
	if err != nil {
		return nil, err
	}

	for c := range filtered.Cells {
		filtered.Cells[c].Cluster = labels[c]
		filtered.Cells[c].XY = layout[c]
	}
	return &Result{
		Data:     filtered,
		Features: features,
		PCA:      pca,
		Graph:    graph,
		Labels:   labels,
		Layout:   layout,
		Stats:    stats,
	}, nil
}
