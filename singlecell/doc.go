// Package singlecell implements the core stages of a single-cell RNA-seq
// analysis pipeline: per-cell quality control, total-count normalization,
// highly-variable-gene selection, scaling, PCA, shared-nearest-neighbor graph
// construction, Louvain community detection, a 2D layout for visualization,
// and differential marker-gene testing.
//
// The pipeline is a fixed linear sequence of stages. Each stage consumes the
// output of the previous one and produces a new value; no stage mutates a
// matrix it did not create, so a caller can safely hold on to the output of
// any stage while later stages run. Run ties the stages together; each stage
// is also usable on its own.
package singlecell
