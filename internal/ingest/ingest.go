// Package ingest reads the outputs of the external skeleton analyser and
// particle locator.
//
// Particles come as an ImageJ-style Results CSV (any columns, of which "X" and
// "Y" hold the centroid) or as a JSON array of {"x","y"} objects. Skeleton
// features come as JSON:
//
//	{
//	  "end_points":            [{"x": 1, "y": 2}, ...],
//	  "junction_voxels":       [{"x": 5, "y": 5}, ...],
//	  "junction_count":        3,
//	  "junctions_per_tree":    [2, 1],
//	  "total_skeleton_length": 412.7,
//	  "unit":                  "µm"
//	}
//
// junction_count wins over junctions_per_tree; when only the per-tree counts
// are given their sum is used. Extra fields, such as a "z" coordinate on
// voxels, are ignored.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
)

// ReadParticlesCSV parses centroids from a Results table export.
func ReadParticlesCSV(r io.Reader) (features.ParticleSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("particles CSV is empty")
		}
		return nil, fmt.Errorf("failed to read particles CSV header: %w", err)
	}

	xCol, yCol := -1, -1
	for i, h := range header {
		switch strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "X":
			xCol = i
		case "Y":
			yCol = i
		}
	}
	if xCol < 0 || yCol < 0 {
		return nil, fmt.Errorf("particles CSV header must contain X and Y columns, got %q", header)
	}

	particles := make(features.ParticleSet, 0)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read particles CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blankRecord(record) {
			continue
		}
		if xCol >= len(record) || yCol >= len(record) {
			return nil, fmt.Errorf("particles CSV line %d: missing X or Y value", line)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(record[xCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("particles CSV line %d: invalid X %q", line, record[xCol])
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(record[yCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("particles CSV line %d: invalid Y %q", line, record[yCol])
		}
		particles = append(particles, features.Point{X: x, Y: y})
	}

	return particles, nil
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ReadParticlesJSON parses a JSON array of points.
func ReadParticlesJSON(r io.Reader) (features.ParticleSet, error) {
	var particles features.ParticleSet
	if err := json.NewDecoder(r).Decode(&particles); err != nil {
		return nil, fmt.Errorf("failed to decode particles JSON: %w", err)
	}
	if particles == nil {
		particles = features.ParticleSet{}
	}
	return particles, nil
}

type featuresDocument struct {
	EndPoints           []features.Point `json:"end_points"`
	JunctionVoxels      []features.Point `json:"junction_voxels"`
	JunctionCount       *int             `json:"junction_count"`
	JunctionsPerTree    []int            `json:"junctions_per_tree"`
	TotalSkeletonLength float64          `json:"total_skeleton_length"`
	Unit                string           `json:"unit"`
}

// ReadFeaturesJSON parses a skeleton feature document.
func ReadFeaturesJSON(r io.Reader) (features.SkeletonFeatureSet, error) {
	var doc featuresDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return features.SkeletonFeatureSet{}, fmt.Errorf("failed to decode features JSON: %w", err)
	}

	fs := features.SkeletonFeatureSet{
		EndPoints:           doc.EndPoints,
		JunctionVoxels:      doc.JunctionVoxels,
		TotalSkeletonLength: doc.TotalSkeletonLength,
		Unit:                doc.Unit,
	}
	if doc.JunctionCount != nil {
		fs.JunctionCount = *doc.JunctionCount
	} else {
		for _, n := range doc.JunctionsPerTree {
			fs.JunctionCount += n
		}
	}
	return fs, nil
}

// LoadParticles reads a particle file. ".json" files are parsed as JSON, all
// other extensions as CSV.
func LoadParticles(path string) (features.ParticleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open particles: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadParticlesJSON(f)
	}
	return ReadParticlesCSV(f)
}

// LoadFeatures reads a skeleton feature JSON file.
func LoadFeatures(path string) (features.SkeletonFeatureSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return features.SkeletonFeatureSet{}, fmt.Errorf("failed to open features: %w", err)
	}
	defer f.Close()
	return ReadFeaturesJSON(f)
}
