package analysis

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/config"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/imaging"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/report"
)

type failingTable struct{}

func (failingTable) AppendRow(context.Context, report.Row) error {
	return errors.New("disk full")
}

func measuringRun() config.RunConfig {
	run := config.DefaultRunConfig()
	run.DisplayMeasurements = true
	return run
}

func fixedClock() time.Time {
	return time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
}

func TestRun_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		want     features.Category
		wantTipD features.Distance
		wantJncD features.Distance
	}{
		{
			name: "A: particle on a lone end-point",
			req: Request{
				Particles: features.ParticleSet{{X: 0, Y: 0}},
				Skeleton:  features.SkeletonFeatureSet{EndPoints: []features.Point{{X: 0, Y: 0}}},
			},
			want:     features.Tip,
			wantTipD: 0,
			wantJncD: features.Unbounded,
		},
		{
			name: "B: both features beyond cutoff",
			req: Request{
				Particles: features.ParticleSet{{X: 10, Y: 10}},
				Skeleton: features.SkeletonFeatureSet{
					EndPoints:      []features.Point{{X: 0, Y: 0}},
					JunctionVoxels: []features.Point{{X: 0, Y: 0}},
					JunctionCount:  1,
				},
			},
			want:     features.NoFeature,
			wantTipD: features.Unbounded,
			wantJncD: features.Unbounded,
		},
		{
			name: "C: equidistant junction and tip",
			req: Request{
				Particles: features.ParticleSet{{X: 1, Y: 0}},
				Skeleton: features.SkeletonFeatureSet{
					EndPoints:      []features.Point{{X: 0, Y: 0}},
					JunctionVoxels: []features.Point{{X: 2, Y: 0}},
					JunctionCount:  1,
				},
			},
			want:     features.JunctionAndTip,
			wantTipD: 1,
			wantJncD: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.Run = config.DefaultRunConfig()
			if tt.want == features.NoFeature {
				req.Run.CutoffDistance = 1
			}

			rep, err := New().Run(context.Background(), req)
			require.NoError(t, err)
			require.Len(t, rep.Results, 1)
			assert.Equal(t, tt.want, rep.Results[0].Category)
			assert.Equal(t, tt.wantTipD, rep.Results[0].TipDistance)
			assert.Equal(t, tt.wantJncD, rep.Results[0].JunctionDistance)
			assert.Equal(t, 1, rep.Summary.TotalParticles)
			assert.False(t, rep.Appended)
		})
	}
}

func TestRun_ScenarioD_NoParticles(t *testing.T) {
	table := report.NewMemoryTable()
	svc := New(WithTable(table))

	_, err := svc.Run(context.Background(), Request{
		Particles: features.ParticleSet{},
		Skeleton:  features.SkeletonFeatureSet{EndPoints: []features.Point{{X: 0, Y: 0}}},
		Run:       measuringRun(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, features.ErrNoParticlesDetected), "got %v", err)
	assert.Zero(t, table.Len(), "no row on failure")
}

func TestRun_Errors(t *testing.T) {
	particles := features.ParticleSet{{X: 1, Y: 1}}
	skeleton := features.SkeletonFeatureSet{EndPoints: []features.Point{{X: 0, Y: 0}}}
	badRun := measuringRun()
	badRun.CutoffDistance = 0

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"empty skeleton", Request{Particles: particles, Run: measuringRun()}, features.ErrInvalidSkeleton},
		{"bad config", Request{Particles: particles, Skeleton: skeleton, Run: badRun}, features.ErrInvalidInput},
		{"bad calibration", Request{
			Particles:   particles,
			Skeleton:    skeleton,
			Run:         measuringRun(),
			Calibration: imaging.Calibration{PixelWidth: -1, PixelHeight: 1},
		}, features.ErrInvalidInput},
		{"centroid outside image", Request{
			Particles: features.ParticleSet{{X: 1, Y: 1}, {X: 40, Y: 1}},
			Skeleton:  skeleton,
			Run:       measuringRun(),
			Image:     image.NewGray(image.Rect(0, 0, 32, 32)),
		}, features.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := report.NewMemoryTable()
			rep, err := New(WithTable(table)).Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, rep)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
			assert.Zero(t, table.Len(), "no row on failure")
		})
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Run(ctx, Request{
		Particles: features.ParticleSet{{X: 0, Y: 0}},
		Skeleton:  features.SkeletonFeatureSet{EndPoints: []features.Point{{X: 0, Y: 0}}},
		Run:       config.DefaultRunConfig(),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_AppendsRowWhenMeasuring(t *testing.T) {
	table := report.NewMemoryTable()
	svc := New(WithTable(table), WithClock(fixedClock))

	req := Request{
		Title: "cell01.tif",
		Particles: features.ParticleSet{
			{X: 0, Y: 0.2},  // tip
			{X: 10, Y: 0.1}, // junction
			{X: 50, Y: 50},  // none
			{X: 5, Y: 0},    // tie
		},
		Skeleton: features.SkeletonFeatureSet{
			EndPoints:           []features.Point{{X: 0, Y: 0}},
			JunctionVoxels:      []features.Point{{X: 10, Y: 0}, {X: 10, Y: 1}},
			JunctionCount:       1,
			TotalSkeletonLength: 20,
			Unit:                "µm",
		},
		Run: measuringRun(),
	}

	rep, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	require.True(t, rep.Appended)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, fixedClock(), rep.CreatedAt)
	assert.Equal(t, "µm", rep.Unit)
	assert.Equal(t, 0.5, rep.TieTolerance)

	assert.Equal(t, features.CategoryCounts{Junction: 1, Tip: 1, JunctionAndTip: 1, NoFeature: 1}, rep.Summary.Counts)

	rows, err := table.Rows(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, rep.RunID, rows[0].RunID)
	assert.Equal(t, "cell01.tif", rows[0].Title)

	v, _ := rows[0].Value(report.ColJunctionsCovered)
	assert.Equal(t, "2 (200.0%)", v)
	v, _ = rows[0].Value(report.ColCutoff)
	assert.Equal(t, "5.0µm", v)
	v, _ = rows[0].Value(report.ColUnclassifiedLength)
	assert.Equal(t, "0.0500", v)

	require.Len(t, rep.Markers, 4)
	assert.Equal(t, Marker{Index: 0, Name: "Tip:0", Category: features.Tip, Color: features.Tip.Hex()}, rep.Markers[0])
	assert.Equal(t, "Junction:1", rep.Markers[1].Name)
	assert.Equal(t, "NoFeature:2", rep.Markers[2].Name)
	assert.Equal(t, "JunctionAndTip:3", rep.Markers[3].Name)
}

func TestRun_NoAppendWithoutMeasurements(t *testing.T) {
	table := report.NewMemoryTable()
	rep, err := New(WithTable(table)).Run(context.Background(), Request{
		Particles: features.ParticleSet{{X: 0, Y: 0}},
		Skeleton:  features.SkeletonFeatureSet{EndPoints: []features.Point{{X: 0, Y: 0}}},
		Run:       config.DefaultRunConfig(),
	})
	require.NoError(t, err)
	assert.False(t, rep.Appended)
	assert.Zero(t, table.Len())
}

func TestRun_TableFailure(t *testing.T) {
	rep, err := New(WithTable(failingTable{})).Run(context.Background(), Request{
		Particles: features.ParticleSet{{X: 0, Y: 0}},
		Skeleton:  features.SkeletonFeatureSet{EndPoints: []features.Point{{X: 0, Y: 0}}},
		Run:       measuringRun(),
	})
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRun_CalibrationDrivesTieTolerance(t *testing.T) {
	// jd = 1.0, td = 1.3: a tie only when the tolerance is at least 0.3.
	req := Request{
		Particles: features.ParticleSet{{X: 0, Y: 0}},
		Skeleton: features.SkeletonFeatureSet{
			JunctionVoxels: []features.Point{{X: 1, Y: 0}},
			EndPoints:      []features.Point{{X: -1.3, Y: 0}},
			JunctionCount:  1,
		},
		Run: config.DefaultRunConfig(),
	}

	req.Calibration = imaging.Calibration{PixelWidth: 0.4, PixelHeight: 0.5, Unit: "µm"}
	rep, err := New().Run(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, rep.TieTolerance, 1e-12)
	assert.Equal(t, features.Junction, rep.Results[0].Category)

	req.Run.TieFraction = 1
	rep, err = New().Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, features.JunctionAndTip, rep.Results[0].Category)

	// Centroids are in µm; (0,0) is inside any image.
	req.Image = image.NewGray(image.Rect(0, 0, 4, 4))
	_, err = New().Run(context.Background(), req)
	assert.NoError(t, err)
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	var particles features.ParticleSet
	for i := 0; i < 200; i++ {
		particles = append(particles, features.Point{X: float64(i % 20), Y: float64(i / 20)})
	}
	skeleton := features.SkeletonFeatureSet{
		EndPoints:      []features.Point{{X: 0, Y: 0}, {X: 19, Y: 9}},
		JunctionVoxels: []features.Point{{X: 10, Y: 5}},
		JunctionCount:  1,
	}

	seq := config.DefaultRunConfig()
	par := seq
	par.Workers = 4
	par.Index = "kdtree"

	a, err := New().Run(context.Background(), Request{Particles: particles, Skeleton: skeleton, Run: seq})
	require.NoError(t, err)
	b, err := New().Run(context.Background(), Request{Particles: particles, Skeleton: skeleton, Run: par})
	require.NoError(t, err)

	assert.Equal(t, a.Summary.Counts, b.Summary.Counts)
	for i := range a.Results {
		assert.Equal(t, a.Results[i].Category, b.Results[i].Category, "particle %d", i)
	}
}
