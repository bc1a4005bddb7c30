package imaging

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
)

func TestCalibration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cal     Calibration
		wantErr bool
	}{
		{"uncalibrated", Uncalibrated, false},
		{"microns", Calibration{PixelWidth: 0.2, PixelHeight: 0.4, Unit: "µm"}, false},
		{"zero width", Calibration{PixelWidth: 0, PixelHeight: 1}, true},
		{"negative height", Calibration{PixelWidth: 1, PixelHeight: -1}, true},
		{"NaN width", Calibration{PixelWidth: math.NaN(), PixelHeight: 1}, true},
		{"infinite height", Calibration{PixelWidth: 1, PixelHeight: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cal.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, features.ErrInvalidInput) {
				t.Errorf("Validate() error %v is not ErrInvalidInput", err)
			}
		})
	}
}

func TestCalibration_TieToleranceAndToPixel(t *testing.T) {
	cal := Calibration{PixelWidth: 0.2, PixelHeight: 0.4, Unit: "µm"}

	if got := cal.TieTolerance(0.5); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("TieTolerance(0.5) = %v, want 0.1", got)
	}
	if got := cal.TieTolerance(1); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("TieTolerance(1) = %v, want 0.2", got)
	}

	px := cal.ToPixel(features.Point{X: 1, Y: 2})
	if math.Abs(px.X-5) > 1e-9 || math.Abs(px.Y-5) > 1e-9 {
		t.Errorf("ToPixel = %+v, want {5 5}", px)
	}
}

func TestCheckCentroids(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 50))
	cal := Calibration{PixelWidth: 0.5, PixelHeight: 0.5, Unit: "µm"}

	inside := []features.Point{{X: 0, Y: 0}, {X: 49.5, Y: 24.9}, {X: 50, Y: 25}}
	if err := CheckCentroids(img, cal, inside); err != nil {
		t.Fatalf("CheckCentroids(inside) = %v", err)
	}

	outside := []features.Point{{X: 1, Y: 1}, {X: 10, Y: 25.5}, {X: -1, Y: 0}}
	err := CheckCentroids(img, cal, outside)
	if err == nil {
		t.Fatal("CheckCentroids should reject a centroid below the image")
	}
	if !errors.Is(err, features.ErrInvalidInput) {
		t.Errorf("error %v is not ErrInvalidInput", err)
	}
	var oob *OutOfBoundsError
	if !errors.As(err, &oob) {
		t.Fatalf("error %T is not *OutOfBoundsError", err)
	}
	if oob.Index != 1 {
		t.Errorf("Index = %d, want 1", oob.Index)
	}
}

func TestCheckCentroids_BadCalibration(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	err := CheckCentroids(img, Calibration{}, []features.Point{{X: 1, Y: 1}})
	if !errors.Is(err, features.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}
