package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/analysis"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "skeleton_classify_particles").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Classification
	case "skeleton_classify_particles":
		return s.handleClassifyParticles(ctx, args)

	// Inputs
	case "skeleton_features_info":
		return s.handleFeaturesInfo(args)
	case "particles_info":
		return s.handleParticlesInfo(args)
	case "image_info":
		return s.handleImageInfo(args)

	// History
	case "skeleton_report_history":
		return s.handleReportHistory(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. Absent arguments decode as an empty
// object.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Classification ===

type classifyParticlesArgs struct {
	Particles     *features.ParticleSet        `json:"particles"`
	ParticlesPath string                       `json:"particles_path"`
	Features      *features.SkeletonFeatureSet `json:"features"`
	FeaturesPath  string                       `json:"features_path"`
	ImagePath     string                       `json:"image_path"`
	Title         string                       `json:"title"`

	CutoffDistance *float64 `json:"cutoff_distance"`
	TieTolerance   *float64 `json:"tie_tolerance"`
	TieFraction    *float64 `json:"tie_fraction"`
	PixelWidth     *float64 `json:"pixel_width"`
	PixelHeight    *float64 `json:"pixel_height"`
	Unit           string   `json:"unit"`

	ThresholdLower      *float64 `json:"threshold_lower"`
	ThresholdUpper      *float64 `json:"threshold_upper"`
	AutoThresholdMethod string   `json:"auto_threshold_method"`
	SizeMin             *float64 `json:"size_min"`
	SizeMax             *float64 `json:"size_max"`

	DisplayMeasurements *bool  `json:"display_measurements"`
	Index               string `json:"index"`
	Workers             *int   `json:"workers"`
}

func (s *Server) handleClassifyParticles(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a classifyParticlesArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	particles, err := s.resolveParticles(a.Particles, a.ParticlesPath)
	if err != nil {
		return nil, err
	}
	skeleton, err := s.resolveFeatures(a.Features, a.FeaturesPath)
	if err != nil {
		return nil, err
	}

	req := analysis.Request{
		Title:     a.Title,
		Particles: particles,
		Skeleton:  skeleton,
		Run:       s.run,
		Calibration: imaging.Calibration{
			PixelWidth:  valueOr(a.PixelWidth, 1),
			PixelHeight: valueOr(a.PixelHeight, 1),
			Unit:        a.Unit,
		},
	}
	if req.Calibration.Unit == "" {
		req.Calibration.Unit = imaging.Uncalibrated.Unit
	}

	run := &req.Run
	run.CutoffDistance = valueOr(a.CutoffDistance, run.CutoffDistance)
	switch {
	case a.TieTolerance != nil:
		run.TieTolerance = a.TieTolerance
	case a.TieFraction != nil:
		run.TieFraction = *a.TieFraction
		run.TieTolerance = nil
	}
	run.ThresholdLower = valueOr(a.ThresholdLower, run.ThresholdLower)
	run.ThresholdUpper = valueOr(a.ThresholdUpper, run.ThresholdUpper)
	if a.AutoThresholdMethod != "" {
		run.AutoThresholdMethod = a.AutoThresholdMethod
	}
	run.ParticleSizeMin = valueOr(a.SizeMin, run.ParticleSizeMin)
	run.ParticleSizeMax = valueOr(a.SizeMax, run.ParticleSizeMax)
	if a.DisplayMeasurements != nil {
		run.DisplayMeasurements = *a.DisplayMeasurements
	}
	if a.Index != "" {
		run.Index = a.Index
	}
	if a.Workers != nil {
		run.Workers = *a.Workers
	}

	if a.ImagePath != "" {
		img, err := s.images.Load(a.ImagePath)
		if err != nil {
			return nil, err
		}
		req.Image = img
	}

	if req.Title == "" {
		switch {
		case a.ImagePath != "":
			req.Title = filepath.Base(a.ImagePath)
		case a.ParticlesPath != "":
			req.Title = filepath.Base(a.ParticlesPath)
		default:
			req.Title = "particles"
		}
	}

	return s.service.Run(ctx, req)
}

func (s *Server) resolveParticles(inline *features.ParticleSet, path string) (features.ParticleSet, error) {
	switch {
	case inline != nil && path != "":
		return nil, fmt.Errorf("%w: give either particles or particles_path, not both", features.ErrInvalidInput)
	case inline != nil:
		return *inline, nil
	case path != "":
		return s.inputs.Particles(path)
	default:
		return nil, fmt.Errorf("%w: particles or particles_path is required", features.ErrInvalidInput)
	}
}

func (s *Server) resolveFeatures(inline *features.SkeletonFeatureSet, path string) (features.SkeletonFeatureSet, error) {
	switch {
	case inline != nil && path != "":
		return features.SkeletonFeatureSet{}, fmt.Errorf("%w: give either features or features_path, not both", features.ErrInvalidInput)
	case inline != nil:
		return *inline, nil
	case path != "":
		return s.inputs.Features(path)
	default:
		return features.SkeletonFeatureSet{}, fmt.Errorf("%w: features or features_path is required", features.ErrInvalidInput)
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// === Input Inspection ===

type pathArgs struct {
	Path string `json:"path"`
}

func (a pathArgs) validate() error {
	if a.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

// FeaturesInfo describes a skeleton feature file.
type FeaturesInfo struct {
	EndPoints           int     `json:"end_points"`
	JunctionVoxels      int     `json:"junction_voxels"`
	JunctionCount       int     `json:"junction_count"`
	TotalSkeletonLength float64 `json:"total_skeleton_length"`
	Unit                string  `json:"unit,omitempty"`
	Valid               bool    `json:"valid"`
	Problem             string  `json:"problem,omitempty"`
}

func (s *Server) handleFeaturesInfo(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	fs, err := s.inputs.Features(a.Path)
	if err != nil {
		return nil, err
	}

	info := &FeaturesInfo{
		EndPoints:           len(fs.EndPoints),
		JunctionVoxels:      len(fs.JunctionVoxels),
		JunctionCount:       fs.JunctionCount,
		TotalSkeletonLength: fs.TotalSkeletonLength,
		Unit:                fs.Unit,
		Valid:               true,
	}
	if err := fs.Validate(); err != nil {
		info.Valid = false
		info.Problem = err.Error()
	}
	return info, nil
}

// ParticlesInfo describes a particle file.
type ParticlesInfo struct {
	Count int     `json:"count"`
	MinX  float64 `json:"min_x"`
	MinY  float64 `json:"min_y"`
	MaxX  float64 `json:"max_x"`
	MaxY  float64 `json:"max_y"`
}

func (s *Server) handleParticlesInfo(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	ps, err := s.inputs.Particles(a.Path)
	if err != nil {
		return nil, err
	}

	info := &ParticlesInfo{Count: len(ps)}
	if len(ps) == 0 {
		return info, nil
	}
	info.MinX, info.MinY = math.Inf(1), math.Inf(1)
	info.MaxX, info.MaxY = math.Inf(-1), math.Inf(-1)
	for _, p := range ps {
		info.MinX = math.Min(info.MinX, p.X)
		info.MinY = math.Min(info.MinY, p.Y)
		info.MaxX = math.Max(info.MaxX, p.X)
		info.MaxY = math.Max(info.MaxY, p.Y)
	}
	return info, nil
}

type imageInfoArgs struct {
	Path        string   `json:"path"`
	PixelWidth  *float64 `json:"pixel_width"`
	PixelHeight *float64 `json:"pixel_height"`
	Unit        string   `json:"unit"`
	TieFraction *float64 `json:"tie_fraction"`
}

// CalibratedImageInfo is image metadata plus its size in calibrated units.
type CalibratedImageInfo struct {
	*imaging.ImageInfo
	Calibration    imaging.Calibration `json:"calibration"`
	PhysicalWidth  float64             `json:"physical_width"`
	PhysicalHeight float64             `json:"physical_height"`
	TieTolerance   float64             `json:"tie_tolerance"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	cal := imaging.Calibration{
		PixelWidth:  valueOr(a.PixelWidth, 1),
		PixelHeight: valueOr(a.PixelHeight, 1),
		Unit:        a.Unit,
	}
	if cal.Unit == "" {
		cal.Unit = imaging.Uncalibrated.Unit
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	info, err := imaging.LoadImageInfo(s.images, a.Path)
	if err != nil {
		return nil, err
	}

	return &CalibratedImageInfo{
		ImageInfo:      info,
		Calibration:    cal,
		PhysicalWidth:  float64(info.Width) * cal.PixelWidth,
		PhysicalHeight: float64(info.Height) * cal.PixelHeight,
		TieTolerance:   cal.TieTolerance(valueOr(a.TieFraction, s.run.TieFraction)),
	}, nil
}

// === History ===

type reportHistoryArgs struct {
	Limit *int `json:"limit"`
}

func (s *Server) handleReportHistory(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a reportHistoryArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	limit := 20
	if a.Limit != nil {
		limit = *a.Limit
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0, got %d", features.ErrInvalidInput, limit)
	}

	rows, err := s.history.Rows(ctx, limit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"count": len(rows),
		"rows":  rows,
	}, nil
}
