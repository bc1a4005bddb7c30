package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(what string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the " + what,
	}
}

func pointArray(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"x": map[string]interface{}{"type": "number"},
				"y": map[string]interface{}{"type": "number"},
			},
			"required": []string{"x", "y"},
		},
	}
}

func numberProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Classification
		{
			Name: "skeleton_classify_particles",
			Description: "Classify particle centroids by their distance to skeleton end-points (tips) and junctions. " +
				"Each particle becomes Junction, Tip, JunctionAndTip or NoFeature. Returns per-particle results, " +
				"a summary with coverage ratios, display markers and the summary table row.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"particles":      pointArray("Inline particle centroids in calibrated units"),
					"particles_path": pathProperty("particle file (Results CSV with X and Y columns, or JSON array of points)"),
					"features": map[string]interface{}{
						"type":        "object",
						"description": "Inline skeleton features: end_points, junction_voxels, junction_count, total_skeleton_length, unit",
					},
					"features_path": pathProperty("skeleton feature JSON file"),
					"image_path":    pathProperty("particle image; centroids must lie inside it"),
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Row label. Defaults to the image or particle file name",
					},
					"cutoff_distance": map[string]interface{}{
						"type":        "number",
						"description": "Maximum 'snap-to' distance in calibrated units (inclusive). Default 5",
						"default":     5.0,
					},
					"tie_tolerance": numberProperty("Largest junction/tip distance difference treated as a tie. Overrides tie_fraction"),
					"tie_fraction": map[string]interface{}{
						"type":        "number",
						"description": "Tie tolerance as a fraction of the smaller pixel dimension. Default 0.5",
						"default":     0.5,
					},
					"pixel_width":  numberProperty("Calibrated width of one pixel. Default 1"),
					"pixel_height": numberProperty("Calibrated height of one pixel. Default 1"),
					"unit": map[string]interface{}{
						"type":        "string",
						"description": "Calibration unit, e.g. µm",
					},
					"threshold_lower": numberProperty("Lower intensity threshold used by the particle locator (echoed in the row)"),
					"threshold_upper": numberProperty("Upper intensity threshold used by the particle locator (echoed in the row)"),
					"auto_threshold_method": map[string]interface{}{
						"type":        "string",
						"description": "Automatic threshold method used instead of the manual range",
					},
					"size_min": numberProperty("Minimum particle size (echoed in the row)"),
					"size_max": numberProperty("Maximum particle size (echoed in the row)"),
					"display_measurements": map[string]interface{}{
						"type":        "boolean",
						"description": "Append the summary row to the report history. Default false",
						"default":     false,
					},
					"index": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"brute", "kdtree"},
						"description": "Nearest-feature search strategy. Default brute",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Goroutines used to classify particles. Default 1",
						"default":     1,
					},
				},
			},
		},

		// Inputs
		{
			Name:        "skeleton_features_info",
			Description: "Summarize a skeleton feature file: end-point, junction voxel and junction counts, skeleton length and unit.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("skeleton feature JSON file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "particles_info",
			Description: "Count the particles in a particle file and report their bounding box.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("particle file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_info",
			Description: "Get dimensions, format and pixel type of a particle image. With a calibration, also report its physical size and the resulting tie tolerance.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         pathProperty("image file"),
					"pixel_width":  numberProperty("Calibrated width of one pixel. Default 1"),
					"pixel_height": numberProperty("Calibrated height of one pixel. Default 1"),
					"unit": map[string]interface{}{
						"type":        "string",
						"description": "Calibration unit, e.g. µm",
					},
					"tie_fraction": numberProperty("Fraction of the smaller pixel dimension used as tie tolerance. Default 0.5"),
				},
				"required": []string{"path"},
			},
		},

		// History
		{
			Name:        "skeleton_report_history",
			Description: "List summary rows appended by earlier classifications, newest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum rows to return. Default 20, 0 for all",
						"default":     20,
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
