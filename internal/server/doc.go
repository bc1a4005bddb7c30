// Package server implements the MCP (Model Context Protocol) server for
// skeleton-based particle classification.
//
// This package provides a JSON-RPC 2.0 server that exposes the classifier
// through the MCP protocol, so MCP-compatible clients can classify particles
// against skeleton features exported by an image analysis pipeline.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Classification:
//   - skeleton_classify_particles: Classify particles as Junction, Tip,
//     JunctionAndTip or NoFeature and summarize the run
//
// Inputs:
//   - skeleton_features_info: Counts of a skeleton feature file
//   - particles_info: Count and bounding box of a particle file
//   - image_info: Particle image metadata and calibrated size
//
// History:
//   - skeleton_report_history: Summary rows appended by earlier runs
//
// # Caching
//
// Particle files, feature files and images are cached by path for the
// lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string, e.g. "no particles detected"
//
// # Usage
//
//	srv := server.New(server.WithHistory(table))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
