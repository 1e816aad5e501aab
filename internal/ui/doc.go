// Package ui provides terminal UI components for the wasp-uploader CLI.
//
// This package uses Bubble Tea, Bubbles and Lipgloss to render polished
// terminal output. The components follow a "run once and exit" pattern:
// they render output compellingly but don't require user interaction,
// apart from the upload confirmation prompt.
//
// # Architecture
//
//   - Header: command banner showing the operation and its parameters
//   - Progress: progress bar with step list showing real-time status
//   - Result: success/failure boxes with details and troubleshooting tips
//   - Trace: the simulated device's view of a dry run, for verbose mode
//   - RenderTable: bordered tables (the profile catalog)
//
// These components are orchestrated by the UploadRunner, which manages the
// header → steps → result flow for an upload.
//
// # Usage Pattern
//
//	runner := ui.NewUploadRunner(ui.UploadRunnerConfig{
//	    Title:   "Stage 1 Upload",
//	    Command: "wasp-uploader stage1",
//	    Params:  map[string]string{"Profile": "3390-mdio"},
//	    Phases:  []ui.Phase{{Key: "header", Name: "Writing header"}, ...},
//	})
//
//	details, err := runner.Run(ctx, func(ctx context.Context, onPhase ui.PhaseCallback) (map[string]string, error) {
//	    // forward engine progress to onPhase(phase, fraction, note)
//	})
//
// # Logging Integration
//
// zap logging is silent unless WASP_LOG_LEVEL is set (or --verbose is
// passed), and goes to stderr, so the curated UI output on stdout stays
// clean.
package ui
