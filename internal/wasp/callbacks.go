package wasp

import "time"

// Upload phases reported through Progress.Phase.
const (
	PhaseHandshake = "handshake"
	PhaseHeader    = "header"
	PhaseChecksum  = "checksum"
	PhaseTransfer  = "transfer"
	PhaseStart     = "start"
	PhaseMAC       = "mac"
	PhaseListening = "listening"
	PhaseFirmware  = "firmware"
	PhaseConfig    = "config"
	PhaseComplete  = "complete"
)

// Progress contains information about an upload in flight.
type Progress struct {
	// Stage is StageOne or StageTwo
	Stage string

	// Phase is one of the Phase constants
	Phase string

	// Chunk is the number of chunks sent in the current transfer
	Chunk int

	// TotalChunks is the chunk count of the current transfer
	TotalChunks int

	// Percentage is the completion of the current transfer (0.0 to 100.0)
	Percentage float64

	// BytesSent is the image bytes sent in the current transfer
	BytesSent int

	// ElapsedTime is the time since the upload started
	ElapsedTime time.Duration
}

// ProgressCallback is called during an upload to report progress.
// Implementations should return quickly; the upload waits for them.
type ProgressCallback func(Progress)

func percentage(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) * 100 / float64(total)
}
