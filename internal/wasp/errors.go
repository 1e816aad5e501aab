package wasp

import (
	"errors"
	"fmt"
	"time"

	"github.com/muurk/waspflash/internal/protocol"
)

// Stage names used in errors, progress and metrics.
const (
	StageOne = "stage1"
	StageTwo = "stage2"
)

// InputError reports an unusable firmware image.
type InputError struct {
	// Path is the image file, if the image came from disk
	Path string
	// Reason describes what is wrong with the image
	Reason string
	// Underlying error if any
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid image %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid image %s: %s", e.Path, e.Reason)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// MetricResult implements the metrics result classifier.
func (e *InputError) MetricResult() string { return "input" }

// TransportError reports a failed register or link operation.
type TransportError struct {
	Stage string
	// State is the protocol state the failure happened in
	State string
	// Op describes the failed operation (e.g., "write DATA1")
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport failure in %s (%s): %v", e.Stage, e.State, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MetricResult implements the metrics result classifier.
func (e *TransportError) MetricResult() string { return "transport" }

// ProtocolErrorKind classifies a rejected exchange.
type ProtocolErrorKind int

const (
	NotReady ProtocolErrorKind = iota + 1
	HeaderRejected
	ChecksumRejected
	ChunkRejected
	PeerError
)

func (k ProtocolErrorKind) String() string {
	switch k {
	case NotReady:
		return "device not ready"
	case HeaderRejected:
		return "header rejected"
	case ChecksumRejected:
		return "checksum rejected"
	case ChunkRejected:
		return "chunk rejected"
	case PeerError:
		return "peer reported error"
	default:
		return fmt.Sprintf("ProtocolErrorKind(%d)", int(k))
	}
}

// ProtocolError reports a device response outside the accepted set.
type ProtocolError struct {
	Stage string
	State string
	Kind  ProtocolErrorKind
	// Register is the register that held Value (stage-1 only)
	Register protocol.Register
	// Value is the offending register value or packet response
	Value uint16
	// Chunk is the 1-based chunk index, zero when not transferring
	Chunk int
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Stage == StageTwo:
		return fmt.Sprintf("%s %s in %s: response %s (chunk %d)",
			e.Stage, e.Kind, e.State, protocol.PacketResponseName(e.Value), e.Chunk)
	case e.Chunk > 0:
		return fmt.Sprintf("%s %s in %s: %s = %s (chunk %d)",
			e.Stage, e.Kind, e.State, e.Register, protocol.RegisterResponseName(e.Value), e.Chunk)
	default:
		return fmt.Sprintf("%s %s in %s: %s = %s",
			e.Stage, e.Kind, e.State, e.Register, protocol.RegisterResponseName(e.Value))
	}
}

// MetricResult implements the metrics result classifier.
func (e *ProtocolError) MetricResult() string { return "protocol" }

// TimeoutError reports a bounded wait that expired or was cancelled.
type TimeoutError struct {
	Stage string
	State string
	// Waiting describes what was awaited (e.g., "STATUS == READY_TO_START")
	Waiting string
	Timeout time.Duration
	// Err is the context error when the wait was cancelled
	Err error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: cancelled while waiting for %s: %v", e.Stage, e.State, e.Waiting, e.Err)
	}
	return fmt.Sprintf("%s %s: timed out after %s waiting for %s", e.Stage, e.State, e.Timeout, e.Waiting)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// MetricResult implements the metrics result classifier.
func (e *TimeoutError) MetricResult() string { return "timeout" }

// IsRetryable reports whether an upload error may be retried in place.
// No WASP failure is: the device must be reset before another attempt.
func IsRetryable(err error) bool {
	return false
}

// IsInputError reports whether err is an InputError.
func IsInputError(err error) bool {
	var e *InputError
	return errors.As(err, &e)
}

// IsTransportError reports whether err is a TransportError.
func IsTransportError(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsProtocolError reports whether err is a ProtocolError.
func IsProtocolError(err error) bool {
	var e *ProtocolError
	return errors.As(err, &e)
}

// IsTimeoutError reports whether err is a TimeoutError.
func IsTimeoutError(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}
