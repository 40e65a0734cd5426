package core

import "github.com/Skryldev/decodekit/format"

// Status is the outcome of one engine step.
type Status uint8

const (
	// StatusNeedMoreInput suspends the engine until more bytes arrive.
	StatusNeedMoreInput Status = iota
	// StatusMetadataHeader announces a selected metadata entry and its
	// declared length before the engine buffers the payload.
	StatusMetadataHeader
	// StatusMetadata carries one metadata entry.
	StatusMetadata
	// StatusDimensions means the image size is known; the orchestrator
	// allocates the destination before feeding again.
	StatusDimensions
	// StatusFrame means the pixel data is complete.
	StatusFrame
	// StatusDone means the engine finished without further output.
	StatusDone
	// StatusFault carries a fatal decode error.
	StatusFault
)

var statusNames = [...]string{
	StatusNeedMoreInput:  "need_more_input",
	StatusMetadataHeader: "metadata_header",
	StatusMetadata:       "metadata",
	StatusDimensions:     "dimensions",
	StatusFrame:          "frame",
	StatusDone:           "done",
	StatusFault:          "fault",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Event is returned by every Feed call.
type Event struct {
	Status  Status
	Kind    format.FourCC // metadata kind
	Length  uint64        // declared metadata length (StatusMetadataHeader)
	Payload []byte        // metadata bytes (StatusMetadata)
	Err     error         // StatusFault
}

// NeedMoreInput is the suspension event.
func NeedMoreInput() Event { return Event{Status: StatusNeedMoreInput} }

// Done is the completion event.
func Done() Event { return Event{Status: StatusDone} }

// Fault wraps err in a fault event.
func Fault(err error) Event { return Event{Status: StatusFault, Err: err} }

// State is the orchestrator's position in a decode.
type State uint8

const (
	StateIdle State = iota
	StateSniffing
	StateConfiguring
	StateDecoding
	StateSuspended
	StateCompleted
	StateTruncated
	StateFatal
	StateUnsupported
	StateLimitExceeded
	StateConfigRejected
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateSniffing:       "sniffing",
	StateConfiguring:    "configuring",
	StateDecoding:       "decoding",
	StateSuspended:      "suspended",
	StateCompleted:      "completed",
	StateTruncated:      "truncated",
	StateFatal:          "fatal",
	StateUnsupported:    "unsupported",
	StateLimitExceeded:  "limit_exceeded",
	StateConfigRejected: "config_rejected",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateTruncated, StateFatal, StateUnsupported, StateLimitExceeded, StateConfigRejected:
		return true
	}
	return false
}
