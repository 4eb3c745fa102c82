package server

import (
	"github.com/muurk/canmon/internal/protocol"
)

// Message types on the live feed
const (
	TypeFrame = "frame"
	TypeError = "error"
)

// FrameMessage is a decoded frame on the live feed and in /history
type FrameMessage struct {
	Type        string `json:"type"`
	TimestampUS uint32 `json:"timestamp_us"`
	ID          uint32 `json:"id"`
	DLC         uint8  `json:"dlc"`
	Data        string `json:"data"`
	Flags       uint8  `json:"flags"`
	Category    string `json:"category"`
	Node        uint8  `json:"node"`
}

// ErrorMessage is a dropped packet attempt on the live feed
type ErrorMessage struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewFrameMessage converts a classified frame
func NewFrameMessage(cf protocol.ClassifiedFrame) FrameMessage {
	return FrameMessage{
		Type:        TypeFrame,
		TimestampUS: cf.Timestamp,
		ID:          cf.ID,
		DLC:         cf.DLC,
		Data:        cf.HexData(),
		Flags:       cf.Flags,
		Category:    cf.Category.String(),
		Node:        cf.Node,
	}
}

// NewErrorMessage converts a deframing error
func NewErrorMessage(err error) ErrorMessage {
	kind, _ := protocol.KindOf(err)
	return ErrorMessage{
		Type:    TypeError,
		Kind:    kind.String(),
		Message: err.Error(),
	}
}
