package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/opd-ai/meshcall/limits"
)

// Action is the discriminator of a signaling message.
type Action string

const (
	ActionCall         Action = "call"
	ActionRinging      Action = "ringing"
	ActionConnected    Action = "connected"
	ActionDismissed    Action = "dismissed"
	ActionPing         Action = "ping"
	ActionPong         Action = "pong"
	ActionStatusChange Action = "status_change"

	// Media passthrough, opaque to the call state machine.
	ActionOffer            Action = "offer"
	ActionAnswer           Action = "answer"
	ActionCandidate        Action = "candidate"
	ActionRemoveCandidates Action = "remove-candidates"

	// Aliases accepted on receive.
	ActionAccept   Action = "accept"
	ActionDeclined Action = "declined"
)

// StatusOffline is the status_change payload sent on shutdown.
const StatusOffline = "offline"

// Normalize maps accept to connected and declined to dismissed.
func (a Action) Normalize() Action {
	switch a {
	case ActionAccept:
		return ActionConnected
	case ActionDeclined:
		return ActionDismissed
	default:
		return a
	}
}

// IsMediaSignal reports whether the action is forwarded to the media layer.
func (a Action) IsMediaSignal() bool {
	switch a {
	case ActionOffer, ActionAnswer, ActionCandidate, ActionRemoveCandidates:
		return true
	}
	return false
}

// Candidate is one ICE candidate inside a remove-candidates message.
type Candidate struct {
	SDPMid        string `json:"sdp_mid,omitempty"`
	SDPMLineIndex int    `json:"sdp_mline_index"`
	Candidate     string `json:"candidate"`
}

// Message is the JSON plaintext carried inside every envelope.
type Message struct {
	Action        Action      `json:"action"`
	Offer         string      `json:"offer,omitempty"`
	Answer        string      `json:"answer,omitempty"`
	Status        string      `json:"status,omitempty"`
	Username      string      `json:"username,omitempty"`
	Identifier    string      `json:"identifier,omitempty"`
	SDP           string      `json:"sdp,omitempty"`
	SDPMid        string      `json:"sdp_mid,omitempty"`
	SDPMLineIndex *int        `json:"sdp_mline_index,omitempty"`
	Candidate     string      `json:"candidate,omitempty"`
	Candidates    []Candidate `json:"candidates,omitempty"`
}

// EncodeMessage serializes m and checks it fits in one frame.
func EncodeMessage(m *Message) ([]byte, error) {
	if m == nil || m.Action == "" {
		return nil, fmt.Errorf("%w: missing action", ErrProtocol)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if err := limits.ValidatePlaintextMessage(data); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeMessage parses a plaintext. Unknown fields are ignored; an empty
// action is a protocol error.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if m.Action == "" {
		return nil, fmt.Errorf("%w: missing action", ErrProtocol)
	}
	return &m, nil
}
