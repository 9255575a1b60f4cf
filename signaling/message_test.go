package signaling

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/meshcall/limits"
)

func TestActionNormalize(t *testing.T) {
	tests := []struct {
		in   Action
		want Action
	}{
		{ActionAccept, ActionConnected},
		{ActionDeclined, ActionDismissed},
		{ActionConnected, ActionConnected},
		{ActionPing, ActionPing},
		{Action("custom"), Action("custom")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize(), string(tt.in))
	}
}

func TestActionIsMediaSignal(t *testing.T) {
	for _, a := range []Action{ActionOffer, ActionAnswer, ActionCandidate, ActionRemoveCandidates} {
		assert.True(t, a.IsMediaSignal(), string(a))
	}
	for _, a := range []Action{ActionCall, ActionRinging, ActionPing, ActionStatusChange} {
		assert.False(t, a.IsMediaSignal(), string(a))
	}
}

func TestEncodeMessageWireFields(t *testing.T) {
	idx := 0
	data, err := EncodeMessage(&Message{
		Action:        ActionCandidate,
		SDPMid:        "audio",
		SDPMLineIndex: &idx,
		Candidate:     "candidate:1 1 udp 2122260223 fe80::1 40000 typ host",
	})
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"action":"candidate"`)
	assert.Contains(t, s, `"sdp_mid":"audio"`)
	assert.Contains(t, s, `"sdp_mline_index":0`)
	assert.NotContains(t, s, `"offer"`)
}

func TestDecodeMessage(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"action":"call","offer":"v=0","username":"alice","extra":1}`))
	require.NoError(t, err)
	assert.Equal(t, ActionCall, m.Action)
	assert.Equal(t, "v=0", m.Offer)
	assert.Equal(t, "alice", m.Username)

	_, err = DecodeMessage([]byte(`{"offer":"x"}`))
	assert.True(t, errors.Is(err, ErrProtocol))

	_, err = DecodeMessage([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrProtocol))
}

func TestEncodeMessageLimits(t *testing.T) {
	_, err := EncodeMessage(&Message{})
	assert.True(t, errors.Is(err, ErrProtocol))

	_, err = EncodeMessage(&Message{Action: ActionOffer, SDP: strings.Repeat("a", limits.MaxPlaintextMessage)})
	assert.True(t, errors.Is(err, limits.ErrMessageTooLarge))
}
