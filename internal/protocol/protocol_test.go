package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wemet/relay-server-go/internal/errors"
)

func TestDecodeInbound_FindMatch(t *testing.T) {
	t.Run("decodes full profile", func(t *testing.T) {
		frame := `{"event":"find-match","data":{"username":"kim","isGuest":true,"myGender":"Male","lookingFor":"Female","avatar":"🐱","bio":"hi","weMetId":"WM-1"}}`

		msg, err := DecodeInbound([]byte(frame))
		require.NoError(t, err)

		fm, ok := msg.(FindMatch)
		require.True(t, ok)
		assert.Equal(t, "kim", fm.Username)
		assert.True(t, fm.IsGuest)
		assert.Equal(t, "Male", fm.MyGender)
		assert.Equal(t, "Female", fm.LookingFor)
		assert.Equal(t, "🐱", fm.Avatar)
		assert.Equal(t, "hi", fm.Bio)
		require.NotNil(t, fm.WeMetID)
		assert.Equal(t, "WM-1", *fm.WeMetID)
	})

	t.Run("never rejects missing or mistyped fields", func(t *testing.T) {
		frames := []string{
			`{"event":"find-match"}`,
			`{"event":"find-match","data":null}`,
			`{"event":"find-match","data":"oops"}`,
			`{"event":"find-match","data":{"username":42,"isGuest":"yes","lookingFor":null}}`,
		}

		for _, frame := range frames {
			msg, err := DecodeInbound([]byte(frame))
			require.NoError(t, err, frame)
			fm, ok := msg.(FindMatch)
			require.True(t, ok, frame)
			assert.Empty(t, fm.Username)
			assert.False(t, fm.IsGuest)
			assert.Nil(t, fm.WeMetID)
		}
	})
}

func TestDecodeInbound_Signals(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		kind    EventType
		payload string
	}{
		{"offer", `{"event":"offer","data":{"offer":{"type":"offer","sdp":"v=0"}}}`, EventOffer, `{"type":"offer","sdp":"v=0"}`},
		{"answer", `{"event":"answer","data":{"answer":{"type":"answer","sdp":"v=0"}}}`, EventAnswer, `{"type":"answer","sdp":"v=0"}`},
		{"candidate", `{"event":"ice-candidate","data":{"candidate":{"candidate":"candidate:1 1 udp 1 1.2.3.4 5 typ host"}}}`, EventICECandidate, `{"candidate":"candidate:1 1 udp 1 1.2.3.4 5 typ host"}`},
		{"chat", `{"event":"chat-message","data":{"message":"hello"}}`, EventChatMessage, `"hello"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := DecodeInbound([]byte(tc.frame))
			require.NoError(t, err)

			sig, ok := msg.(Signal)
			require.True(t, ok)
			assert.Equal(t, tc.kind, sig.Kind)
			assert.Equal(t, tc.kind, sig.InboundEvent())
			assert.JSONEq(t, tc.payload, string(sig.Payload))
		})
	}

	t.Run("ignores the legacy to field", func(t *testing.T) {
		msg, err := DecodeInbound([]byte(`{"event":"chat-message","data":{"to":"someone-else","message":"hi"}}`))
		require.NoError(t, err)
		assert.JSONEq(t, `"hi"`, string(msg.(Signal).Payload))
	})

	t.Run("rejects non-object data", func(t *testing.T) {
		_, err := DecodeInbound([]byte(`{"event":"offer","data":[1,2]}`))
		assert.Equal(t, apperrors.ErrCodeMalformedMessage, apperrors.GetCode(err))
	})
}

func TestDecodeInbound_Control(t *testing.T) {
	t.Run("stop-matching", func(t *testing.T) {
		msg, err := DecodeInbound([]byte(`{"event":"stop-matching"}`))
		require.NoError(t, err)
		assert.Equal(t, StopMatching{}, msg)
	})

	t.Run("get-balance", func(t *testing.T) {
		msg, err := DecodeInbound([]byte(`{"event":"get-balance"}`))
		require.NoError(t, err)
		assert.Equal(t, GetBalance{}, msg)
	})

	t.Run("update-balance", func(t *testing.T) {
		msg, err := DecodeInbound([]byte(`{"event":"update-balance","data":{"amount":-25}}`))
		require.NoError(t, err)
		assert.Equal(t, UpdateBalance{Amount: -25}, msg)
	})

	t.Run("update-balance without amount is malformed", func(t *testing.T) {
		_, err := DecodeInbound([]byte(`{"event":"update-balance"}`))
		assert.Equal(t, apperrors.ErrCodeMalformedMessage, apperrors.GetCode(err))

		_, err = DecodeInbound([]byte(`{"event":"update-balance","data":{"amount":"lots"}}`))
		assert.Equal(t, apperrors.ErrCodeMalformedMessage, apperrors.GetCode(err))
	})
}

func TestDecodeInbound_Errors(t *testing.T) {
	t.Run("unknown event", func(t *testing.T) {
		_, err := DecodeInbound([]byte(`{"event":"teleport"}`))
		assert.Equal(t, apperrors.ErrCodeUnknownEvent, apperrors.GetCode(err))
	})

	t.Run("outbound-only events are unknown inbound", func(t *testing.T) {
		_, err := DecodeInbound([]byte(`{"event":"matched"}`))
		assert.Equal(t, apperrors.ErrCodeUnknownEvent, apperrors.GetCode(err))
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := DecodeInbound([]byte(`{"event":`))
		assert.Equal(t, apperrors.ErrCodeMalformedMessage, apperrors.GetCode(err))
	})

	t.Run("missing event", func(t *testing.T) {
		_, err := DecodeInbound([]byte(`{"data":{}}`))
		assert.Equal(t, apperrors.ErrCodeMalformedMessage, apperrors.GetCode(err))
	})
}

func TestEncode(t *testing.T) {
	t.Run("bodyless events omit data", func(t *testing.T) {
		frame, err := Encode(Waiting{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"waiting"}`, string(frame))

		frame, err = Encode(PartnerDisconnected{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"partner-disconnected"}`, string(frame))
	})

	t.Run("matched carries partner profile", func(t *testing.T) {
		frame, err := Encode(Matched{
			PartnerID:     "p1",
			Initiator:     true,
			PartnerName:   "Anonymous",
			PartnerAvatar: "😊",
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"matched","data":{"partnerId":"p1","initiator":true,"partnerName":"Anonymous","partnerAvatar":"😊","partnerBio":"","partnerWeMetId":null}}`, string(frame))
	})

	t.Run("relayed chat message", func(t *testing.T) {
		frame, err := Encode(Relayed{Kind: EventChatMessage, Payload: json.RawMessage(`"hello"`), From: "x"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"chat-message","data":{"message":"hello","from":"x"}}`, string(frame))
	})

	t.Run("relayed candidate keeps payload untouched", func(t *testing.T) {
		payload := `{"candidate":"candidate:0 1 UDP 2122252543 10.0.0.1 54321 typ host","sdpMid":"0","sdpMLineIndex":0}`
		frame, err := Encode(Relayed{Kind: EventICECandidate, Payload: json.RawMessage(payload), From: "x"})
		require.NoError(t, err)

		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		var data map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.JSONEq(t, payload, string(data["candidate"]))
	})

	t.Run("relayed with missing payload sends null", func(t *testing.T) {
		frame, err := Encode(Relayed{Kind: EventOffer, From: "x"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"offer","data":{"offer":null,"from":"x"}}`, string(frame))
	})

	t.Run("relayed with a non-signal kind fails", func(t *testing.T) {
		_, err := Encode(Relayed{Kind: EventMatched, From: "x"})
		assert.Error(t, err)
	})

	t.Run("balance and connected", func(t *testing.T) {
		frame, err := Encode(BalanceUpdated{Balance: 100})
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"balance-updated","data":{"balance":100}}`, string(frame))

		frame, err = Encode(Connected{ID: "abc"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"connected","data":{"id":"abc"}}`, string(frame))
	})
}

func TestIsSignal(t *testing.T) {
	assert.True(t, IsSignal(EventOffer))
	assert.True(t, IsSignal(EventAnswer))
	assert.True(t, IsSignal(EventICECandidate))
	assert.True(t, IsSignal(EventChatMessage))
	assert.False(t, IsSignal(EventFindMatch))
	assert.False(t, IsSignal(EventMatched))
}
