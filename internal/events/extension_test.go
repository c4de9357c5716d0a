package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/privatepub/internal/infrastructure/config"
	"github.com/nerrad567/privatepub/internal/pubsub"
)

func fixedSigner(t *testing.T, now time.Time) *pubsub.Signer {
	t.Helper()
	s := testSigner(t)
	s.SetClock(func() time.Time { return now })
	return s
}

func subscribeMessage(channel string, timestamp any, signature string) *BayeuxMessage {
	return &BayeuxMessage{
		Channel:      ChannelMetaSubscribe,
		ClientID:     "c1",
		Subscription: channel,
		Ext:          map[string]any{ExtTimestamp: timestamp, ExtSignature: signature},
	}
}

func TestAuthenticator_Subscribe(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	signer := fixedSigner(t, now)
	auth := NewAuthenticator(signer)

	fresh := now.UnixMilli()
	stale := now.Add(-2 * time.Hour).UnixMilli()

	tests := []struct {
		name    string
		msg     *BayeuxMessage
		wantErr string
	}{
		{"valid ticket", subscribeMessage("/chat", float64(fresh), signer.Signature("/chat", fresh)), ""},
		{"string timestamp", subscribeMessage("/chat", "1700000000000", signer.Signature("/chat", fresh)), ""},
		{"wrong signature", subscribeMessage("/chat", float64(fresh), "deadbeef"), "Incorrect signature."},
		{"signed for other channel", subscribeMessage("/admin", float64(fresh), signer.Signature("/chat", fresh)), "Incorrect signature."},
		{"fractional timestamp", subscribeMessage("/chat", float64(fresh)+0.5, signer.Signature("/chat", fresh)), "Incorrect signature."},
		{"missing ext", &BayeuxMessage{Channel: ChannelMetaSubscribe, Subscription: "/chat"}, "Incorrect signature."},
		{"expired ticket", subscribeMessage("/chat", float64(stale), signer.Signature("/chat", stale)), "Signature has expired."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := auth.Incoming(tt.msg); err != nil {
				t.Fatalf("Incoming() error = %v", err)
			}
			if tt.msg.Error != tt.wantErr {
				t.Errorf("msg.Error = %q, want %q", tt.msg.Error, tt.wantErr)
			}
		})
	}
}

func TestAuthenticator_Publish(t *testing.T) {
	auth := NewAuthenticator(testSigner(t))

	ok := &BayeuxMessage{Channel: "/chat", Ext: map[string]any{ExtToken: "secret", "other": 1}}
	if err := auth.Incoming(ok); err != nil {
		t.Fatalf("Incoming() error = %v", err)
	}
	if ok.Error != "" {
		t.Errorf("msg.Error = %q, want none", ok.Error)
	}
	if _, present := ok.Ext[ExtToken]; present {
		t.Error("token should be stripped after a successful check")
	}
	if ok.Ext["other"] != 1 {
		t.Error("unrelated ext keys must survive")
	}

	for _, msg := range []*BayeuxMessage{
		{Channel: "/chat", Ext: map[string]any{ExtToken: "guess"}},
		{Channel: "/chat"},
	} {
		if err := auth.Incoming(msg); err != nil {
			t.Fatalf("Incoming() error = %v", err)
		}
		if msg.Error != "Incorrect token." {
			t.Errorf("msg.Error = %q, want Incorrect token.", msg.Error)
		}
	}
}

func TestAuthenticator_IgnoresOtherMeta(t *testing.T) {
	auth := NewAuthenticator(testSigner(t))

	for _, channel := range []string{"/meta/handshake", "/meta/connect", "/meta/unsubscribe"} {
		msg := &BayeuxMessage{Channel: channel}
		if err := auth.Incoming(msg); err != nil || msg.Error != "" {
			t.Errorf("%s: err=%v msg.Error=%q, want untouched", channel, err, msg.Error)
		}
	}
}

func TestAuthenticator_MissingSecret(t *testing.T) {
	auth := NewAuthenticator(pubsub.NewSigner(config.PubSubConfig{}))

	for _, msg := range []*BayeuxMessage{
		{Channel: "/chat", Ext: map[string]any{ExtToken: ""}},
		subscribeMessage("/chat", float64(1), ""),
	} {
		err := auth.Incoming(msg)
		if !errors.Is(err, pubsub.ErrMissingSecret) {
			t.Errorf("%s: error = %v, want ErrMissingSecret", msg.Channel, err)
		}
	}
}

func TestAdapter_IncomingThroughDefaultChain(t *testing.T) {
	a := NewAdapter(nil, Options{Signer: testSigner(t)})

	var msg BayeuxMessage
	raw := `{"channel":"/chat","data":{"text":"hi"},"ext":{"private_pub_token":"secret"},"id":"7"}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if err := a.Incoming(&msg); err != nil {
		t.Fatalf("Incoming() error = %v", err)
	}

	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["id"] != "7" {
		t.Errorf("id = %v, want preserved", decoded["id"])
	}
	if _, hasErr := decoded["error"]; hasErr {
		t.Errorf("unexpected error field: %s", out)
	}
	if ext, _ := decoded["ext"].(map[string]any); ext[ExtToken] != nil {
		t.Errorf("token leaked to subscribers: %s", out)
	}
}
