package gotdclient

import (
	"testing"
	"time"

	"github.com/gotd/td/tg"

	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

func TestConvertMessageBasics(t *testing.T) {
	views := 42
	msg := &tg.Message{
		ID:      1001,
		Date:    1709294400, // 2024-03-01T12:00:00Z
		Message: "hello",
		Post:    true,
		Pinned:  true,
	}
	msg.SetViews(views)
	msg.SetEditDate(1709298000)
	msg.SetFromID(&tg.PeerUser{UserID: 77})

	users := map[int64]*tg.User{
		77: {ID: 77, Username: "poster", FirstName: "Pat", Bot: false},
	}
	out := convertMessage(msg, users)

	if out.ID != 1001 || out.Text != "hello" {
		t.Fatalf("basic fields mismatch: %+v", out)
	}
	if !out.Date.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("Date = %s, want 2024-03-01T12:00:00Z", out.Date)
	}
	if out.Views == nil || *out.Views != 42 {
		t.Fatalf("Views = %v, want 42", out.Views)
	}
	if out.EditDate.IsZero() {
		t.Fatalf("EditDate is zero, want set")
	}
	if out.Sender == nil || out.Sender.Username != "poster" || out.Sender.Display != "Pat" {
		t.Fatalf("Sender = %+v, want poster/Pat", out.Sender)
	}
	if !out.Post || !out.Pinned {
		t.Fatalf("flags lost: %+v", out)
	}
}

func TestClassifyMediaNarrowsDocuments(t *testing.T) {
	voiceDoc := &tg.MessageMediaDocument{}
	voiceDoc.Document = &tg.Document{
		Attributes: []tg.DocumentAttributeClass{
			&tg.DocumentAttributeAudio{Voice: true},
		},
	}
	cases := []struct {
		name  string
		media tg.MessageMediaClass
		want  telegram.MediaKind
	}{
		{"photo", &tg.MessageMediaPhoto{}, telegram.MediaPhoto},
		{"webpage", &tg.MessageMediaWebPage{}, telegram.MediaLink},
		{"poll", &tg.MessageMediaPoll{}, telegram.MediaPoll},
		{"voice", voiceDoc, telegram.MediaVoice},
		{"geo_falls_back_to_document", &tg.MessageMediaGeo{}, telegram.MediaDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := telegram.Classify(classifyMedia(tc.media)); got != tc.want {
				t.Fatalf("Classify(classifyMedia()) = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBotAPIChannelID(t *testing.T) {
	id, ok := botAPIChannelID(-1001234567890)
	if !ok || id != 1234567890 {
		t.Fatalf("botAPIChannelID(-1001234567890) = (%d, %v), want (1234567890, true)", id, ok)
	}
	if _, ok := botAPIChannelID(123456789); ok {
		t.Fatalf("botAPIChannelID(123456789) ok = true, want false")
	}
}
