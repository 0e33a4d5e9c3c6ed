package history

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/DronPascal/telegram-toolkit-mcp/chats"
	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

func testWindow() Window {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	return Window{
		Chat: chats.ChatRef{
			ChatID: "123456789",
			Peer:   telegram.Peer{ID: 123456789, Kind: telegram.KindChannel},
		},
		From:      &from,
		To:        &to,
		Direction: DirectionAsc,
		PageSize:  100,
	}
}

func TestCursorEncodeDecodeRoundTrip(t *testing.T) {
	w := testWindow()
	in := Cursor{
		OffsetID:     1100,
		OffsetDate:   1709337600,
		Direction:    DirectionAsc,
		FetchedCount: 100,
		WindowHash:   w.Hash(),
	}
	out, err := DecodeCursor(in.Encode(), w.Hash())
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestCursorEncodingIsURLSafeWithoutPadding(t *testing.T) {
	c := Cursor{OffsetID: 1, Direction: DirectionDesc, WindowHash: "abcd"}
	enc := c.Encode()
	for _, r := range enc {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			t.Fatalf("Encode() produced non-url-safe rune %q in %q", r, enc)
		}
	}
}

func TestDecodeCursorWindowHashMismatch(t *testing.T) {
	wA := testWindow()
	wB := testWindow()
	wB.Search = "different"

	c := Cursor{OffsetID: 1100, Direction: DirectionAsc, WindowHash: wA.Hash()}
	_, err := DecodeCursor(c.Encode(), wB.Hash())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("DecodeCursor() error = %v, want ValidationError", err)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	w := testWindow()
	cases := map[string]string{
		"not_base64":     "%%%not-base64%%%",
		"not_json":       base64.RawURLEncoding.EncodeToString([]byte("not json")),
		"missing_fields": base64.RawURLEncoding.EncodeToString([]byte(`{}`)),
		"bad_direction":  base64.RawURLEncoding.EncodeToString([]byte(`{"offset_id":5,"direction":"up","window_hash":"x"}`)),
		"no_hash":        base64.RawURLEncoding.EncodeToString([]byte(`{"offset_id":5,"direction":"asc"}`)),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(raw, w.Hash())
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("DecodeCursor(%q) error = %v, want ValidationError", raw, err)
			}
		})
	}
}

func TestWindowHashSensitivity(t *testing.T) {
	base := testWindow()
	baseHash := base.Hash()

	variants := map[string]func(w *Window){
		"chat":      func(w *Window) { w.Chat.Peer.ID = 42 },
		"from":      func(w *Window) { f := w.From.Add(time.Second); w.From = &f },
		"to":        func(w *Window) { to := w.To.Add(time.Second); w.To = &to },
		"direction": func(w *Window) { w.Direction = DirectionDesc },
		"search":    func(w *Window) { w.Search = "zeta" },
		"filter":    func(w *Window) { w.Filter = &Filter{MediaTypes: []telegram.MediaKind{telegram.MediaPhoto}} },
	}
	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			w := testWindow()
			mutate(&w)
			if w.Hash() == baseHash {
				t.Fatalf("Hash() unchanged after mutating %s", name)
			}
		})
	}

	// Page size is deliberately outside the fingerprint: resuming with a
	// different page size is allowed.
	w := testWindow()
	w.PageSize = 7
	if w.Hash() != baseHash {
		t.Fatalf("Hash() changed with page size")
	}
}

func TestWindowHashFilterOrderInsensitive(t *testing.T) {
	a := testWindow()
	a.Filter = &Filter{
		MediaTypes: []telegram.MediaKind{telegram.MediaPhoto, telegram.MediaVideo},
		FromUsers:  []int64{7, 3},
	}
	b := testWindow()
	b.Filter = &Filter{
		MediaTypes: []telegram.MediaKind{telegram.MediaVideo, telegram.MediaPhoto},
		FromUsers:  []int64{3, 7},
	}
	if a.Hash() != b.Hash() {
		t.Fatalf("Hash() differs for equivalent filters")
	}
}
