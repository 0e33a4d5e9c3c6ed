package telegram

import "testing"

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		name  string
		media Media
		want  MediaKind
	}{
		{"none", Media{}, MediaText},
		{"photo", Media{Photo: true}, MediaPhoto},
		{"video", Media{Video: true}, MediaVideo},
		{"document", Media{Document: true}, MediaDocument},
		{"voice", Media{Voice: true}, MediaVoice},
		{"sticker", Media{Sticker: true}, MediaSticker},
		{"poll", Media{Poll: true}, MediaPoll},
		{"link", Media{Link: true}, MediaLink},
		{"photo_beats_link", Media{Photo: true, Link: true}, MediaPhoto},
		{"video_beats_document", Media{Video: true, Document: true}, MediaVideo},
		{"document_beats_audio", Media{Document: true, Audio: true}, MediaDocument},
		{"poll_beats_link", Media{Poll: true, Link: true}, MediaPoll},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.media); got != tc.want {
				t.Fatalf("Classify(%+v) = %q, want %q", tc.media, got, tc.want)
			}
		})
	}
}

func TestValidMediaKind(t *testing.T) {
	for _, valid := range []string{"text", "photo", "video", "document", "audio", "voice", "sticker", "link", "poll"} {
		if !ValidMediaKind(valid) {
			t.Fatalf("ValidMediaKind(%q) = false, want true", valid)
		}
	}
	for _, invalid := range []string{"", "gif", "PHOTO", "webpage"} {
		if ValidMediaKind(invalid) {
			t.Fatalf("ValidMediaKind(%q) = true, want false", invalid)
		}
	}
}
