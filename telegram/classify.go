package telegram

// MediaKind is the closed media classification of a message.
type MediaKind string

const (
	MediaText     MediaKind = "text"
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaAudio    MediaKind = "audio"
	MediaVoice    MediaKind = "voice"
	MediaSticker  MediaKind = "sticker"
	MediaLink     MediaKind = "link"
	MediaPoll     MediaKind = "poll"
)

// ValidMediaKind reports whether s names a known media kind.
func ValidMediaKind(s string) bool {
	switch MediaKind(s) {
	case MediaText, MediaPhoto, MediaVideo, MediaDocument, MediaAudio,
		MediaVoice, MediaSticker, MediaLink, MediaPoll:
		return true
	}
	return false
}

// Classify resolves the media facets of a message into a single MediaKind.
// When several facets are present the first in the fixed precedence
// photo, video, document, audio, voice, sticker, poll, link wins; a message
// with no media facets is text.
func Classify(m Media) MediaKind {
	switch {
	case m.Photo:
		return MediaPhoto
	case m.Video:
		return MediaVideo
	case m.Document:
		return MediaDocument
	case m.Audio:
		return MediaAudio
	case m.Voice:
		return MediaVoice
	case m.Sticker:
		return MediaSticker
	case m.Poll:
		return MediaPoll
	case m.Link:
		return MediaLink
	default:
		return MediaText
	}
}
