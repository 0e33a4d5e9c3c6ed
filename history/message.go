package history

import (
	"time"

	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

// SenderInfo is the external author shape.
type SenderInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Display  string `json:"display,omitempty"`
	IsBot    bool   `json:"is_bot,omitempty"`
	Verified bool   `json:"verified,omitempty"`
}

// Message is the external message shape, used both inline in pages and as
// one NDJSON line per message in exports. Dates are RFC3339 UTC.
type Message struct {
	ID         int64              `json:"id"`
	Date       string             `json:"date"`
	Text       string             `json:"text"`
	Sender     *SenderInfo        `json:"sender,omitempty"`
	Views      *int               `json:"views,omitempty"`
	Forwards   *int               `json:"forwards,omitempty"`
	Replies    *int               `json:"replies,omitempty"`
	Reactions  *int               `json:"reactions,omitempty"`
	Pinned     bool               `json:"pinned,omitempty"`
	Silent     bool               `json:"silent,omitempty"`
	Post       bool               `json:"post,omitempty"`
	NoForwards bool               `json:"noforwards,omitempty"`
	MediaType  telegram.MediaKind `json:"media_type"`
	HasMedia   bool               `json:"has_media"`
	ReplyToID  int64              `json:"reply_to_id,omitempty"`
	TopicID    int64              `json:"topic_id,omitempty"`
	EditDate   string             `json:"edit_date,omitempty"`
}

// PageInfo describes pagination progress. Cursor is nil when the window is
// exhausted.
type PageInfo struct {
	HasMore      bool    `json:"has_more"`
	Cursor       *string `json:"cursor"`
	TotalFetched int     `json:"total_fetched"`
}

// Export points at an NDJSON artifact materializing the full window.
type Export struct {
	URI    string `json:"uri"`
	Format string `json:"format"`
}

// Page is the fetcher's output: messages in strictly ascending id order.
type Page struct {
	Messages []Message `json:"messages"`
	PageInfo PageInfo  `json:"page_info"`
	Export   *Export   `json:"export,omitempty"`
}

// projectMessage maps the provider message into the external shape. The
// projection is total: every message gets a media classification.
func projectMessage(m telegram.Message) Message {
	out := Message{
		ID:         m.ID,
		Date:       m.Date.UTC().Format(time.RFC3339),
		Text:       m.Text,
		Views:      m.Views,
		Forwards:   m.Forwards,
		Replies:    m.Replies,
		Reactions:  m.Reactions,
		Pinned:     m.Pinned,
		Silent:     m.Silent,
		Post:       m.Post,
		NoForwards: m.NoForward,
		MediaType:  telegram.Classify(m.Media),
		HasMedia:   m.Media.Any(),
		ReplyToID:  m.ReplyToID,
		TopicID:    m.TopicID,
	}
	if m.Sender != nil {
		out.Sender = &SenderInfo{
			ID:       m.Sender.ID,
			Username: m.Sender.Username,
			Display:  m.Sender.Display,
			IsBot:    m.Sender.Bot,
			Verified: m.Sender.Verified,
		}
	}
	if !m.EditDate.IsZero() {
		out.EditDate = m.EditDate.UTC().Format(time.RFC3339)
	}
	return out
}
