package gotdclient

import (
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

// convertMessage projects a raw tg.Message into the normalized shape. The
// projection is total: optional fields stay nil/zero, media facets come from
// classifyMedia.
func convertMessage(m *tg.Message, users map[int64]*tg.User) telegram.Message {
	out := telegram.Message{
		ID:        int64(m.ID),
		Date:      time.Unix(int64(m.Date), 0).UTC(),
		Text:      m.Message,
		Pinned:    m.Pinned,
		Silent:    m.Silent,
		Post:      m.Post,
		NoForward: m.Noforwards,
	}

	if views, ok := m.GetViews(); ok {
		out.Views = &views
	}
	if forwards, ok := m.GetForwards(); ok {
		out.Forwards = &forwards
	}
	if replies, ok := m.GetReplies(); ok {
		count := replies.Replies
		out.Replies = &count
	}
	if reactions, ok := m.GetReactions(); ok {
		total := 0
		for _, r := range reactions.Results {
			total += r.Count
		}
		out.Reactions = &total
	}
	if editDate, ok := m.GetEditDate(); ok {
		out.EditDate = time.Unix(int64(editDate), 0).UTC()
	}

	if from, ok := m.GetFromID(); ok {
		if pu, ok := from.(*tg.PeerUser); ok {
			out.Sender = senderInfo(pu.UserID, users)
		}
	}

	if header, ok := m.GetReplyTo(); ok {
		if h, ok := header.(*tg.MessageReplyHeader); ok {
			if replyTo, ok := h.GetReplyToMsgID(); ok {
				out.ReplyToID = int64(replyTo)
			}
			if h.ForumTopic {
				if top, ok := h.GetReplyToTopID(); ok {
					out.TopicID = int64(top)
				} else if replyTo, ok := h.GetReplyToMsgID(); ok {
					out.TopicID = int64(replyTo)
				}
			}
		}
	}

	if media, ok := m.GetMedia(); ok {
		out.Media = classifyMedia(media)
	}
	return out
}

func senderInfo(userID int64, users map[int64]*tg.User) *telegram.Sender {
	s := &telegram.Sender{ID: userID}
	if u, ok := users[userID]; ok {
		s.Username = u.Username
		s.Display = strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
		s.Bot = u.Bot
		s.Verified = u.Verified
	}
	return s
}

// classifyMedia maps the wire media class onto facets. Documents are
// narrowed by their attributes (video, voice, audio, sticker); anything
// unrecognized still counts as a document so has_media stays truthful.
func classifyMedia(media tg.MessageMediaClass) telegram.Media {
	switch v := media.(type) {
	case *tg.MessageMediaPhoto:
		return telegram.Media{Photo: true}
	case *tg.MessageMediaWebPage:
		return telegram.Media{Link: true}
	case *tg.MessageMediaPoll:
		return telegram.Media{Poll: true}
	case *tg.MessageMediaDocument:
		doc, ok := v.Document.(*tg.Document)
		if !ok {
			return telegram.Media{Document: true}
		}
		for _, attr := range doc.Attributes {
			switch a := attr.(type) {
			case *tg.DocumentAttributeVideo:
				return telegram.Media{Video: true}
			case *tg.DocumentAttributeAudio:
				if a.Voice {
					return telegram.Media{Voice: true}
				}
				return telegram.Media{Audio: true}
			case *tg.DocumentAttributeSticker:
				return telegram.Media{Sticker: true}
			}
		}
		return telegram.Media{Document: true}
	case *tg.MessageMediaEmpty:
		return telegram.Media{}
	default:
		return telegram.Media{Document: true}
	}
}
