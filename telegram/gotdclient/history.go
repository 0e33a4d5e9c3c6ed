package gotdclient

import (
	"context"

	"github.com/gotd/td/tg"

	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

// History fetches one batch in the traversal order the request asks for.
//
// MTProto pages newest-first. Descending traversal maps directly onto
// offset_id/offset_date. Ascending traversal uses the add_offset trick:
// offset_id = lower_bound+1 with add_offset = -limit selects the `limit`
// oldest messages above the bound, which are then reversed into ascending
// order before returning.
func (c *Client) History(ctx context.Context, req telegram.HistoryRequest) ([]telegram.Message, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var (
		offsetID   int
		offsetDate int
		addOffset  int
	)
	if req.Ascending {
		addOffset = -limit
		if req.OffsetID > 0 {
			offsetID = int(req.OffsetID) + 1
		} else if !req.OffsetDate.IsZero() {
			offsetDate = int(req.OffsetDate.Unix())
		} else {
			offsetID = 1
		}
	} else {
		if req.OffsetID > 0 {
			offsetID = int(req.OffsetID)
		} else if !req.OffsetDate.IsZero() {
			// offset_date bounds exclusively; shift one second to keep
			// messages dated exactly at the window edge.
			offsetDate = int(req.OffsetDate.Unix()) + 1
		}
	}

	peer := inputPeer(req.Peer)
	var (
		raw tg.MessagesMessagesClass
		err error
	)
	if req.Search != "" {
		search := &tg.MessagesSearchRequest{
			Peer:      peer,
			Q:         req.Search,
			Filter:    &tg.InputMessagesFilterEmpty{},
			AddOffset: addOffset,
			Limit:     limit,
		}
		// messages.search has no offset_date; date bounds go through
		// min_date/max_date instead, and offsets operate within the
		// filtered result set.
		if req.Ascending {
			search.OffsetID = offsetID
			if search.OffsetID == 0 {
				search.OffsetID = 1
			}
			if !req.OffsetDate.IsZero() {
				search.MinDate = int(req.OffsetDate.Unix())
			}
		} else {
			search.OffsetID = offsetID
			if offsetDate > 0 {
				search.MaxDate = offsetDate
			}
		}
		raw, err = c.api.MessagesSearch(ctx, search)
	} else {
		raw, err = c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:       peer,
			OffsetID:   offsetID,
			OffsetDate: offsetDate,
			AddOffset:  addOffset,
			Limit:      limit,
		})
	}
	if err != nil {
		return nil, mapError("history", err)
	}

	messages, users := unpack(raw)
	out := make([]telegram.Message, 0, len(messages))
	for _, m := range messages {
		msg, ok := m.(*tg.Message)
		if !ok {
			// Service messages and holes carry no exportable content.
			continue
		}
		converted := convertMessage(msg, users)
		if req.Ascending {
			// Guard the exclusive lower bound: add_offset windows clamp at
			// list edges and may overlap it.
			if req.OffsetID > 0 && converted.ID <= req.OffsetID {
				continue
			}
		} else if req.OffsetID > 0 && converted.ID >= req.OffsetID {
			continue
		}
		out = append(out, converted)
	}

	// Newest-first from the wire; ascending traversal wants the reverse.
	if req.Ascending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func inputPeer(p telegram.Peer) tg.InputPeerClass {
	switch p.Kind {
	case telegram.KindUser:
		return &tg.InputPeerUser{UserID: p.ID, AccessHash: p.AccessHash}
	case telegram.KindGroup:
		return &tg.InputPeerChat{ChatID: p.ID}
	default:
		return &tg.InputPeerChannel{ChannelID: p.ID, AccessHash: p.AccessHash}
	}
}

func unpack(raw tg.MessagesMessagesClass) ([]tg.MessageClass, map[int64]*tg.User) {
	var (
		messages []tg.MessageClass
		users    []tg.UserClass
	)
	switch v := raw.(type) {
	case *tg.MessagesMessages:
		messages, users = v.Messages, v.Users
	case *tg.MessagesMessagesSlice:
		messages, users = v.Messages, v.Users
	case *tg.MessagesChannelMessages:
		messages, users = v.Messages, v.Users
	}
	byID := make(map[int64]*tg.User, len(users))
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			byID[user.ID] = user
		}
	}
	return messages, byID
}
