package gotdclient

import (
	"context"
	"strings"

	"github.com/gotd/td/tg"

	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

// ResolveUsername resolves a public @username to an entity descriptor.
func (c *Client) ResolveUsername(ctx context.Context, username string) (telegram.Entity, error) {
	res, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		return telegram.Entity{}, mapError("resolve_username", err)
	}

	switch peer := res.Peer.(type) {
	case *tg.PeerUser:
		for _, u := range res.Users {
			if user, ok := u.(*tg.User); ok && user.ID == peer.UserID {
				return c.userEntity(ctx, user), nil
			}
		}
	case *tg.PeerChannel:
		for _, ch := range res.Chats {
			if channel, ok := ch.(*tg.Channel); ok && channel.ID == peer.ChannelID {
				return c.channelEntity(ctx, channel), nil
			}
		}
	case *tg.PeerChat:
		for _, ch := range res.Chats {
			if chat, ok := ch.(*tg.Chat); ok && chat.ID == peer.ChatID {
				return chatEntity(chat), nil
			}
		}
	}
	return telegram.Entity{}, telegram.ErrChatNotFound
}

// ResolveID resolves a raw canonical id. Bot-API style channel ids
// (-100xxxxxxxxxx) are canonicalized first. The id is looked up as a channel,
// then as a user, both without an access hash; flood waits propagate and any
// other failure surfaces not-found.
func (c *Client) ResolveID(ctx context.Context, id int64) (telegram.Entity, error) {
	if channelID, ok := botAPIChannelID(id); ok {
		id = channelID
	}

	res, err := c.api.ChannelsGetChannels(ctx, []tg.InputChannelClass{
		&tg.InputChannel{ChannelID: id},
	})
	if err == nil {
		for _, ch := range res.GetChats() {
			if channel, ok := ch.(*tg.Channel); ok && channel.ID == id {
				return c.channelEntity(ctx, channel), nil
			}
		}
	} else if _, flood := telegram.AsFloodWait(mapError("resolve_id", err)); flood {
		return telegram.Entity{}, mapError("resolve_id", err)
	}

	users, err := c.api.UsersGetUsers(ctx, []tg.InputUserClass{
		&tg.InputUser{UserID: id},
	})
	if err != nil {
		mapped := mapError("resolve_id", err)
		if _, flood := telegram.AsFloodWait(mapped); flood {
			return telegram.Entity{}, mapped
		}
		return telegram.Entity{}, telegram.ErrChatNotFound
	}
	for _, u := range users {
		if user, ok := u.(*tg.User); ok && user.ID == id {
			return c.userEntity(ctx, user), nil
		}
	}
	return telegram.Entity{}, telegram.ErrChatNotFound
}

// botAPIChannelID strips the -100 prefix convention.
func botAPIChannelID(id int64) (int64, bool) {
	const marker = int64(-1000000000000)
	if id < marker {
		return -id + marker, true
	}
	return 0, false
}

func (c *Client) userEntity(ctx context.Context, u *tg.User) telegram.Entity {
	display := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	e := telegram.Entity{
		Peer: telegram.Peer{
			ID:         u.ID,
			AccessHash: u.AccessHash,
			Kind:       telegram.KindUser,
		},
		Username: u.Username,
		Title:    display,
		Verified: u.Verified,
		Bot:      u.Bot,
	}
	if full, err := c.api.UsersGetFullUser(ctx, &tg.InputUser{UserID: u.ID, AccessHash: u.AccessHash}); err == nil {
		e.Description = full.FullUser.About
	}
	return e
}

func (c *Client) channelEntity(ctx context.Context, ch *tg.Channel) telegram.Entity {
	e := telegram.Entity{
		Peer: telegram.Peer{
			ID:         ch.ID,
			AccessHash: ch.AccessHash,
			Kind:       telegram.KindChannel,
		},
		Username:  ch.Username,
		Title:     ch.Title,
		Verified:  ch.Verified,
		Broadcast: ch.Broadcast,
		Megagroup: ch.Megagroup,
	}
	if count, ok := ch.GetParticipantsCount(); ok {
		e.MemberCount = count
	}
	if full, err := c.api.ChannelsGetFullChannel(ctx, &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}); err == nil {
		if cf, ok := full.FullChat.(*tg.ChannelFull); ok {
			e.Description = cf.About
			if e.MemberCount == 0 {
				e.MemberCount = cf.ParticipantsCount
			}
		}
	}
	return e
}

func chatEntity(ch *tg.Chat) telegram.Entity {
	return telegram.Entity{
		Peer: telegram.Peer{
			ID:   ch.ID,
			Kind: telegram.KindGroup,
		},
		Title:       ch.Title,
		MemberCount: ch.ParticipantsCount,
	}
}
