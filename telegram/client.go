// Package telegram defines the provider surface the rest of the server is
// built against: a narrow MTProto client interface, normalized message and
// entity shapes, and the typed errors the provider may return.
//
// The concrete implementation lives in telegram/gotdclient; tests use
// in-memory fakes.
package telegram

import (
	"context"
	"time"
)

// ChatKind is the canonical kind of a resolved entity.
type ChatKind string

const (
	KindUser    ChatKind = "user"
	KindGroup   ChatKind = "group"
	KindChannel ChatKind = "channel"
)

// Peer identifies an entity for subsequent API calls. AccessHash is an
// MTProto implementation detail and never crosses the wire surface.
type Peer struct {
	ID         int64
	AccessHash int64
	Kind       ChatKind
}

// Entity is a resolved chat/channel/user as the provider reports it.
type Entity struct {
	Peer        Peer
	Username    string
	Title       string
	Description string
	MemberCount int // 0 when unknown
	Verified    bool
	Broadcast   bool
	Megagroup   bool
	Bot         bool
}

// Public reports whether the entity is reachable without an invite link:
// a username'd user, public group, or public channel.
func (e Entity) Public() bool {
	if e.Peer.Kind == KindUser {
		return e.Username != ""
	}
	return e.Username != ""
}

// Sender is the author of a message.
type Sender struct {
	ID       int64
	Username string
	Display  string
	Bot      bool
	Verified bool
}

// Media holds the media facets the provider observed on a message. A message
// may report several facets; MediaKind classification resolves them with a
// fixed precedence (see Classify).
type Media struct {
	Photo    bool
	Video    bool
	Document bool
	Audio    bool
	Voice    bool
	Sticker  bool
	Poll     bool
	Link     bool
}

// Any reports whether any media facet is present.
func (m Media) Any() bool {
	return m.Photo || m.Video || m.Document || m.Audio || m.Voice || m.Sticker || m.Poll || m.Link
}

// Message is a normalized history message. Counter fields are nil when the
// provider did not report them (e.g. views outside broadcast channels).
type Message struct {
	ID        int64
	Date      time.Time // always UTC
	Text      string
	Sender    *Sender
	Views     *int
	Forwards  *int
	Replies   *int
	Reactions *int
	Pinned    bool
	Silent    bool
	Post      bool
	NoForward bool
	Media     Media
	ReplyToID int64 // 0 when not a reply
	TopicID   int64 // 0 when the chat has no topics
	EditDate  time.Time // zero when never edited
}

// HistoryRequest asks for one batch of messages from a peer.
//
// When Ascending is true the batch contains messages with id > OffsetID in
// ascending id order, starting at the smallest qualifying id; with OffsetID
// zero and OffsetDate set, iteration starts at the first message dated at or
// after OffsetDate. When Ascending is false the batch contains messages with
// id < OffsetID (zero meaning "newest") in descending id order, bounded above
// by OffsetDate when OffsetID is zero.
type HistoryRequest struct {
	Peer       Peer
	OffsetID   int64
	OffsetDate time.Time
	Limit      int
	Ascending  bool
	Search     string
}

// Client is the MTProto surface the core consumes. Implementations must
// return the typed errors from errors.go so callers can dispatch
// structurally.
type Client interface {
	ResolveUsername(ctx context.Context, username string) (Entity, error)
	ResolveID(ctx context.Context, id int64) (Entity, error)
	History(ctx context.Context, req HistoryRequest) ([]Message, error)
}
