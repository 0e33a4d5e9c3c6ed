// Package chats normalizes chat identifiers (@username, t.me URL, bare
// username, numeric ID) into canonical ChatRef descriptors and enforces the
// public-visibility rule: private groups and invite-only channels are never
// resolved.
package chats

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/DronPascal/telegram-toolkit-mcp/internal/waitctl"
	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

// ChatRef is the canonical descriptor returned to callers. ChatID is the
// stable canonical id serialized as a string; Peer carries what later
// provider calls need and never crosses the wire.
type ChatRef struct {
	ChatID      string            `json:"chat_id"`
	Kind        telegram.ChatKind `json:"kind"`
	Username    string            `json:"username,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	MemberCount int               `json:"member_count,omitempty"`
	Verified    bool              `json:"verified,omitempty"`

	Peer telegram.Peer `json:"-"`
}

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{4,32}$`)
	tmeRe      = regexp.MustCompile(`^https?://t\.me/([A-Za-z0-9_]{4,32})(?:/\d+)?/?$`)
)

type inputKind int

const (
	inputUsername inputKind = iota
	inputNumeric
)

type parsedInput struct {
	kind     inputKind
	username string
	id       int64
}

// parseInput applies the accepted grammar in precedence order:
// @username, t.me URL, bare username, signed 64-bit id. Digit-only strings
// (optionally signed) are ids; a valid username always contains at least one
// non-digit.
func parseInput(raw string) (parsedInput, error) {
	in := strings.TrimSpace(raw)
	if in == "" {
		return parsedInput{}, telegram.ErrUsernameInvalid
	}

	if strings.HasPrefix(in, "@") {
		u := in[1:]
		if !usernameRe.MatchString(u) {
			return parsedInput{}, telegram.ErrUsernameInvalid
		}
		return parsedInput{kind: inputUsername, username: strings.ToLower(u)}, nil
	}

	if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
		m := tmeRe.FindStringSubmatch(in)
		if m == nil {
			return parsedInput{}, telegram.ErrUsernameInvalid
		}
		return parsedInput{kind: inputUsername, username: strings.ToLower(m[1])}, nil
	}

	if id, err := strconv.ParseInt(in, 10, 64); err == nil {
		return parsedInput{kind: inputNumeric, id: id}, nil
	}

	if usernameRe.MatchString(in) {
		return parsedInput{kind: inputUsername, username: strings.ToLower(in)}, nil
	}
	return parsedInput{}, telegram.ErrUsernameInvalid
}

type Config struct {
	CacheEnabled   bool
	CacheSize      int
	RequestTimeout time.Duration
}

// Resolver turns identifier strings into ChatRefs via the provider, with an
// optional bounded LRU for repeat lookups.
type Resolver struct {
	client  telegram.Client
	wait    *waitctl.Controller
	cache   *lruCache
	timeout time.Duration
	logger  *slog.Logger
}

func New(client telegram.Client, wait *waitctl.Controller, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	var cache *lruCache
	if cfg.CacheEnabled {
		size := cfg.CacheSize
		if size <= 0 {
			size = 256
		}
		cache = newLRUCache(size)
	}
	return &Resolver{
		client:  client,
		wait:    wait,
		cache:   cache,
		timeout: cfg.RequestTimeout,
		logger:  logger,
	}
}

// Resolve normalizes input to a ChatRef. Failure modes: ErrUsernameInvalid
// for grammar violations, ErrChatNotFound, ErrChannelPrivate, or a
// rate-limit/unavailable error from the wait controller.
func (r *Resolver) Resolve(ctx context.Context, input string) (ChatRef, error) {
	parsed, err := parseInput(input)
	if err != nil {
		return ChatRef{}, err
	}

	key := cacheKey(parsed)
	if r.cache != nil {
		if ref, ok := r.cache.get(key); ok {
			return ref, nil
		}
	}

	var entity telegram.Entity
	err = r.wait.Do(ctx, "resolve", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		var cerr error
		switch parsed.kind {
		case inputNumeric:
			entity, cerr = r.client.ResolveID(callCtx, parsed.id)
		default:
			entity, cerr = r.client.ResolveUsername(callCtx, parsed.username)
		}
		return cerr
	})
	if err != nil {
		if errors.Is(err, telegram.ErrChatNotFound) && r.cache != nil {
			r.cache.remove(key)
		}
		return ChatRef{}, err
	}

	if !entity.Public() {
		r.logger.Info("resolve_rejected_private", "chat_id", entity.Peer.ID, "kind", string(entity.Peer.Kind))
		return ChatRef{}, telegram.ErrChannelPrivate
	}

	ref := project(entity)
	if r.cache != nil {
		r.cache.put(key, ref)
	}
	r.logger.Info("chat_resolved", "chat_id", ref.ChatID, "kind", string(ref.Kind), "username", ref.Username)
	return ref, nil
}

// Invalidate drops any cached entries for the given canonical id. Callers use
// it when a downstream fetch reports the entity gone or changed.
func (r *Resolver) Invalidate(canonicalID int64) {
	if r.cache != nil {
		r.cache.removeByID(canonicalID)
	}
}

func cacheKey(p parsedInput) string {
	if p.kind == inputNumeric {
		return "id:" + strconv.FormatInt(p.id, 10)
	}
	return "u:" + p.username
}

func project(e telegram.Entity) ChatRef {
	kind := e.Peer.Kind
	if kind == telegram.KindChannel && e.Megagroup {
		kind = telegram.KindGroup
	}
	ref := ChatRef{
		ChatID:      strconv.FormatInt(e.Peer.ID, 10),
		Kind:        kind,
		Username:    e.Username,
		Title:       e.Title,
		Description: e.Description,
		Verified:    e.Verified,
		Peer:        e.Peer,
	}
	if e.MemberCount > 0 {
		ref.MemberCount = e.MemberCount
	}
	return ref
}
