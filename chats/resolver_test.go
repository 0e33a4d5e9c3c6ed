package chats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/DronPascal/telegram-toolkit-mcp/internal/waitctl"
	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

type fakeClient struct {
	byUsername map[string]telegram.Entity
	byID       map[int64]telegram.Entity
	calls      int
}

func (f *fakeClient) ResolveUsername(_ context.Context, username string) (telegram.Entity, error) {
	f.calls++
	e, ok := f.byUsername[username]
	if !ok {
		return telegram.Entity{}, telegram.ErrChatNotFound
	}
	return e, nil
}

func (f *fakeClient) ResolveID(_ context.Context, id int64) (telegram.Entity, error) {
	f.calls++
	e, ok := f.byID[id]
	if !ok {
		return telegram.Entity{}, telegram.ErrChatNotFound
	}
	return e, nil
}

func (f *fakeClient) History(context.Context, telegram.HistoryRequest) ([]telegram.Message, error) {
	return nil, fmt.Errorf("not implemented")
}

func publicChannel() telegram.Entity {
	return telegram.Entity{
		Peer:        telegram.Peer{ID: 123456789, AccessHash: 42, Kind: telegram.KindChannel},
		Username:    "example_public",
		Title:       "Example Public",
		MemberCount: 1000,
		Broadcast:   true,
		Verified:    true,
	}
}

func newResolver(f *fakeClient, cfg Config) *Resolver {
	return New(f, waitctl.New(waitctl.Config{}, nil), cfg, nil)
}

func TestParseInputGrammar(t *testing.T) {
	cases := []struct {
		in           string
		wantErr      bool
		wantUsername string
		wantID       int64
	}{
		{in: "@example_public", wantUsername: "example_public"},
		{in: "  @Example_Public  ", wantUsername: "example_public"},
		{in: "https://t.me/example_public", wantUsername: "example_public"},
		{in: "http://t.me/example_public/42", wantUsername: "example_public"},
		{in: "example_public", wantUsername: "example_public"},
		{in: "136817688", wantID: 136817688},
		{in: "-1001234567890", wantID: -1001234567890},
		{in: "@@bad", wantErr: true},
		{in: "@ab", wantErr: true},
		{in: "@with-dash", wantErr: true},
		{in: "https://t.me/", wantErr: true},
		{in: "https://example.com/foo", wantErr: true},
		{in: "", wantErr: true},
		{in: "has space", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			p, err := parseInput(tc.in)
			if tc.wantErr {
				if !errors.Is(err, telegram.ErrUsernameInvalid) {
					t.Fatalf("parseInput(%q) error = %v, want ErrUsernameInvalid", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseInput(%q) error = %v", tc.in, err)
			}
			if tc.wantID != 0 {
				if p.kind != inputNumeric || p.id != tc.wantID {
					t.Fatalf("parseInput(%q) = %+v, want id %d", tc.in, p, tc.wantID)
				}
				return
			}
			if p.kind != inputUsername || p.username != tc.wantUsername {
				t.Fatalf("parseInput(%q) = %+v, want username %q", tc.in, p, tc.wantUsername)
			}
		})
	}
}

func TestResolveByHandle(t *testing.T) {
	f := &fakeClient{byUsername: map[string]telegram.Entity{"example_public": publicChannel()}}
	r := newResolver(f, Config{})

	ref, err := r.Resolve(context.Background(), "@example_public")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref.ChatID != "123456789" {
		t.Fatalf("ChatID = %q, want 123456789", ref.ChatID)
	}
	if ref.Kind != telegram.KindChannel {
		t.Fatalf("Kind = %q, want channel", ref.Kind)
	}
	if ref.Username != "example_public" || ref.Title != "Example Public" {
		t.Fatalf("projection mismatch: %+v", ref)
	}
	if !ref.Verified || ref.MemberCount != 1000 {
		t.Fatalf("projection dropped fields: %+v", ref)
	}
}

func TestResolveByNumericID(t *testing.T) {
	e := publicChannel()
	f := &fakeClient{byID: map[int64]telegram.Entity{e.Peer.ID: e}}
	r := newResolver(f, Config{})

	ref, err := r.Resolve(context.Background(), strconv.FormatInt(e.Peer.ID, 10))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref.Peer.ID != e.Peer.ID {
		t.Fatalf("Peer.ID = %d, want %d", ref.Peer.ID, e.Peer.ID)
	}
}

func TestResolveMegagroupProjectsAsGroup(t *testing.T) {
	e := publicChannel()
	e.Broadcast = false
	e.Megagroup = true
	f := &fakeClient{byUsername: map[string]telegram.Entity{"example_public": e}}
	r := newResolver(f, Config{})

	ref, err := r.Resolve(context.Background(), "example_public")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref.Kind != telegram.KindGroup {
		t.Fatalf("Kind = %q, want group", ref.Kind)
	}
}

func TestResolveRejectsPrivateEntity(t *testing.T) {
	private := telegram.Entity{
		Peer:  telegram.Peer{ID: 555, Kind: telegram.KindChannel},
		Title: "Invite Only",
	}
	f := &fakeClient{byID: map[int64]telegram.Entity{555: private}}
	r := newResolver(f, Config{})

	_, err := r.Resolve(context.Background(), "555")
	if !errors.Is(err, telegram.ErrChannelPrivate) {
		t.Fatalf("Resolve() error = %v, want ErrChannelPrivate", err)
	}
}

func TestResolveNotFound(t *testing.T) {
	f := &fakeClient{}
	r := newResolver(f, Config{})

	_, err := r.Resolve(context.Background(), "@missing_chat")
	if !errors.Is(err, telegram.ErrChatNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrChatNotFound", err)
	}
}

func TestResolveCacheHitSkipsProvider(t *testing.T) {
	f := &fakeClient{byUsername: map[string]telegram.Entity{"example_public": publicChannel()}}
	r := newResolver(f, Config{CacheEnabled: true, CacheSize: 8})

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(context.Background(), "@example_public"); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}
	if f.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", f.calls)
	}
}

func TestResolveInvalidateDropsCachedEntry(t *testing.T) {
	e := publicChannel()
	f := &fakeClient{byUsername: map[string]telegram.Entity{"example_public": e}}
	r := newResolver(f, Config{CacheEnabled: true, CacheSize: 8})

	if _, err := r.Resolve(context.Background(), "@example_public"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	r.Invalidate(e.Peer.ID)
	if _, err := r.Resolve(context.Background(), "@example_public"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if f.calls != 2 {
		t.Fatalf("provider calls = %d, want 2 after invalidation", f.calls)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", ChatRef{ChatID: "1"})
	c.put("b", ChatRef{ChatID: "2"})
	if _, ok := c.get("a"); !ok {
		t.Fatalf("get(a) miss before eviction")
	}
	c.put("c", ChatRef{ChatID: "3"})
	if _, ok := c.get("b"); ok {
		t.Fatalf("get(b) hit, want evicted")
	}
	if _, ok := c.get("a"); !ok {
		t.Fatalf("get(a) miss, want retained")
	}
	if c.len() != 2 {
		t.Fatalf("len() = %d, want 2", c.len())
	}
}
