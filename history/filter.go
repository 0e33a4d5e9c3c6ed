package history

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

// Filter is the advanced content predicate. Absent fields impose no
// constraint; present fields are AND-combined.
type Filter struct {
	MediaTypes []telegram.MediaKind `json:"media_types,omitempty"`
	HasMedia   *bool                `json:"has_media,omitempty"`
	FromUsers  []int64              `json:"from_users,omitempty"`
	MinViews   *int                 `json:"min_views,omitempty"`
	MaxViews   *int                 `json:"max_views,omitempty"`
}

// Validate rejects unknown media kinds and negative view bounds.
func (f *Filter) Validate() error {
	for _, mt := range f.MediaTypes {
		if !telegram.ValidMediaKind(string(mt)) {
			return &ValidationError{Field: "filter.media_types", Reason: fmt.Sprintf("unknown media type %q", mt)}
		}
	}
	if f.MinViews != nil && *f.MinViews < 0 {
		return &ValidationError{Field: "filter.min_views", Reason: "must be non-negative"}
	}
	if f.MaxViews != nil && *f.MaxViews < 0 {
		return &ValidationError{Field: "filter.max_views", Reason: "must be non-negative"}
	}
	return nil
}

// Matches evaluates the predicate against a message. Classification of the
// message's media facets is total, so every message has exactly one kind.
func (f *Filter) Matches(m telegram.Message) bool {
	if f == nil {
		return true
	}
	if len(f.MediaTypes) > 0 {
		kind := telegram.Classify(m.Media)
		found := false
		for _, mt := range f.MediaTypes {
			if mt == kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.HasMedia != nil && m.Media.Any() != *f.HasMedia {
		return false
	}
	if len(f.FromUsers) > 0 {
		if m.Sender == nil {
			return false
		}
		found := false
		for _, id := range f.FromUsers {
			if id == m.Sender.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	views := 0
	if m.Views != nil {
		views = *m.Views
	}
	if f.MinViews != nil && views < *f.MinViews {
		return false
	}
	if f.MaxViews != nil && views > *f.MaxViews {
		return false
	}
	return true
}

// canonical renders the filter deterministically for window hashing.
func (f *Filter) canonical() string {
	var parts []string
	if len(f.MediaTypes) > 0 {
		kinds := make([]string, 0, len(f.MediaTypes))
		for _, mt := range f.MediaTypes {
			kinds = append(kinds, string(mt))
		}
		sort.Strings(kinds)
		parts = append(parts, "media="+strings.Join(kinds, ","))
	}
	if f.HasMedia != nil {
		parts = append(parts, "has_media="+strconv.FormatBool(*f.HasMedia))
	}
	if len(f.FromUsers) > 0 {
		ids := sortedInt64s(f.FromUsers)
		strs := make([]string, 0, len(ids))
		for _, id := range ids {
			strs = append(strs, strconv.FormatInt(id, 10))
		}
		parts = append(parts, "users="+strings.Join(strs, ","))
	}
	if f.MinViews != nil {
		parts = append(parts, "min_views="+strconv.Itoa(*f.MinViews))
	}
	if f.MaxViews != nil {
		parts = append(parts, "max_views="+strconv.Itoa(*f.MaxViews))
	}
	return strings.Join(parts, ";")
}
