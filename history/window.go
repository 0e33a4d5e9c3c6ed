package history

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DronPascal/telegram-toolkit-mcp/chats"
)

// Direction orders traversal across pages. Within a page messages are always
// ascending by id.
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// Window is one immutable fetch request: a chat, an optional UTC date range,
// traversal direction, page size, and optional search/filter constraints.
type Window struct {
	Chat      chats.ChatRef
	From      *time.Time
	To        *time.Time
	Direction Direction
	PageSize  int
	Search    string
	Filter    *Filter
}

// Validate checks the window against the configured bounds. All failures are
// *ValidationError.
func (w *Window) Validate(maxPageSize int) error {
	if w.PageSize < 1 || w.PageSize > maxPageSize {
		return &ValidationError{Field: "page_size", Reason: fmt.Sprintf("must be between 1 and %d", maxPageSize)}
	}
	switch w.Direction {
	case DirectionAsc, DirectionDesc:
	default:
		return &ValidationError{Field: "direction", Reason: `must be "asc" or "desc"`}
	}
	if w.From != nil && w.To != nil && w.From.After(*w.To) {
		return &ValidationError{Field: "date_range", Reason: "from_date must not be after to_date"}
	}
	if w.Filter != nil {
		if err := w.Filter.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Hash fingerprints the window parameters. Cursors embed it so a cursor
// issued for one query cannot silently page a different one.
func (w *Window) Hash() string {
	var b strings.Builder
	b.WriteString("chat=")
	b.WriteString(strconv.FormatInt(w.Chat.Peer.ID, 10))
	b.WriteString("|from=")
	if w.From != nil {
		b.WriteString(strconv.FormatInt(w.From.Unix(), 10))
	}
	b.WriteString("|to=")
	if w.To != nil {
		b.WriteString(strconv.FormatInt(w.To.Unix(), 10))
	}
	b.WriteString("|dir=")
	b.WriteString(string(w.Direction))
	b.WriteString("|search=")
	b.WriteString(strings.ToLower(strings.TrimSpace(w.Search)))
	b.WriteString("|filter=")
	if w.Filter != nil {
		b.WriteString(w.Filter.canonical())
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

func sortedInt64s(in []int64) []int64 {
	out := append([]int64(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
