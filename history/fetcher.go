package history

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/DronPascal/telegram-toolkit-mcp/artifact"
	"github.com/DronPascal/telegram-toolkit-mcp/internal/waitctl"
	"github.com/DronPascal/telegram-toolkit-mcp/telegram"
)

// Provider is the slice of the MTProto surface the fetcher consumes.
// telegram.Client satisfies it.
type Provider interface {
	History(ctx context.Context, req telegram.HistoryRequest) ([]telegram.Message, error)
}

type Config struct {
	MaxPageSize         int
	DefaultPageSize     int
	ExportThreshold     int
	InnerReadMultiplier int
	// InnerBatchBudget bounds how many consecutive fully-filtered provider
	// batches one call tolerates before giving up and emitting an empty page
	// with has_more set.
	InnerBatchBudget  int
	MaxExportMessages int
	RequestTimeout    time.Duration
}

func (c Config) normalized() Config {
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 50
	}
	if c.ExportThreshold <= 0 {
		c.ExportThreshold = 500
	}
	if c.InnerReadMultiplier <= 0 {
		c.InnerReadMultiplier = 2
	}
	if c.InnerBatchBudget <= 0 {
		c.InnerBatchBudget = 5
	}
	if c.MaxExportMessages <= 0 {
		c.MaxExportMessages = 10000
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}

// Fetcher iterates chat history over a date window, with ascending in-page
// order, per-call deduplication, filtering, and NDJSON export for large
// windows.
//
// Iteration policy: the provider is asked for batches in traversal order
// (the adapter turns MTProto's newest-first paging into ascending slices for
// asc traversal); pages are emitted in ascending id order regardless of
// traversal direction.
type Fetcher struct {
	provider Provider
	wait     *waitctl.Controller
	exports  *artifact.Store
	cfg      Config
	logger   *slog.Logger
}

func New(provider Provider, wait *waitctl.Controller, exports *artifact.Store, cfg Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		provider: provider,
		wait:     wait,
		exports:  exports,
		cfg:      cfg.normalized(),
		logger:   logger,
	}
}

// Fetch returns one page of the window. An empty cursor starts traversal; a
// previously returned cursor resumes it. Validation failures are
// *ValidationError; over-budget provider waits are *RateLimitedError
// carrying a resumable cursor when one exists.
func (f *Fetcher) Fetch(ctx context.Context, w Window, cursorStr string) (*Page, error) {
	if w.PageSize == 0 {
		w.PageSize = f.cfg.DefaultPageSize
	}
	if w.Direction == "" {
		w.Direction = DirectionDesc
	}
	if err := w.Validate(f.cfg.MaxPageSize); err != nil {
		return nil, err
	}
	hash := w.Hash()

	st := &scanState{
		f:    f,
		w:    w,
		seen: make(map[int64]struct{}),
	}
	if cursorStr != "" {
		cur, err := DecodeCursor(cursorStr, hash)
		if err != nil {
			return nil, err
		}
		st.offsetID = cur.OffsetID
		st.prior = cur.FetchedCount
	} else {
		switch {
		case w.Direction == DirectionAsc && w.From != nil:
			st.offsetDate = *w.From
		case w.Direction == DirectionDesc && w.To != nil:
			st.offsetDate = *w.To
		}
	}

	batchLimit := w.PageSize * f.cfg.InnerReadMultiplier
	if batchLimit > 100 {
		batchLimit = 100
	}

	// ITERATING/EMITTING: fill the page buffer.
	emptyStreak := 0
	for !st.done() && st.emitted < w.PageSize && st.scanned < f.cfg.MaxExportMessages {
		got, err := st.fetchBatch(ctx, batchLimit)
		if err != nil {
			return nil, f.resumable(err, cursorStr)
		}
		if got == 0 {
			emptyStreak++
			if emptyStreak >= f.cfg.InnerBatchBudget {
				break
			}
		} else {
			emptyStreak = 0
		}
	}

	// YIELD_LARGE/EXPORT: only cursor-less calls evaluate export, so resumed
	// pagination stays cheap. Export failures degrade to the inline page.
	var export *Export
	if cursorStr == "" && !st.done() && st.emitted >= w.PageSize {
		export = f.runExport(ctx, st, batchLimit, hash)
	}

	page := f.buildPage(st, hash)
	page.Export = export
	f.logger.Info("history_page",
		"chat_id", w.Chat.Peer.ID,
		"messages", len(page.Messages),
		"scanned", st.scanned,
		"duplicates", st.duplicates,
		"has_more", page.PageInfo.HasMore,
		"exported", export != nil)
	return page, nil
}

// resumable wraps an over-budget wait into a RateLimitedError carrying the
// cursor of the last successfully emitted page; within one call that is the
// input cursor, since partial pages are never emitted.
func (f *Fetcher) resumable(err error, inputCursor string) error {
	if retryAfter, ok := waitctl.AsRateLimited(err); ok {
		return &RateLimitedError{RetryAfter: retryAfter, Cursor: inputCursor}
	}
	return err
}

// runExport decides whether the window is large enough to materialize and,
// if so, streams it to an NDJSON artifact. Any failure here aborts the
// artifact and keeps the inline page intact.
func (f *Fetcher) runExport(ctx context.Context, st *scanState, batchLimit int, hash string) *Export {
	// Probe ahead until the window provably exceeds the threshold.
	for !st.done() && st.emitted <= f.cfg.ExportThreshold && st.scanned < f.cfg.MaxExportMessages {
		if _, err := st.fetchBatch(ctx, batchLimit); err != nil {
			f.logger.Warn("export_probe_failed", "error", err.Error())
			return nil
		}
	}
	if st.emitted <= f.cfg.ExportThreshold {
		return nil
	}

	writer, err := f.exports.NewExport(st.w.Chat.Peer.ID, hash)
	if err != nil {
		f.logger.Warn("export_create_failed", "error", err.Error())
		return nil
	}
	for _, m := range st.matched {
		if err := writer.Append(m); err != nil {
			writer.Abort()
			f.logger.Warn("export_write_failed", "error", err.Error())
			return nil
		}
	}
	// Stream the remainder straight to disk; only the inline page stays
	// buffered.
	st.sink = writer.Append
	for !st.done() && writer.Count() < f.cfg.MaxExportMessages {
		if _, err := st.fetchBatch(ctx, batchLimit); err != nil {
			st.sink = nil
			writer.Abort()
			f.logger.Warn("export_stream_failed", "error", err.Error())
			return nil
		}
	}
	st.sink = nil

	meta, err := writer.Commit()
	if err != nil {
		f.logger.Warn("export_commit_failed", "error", err.Error())
		return nil
	}
	return &Export{URI: meta.URI, Format: meta.Format}
}

// buildPage assembles the final page: ascending order, cursor, counters.
func (f *Fetcher) buildPage(st *scanState, hash string) *Page {
	pageMsgs := st.matched
	if len(pageMsgs) > st.w.PageSize {
		pageMsgs = pageMsgs[:st.w.PageSize]
	}
	out := make([]Message, len(pageMsgs))
	copy(out, pageMsgs)
	if st.w.Direction == DirectionDesc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	moreBuffered := st.emitted > len(pageMsgs)
	hasMore := moreBuffered || !st.done()
	total := st.prior + len(pageMsgs)

	info := PageInfo{HasMore: hasMore, TotalFetched: total}
	if hasMore {
		next := Cursor{
			Direction:    st.w.Direction,
			FetchedCount: total,
			WindowHash:   hash,
		}
		if len(pageMsgs) > 0 {
			tail := pageMsgs[len(pageMsgs)-1]
			next.OffsetID = tail.ID
			if ts, err := time.Parse(time.RFC3339, tail.Date); err == nil {
				next.OffsetDate = ts.Unix()
			}
		} else {
			// Fully-filtered scan: advance past everything inspected so the
			// caller makes progress on the next call.
			next.OffsetID = st.lastScannedID
			next.OffsetDate = st.lastScannedDate.Unix()
		}
		encoded := next.Encode()
		info.Cursor = &encoded
	}

	return &Page{Messages: out, PageInfo: info}
}

// scanState is the per-call iteration state: provider offsets, the seen-id
// set, and the matched buffer in traversal order.
type scanState struct {
	f *Fetcher
	w Window

	offsetID   int64
	offsetDate time.Time

	seen    map[int64]struct{}
	matched []Message
	sink    func(v any) error // diverts matches during export streaming

	emitted         int
	scanned         int
	duplicates      int
	prior           int
	lastScannedID   int64
	lastScannedDate time.Time

	exhausted  bool // provider ran out of messages
	windowDone bool // crossed the date bound
}

func (st *scanState) done() bool { return st.exhausted || st.windowDone }

// fetchBatch pulls one provider batch through the wait controller and folds
// it into the matched buffer (or the export sink). Returns how many messages
// from this batch passed the window, dedup, filter and search checks.
func (st *scanState) fetchBatch(ctx context.Context, limit int) (int, error) {
	req := telegram.HistoryRequest{
		Peer:       st.w.Chat.Peer,
		OffsetID:   st.offsetID,
		OffsetDate: st.offsetDate,
		Limit:      limit,
		Ascending:  st.w.Direction == DirectionAsc,
		Search:     st.w.Search,
	}
	var batch []telegram.Message
	err := st.f.wait.Do(ctx, "history", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, st.f.cfg.RequestTimeout)
		defer cancel()
		var cerr error
		batch, cerr = st.f.provider.History(callCtx, req)
		return cerr
	})
	if err != nil {
		return 0, err
	}
	if len(batch) < limit {
		st.exhausted = true
	}

	before := st.emitted
	for _, m := range batch {
		st.offsetID = m.ID
		st.offsetDate = time.Time{} // id offsets take over after the first batch
		st.lastScannedID = m.ID
		st.lastScannedDate = m.Date
		st.scanned++

		if st.pastWindowEnd(m) {
			st.windowDone = true
			break
		}
		if st.beforeWindowStart(m) {
			continue
		}
		if _, dup := st.seen[m.ID]; dup {
			st.duplicates++
			continue
		}
		st.seen[m.ID] = struct{}{}
		if !st.w.Filter.Matches(m) {
			continue
		}
		if !st.searchMatches(m) {
			continue
		}
		projected := projectMessage(m)
		if st.sink != nil {
			if err := st.sink(projected); err != nil {
				return st.emitted - before, err
			}
		} else {
			st.matched = append(st.matched, projected)
		}
		st.emitted++
	}
	return st.emitted - before, nil
}

// pastWindowEnd reports that traversal has crossed the far bound of the
// window and can stop.
func (st *scanState) pastWindowEnd(m telegram.Message) bool {
	if st.w.Direction == DirectionAsc {
		return st.w.To != nil && m.Date.After(*st.w.To)
	}
	return st.w.From != nil && m.Date.Before(*st.w.From)
}

// beforeWindowStart reports a message on the near side of the window; those
// are skipped, not a stop condition, since date offsets are imprecise.
func (st *scanState) beforeWindowStart(m telegram.Message) bool {
	if st.w.Direction == DirectionAsc {
		return st.w.From != nil && m.Date.Before(*st.w.From)
	}
	return st.w.To != nil && m.Date.After(*st.w.To)
}

// searchMatches applies the post-hoc text guarantee: even when the provider
// searched server-side, the observable predicate is a case-insensitive
// substring match.
func (st *scanState) searchMatches(m telegram.Message) bool {
	q := strings.TrimSpace(st.w.Search)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(m.Text), strings.ToLower(q))
}
