package hub

import (
	"time"

	"github.com/octacordshop/PrimeStream/internal/catalogsync"
	"github.com/octacordshop/PrimeStream/internal/importer"
)

const (
	TypeImportProgress = "import.progress"
	TypeImportDone     = "import.done"
	TypeSyncDone       = "sync.done"
	TypeRefreshDone    = "refresh.done"
	TypeCachePruned    = "cache.pruned"
)

// Event is one line of the progress feed.
type Event struct {
	Type     string                     `json:"type"`
	Op       string                     `json:"op,omitempty"` // "popular", "year", ...
	RunID    string                     `json:"run_id,omitempty"`
	Progress *importer.Progress         `json:"progress,omitempty"`
	Result   *catalogsync.Result        `json:"result,omitempty"`
	Refresh  *catalogsync.RefreshResult `json:"refresh,omitempty"`
	Removed  int                        `json:"removed,omitempty"`
	Error    string                     `json:"error,omitempty"`
	At       time.Time                  `json:"at"`
}

func ImportEvent(p importer.Progress) Event {
	typ := TypeImportProgress
	if !p.IsRunning {
		typ = TypeImportDone
	}
	return Event{Type: typ, RunID: p.RunID, Progress: &p, At: time.Now().UTC()}
}

func SyncEvent(op string, r catalogsync.Result, err error) Event {
	ev := Event{Type: TypeSyncDone, Op: op, Result: &r, At: time.Now().UTC()}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

func RefreshEvent(r catalogsync.RefreshResult, err error) Event {
	ev := Event{Type: TypeRefreshDone, Op: "refresh", Refresh: &r, At: time.Now().UTC()}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

func PruneEvent(removed int) Event {
	return Event{Type: TypeCachePruned, Removed: removed, At: time.Now().UTC()}
}
