package transform

import (
	"io"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"jarsmith/internal/mapping"
)

// DebugHook observes the renames applied by a Remapper. Implementations must be safe for
// concurrent use: classes are remapped on several goroutines.
type DebugHook interface {
	OnClass(from, to string)
	OnMember(kind mapping.Kind, owner, name, desc, to string)
}

// RenameEvent is one observed rename.
type RenameEvent struct {
	Kind  mapping.Kind
	Owner string
	Name  string
	Desc  string
	To    string
}

// SpewHook dumps every rename to W with go-spew.
type SpewHook struct {
	W io.Writer

	mu sync.Mutex
}

var spewConfig = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}

// OnClass implements DebugHook.
func (h *SpewHook) OnClass(from, to string) {
	h.dump(RenameEvent{Kind: mapping.KindClass, Name: from, To: to})
}

// OnMember implements DebugHook.
func (h *SpewHook) OnMember(kind mapping.Kind, owner, name, desc, to string) {
	h.dump(RenameEvent{Kind: kind, Owner: owner, Name: name, Desc: desc, To: to})
}

func (h *SpewHook) dump(e RenameEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	spewConfig.Fdump(h.W, e)
}

// RecordingHook keeps every rename in memory.
type RecordingHook struct {
	mu     sync.Mutex
	events []RenameEvent
}

// OnClass implements DebugHook.
func (h *RecordingHook) OnClass(from, to string) {
	h.add(RenameEvent{Kind: mapping.KindClass, Name: from, To: to})
}

// OnMember implements DebugHook.
func (h *RecordingHook) OnMember(kind mapping.Kind, owner, name, desc, to string) {
	h.add(RenameEvent{Kind: kind, Owner: owner, Name: name, Desc: desc, To: to})
}

func (h *RecordingHook) add(e RenameEvent) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

// Events returns the recorded renames.
func (h *RecordingHook) Events() []RenameEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]RenameEvent, len(h.events))
	copy(out, h.events)

	return out
}

// LogHook writes renames at debug level.
type LogHook struct {
	Logger *zap.Logger
}

// OnClass implements DebugHook.
func (h LogHook) OnClass(from, to string) {
	h.Logger.Debug("rename class", zap.String("from", from), zap.String("to", to))
}

// OnMember implements DebugHook.
func (h LogHook) OnMember(kind mapping.Kind, owner, name, desc, to string) {
	h.Logger.Debug("rename member",
		zap.Stringer("kind", kind),
		zap.String("owner", owner),
		zap.String("name", name),
		zap.String("desc", desc),
		zap.String("to", to))
}
