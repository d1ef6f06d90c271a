// Package heap implements the engine's tagged-cell store: a fixed-shape record array
// bump-allocated from a free pointer and reclaimed wholesale by a copying collector (see
// gc.go). Every Scheme value — pairs, symbols, numbers, closures, vectors, structs,
// strings — lives as one or more cell.Cell entries addressed by cell.Index.
package heap

import (
	"fmt"

	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/log"
)

// Config holds the six memory-sizing parameters read once at startup (§5 of the design).
// Defaults mirror the reference implementation's constants.
type Config struct {
	ArenaSize    int // initial cell count of the active arena
	MaxArenaSize int // upper bound the arena may grow to
	JamSize      int // headroom reserved in scratch space for a collection
	GCSafety     int // headroom required before a step that may allocate
	StackSize    int // depth, in words, of the explicit frame stack
	MaxString    int // largest byte string the reader/primitives will construct
}

// DefaultConfig returns the reference sizing defaults.
func DefaultConfig() Config {
	return Config{
		ArenaSize:    10_000_000,
		MaxArenaSize: 100_000_000,
		JamSize:      20_000,
		GCSafety:     2_000,
		StackSize:    20_000,
		MaxString:    524_288,
	}
}

// Option configures a Heap during New.
type Option func(*Heap)

// WithConfig overrides the default sizing configuration.
func WithConfig(cfg Config) Option {
	return func(h *Heap) { h.cfg = cfg }
}

// WithLogger overrides the heap's logger.
func WithLogger(l *log.Logger) Option {
	return func(h *Heap) { h.log = l }
}

// Rooter is implemented by collaborators that hold cell.Index fields which must survive
// a collection. The heap asks every registered Rooter for its roots immediately before
// copying and rewrites each pointee in place. This mirrors the teacher's small
// interface-based extension points (see internal/vm/devices.go's Driver), adapted so
// that arbitrary owners of cell references — not just memory-mapped devices — can be
// plugged into the collector without heap knowing their concrete types.
type Rooter interface {
	// Roots returns pointers to every cell.Index field the holder wants preserved
	// across a collection. The heap overwrites *p with the forwarded index.
	Roots() []*cell.Index
}

// Heap owns the cell store, the two-space arena used by the collector, the explicit
// frame stack, and the symbol table. Exactly one Heap exists per running machine; there
// is no sharing and no concurrent access (§5).
type Heap struct {
	cfg Config
	log *log.Logger

	cells   []cell.Cell // active space (g_cells)
	scratch []cell.Cell // scratch space, populated only during a collection (g_news)
	free    cell.Index  // bump pointer (g_free)

	stack []cell.Index // flat frame stack (g_stack .. stack_size)
	sp    int          // current stack pointer; grows downward from len(stack)

	symbols    map[string]cell.Index // interned symbol name -> symbol cell
	symbolMax  cell.Index            // free pointer after the singletons; Collect roots every symbol regardless
	ports      map[string]cell.Index // named port cells ("stdin", "stdout", ...)
	rooters    []Rooter
	collections int

	// Well-known singleton indices, fixed at initialization (§3).
	Empty        cell.Index
	True         cell.Index
	False        cell.Index
	Unspecified  cell.Index
	Undefined    cell.Index
	ClosureTag   cell.Index
	CircularMark cell.Index
	BeginTag     cell.Index
}

// New creates and initializes a Heap. Unlike the teacher's two-phase LC3.New, there is
// only one initialization phase: there are no devices to configure before the store
// exists, since the store itself is the substrate everything else is built from.
func New(opts ...Option) *Heap {
	h := &Heap{
		cfg:     DefaultConfig(),
		log:     log.DefaultLogger(),
		symbols: make(map[string]cell.Index),
		ports:   make(map[string]cell.Index),
	}

	for _, opt := range opts {
		opt(h)
	}

	h.cells = make([]cell.Cell, h.cfg.ArenaSize+h.cfg.JamSize)
	h.stack = make([]cell.Index, h.cfg.StackSize)
	h.sp = len(h.stack)
	h.free = 1 // index 0 is the out-of-band prefix cell; user cells start at 1.

	h.initSingletons()

	return h
}

// initSingletons allocates the fixed, well-known constant cells referenced directly by
// the evaluator.
func (h *Heap) initSingletons() {
	h.Empty = h.makeCell(cell.TagSpecial, 0, 0)
	h.True = h.makeCell(cell.TagSpecial, 0, 1)
	h.False = h.makeCell(cell.TagSpecial, 0, 2)
	h.Unspecified = h.makeCell(cell.TagSpecial, 0, 3)
	h.Undefined = h.makeCell(cell.TagSpecial, 0, 4)
	h.ClosureTag = h.makeCell(cell.TagSpecial, 0, 5)
	h.CircularMark = h.makeCell(cell.TagSpecial, 0, 6)
	h.BeginTag = h.makeCell(cell.TagSpecial, 0, 7)
	h.symbolMax = h.free
}

// Free returns the current bump pointer (g_free), mostly for tests and diagnostics.
func (h *Heap) Free() cell.Index { return h.free }

// ArenaSize returns the current (possibly grown) arena size.
func (h *Heap) ArenaSize() int { return h.cfg.ArenaSize }

// AddRoot registers a Rooter to be scanned on every future collection.
func (h *Heap) AddRoot(r Rooter) { h.rooters = append(h.rooters, r) }

// Cell returns a copy of the cell at idx. It panics on an out-of-range index: a caller
// holding a stale index across a safe point without rooting it is a programming error,
// per §5 of the design.
func (h *Heap) Cell(idx cell.Index) cell.Cell {
	if idx < 0 || int(idx) >= int(h.free) {
		panic(fmt.Sprintf("heap: index %s out of range (free=%s)", idx, h.free))
	}

	return h.cells[idx]
}

// setCell overwrites the cell at idx in place.
func (h *Heap) setCell(idx cell.Index, c cell.Cell) {
	h.cells[idx] = c
}

// alloc bumps the free pointer by n cells and returns the start index. It panics if the
// current backing store (arena plus jam) cannot hold the request; it never collects or
// grows the arena itself — this is the allocator relying on the caller having called
// gc_check (see gc.go CheckSafety) first.
func (h *Heap) alloc(n int) cell.Index {
	if int(h.free)+n > len(h.cells) {
		panic(fmt.Sprintf("heap: out of memory: free=%s want=%d arena=%d", h.free, n, len(h.cells)))
	}

	start := h.free
	h.free += cell.Index(n)

	return start
}

// makeCell allocates a single cell and writes its tag and two words.
func (h *Heap) makeCell(tag cell.Tag, a, b cell.Index) cell.Index {
	idx := h.alloc(1)
	h.setCell(idx, cell.Cell{Tag: tag, A: a, B: b})

	return idx
}

// Intern returns the symbol cell for name, allocating and caching it on first use.
// Symbol identity is the cell index: two calls with equal names return the same index.
func (h *Heap) Intern(name string) cell.Index {
	if idx, ok := h.symbols[name]; ok {
		return idx
	}

	str := h.MakeString(name)
	sym := h.makeCell(cell.TagSymbol, cell.Index(hash(name)), str)
	h.symbols[name] = sym

	return sym
}

// hash is a small, stable string hash used only as a symbol descriptor word; it is
// never interpreted as a cell reference.
func hash(s string) int32 {
	var h int32 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + int32(s[i])
	}

	return h
}

// SymbolName returns the string payload of a symbol or keyword cell.
func (h *Heap) SymbolName(idx cell.Index) string {
	c := h.Cell(idx)
	return h.StringValue(c.Cdr())
}

// PushFrame saves a five-slot activation frame (procedure, r0, r1, r2, r3) on the
// explicit stack, per §4.7. It returns false if doing so would underflow the stack's
// low-water mark, which the evaluator treats as an unrecoverable stack overflow (§7).
func (h *Heap) PushFrame(proc, r0, r1, r2, r3 cell.Index) bool {
	if h.sp-5 < 5 {
		return false
	}

	h.sp -= 5
	h.stack[h.sp+0] = proc
	h.stack[h.sp+1] = r0
	h.stack[h.sp+2] = r1
	h.stack[h.sp+3] = r2
	h.stack[h.sp+4] = r3

	return true
}

// PopFrame restores the most recently pushed frame and removes it from the stack.
func (h *Heap) PopFrame() (proc, r0, r1, r2, r3 cell.Index, ok bool) {
	if h.sp+5 > len(h.stack) {
		return 0, 0, 0, 0, 0, false
	}

	proc = h.stack[h.sp+0]
	r0 = h.stack[h.sp+1]
	r1 = h.stack[h.sp+2]
	r2 = h.stack[h.sp+3]
	r3 = h.stack[h.sp+4]
	h.sp += 5

	return proc, r0, r1, r2, r3, true
}

// StackDepth returns the current stack pointer, used by call/cc to capture and restore a
// slice of the explicit stack.
func (h *Heap) StackDepth() int { return h.sp }

// StackSlice captures the live stack words from depth to the top, for continuation
// capture.
func (h *Heap) StackSlice(depth int) []cell.Index {
	out := make([]cell.Index, len(h.stack)-depth)
	copy(out, h.stack[depth:])

	return out
}

// RestoreStack resets the stack to the given depth and contents, for continuation
// invocation.
func (h *Heap) RestoreStack(depth int, words []cell.Index) {
	h.sp = depth
	copy(h.stack[depth:], words)
}

// RegisterPort associates a name ("stdin", "stdout", ...) with a port cell index.
func (h *Heap) RegisterPort(name string, idx cell.Index) { h.ports[name] = idx }

// Port returns the cell index registered under name, if any.
func (h *Heap) Port(name string) (cell.Index, bool) {
	idx, ok := h.ports[name]
	return idx, ok
}

// Collections returns the number of collections run so far, for diagnostics and tests.
func (h *Heap) Collections() int { return h.collections }
