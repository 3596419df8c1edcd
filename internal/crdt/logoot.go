package crdt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Logoot-style sequence CRDT: every character owns a dense position
// identifier ordered lexicographically, with the actor id and a
// per-replica clock breaking ties. Inserts union, deletes tombstone,
// so merge order is irrelevant. The clock keeps a reinsert between the
// same neighbors from reallocating a tombstoned position.

const digitBase = 1 << 16

const (
	opInsert = "ins"
	opDelete = "del"
)

var (
	ErrBadFrame   = errors.New("malformed update frame")
	ErrBadIndex   = errors.New("index out of range")
	errUnknownOp  = errors.New("unknown op kind")
	errEmptyPos   = errors.New("empty position")
	errBadDigit   = errors.New("digit out of range")
	errBadPayload = errors.New("insert without character")
)

type ident struct {
	Digit uint32 `json:"d"`
	Actor string `json:"a"`
	Clock uint64 `json:"c"`
}

type position []ident

func (p position) compare(q position) int {
	for i := 0; i < len(p) && i < len(q); i++ {
		if p[i].Digit != q[i].Digit {
			if p[i].Digit < q[i].Digit {
				return -1
			}
			return 1
		}
		if p[i].Actor != q[i].Actor {
			return strings.Compare(p[i].Actor, q[i].Actor)
		}
		if p[i].Clock != q[i].Clock {
			if p[i].Clock < q[i].Clock {
				return -1
			}
			return 1
		}
	}
	// Shared prefix: the shorter position sorts first.
	switch {
	case len(p) < len(q):
		return -1
	case len(p) > len(q):
		return 1
	default:
		return 0
	}
}

func (p position) key() string {
	var b strings.Builder
	for i, id := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(uint64(id.Digit), 10))
		b.WriteByte('@')
		b.WriteString(id.Actor)
		b.WriteByte('#')
		b.WriteString(strconv.FormatUint(id.Clock, 10))
	}
	return b.String()
}

type op struct {
	Kind string   `json:"op"`
	Pos  position `json:"pos"`
	Ch   string   `json:"ch,omitempty"`
}

type updateFrame struct {
	Ops []op `json:"ops"`
}

func (o op) validate() error {
	switch o.Kind {
	case opInsert:
		if o.Ch == "" {
			return errBadPayload
		}
	case opDelete:
	default:
		return errUnknownOp
	}
	if len(o.Pos) == 0 {
		return errEmptyPos
	}
	for _, id := range o.Pos {
		if id.Digit > digitBase {
			return errBadDigit
		}
	}
	return nil
}

type entry struct {
	pos position
	ch  string
}

// Doc is one replica of a shared document. Not goroutine safe.
type Doc struct {
	actor   string
	clock   uint64
	entries []entry
	tombs   map[string]position
}

var _ DocumentMerge = (*Doc)(nil)

func New(actor string) *Doc {
	return &Doc{actor: actor, tombs: make(map[string]position)}
}

// nextClock hands out the per-replica tiebreaker for fresh positions,
// so a reinsert never reuses a tombstoned identifier.
func (d *Doc) nextClock() uint64 {
	c := d.clock
	d.clock++
	return c
}

// NewFromContent seeds a replica with already persisted text. The seed
// actor is fixed so every replica of the same document materializes
// identical positions for the persisted prefix.
func NewFromContent(actor, content string) *Doc {
	doc := New(actor)
	if content != "" {
		seed := New("origin")
		if _, err := seed.InsertAt(0, content); err == nil {
			doc.entries = seed.entries
		}
	}
	return doc
}

// NewDocumentMerge adapts NewFromContent to the Factory signature; the
// document id doubles as the replica actor for server-local ops.
func NewDocumentMerge(documentID, initialContent string) DocumentMerge {
	return NewFromContent("hub:"+documentID, initialContent)
}

// ApplyUpdate merges one frame. A frame that fails validation leaves
// the replica untouched.
func (d *Doc) ApplyUpdate(frame []byte) error {
	var f updateFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	for _, o := range f.Ops {
		if err := o.validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
	}
	for _, o := range f.Ops {
		d.apply(o)
	}
	return nil
}

func (d *Doc) apply(o op) {
	key := o.Pos.key()
	idx, exists := d.search(o.Pos)
	switch o.Kind {
	case opInsert:
		if exists {
			return // idempotent re-delivery
		}
		if _, dead := d.tombs[key]; dead {
			return // delete already won, regardless of arrival order
		}
		d.entries = append(d.entries, entry{})
		copy(d.entries[idx+1:], d.entries[idx:])
		d.entries[idx] = entry{pos: o.Pos, ch: o.Ch}
	case opDelete:
		d.tombs[key] = o.Pos
		if exists {
			d.entries = append(d.entries[:idx], d.entries[idx+1:]...)
		}
	}
}

// search returns the index where pos sorts and whether it is present.
func (d *Doc) search(pos position) (int, bool) {
	idx := sort.Search(len(d.entries), func(i int) bool {
		return d.entries[i].pos.compare(pos) >= 0
	})
	if idx < len(d.entries) && d.entries[idx].pos.compare(pos) == 0 {
		return idx, true
	}
	return idx, false
}

func (d *Doc) Content() string {
	var b strings.Builder
	for _, e := range d.entries {
		b.WriteString(e.ch)
	}
	return b.String()
}

// Serialize emits every live character as an insert op plus every
// tombstone as a delete op, giving a late joiner the fully merged state
// in one frame. Carrying the tombstones means a re-delivered insert of
// an already deleted character stays dead on the new replica too.
func (d *Doc) Serialize() []byte {
	f := updateFrame{Ops: make([]op, 0, len(d.entries)+len(d.tombs))}
	for _, e := range d.entries {
		f.Ops = append(f.Ops, op{Kind: opInsert, Pos: e.pos, Ch: e.ch})
	}
	for _, pos := range d.tombs {
		f.Ops = append(f.Ops, op{Kind: opDelete, Pos: pos})
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return []byte(`{"ops":[]}`)
	}
	return raw
}

// InsertAt applies a local insert of text before rune index and returns
// the frame to broadcast.
func (d *Doc) InsertAt(index int, text string) ([]byte, error) {
	if index < 0 || index > len(d.entries) {
		return nil, ErrBadIndex
	}
	ops := make([]op, 0, len(text))
	left := position(nil)
	if index > 0 {
		left = d.entries[index-1].pos
	}
	right := position(nil)
	if index < len(d.entries) {
		right = d.entries[index].pos
	}
	for _, r := range text {
		pos := allocBetween(left, right, d.actor, d.nextClock())
		o := op{Kind: opInsert, Pos: pos, Ch: string(r)}
		d.apply(o)
		ops = append(ops, o)
		left = pos
	}
	return json.Marshal(updateFrame{Ops: ops})
}

// DeleteAt applies a local delete of count runes starting at index and
// returns the frame to broadcast.
func (d *Doc) DeleteAt(index, count int) ([]byte, error) {
	if index < 0 || count < 0 || index+count > len(d.entries) {
		return nil, ErrBadIndex
	}
	ops := make([]op, 0, count)
	for i := 0; i < count; i++ {
		// Entries shift left as we delete, so the target stays at index.
		o := op{Kind: opDelete, Pos: d.entries[index].pos}
		d.apply(o)
		ops = append(ops, o)
	}
	return json.Marshal(updateFrame{Ops: ops})
}

func identAt(p position, depth int, exhausted ident) ident {
	if depth < len(p) {
		return p[depth]
	}
	return exhausted
}

// allocBetween picks a fresh position strictly between p and q
// (nil means unbounded on that side). The clock stamps the new ident so
// repeated allocations between the same neighbors stay distinct.
func allocBetween(p, q position, actor string, clock uint64) position {
	low := ident{Digit: 0}
	high := ident{Digit: digitBase}
	var out position
	for depth := 0; ; depth++ {
		pi := identAt(p, depth, low)
		qi := identAt(q, depth, high)
		if qi.Digit > pi.Digit+1 {
			return append(out, ident{Digit: pi.Digit + 1, Actor: actor, Clock: clock})
		}
		// No room at this depth: descend along p's branch.
		out = append(out, pi)
		if pi != qi {
			// Diverged from q's prefix, so everything below p's branch
			// already sorts before q.
			q = nil
		}
	}
}
