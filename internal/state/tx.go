package state

import (
	"errors"
	"sync"

	"github.com/smartcontractkit/govledger/types"
)

// ErrFrameClosed is returned when a context carries the frame of an operation that has already
// committed or been discarded. Work started from such a context must not be silently dropped.
var ErrFrameClosed = errors.New("operation of this context has already finished")

// Tx is a frame of staged writes and events. Reads fall through to the parent frame and finally
// to the store. Nothing a Tx holds is visible outside it until it is merged into its parent or,
// for a root frame, committed by the Machine.
//
// A frame is closed once it has been merged, committed or discarded. A closed frame accepts no
// further nested calls.
type Tx struct {
	m      *Machine
	parent *Tx

	mu     sync.Mutex
	closed bool
	writes map[string][]byte
	events []types.Event
}

func newTx(m *Machine, parent *Tx) *Tx {
	return &Tx{
		m:      m,
		parent: parent,
		writes: make(map[string][]byte),
	}
}

// Get returns the value stored under key. The boolean is false when the key is absent.
func (tx *Tx) Get(key []byte) ([]byte, bool, error) {
	for f := tx; f != nil; f = f.parent {
		if v, ok := f.staged(key); ok {
			return v, true, nil
		}
	}

	ok, err := tx.m.db.Has(key)
	if err != nil || !ok {
		return nil, false, err
	}

	v, err := tx.m.db.Get(key)
	if err != nil {
		return nil, false, err
	}

	return v, true, nil
}

// Put stages a write.
func (tx *Tx) Put(key, value []byte) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	tx.writes[string(key)] = value
}

// Emit stages an event. Events are appended to the log in the order they are emitted, and only if
// the frame commits.
func (tx *Tx) Emit(ev types.Event) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	tx.events = append(tx.events, ev)
}

func (tx *Tx) staged(key []byte) ([]byte, bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	v, ok := tx.writes[string(key)]

	return v, ok
}

func (tx *Tx) isClosed() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	return tx.closed
}

// close marks the frame finished. Its writes and events are stable afterwards.
func (tx *Tx) close() {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	tx.closed = true
}

// mergeInto closes the child frame and folds it into its parent. It fails when the parent
// finished first.
func (tx *Tx) mergeInto(parent *Tx) error {
	tx.close()

	parent.mu.Lock()
	defer parent.mu.Unlock()

	if parent.closed {
		return ErrFrameClosed
	}
	for k, v := range tx.writes {
		parent.writes[k] = v
	}
	parent.events = append(parent.events, tx.events...)

	return nil
}
