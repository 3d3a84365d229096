// Package state implements the single serialized state machine shared by the ledger, the relay
// forwarder and the account book.
package state

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/event"

	"github.com/smartcontractkit/govledger/types"
)

const (
	// levelDBCache is the leveldb cache size in megabytes.
	levelDBCache = 16
	// levelDBHandles is the number of open file handles leveldb may hold.
	levelDBHandles = 16
	// levelDBNamespace prefixes the leveldb metrics.
	levelDBNamespace = "govledger/db/"
)

var (
	eventKeyPrefix = []byte("e")
	eventHeadKey   = []byte("E")
)

// Store is the key/value backend of a Machine. Both the in-memory and the leveldb databases of
// go-ethereum satisfy it.
type Store interface {
	ethdb.KeyValueReader
	ethdb.Batcher
	io.Closer
}

// Reader is the read-only view of a frame.
type Reader interface {
	Get(key []byte) ([]byte, bool, error)
}

// Machine serializes every operation on a store. Each root operation runs in its own frame under
// a single lock and commits with one atomic batch write, or not at all. Events of committed
// frames are appended to a persistent log and delivered in log order to subscribers.
type Machine struct {
	mu   sync.Mutex
	db   Store
	head uint64

	feed  event.Feed
	scope event.SubscriptionScope

	queueMu sync.Mutex
	queue   []types.LoggedEvent
	wake    chan struct{}
	quit    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
}

// New creates a Machine over db, resuming the event log where it left off.
func New(db Store) (*Machine, error) {
	m := &Machine{
		db:   db,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	ok, err := db.Has(eventHeadKey)
	if err != nil {
		return nil, fmt.Errorf("unable to read event log head: %w", err)
	}
	if ok {
		b, err := db.Get(eventHeadKey)
		if err != nil {
			return nil, fmt.Errorf("unable to read event log head: %w", err)
		}
		m.head = binary.BigEndian.Uint64(b)
	}

	go m.dispatch()

	return m, nil
}

// NewMemory creates a Machine backed by an in-memory database.
func NewMemory() *Machine {
	m, err := New(memorydb.New())
	if err != nil {
		// memorydb reads cannot fail on an empty database
		panic(err)
	}

	return m
}

// OpenLevelDB creates a Machine backed by a leveldb database at path.
func OpenLevelDB(path string) (*Machine, error) {
	db, err := leveldb.New(path, levelDBCache, levelDBHandles, levelDBNamespace, false)
	if err != nil {
		return nil, fmt.Errorf("unable to open database at %s: %w", path, err)
	}

	m, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return m, nil
}

// Update runs fn in a new frame and commits it if fn returns nil.
//
// When ctx already carries a frame of this machine, the call is nested inside an operation in
// flight: fn runs in a child frame over it without taking the lock, observes the parent's staged
// writes, and is merged into the parent on success or dropped on failure. fn must pass the ctx it
// receives to any callee that may call back into the machine. A ctx whose frame has finished
// yields ErrFrameClosed, as does a nested call that outlives its parent.
func (m *Machine) Update(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if parent := frameFrom(ctx, m); parent != nil {
		if parent.isClosed() {
			return ErrFrameClosed
		}

		child := newTx(m, parent)
		if err := fn(withFrame(ctx, m, child), child); err != nil {
			child.close()
			return err
		}

		return child.mergeInto(parent)
	}

	logged, err := m.apply(ctx, fn)
	if err != nil {
		return err
	}
	m.enqueue(logged)

	return nil
}

// View runs fn against the current state. Inside an operation in flight it reads that
// operation's staged state.
func (m *Machine) View(ctx context.Context, fn func(r Reader) error) error {
	if parent := frameFrom(ctx, m); parent != nil {
		if parent.isClosed() {
			return ErrFrameClosed
		}

		return fn(parent)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return fn(newTx(m, nil))
}

// SubscribeEvents delivers every event committed after the call to ch, in log order.
func (m *Machine) SubscribeEvents(ch chan<- types.LoggedEvent) event.Subscription {
	return m.scope.Track(m.feed.Subscribe(ch))
}

// EventHead returns the sequence number of the last committed event, 0 if there is none.
func (m *Machine) EventHead() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.head
}

// EventsSince returns up to limit logged events with a sequence number greater than after. A
// limit of 0 returns all of them.
func (m *Machine) EventsSince(after uint64, limit int) ([]types.LoggedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.LoggedEvent, 0)
	if after >= m.head {
		return out, nil
	}
	for seq := after + 1; seq <= m.head; seq++ {
		if limit > 0 && len(out) == limit {
			break
		}

		b, err := m.db.Get(eventKey(seq))
		if err != nil {
			return nil, fmt.Errorf("unable to read event %d: %w", seq, err)
		}

		ev, err := types.DecodeEvent(b)
		if err != nil {
			return nil, fmt.Errorf("unable to decode event %d: %w", seq, err)
		}
		out = append(out, types.LoggedEvent{Seq: seq, Event: ev})
	}

	return out, nil
}

// Close stops event delivery, unsubscribes all subscribers and closes the store.
func (m *Machine) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.scope.Close()
		close(m.quit)
		<-m.done

		m.mu.Lock()
		defer m.mu.Unlock()
		err = m.db.Close()
	})

	return err
}

func (m *Machine) apply(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) ([]types.LoggedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := newTx(m, nil)
	err := fn(withFrame(ctx, m, tx), tx)
	tx.close()
	if err != nil {
		return nil, err
	}

	return m.commit(tx)
}

func (m *Machine) commit(tx *Tx) ([]types.LoggedEvent, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	batch := m.db.NewBatch()
	for k, v := range tx.writes {
		if err := batch.Put([]byte(k), v); err != nil {
			return nil, fmt.Errorf("unable to stage write: %w", err)
		}
	}

	seq := m.head
	logged := make([]types.LoggedEvent, 0, len(tx.events))
	for _, ev := range tx.events {
		seq++
		b, err := types.EncodeEvent(ev)
		if err != nil {
			return nil, fmt.Errorf("unable to encode %s: %w", ev.EventName(), err)
		}
		if err := batch.Put(eventKey(seq), b); err != nil {
			return nil, fmt.Errorf("unable to stage event: %w", err)
		}
		logged = append(logged, types.LoggedEvent{Seq: seq, Event: ev})
	}
	if seq != m.head {
		if err := batch.Put(eventHeadKey, binary.BigEndian.AppendUint64(nil, seq)); err != nil {
			return nil, fmt.Errorf("unable to stage event head: %w", err)
		}
	}

	if err := batch.Write(); err != nil {
		return nil, fmt.Errorf("unable to commit state: %w", err)
	}
	m.head = seq

	return logged, nil
}

func (m *Machine) enqueue(logged []types.LoggedEvent) {
	if len(logged) == 0 {
		return
	}

	m.queueMu.Lock()
	m.queue = append(m.queue, logged...)
	m.queueMu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// dispatch delivers queued events to the feed outside the state lock, so subscribers may call
// back into the machine.
func (m *Machine) dispatch() {
	defer close(m.done)

	for {
		select {
		case <-m.wake:
		case <-m.quit:
			return
		}

		for {
			m.queueMu.Lock()
			batch := m.queue
			m.queue = nil
			m.queueMu.Unlock()

			if len(batch) == 0 {
				break
			}
			for _, ev := range batch {
				m.feed.Send(ev)
			}
		}
	}
}

func eventKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, eventKeyPrefix...), seq)
}

type frameKey struct{}

// frame links the active frames of all machines an operation has entered.
type frame struct {
	m    *Machine
	tx   *Tx
	next *frame
}

func frameFrom(ctx context.Context, m *Machine) *Tx {
	f, _ := ctx.Value(frameKey{}).(*frame)
	for ; f != nil; f = f.next {
		if f.m == m {
			return f.tx
		}
	}

	return nil
}

func withFrame(ctx context.Context, m *Machine, tx *Tx) context.Context {
	next, _ := ctx.Value(frameKey{}).(*frame)

	return context.WithValue(ctx, frameKey{}, &frame{m: m, tx: tx, next: next})
}
