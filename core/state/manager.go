package state

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"nftstake/storage"
)

// Manager owns the ledger's key/value backend. All reads and writes go through
// a Journal so that a transaction either lands as one batch or not at all.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a journal over the current committed state.
func (m *Manager) Begin() *Journal {
	return &Journal{db: m.db, pending: make(map[string]pendingWrite)}
}

type pendingWrite struct {
	value   []byte
	deleted bool
}

// Journal buffers writes on top of the committed state. Reads observe the
// journal's own writes first. Nothing reaches the database until Commit.
type Journal struct {
	db      storage.Database
	pending map[string]pendingWrite
	closed  bool
}

var errJournalClosed = errors.New("state: journal already committed or discarded")

func (j *Journal) get(key []byte) ([]byte, error) {
	if j.closed {
		return nil, errJournalClosed
	}
	if w, ok := j.pending[string(key)]; ok {
		if w.deleted {
			return nil, nil
		}
		return w.value, nil
	}
	data, err := j.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (j *Journal) put(key []byte, value []byte) error {
	if j.closed {
		return errJournalClosed
	}
	j.pending[string(key)] = pendingWrite{value: append([]byte(nil), value...)}
	return nil
}

func (j *Journal) del(key []byte) error {
	if j.closed {
		return errJournalClosed
	}
	j.pending[string(key)] = pendingWrite{deleted: true}
	return nil
}

// Dirty reports the number of keys touched by the journal.
func (j *Journal) Dirty() int { return len(j.pending) }

// Commit writes every buffered change in a single batch. Keys are written in
// sorted order so identical journals produce identical batches.
func (j *Journal) Commit() error {
	if j.closed {
		return errJournalClosed
	}
	j.closed = true
	if len(j.pending) == 0 {
		return nil
	}
	keys := make([]string, 0, len(j.pending))
	for k := range j.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := j.db.NewBatch()
	for _, k := range keys {
		w := j.pending[k]
		if w.deleted {
			batch.Delete([]byte(k))
			continue
		}
		batch.Put([]byte(k), w.value)
	}
	j.pending = nil
	return batch.Write()
}

// Discard drops every buffered change.
func (j *Journal) Discard() {
	j.closed = true
	j.pending = nil
}

func hashedKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (j *Journal) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return j.put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (j *Journal) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := j.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVAppend appends value to the RLP-encoded list stored under key. Duplicate
// values are ignored to keep the index deterministic.
func (j *Journal) KVAppend(key []byte, value []byte) error {
	list, err := j.kvList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return j.KVPut(key, list)
}

// KVRemove removes value from the RLP-encoded list stored under key. The key
// is deleted once the list is empty.
func (j *Journal) KVRemove(key []byte, value []byte) error {
	list, err := j.kvList(key)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, existing := range list {
		if !bytes.Equal(existing, value) {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		return j.del(kvKey(key))
	}
	return j.KVPut(key, kept)
}

// KVGetList returns the list stored under key, or an empty list.
func (j *Journal) KVGetList(key []byte) ([][]byte, error) {
	return j.kvList(key)
}

func (j *Journal) kvList(key []byte) ([][]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("kv: key must not be empty")
	}
	list := [][]byte{}
	if _, err := j.KVGet(key, &list); err != nil {
		return nil, err
	}
	return list, nil
}
