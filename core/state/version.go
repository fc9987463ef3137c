package state

import (
	"errors"
	"fmt"
	"math"
)

// SchemaVersion identifies the on-disk layout of the ledger. Increment it
// whenever a stored encoding changes incompatibly.
const SchemaVersion uint32 = 1

var (
	schemaVersionKey = []byte("state/version")
	// ErrSchemaVersionMismatch indicates the stored schema version does not
	// match the version supported by the current binary.
	ErrSchemaVersionMismatch = errors.New("state: schema version mismatch")
)

// StoredSchemaVersion returns the recorded schema version and whether one was
// present.
func (m *Manager) StoredSchemaVersion() (uint32, bool, error) {
	journal := m.Begin()
	defer journal.Discard()
	var stored uint64
	ok, err := journal.KVGet(schemaVersionKey, &stored)
	if err != nil || !ok {
		return 0, false, err
	}
	if stored > uint64(math.MaxUint32) {
		return 0, false, fmt.Errorf("state: schema version overflow: %d", stored)
	}
	return uint32(stored), true, nil
}

// EnsureSchemaVersion stamps a fresh ledger with SchemaVersion and rejects a
// ledger written by a different layout. allowMigrate tolerates the mismatch
// so operators can run manual migrations.
func (m *Manager) EnsureSchemaVersion(allowMigrate bool) error {
	version, ok, err := m.StoredSchemaVersion()
	if err != nil {
		return err
	}
	if !ok {
		journal := m.Begin()
		if err := journal.KVPut(schemaVersionKey, uint64(SchemaVersion)); err != nil {
			journal.Discard()
			return err
		}
		return journal.Commit()
	}
	if version == SchemaVersion || allowMigrate {
		return nil
	}
	return fmt.Errorf("%w: on-disk=%d expected=%d", ErrSchemaVersionMismatch, version, SchemaVersion)
}
