package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/brightforge/rulequery"
	"github.com/brightforge/rulequery/vm"
)

// snapshotKey is the single row the whole oracle is persisted under. The
// table set this engine targets (a handful of components over a few
// thousand entities) is small enough that one gob blob per open/seed is
// simpler than a per-table key scheme, and still lets the VM run entirely
// against an in-memory cache after the first load.
var snapshotKey = []byte("rulequery:snapshot")

// snapshot is the gob-serializable image of a MemoryOracle's state.
type snapshot struct {
	Tables   map[vm.Table][]rulequery.Id
	Entities map[vm.Table][]rulequery.Id
	Owner    map[rulequery.Id]vm.Table
	Roles    map[rulequery.Id]map[rulequery.Role]bool
	NextTbl  vm.Table
}

// BadgerOracle is a vm.Oracle backed by a BadgerDB database: a single
// gob-encoded snapshot of the table set, lazily decoded into an in-memory
// cache on first read. It implements vm.Oracle (and compile.MetaOracle) by
// delegating every call to that cache.
type BadgerOracle struct {
	db *badger.DB

	once  sync.Once
	cache *MemoryOracle
	err   error
}

// OpenBadger opens (or creates) a BadgerDB database at path, tuned the same
// way a read-heavy store would be: generous block/index caches, conflict
// detection off, and small values kept in the LSM tree rather than spilled
// to value-log files.
func OpenBadger(path string) (*BadgerOracle, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	opts.MemTableSize = 128 << 20
	opts.BlockCacheSize = 256 << 20
	opts.IndexCacheSize = 100 << 20
	opts.DetectConflicts = false
	opts.NumCompactors = 4
	opts.ValueThreshold = 1 << 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerOracle{db: db}, nil
}

// Close closes the underlying database.
func (b *BadgerOracle) Close() error { return b.db.Close() }

// Seed persists mo's entire table set as this oracle's snapshot, replacing
// whatever was there before, and refreshes the in-memory cache to match so
// subsequent reads see it without a reload.
func (b *BadgerOracle) Seed(mo *MemoryOracle) error {
	snap := snapshot{
		Tables:   mo.tables,
		Entities: mo.entities,
		Owner:    mo.owner,
		Roles:    mo.roles,
		NextTbl:  mo.nextTbl,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, buf.Bytes())
	}); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	cache := newMemoryOracle()
	cache.tables = snap.Tables
	cache.entities = snap.Entities
	cache.owner = snap.Owner
	cache.roles = snap.Roles
	cache.nextTbl = snap.NextTbl
	b.cache = cache
	b.once.Do(func() {}) // mark loaded so ensureLoaded never overwrites this cache
	return nil
}

// ensureLoaded decodes the persisted snapshot into the cache on first use.
// A database with no snapshot yet (a fresh Open with no prior Seed) loads as
// an empty oracle rather than an error.
func (b *BadgerOracle) ensureLoaded() error {
	b.once.Do(func() {
		b.cache, b.err = b.load()
	})
	return b.err
}

func (b *BadgerOracle) load() (*MemoryOracle, error) {
	var snap snapshot
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&snap)
		})
	})
	if err == badger.ErrKeyNotFound {
		return newMemoryOracle(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	mo := newMemoryOracle()
	mo.tables = snap.Tables
	mo.entities = snap.Entities
	mo.owner = snap.Owner
	mo.roles = snap.Roles
	mo.nextTbl = snap.NextTbl
	return mo, nil
}

func (b *BadgerOracle) RecordOf(entity rulequery.Id) (vm.Table, int, bool) {
	if err := b.ensureLoaded(); err != nil {
		return 0, 0, false
	}
	return b.cache.RecordOf(entity)
}

func (b *BadgerOracle) TableOf(entity rulequery.Id) (vm.Table, bool) {
	if err := b.ensureLoaded(); err != nil {
		return 0, false
	}
	return b.cache.TableOf(entity)
}

func (b *BadgerOracle) TableSetFor(pred rulequery.Id) []vm.Table {
	if err := b.ensureLoaded(); err != nil {
		return nil
	}
	return b.cache.TableSetFor(pred)
}

func (b *BadgerOracle) TableType(t vm.Table) []rulequery.Id {
	if err := b.ensureLoaded(); err != nil {
		return nil
	}
	return b.cache.TableType(t)
}

func (b *BadgerOracle) TableEntities(t vm.Table) []rulequery.Id {
	if err := b.ensureLoaded(); err != nil {
		return nil
	}
	return b.cache.TableEntities(t)
}

func (b *BadgerOracle) TableRowCount(t vm.Table) int {
	if err := b.ensureLoaded(); err != nil {
		return 0
	}
	return b.cache.TableRowCount(t)
}

func (b *BadgerOracle) DirectSubjects(pred, object rulequery.Id) []rulequery.Id {
	if err := b.ensureLoaded(); err != nil {
		return nil
	}
	return b.cache.DirectSubjects(pred, object)
}

func (b *BadgerOracle) HasRole(id rulequery.Id, role rulequery.Role) bool {
	if err := b.ensureLoaded(); err != nil {
		return false
	}
	return b.cache.HasRole(id, role)
}

func (b *BadgerOracle) HasBackingTable(id rulequery.Id) bool {
	if err := b.ensureLoaded(); err != nil {
		return false
	}
	return b.cache.HasBackingTable(id)
}
