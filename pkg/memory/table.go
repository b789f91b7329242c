package memory

import (
	"sort"
	"sync"

	"heapstore/pkg/dberr"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
)

// TableInfo bundles a table's backing file with its catalog metadata.
type TableInfo struct {
	File       page.DbFile
	Name       string
	PrimaryKey string
}

// TableManager is the catalog: thread-safe bidirectional mappings between
// table names, table ids and their backing files.
type TableManager struct {
	mu     sync.RWMutex
	byName map[string]*TableInfo
	byID   map[primitives.TableID]*TableInfo
}

// NewTableManager creates an empty catalog.
func NewTableManager() *TableManager {
	return &TableManager{
		byName: make(map[string]*TableInfo),
		byID:   make(map[primitives.TableID]*TableInfo),
	}
}

// AddTable registers a table. A table with the same name or id is replaced.
func (tm *TableManager) AddTable(f page.DbFile, name, primaryKey string) error {
	if f == nil {
		return dberr.New(dberr.CategoryUser, dberr.CodeTableNotFound,
			"table file cannot be nil")
	}
	if name == "" {
		return dberr.New(dberr.CategoryUser, dberr.CodeTableNotFound,
			"table name cannot be empty")
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	info := &TableInfo{File: f, Name: name, PrimaryKey: primaryKey}
	if prev, ok := tm.byName[name]; ok {
		delete(tm.byID, prev.File.TableID())
	}
	if prev, ok := tm.byID[f.TableID()]; ok {
		delete(tm.byName, prev.Name)
	}
	tm.byName[name] = info
	tm.byID[f.TableID()] = info
	return nil
}

// GetDbFile resolves a table id to its backing file.
func (tm *TableManager) GetDbFile(id primitives.TableID) (page.DbFile, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	info, ok := tm.byID[id]
	if !ok {
		return nil, dberr.Newf(dberr.CategoryUser, dberr.CodeTableNotFound,
			"no table with id %d", id)
	}
	return info.File, nil
}

// GetTableID resolves a table name to its id.
func (tm *TableManager) GetTableID(name string) (primitives.TableID, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	info, ok := tm.byName[name]
	if !ok {
		return 0, dberr.Newf(dberr.CategoryUser, dberr.CodeTableNotFound,
			"table %q not found", name)
	}
	return info.File.TableID(), nil
}

// TupleDesc returns the schema of the table with the given id.
func (tm *TableManager) TupleDesc(id primitives.TableID) (*tuple.TupleDescription, error) {
	f, err := tm.GetDbFile(id)
	if err != nil {
		return nil, err
	}
	return f.TupleDesc(), nil
}

// TableExists reports whether a table with the given name is registered.
func (tm *TableManager) TableExists(name string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	_, ok := tm.byName[name]
	return ok
}

// TableNames returns all registered names, sorted.
func (tm *TableManager) TableNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	names := make([]string, 0, len(tm.byName))
	for name := range tm.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every registered table file.
func (tm *TableManager) Close() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var firstErr error
	for _, info := range tm.byName {
		if err := info.File.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
