package storage

import "fmt"

// NewStore mirrors internal/storage/factory.go's backend switch: an empty
// or "memory" kind gives an in-process store, "sqlite" gives a
// modernc.org/sqlite-backed store compiled in only behind the sqlite build
// tag (see factory_nosqlite.go for the stub used otherwise).
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes a Store that implements io.Closer, a no-op
// otherwise; MemoryStore has nothing to close.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
