package store

import (
	"fmt"
	"sync"
)

// Constructor creates a Backend rooted at the given data directory.
// Implementations register themselves with the registry using Register().
type Constructor func(dataDir string) (Backend, error)

// registry maps backend kinds to their constructors
var (
	registry      = make(map[Kind]Constructor)
	registryMutex sync.RWMutex
)

// Register registers a backend constructor.
// This is called from init() functions in implementation packages
// (sqlite, flatfile).
//
// Example:
//
//	func init() {
//	    store.Register(store.KindSQLite, New)
//	}
func Register(k Kind, constructor Constructor) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if constructor == nil {
		panic(fmt.Sprintf("store: Register constructor is nil for kind %s", k))
	}

	if _, exists := registry[k]; exists {
		panic(fmt.Sprintf("store: Register called twice for kind %s", k))
	}

	registry[k] = constructor
}

// getConstructor retrieves the constructor for a backend kind.
// Returns nil if the kind is not registered.
func getConstructor(k Kind) Constructor {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	return registry[k]
}

// IsRegistered returns true if a constructor is registered for the given kind.
func IsRegistered(k Kind) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, exists := registry[k]
	return exists
}

// RegisteredKinds returns all registered backend kinds.
// Useful for testing and debugging.
func RegisteredKinds() []Kind {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}

// UnregisterAll clears all registered constructors.
// This is primarily useful for testing.
func UnregisterAll() {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	registry = make(map[Kind]Constructor)
}
