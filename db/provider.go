package db

// DatabaseProvider abstracts the key/value storage the ledger runtime keeps
// its state in. Implementations must make a written batch visible atomically:
// either every operation of a batch is applied or none is.
type DatabaseProvider interface {
	// Get retrieves a value by key, returning nil when the key does not exist
	Get(key []byte) ([]byte, error)

	// Put stores a key-value pair
	Put(key, value []byte) error

	// Delete removes a key-value pair
	Delete(key []byte) error

	// Has checks if a key exists
	Has(key []byte) (bool, error)

	// IteratePrefix iterates over all key-value pairs with the given prefix.
	// The callback function should return false to stop iteration. Ordering
	// is provider specific.
	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error

	// Close closes the database connection
	Close() error

	// Batch returns a new batch for atomic operations
	Batch() DatabaseBatch
}

// DatabaseBatch provides atomic batch operations
type DatabaseBatch interface {
	// Put adds a key-value pair to the batch
	Put(key, value []byte)

	// Delete adds a deletion to the batch
	Delete(key []byte)

	// Write commits all operations in the batch
	Write() error

	// Reset clears the batch
	Reset()

	// Close releases batch resources
	Close() error
}
