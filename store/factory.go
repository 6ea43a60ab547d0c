package store

import (
	"fmt"

	"github.com/mezonai/remit/db"
	"github.com/mezonai/remit/logx"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// MemoryStoreType keeps everything in process memory
	MemoryStoreType StoreType = "memory"

	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// BoltStoreType uses a single bbolt file
	BoltStoreType StoreType = "bbolt"

	// RedisStoreType uses the Redis implementation
	RedisStoreType StoreType = "redis"
)

const DefaultRedisAddress = "localhost:6379"

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the database directory path (for file-based databases)
	Directory string `json:"directory" yaml:"directory"`

	// Address and RedisDB select the Redis server
	Address string `json:"address" yaml:"address"`
	RedisDB int    `json:"redis_db" yaml:"redis_db"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	switch sc.Type {
	case MemoryStoreType, RedisStoreType:
		return nil
	case LevelDBStoreType, BoltStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty for %s store", sc.Type)
		}
		return nil
	case "":
		return fmt.Errorf("store type cannot be empty")
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// Stores bundles every store over one shared provider together with the
// batch manager that spans them.
type Stores struct {
	Provider  db.DatabaseProvider
	TxManager *db.DBTxManager
	Accounts  AccountStore
	Transfers TransferStore
	State     StateStore
	Events    EventStore
}

// MustClose closes the shared provider, logging instead of failing
func (s *Stores) MustClose() {
	if err := s.Provider.Close(); err != nil {
		logx.Error("STORE", "Failed to close db provider:", err.Error())
	}
}

// StoreFactory take responsibility to create store instances
type StoreFactory struct{}

func NewStoreFactory() *StoreFactory {
	return &StoreFactory{}
}

// CreateStoresWithProvider wires every store onto provider
func (sf *StoreFactory) CreateStoresWithProvider(provider db.DatabaseProvider) (*Stores, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	accStore, err := NewGenericAccountStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create account store: %w", err)
	}

	transferStore, err := NewGenericTransferStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer store: %w", err)
	}

	stateStore, err := NewGenericStateStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create state store: %w", err)
	}

	eventStore, err := NewGenericEventStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create event store: %w", err)
	}

	return &Stores{
		Provider:  provider,
		TxManager: db.NewDBTxManager(provider),
		Accounts:  accStore,
		Transfers: transferStore,
		State:     stateStore,
		Events:    eventStore,
	}, nil
}

// CreateProvider creates a database provider based on the configuration
func (sf *StoreFactory) CreateProvider(config *StoreConfig) (db.DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case MemoryStoreType:
		return db.NewMemoryProvider(), nil

	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Directory)

	case BoltStoreType:
		return db.NewBoltProvider(config.Directory)

	case RedisStoreType:
		addr := config.Address
		if addr == "" {
			addr = DefaultRedisAddress
		}
		return db.NewRedisProvider(addr, config.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// Global factory instance
var globalFactory = NewStoreFactory()

// CreateStores opens the configured provider and builds every store on it
func CreateStores(config *StoreConfig) (*Stores, error) {
	provider, err := globalFactory.CreateProvider(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	stores, err := globalFactory.CreateStoresWithProvider(provider)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	logx.Info("STORE", "Opened", config.Type, "store", config.Directory)
	return stores, nil
}

// NewMemoryStores is a shortcut for tests and ephemeral nodes
func NewMemoryStores() *Stores {
	stores, _ := globalFactory.CreateStoresWithProvider(db.NewMemoryProvider())
	return stores
}
