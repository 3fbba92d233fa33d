package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetOrderRefRepository returns the order ledger repository instance
func (f *Factory) GetOrderRefRepository() OrderRefRepository {
	return f.GetRepositories().Order
}

// GetChatSessionRefRepository returns the chat session binding repository instance
func (f *Factory) GetChatSessionRefRepository() ChatSessionRefRepository {
	return f.GetRepositories().Chat
}

// GetStatsRepository returns the stats repository instance
func (f *Factory) GetStatsRepository() StatsRepository {
	return f.GetRepositories().Stats
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory
func GetGlobalFactory() *Factory {
	return globalFactory
}

// SetGlobalFactory replaces the global factory; used by tests to inject
// fake repositories.
func SetGlobalFactory(f *Factory) {
	globalFactory = f
}

// SetTestRepositories installs pre-built repositories on a factory; used by
// tests together with SetGlobalFactory.
func SetTestRepositories(f *Factory, repos *Repositories) {
	f.once.Do(func() {})
	f.repos = repos
}
