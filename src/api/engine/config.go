package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/open-townhall/townhall/src/api/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Recognized runtime parameters.
const (
	KeyDailyEnergyLimit   = "daily_energy_limit"
	KeyElectionTermDays   = "election_term_days"
	KeyProposalWindowDays = "proposal_window_days"
	KeyElectionSeats      = "election_seats"
)

var configDefaults = map[string]string{
	KeyDailyEnergyLimit:   "10",
	KeyElectionTermDays:   "30",
	KeyProposalWindowDays: "7",
	KeyElectionSeats:      "3",
}

// Keys a proposal may target. The sweep parameters stay administrative.
var proposalKeys = map[string]bool{
	KeyDailyEnergyLimit: true,
	KeyElectionTermDays: true,
}

// ConfigStore holds the runtime parameters the citizens legislate over.
// Values live in the settings table; a read-through cache keeps Get cheap
// since the ledger consults it on every spend. Only proposal resolution
// and the administrative seed write to it.
type ConfigStore struct {
	db    *gorm.DB
	mu    sync.RWMutex
	cache map[string]string
}

func NewConfigStore(db *gorm.DB) (*ConfigStore, error) {
	c := &ConfigStore{db: db, cache: make(map[string]string)}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload replaces the cache with the settings table contents.
func (c *ConfigStore) Reload() error {
	var settings []types.Setting
	if err := c.db.Find(&settings).Error; err != nil {
		return storage("settings load", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]string, len(settings))
	for _, s := range settings {
		c.cache[s.Name] = s.Value
	}
	return nil
}

// AutoReload refreshes the cache every interval until ctx is cancelled.
// Proposal resolution usually runs in the sweeper process, so every other
// process must poll the settings table or it would enforce stale
// parameters until restart.
func (c *ConfigStore) AutoReload(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Reload(); err != nil {
				log.Warn().Err(err).Msg("settings reload")
			}
		}
	}
}

// Seed inserts defaults for any recognized key that has no row yet.
func (c *ConfigStore) Seed() error {
	for name, value := range configDefaults {
		err := c.db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&types.Setting{Name: name, Value: value}).Error
		if err != nil {
			return storage("settings seed", err)
		}
	}
	return c.Reload()
}

// Get returns the current value for name, falling back to the compiled-in
// default when the table has no row.
func (c *ConfigStore) Get(name string) string {
	c.mu.RLock()
	v, ok := c.cache[name]
	c.mu.RUnlock()
	if ok && v != "" {
		return v
	}
	return configDefaults[name]
}

// GetInt parses Get; an unparsable stored value falls back to the default.
func (c *ConfigStore) GetInt(name string) int {
	if n, err := strconv.Atoi(c.Get(name)); err == nil {
		return n
	}
	n, _ := strconv.Atoi(configDefaults[name])
	return n
}

// Set writes through to the settings table and the cache.
func (c *ConfigStore) Set(ctx context.Context, name, value string) error {
	if err := c.upsert(c.db.WithContext(ctx), name, value); err != nil {
		return err
	}
	c.apply(name, value)
	return nil
}

// upsert persists a value using the given handle, which lets proposal
// resolution write inside its own transaction.
func (c *ConfigStore) upsert(db *gorm.DB, name, value string) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value}),
	}).Create(&types.Setting{Name: name, Value: value}).Error
	if err != nil {
		return storage("settings upsert", err)
	}
	return nil
}

// apply updates only the cache; called after the owning transaction commits.
func (c *ConfigStore) apply(name, value string) {
	c.mu.Lock()
	c.cache[name] = value
	c.mu.Unlock()
}

// ProposalKey reports whether a proposal may target name.
func ProposalKey(name string) bool { return proposalKeys[name] }
