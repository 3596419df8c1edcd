package store

import (
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema
// migrations. Use ":memory:" for tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Note{}, &NoteEdit{}); err != nil {
		return nil, err
	}

	log.Info().Str("module", "store").Str("path", path).Msg("database initialized")
	return db, nil
}

// Gateway implements PersistenceGateway on gorm.
type Gateway struct {
	db    *gorm.DB
	clock func() time.Time
}

var _ PersistenceGateway = (*Gateway)(nil)

func NewGateway(db *gorm.DB) *Gateway {
	return &Gateway{db: db, clock: time.Now}
}

// WithClock overrides the timestamp source, for tests.
func (g *Gateway) WithClock(clock func() time.Time) *Gateway {
	g.clock = clock
	return g
}
