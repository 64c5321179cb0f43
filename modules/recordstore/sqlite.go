package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// recordRow is one record of one table in the SQLite snapshot.
type recordRow struct {
	Collection string `gorm:"primaryKey;size:64"`
	Position   int    `gorm:"primaryKey;autoIncrement:false"`
	RecordID   string `gorm:"size:64;index"`
	Data       string `gorm:"type:text;not null"`
}

// TableName returns the table name for recordRow.
func (recordRow) TableName() string {
	return "records"
}

// snapshotMeta marks that a snapshot has been saved, even an empty one.
type snapshotMeta struct {
	ID      int `gorm:"primaryKey;autoIncrement:false"`
	SavedAt time.Time
	Records int
}

// TableName returns the table name for snapshotMeta.
func (snapshotMeta) TableName() string {
	return "snapshot_meta"
}

const snapshotMetaID = 1

// SQLitePersister keeps the snapshot in a SQLite database via GORM. Each
// Save replaces every row inside a single transaction.
type SQLitePersister struct {
	db *gorm.DB
}

var _ Persister = (*SQLitePersister)(nil)

// OpenSQLitePersister opens (or creates) the database at path.
func OpenSQLitePersister(path string, debug bool) (*SQLitePersister, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewSQLitePersister(db)
}

// NewSQLitePersister wraps an open connection and runs migrations.
func NewSQLitePersister(db *gorm.DB) (*SQLitePersister, error) {
	if err := db.AutoMigrate(&recordRow{}, &snapshotMeta{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLitePersister{db: db}, nil
}

// Load reads every stored record, preserving per-table order. A database
// that has never been saved to reports ErrSnapshotNotFound.
func (p *SQLitePersister) Load(ctx context.Context) (Tables, error) {
	db := p.db.WithContext(ctx)

	var meta snapshotMeta
	if err := db.First(&meta, snapshotMetaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}

	var rows []recordRow
	if err := db.Order("collection, position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	tables := make(Tables)
	for _, row := range rows {
		var r Record
		if err := json.Unmarshal([]byte(row.Data), &r); err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %v", ErrSnapshotCorrupt, row.Collection, row.RecordID, err)
		}
		tables[row.Collection] = append(tables[row.Collection], r)
	}
	return tables, nil
}

// Save replaces the stored snapshot with tables.
func (p *SQLitePersister) Save(ctx context.Context, tables Tables) error {
	rows := make([]recordRow, 0)
	for name, records := range tables {
		for i, r := range records {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
			id, _ := r.ID()
			rows = append(rows, recordRow{
				Collection: name,
				Position:   i + 1,
				RecordID:   id,
				Data:       string(data),
			})
		}
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&recordRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 200).Error; err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
		}

		meta := snapshotMeta{ID: snapshotMetaID, SavedAt: time.Now(), Records: len(rows)}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&meta).Error; err != nil {
			return fmt.Errorf("failed to write snapshot metadata: %w", err)
		}
		return nil
	})
}

// Ping checks the database connection.
func (p *SQLitePersister) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (p *SQLitePersister) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
