// Package archive mirrors the command cache into a local sqlite file so
// definitions survive a broker that lost its retained messages. The broker
// stays the source of truth: retained replay overwrites archive seeds via
// upsert-in-place.
package archive

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Record is one archived command definition, stored as the wire payload.
type Record struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:64"`
	Payload   string `gorm:"size:4096"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Archive struct {
	db *gorm.DB
}

// Open creates or opens the sqlite archive at path.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

// SaveEncoded upserts the wire payload for name.
func (a *Archive) SaveEncoded(name string, payload []byte) error {
	var rec Record
	err := a.db.Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return a.db.Create(&Record{Name: name, Payload: string(payload)}).Error
	}
	if err != nil {
		return err
	}
	rec.Payload = string(payload)
	return a.db.Save(&rec).Error
}

// Remove deletes the archived definition for name, if present.
func (a *Archive) Remove(name string) error {
	return a.db.Where("name = ?", name).Delete(&Record{}).Error
}

// LoadAll returns every archived definition in insertion order.
func (a *Archive) LoadAll() ([]Record, error) {
	var recs []Record
	if err := a.db.Order("created_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Close releases the underlying database handle.
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
