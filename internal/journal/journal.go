// Package journal persists the authoritative possession history.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pixil98/go-possess/internal/possession"
	"github.com/pixil98/go-possess/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Entry is one row of the transitions table.
type Entry struct {
	Seq        uint      `gorm:"primaryKey;autoIncrement"`
	Uid        string    `gorm:"uniqueIndex;size:36"`
	At         time.Time `gorm:"index"`
	Kind       string    `gorm:"size:16"`
	Controller string    `gorm:"size:64"`
	Entity     string    `gorm:"index;size:64"`
	Peer       string    `gorm:"size:64"`
	Reason     string
	ImpulseX   float64
	ImpulseY   float64
	ImpulseZ   float64
}

func (Entry) TableName() string { return "transitions" }

// Impulse returns the recorded eject impulse.
func (e Entry) Impulse() mgl64.Vec3 {
	return mgl64.Vec3{e.ImpulseX, e.ImpulseY, e.ImpulseZ}
}

type Journal struct {
	db  *gorm.DB
	now func() time.Time
}

var _ possession.Recorder = (*Journal)(nil)

// Open opens or creates the sqlite database at path. ":memory:" keeps it in memory.
func Open(path string) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating journal: %w", err)
	}

	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Record(ctx context.Context, tr possession.Transition) error {
	entry := Entry{
		Uid:        uuid.NewString(),
		At:         j.now().UTC(),
		Kind:       string(tr.Kind),
		Controller: string(tr.Controller),
		Entity:     string(tr.Entity),
		Peer:       string(tr.Peer),
		Reason:     tr.Reason,
		ImpulseX:   tr.Impulse[0],
		ImpulseY:   tr.Impulse[1],
		ImpulseZ:   tr.Impulse[2],
	}

	if err := j.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("recording %s transition: %w", tr.Kind, err)
	}
	return nil
}

// History lists the transitions of an entity, oldest first.
func (j *Journal) History(ctx context.Context, entity storage.Identifier) ([]Entry, error) {
	var entries []Entry
	err := j.db.WithContext(ctx).
		Where("entity = ?", string(entity)).
		Order("seq asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("loading history of %s: %w", entity, err)
	}
	return entries, nil
}

func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
