// Package library is the daemon's game directory: the installed games whose
// achievements are reconciled, stored in SQLite through gorm.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

// ErrGameNotFound is returned when a game is not in the library.
var ErrGameNotFound = errors.New("game not found")

// Game is the persisted library row.
type Game struct {
	gorm.Model
	Shop           string `gorm:"uniqueIndex:idx_game_key;not null"`
	ObjectID       string `gorm:"uniqueIndex:idx_game_key;not null"`
	Title          string
	IconURL        string
	ExecutablePath string
	WinePrefixPath string
	RemoteID       string
	IsDeleted      bool `gorm:"index"`
}

// TableName pins the table name.
func (Game) TableName() string {
	return "games"
}

func (g Game) toDomain() achievement.Game {
	return achievement.Game{
		Shop:           g.Shop,
		ObjectID:       g.ObjectID,
		Title:          g.Title,
		IconURL:        g.IconURL,
		ExecutablePath: g.ExecutablePath,
		WinePrefixPath: g.WinePrefixPath,
		RemoteID:       g.RemoteID,
		IsDeleted:      g.IsDeleted,
	}
}

// Library wraps the games table.
type Library struct {
	db *gorm.DB
}

// Open opens or creates the library database at path.
func Open(path string) (*Library, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening library: %w", err)
	}

	return New(db)
}

// New wraps an open gorm connection and migrates the games table.
func New(db *gorm.DB) (*Library, error) {
	if err := db.AutoMigrate(&Game{}); err != nil {
		return nil, fmt.Errorf("migrating library: %w", err)
	}
	return &Library{db: db}, nil
}

// Close closes the underlying connection.
func (l *Library) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListInstalled returns every game not marked deleted, ordered by title.
func (l *Library) ListInstalled(ctx context.Context) ([]achievement.Game, error) {
	return l.list(ctx, false)
}

// List returns every game, including deleted ones when includeDeleted is set.
func (l *Library) List(ctx context.Context, includeDeleted bool) ([]achievement.Game, error) {
	return l.list(ctx, includeDeleted)
}

func (l *Library) list(ctx context.Context, includeDeleted bool) ([]achievement.Game, error) {
	var rows []Game
	q := l.db.WithContext(ctx).Order("title, shop, object_id")
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}

	games := make([]achievement.Game, len(rows))
	for i, r := range rows {
		games[i] = r.toDomain()
	}
	return games, nil
}

// Get returns the game for key.
func (l *Library) Get(ctx context.Context, key achievement.GameKey) (achievement.Game, error) {
	var row Game
	err := l.db.WithContext(ctx).
		Where("shop = ? AND object_id = ?", key.Shop, key.ObjectID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return achievement.Game{}, fmt.Errorf("%w: %s", ErrGameNotFound, key)
	}
	if err != nil {
		return achievement.Game{}, fmt.Errorf("getting game %s: %w", key, err)
	}
	return row.toDomain(), nil
}

// Upsert adds game or updates the existing row with the same key.
func (l *Library) Upsert(ctx context.Context, game achievement.Game) error {
	row := Game{
		Shop:           game.Shop,
		ObjectID:       game.ObjectID,
		Title:          game.Title,
		IconURL:        game.IconURL,
		ExecutablePath: game.ExecutablePath,
		WinePrefixPath: game.WinePrefixPath,
		RemoteID:       game.RemoteID,
		IsDeleted:      game.IsDeleted,
	}

	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop"}, {Name: "object_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "icon_url", "executable_path", "wine_prefix_path", "remote_id", "is_deleted", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving game %s: %w", game.Key(), err)
	}
	return nil
}

// Remove marks the game deleted. Its row is kept so a later Upsert
// restores it.
func (l *Library) Remove(ctx context.Context, key achievement.GameKey) error {
	return l.update(ctx, key, "is_deleted", true)
}

// SetRemoteID links the game to a remote profile. An empty id unlinks it.
func (l *Library) SetRemoteID(ctx context.Context, key achievement.GameKey, remoteID string) error {
	return l.update(ctx, key, "remote_id", remoteID)
}

func (l *Library) update(ctx context.Context, key achievement.GameKey, column string, value any) error {
	res := l.db.WithContext(ctx).Model(&Game{}).
		Where("shop = ? AND object_id = ?", key.Shop, key.ObjectID).
		Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("updating game %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrGameNotFound, key)
	}
	return nil
}
