package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/grimstore/grimstore/app/models"
)

// GormStatsRepository implements StatsRepository using GORM
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &GormStatsRepository{db: db}
}

func (r *GormStatsRepository) GetDay(day time.Time) (*models.StoreStats, error) {
	var row models.StoreStats
	err := r.db.Where("day = ?", truncateDay(day)).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// AddToDay increments the given columns on the day's row, creating the row
// when it does not exist yet. Unknown column names are ignored by MySQL, so
// callers stick to the StoreStats counter columns.
func (r *GormStatsRepository) AddToDay(day time.Time, delta map[string]int64) error {
	if len(delta) == 0 {
		return nil
	}
	d := truncateDay(day)

	var row models.StoreStats
	err := r.db.Where("day = ?", d).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.StoreStats{Day: d}
		if err := r.db.Create(&row).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	updates := make(map[string]interface{}, len(delta))
	for col, v := range delta {
		updates[col] = gorm.Expr(col+" + ?", v)
	}
	return r.db.Model(&models.StoreStats{}).Where("day = ?", d).Updates(updates).Error
}

func (r *GormStatsRepository) Range(from, to time.Time) ([]models.StoreStats, error) {
	var rows []models.StoreStats
	err := r.db.Where("day BETWEEN ? AND ?", truncateDay(from), truncateDay(to)).
		Order("day ASC").
		Find(&rows).Error
	return rows, err
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
