package postgres

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/ports"
)

type productRecord struct {
	ID     string  `gorm:"primaryKey;size:64"`
	Name   string  `gorm:"size:255;not null;index"`
	Price  float64 `gorm:"not null"`
	Image  string  `gorm:"size:512"`
	Stock  *int
	Active bool `gorm:"not null;default:true"`
}

func (productRecord) TableName() string {
	return "products"
}

func (r productRecord) candidate() domain.ProductCandidate {
	return domain.ProductCandidate{ID: r.ID, Name: r.Name, Price: r.Price, Image: r.Image, Stock: r.Stock}
}

type ProductRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewProductRepository(db *gorm.DB, log *zap.Logger) *ProductRepository {
	return &ProductRepository{
		db:  db,
		log: log,
	}
}

// SearchByName returns active products whose name contains every word of
// query, case-insensitively.
func (r *ProductRepository) SearchByName(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
	words := strings.Fields(query)
	if len(words) == 0 {
		return []domain.ProductCandidate{}, nil
	}

	tx := r.db.WithContext(ctx).Where("active = ?", true)
	for _, w := range words {
		tx = tx.Where("name ILIKE ? ESCAPE '\\'", likePattern(w))
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var records []productRecord
	if err := tx.Order("name").Find(&records).Error; err != nil {
		r.log.Error("Failed to search products", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("search products: %w", err)
	}

	out := make([]domain.ProductCandidate, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.candidate())
	}
	return out, nil
}

// Upsert inserts or refreshes catalog entries.
func (r *ProductRepository) Upsert(ctx context.Context, products []domain.ProductCandidate) error {
	if len(products) == 0 {
		return nil
	}
	records := make([]productRecord, 0, len(products))
	for _, p := range products {
		records = append(records, productRecord{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image, Stock: p.Stock, Active: true})
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&records)
	if result.Error != nil {
		r.log.Error("Failed to upsert products", zap.Error(result.Error))
		return result.Error
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(word string) string {
	return "%" + likeEscaper.Replace(word) + "%"
}

var _ ports.ProductRepository = (*ProductRepository)(nil)
