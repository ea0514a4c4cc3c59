package expense

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// lineItemRow is the line_items table layout
type lineItemRow struct {
	ID    uint64  `gorm:"primaryKey;autoIncrement"`
	Name  string  `gorm:"not null"`
	Price float64 `gorm:"not null"`
}

func (lineItemRow) TableName() string {
	return "line_items"
}

// PostgresDB implements the DB interface on PostgreSQL through GORM
type PostgresDB struct {
	db *gorm.DB
}

// NewPostgresDB connects to PostgreSQL and migrates the line_items table
func NewPostgresDB(dsn string) (*PostgresDB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.AutoMigrate(&lineItemRow{}); err != nil {
		closeGorm(db)
		return nil, fmt.Errorf("migrating line_items: %w", err)
	}

	return &PostgresDB{db: db}, nil
}

// InsertLineItem stores a single line item
func (p *PostgresDB) InsertLineItem(ctx context.Context, item *LineItem) error {
	return insertRow(p.db.WithContext(ctx), item)
}

// WithinTx runs fn inside a database transaction
func (p *PostgresDB) WithinTx(ctx context.Context, fn func(w LineItemWriter) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTxWriter{tx: tx})
	})
}

// ListLineItems returns all line items ordered by id
func (p *PostgresDB) ListLineItems(ctx context.Context) ([]*StoredLineItem, error) {
	var rows []lineItemRow
	if err := p.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying line_items: %w", err)
	}

	items := make([]*StoredLineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, &StoredLineItem{
			ID:       row.ID,
			LineItem: LineItem{Name: row.Name, Price: row.Price},
		})
	}
	return items, nil
}

// Close closes the underlying connection pool
func (p *PostgresDB) Close() error {
	return closeGorm(p.db)
}

type gormTxWriter struct {
	tx *gorm.DB
}

func (w *gormTxWriter) InsertLineItem(ctx context.Context, item *LineItem) error {
	return insertRow(w.tx.WithContext(ctx), item)
}

func insertRow(db *gorm.DB, item *LineItem) error {
	row := lineItemRow{Name: item.Name, Price: item.Price}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting line item: %w", err)
	}
	return nil
}

func closeGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
