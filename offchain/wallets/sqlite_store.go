package wallets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type sqliteRecord struct {
	ID           uint   `gorm:"primaryKey"`
	Address      string `gorm:"uniqueIndex"`
	PrivateKey   string
	Proxy        string
	CexAddress   string
	Allocation   decimal.Decimal `gorm:"type:text"`
	Claimed      bool            `gorm:"index"`
	ClosedATA    bool            `gorm:"column:closed_ata;index"`
	CollectedSOL bool            `gorm:"column:collected_sol;index"`
}

func (sqliteRecord) TableName() string { return "wallets" }

func toRow(r Record) sqliteRecord {
	return sqliteRecord{
		Address:      r.Address,
		PrivateKey:   r.PrivateKey,
		Proxy:        r.Proxy,
		CexAddress:   r.CexAddress,
		Allocation:   r.Allocation,
		Claimed:      r.Claimed,
		ClosedATA:    r.ClosedATA,
		CollectedSOL: r.CollectedSOL,
	}
}

func (row sqliteRecord) record() Record {
	return Record{
		PrivateKey:   row.PrivateKey,
		Proxy:        row.Proxy,
		Address:      row.Address,
		CexAddress:   row.CexAddress,
		Allocation:   row.Allocation,
		Claimed:      row.Claimed,
		ClosedATA:    row.ClosedATA,
		CollectedSOL: row.CollectedSOL,
	}
}

// SQLiteStore keeps one row per wallet and updates rows in place.
type SQLiteStore struct {
	db *gorm.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&sqliteRecord{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Records(ctx context.Context) ([]Record, error) {
	var rows []sqliteRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

func (s *SQLiteStore) Save(ctx context.Context, r Record) error {
	row := toRow(r)
	res := s.db.WithContext(ctx).Model(&sqliteRecord{}).
		Where("address = ?", r.Address).
		Select("private_key", "proxy", "cex_address", "allocation", "claimed", "closed_ata", "collected_sol").
		Updates(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRecord, r.Address)
	}
	return nil
}

func (s *SQLiteStore) Replace(ctx context.Context, records []Record) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&sqliteRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]sqliteRecord, 0, len(records))
		for _, r := range records {
			rows = append(rows, toRow(r))
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			UpdateAll: true,
		}).Create(&rows).Error
	})
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
