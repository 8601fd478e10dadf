// Package storage persists the offering's record state and an
// append-only event log in SQLite. Rows are write-behind snapshots of
// the engine's in-memory state: the engine commits first, the sink
// persists after, and Restore rebuilds everything at boot.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lincot/solana-ido/internal/domain"
	"github.com/lincot/solana-ido/internal/event"
	"github.com/lincot/solana-ido/internal/ledger"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// saleRecordRow is the singleton sale record row.
type saleRecordRow struct {
	ID                  uint8 `gorm:"primaryKey"`
	Authority           domain.Address
	State               uint8
	AcdmMint            domain.Address
	UsdcMint            domain.Address
	AcdmPrice           uint64
	UsdcTraded          uint64
	Orders              uint64
	RoundTime           int64
	CurrentStateStartTS int64
	SaleRoundsStarted   uint32
	UpdatedAt           time.Time
}

func (saleRecordRow) TableName() string { return "sale_record" }

type orderRow struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement:false"`
	Authority domain.Address
	Price     uint64
	CreatedAt time.Time
}

func (orderRow) TableName() string { return "orders" }

type memberRow struct {
	Authority domain.Address `gorm:"primaryKey"`
	Referer   *domain.Address
	CreatedAt time.Time
}

func (memberRow) TableName() string { return "members" }

type mintRow struct {
	Addr      domain.Address `gorm:"primaryKey"`
	Authority domain.Address
	Supply    uint64
}

func (mintRow) TableName() string { return "mints" }

type tokenAccountRow struct {
	Addr    domain.Address `gorm:"primaryKey"`
	Mint    domain.Address `gorm:"index"`
	Owner   domain.Address `gorm:"index"`
	Balance uint64
}

func (tokenAccountRow) TableName() string { return "token_accounts" }

// eventRow is one entry of the append-only operation log.
type eventRow struct {
	Seq     uint64 `gorm:"primaryKey;autoIncrement:false"`
	Ts      int64
	Type    string `gorm:"index"`
	Payload string
}

func (eventRow) TableName() string { return "events" }

// Storage wraps the SQLite database.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the database at path and migrates the
// schema. An empty path falls back to the user config directory.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		var err error
		path, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&saleRecordRow{}, &orderRow{}, &memberRow{},
		&mintRow{}, &tokenAccountRow{}, &eventRow{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

func defaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "solana-ido", "data", "ido.db"), nil
}

// ======================================================================================
// Sale record
// ======================================================================================

// SaveIdo upserts the singleton sale record.
func (s *Storage) SaveIdo(ido *domain.Ido) error {
	row := saleRecordRow{
		ID:                  1,
		Authority:           ido.Authority,
		State:               uint8(ido.State),
		AcdmMint:            ido.AcdmMint,
		UsdcMint:            ido.UsdcMint,
		AcdmPrice:           ido.AcdmPrice,
		UsdcTraded:          ido.UsdcTraded,
		Orders:              ido.Orders,
		RoundTime:           ido.RoundTime,
		CurrentStateStartTS: ido.CurrentStateStartTS,
		SaleRoundsStarted:   ido.SaleRoundsStarted,
	}
	return s.db.Save(&row).Error
}

// LoadIdo returns the sale record, or nil when initialize never ran.
func (s *Storage) LoadIdo() (*domain.Ido, error) {
	var row saleRecordRow
	err := s.db.First(&row, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Ido{
		Authority:           row.Authority,
		State:               domain.IdoState(row.State),
		AcdmMint:            row.AcdmMint,
		UsdcMint:            row.UsdcMint,
		AcdmPrice:           row.AcdmPrice,
		UsdcTraded:          row.UsdcTraded,
		Orders:              row.Orders,
		RoundTime:           row.RoundTime,
		CurrentStateStartTS: row.CurrentStateStartTS,
		SaleRoundsStarted:   row.SaleRoundsStarted,
	}, nil
}

// ======================================================================================
// Listings and members
// ======================================================================================

// SaveOrder upserts a listing.
func (s *Storage) SaveOrder(o *domain.Order) error {
	return s.db.Save(&orderRow{ID: o.ID, Authority: o.Authority, Price: o.Price}).Error
}

// DeleteOrder removes a listing row.
func (s *Storage) DeleteOrder(id uint64) error {
	return s.db.Delete(&orderRow{}, "id = ?", id).Error
}

// LoadOrders returns all listings.
func (s *Storage) LoadOrders() ([]domain.Order, error) {
	var rows []orderRow
	if err := s.db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Order{ID: r.ID, Authority: r.Authority, Price: r.Price})
	}
	return out, nil
}

// SaveMember upserts a membership record.
func (s *Storage) SaveMember(m *domain.Member) error {
	return s.db.Save(&memberRow{Authority: m.Authority, Referer: m.Referer}).Error
}

// LoadMembers returns all membership records.
func (s *Storage) LoadMembers() ([]domain.Member, error) {
	var rows []memberRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Member, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Member{Authority: r.Authority, Referer: r.Referer})
	}
	return out, nil
}

// ======================================================================================
// Token ledger
// ======================================================================================

// SaveLedger snapshots every mint and token account.
func (s *Storage) SaveLedger(l *ledger.Ledger) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&tokenAccountRow{}).Error; err != nil {
			return err
		}
		for _, m := range l.Mints() {
			if err := tx.Save(&mintRow{Addr: m.Addr, Authority: m.Authority, Supply: m.Supply()}).Error; err != nil {
				return err
			}
		}
		for _, a := range l.Accounts() {
			row := tokenAccountRow{Addr: a.Addr, Mint: a.Mint, Owner: a.Owner, Balance: a.Balance()}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RestoreLedger rebuilds mints and token accounts into l.
func (s *Storage) RestoreLedger(l *ledger.Ledger) error {
	var mints []mintRow
	if err := s.db.Find(&mints).Error; err != nil {
		return err
	}
	for _, m := range mints {
		if _, err := l.CreateMint(m.Addr, m.Authority); err != nil {
			return err
		}
		if err := l.RestoreSupply(m.Addr, m.Supply); err != nil {
			return err
		}
	}
	var accounts []tokenAccountRow
	if err := s.db.Find(&accounts).Error; err != nil {
		return err
	}
	for _, a := range accounts {
		if err := l.Restore(a.Addr, a.Mint, a.Owner, a.Balance); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot atomically replaces the persisted record state with a
// consistent engine snapshot. Listings and token accounts are replaced
// wholesale so removed rows disappear; members only ever grow.
func (s *Storage) SaveSnapshot(ido *domain.Ido, orders []domain.Order, members []domain.Member, l *ledger.Ledger) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if ido != nil {
			row := saleRecordRow{
				ID:                  1,
				Authority:           ido.Authority,
				State:               uint8(ido.State),
				AcdmMint:            ido.AcdmMint,
				UsdcMint:            ido.UsdcMint,
				AcdmPrice:           ido.AcdmPrice,
				UsdcTraded:          ido.UsdcTraded,
				Orders:              ido.Orders,
				RoundTime:           ido.RoundTime,
				CurrentStateStartTS: ido.CurrentStateStartTS,
				SaleRoundsStarted:   ido.SaleRoundsStarted,
			}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("1 = 1").Delete(&orderRow{}).Error; err != nil {
			return err
		}
		for _, o := range orders {
			if err := tx.Create(&orderRow{ID: o.ID, Authority: o.Authority, Price: o.Price}).Error; err != nil {
				return err
			}
		}
		for _, m := range members {
			if err := tx.Save(&memberRow{Authority: m.Authority, Referer: m.Referer}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("1 = 1").Delete(&tokenAccountRow{}).Error; err != nil {
			return err
		}
		for _, m := range l.Mints() {
			if err := tx.Save(&mintRow{Addr: m.Addr, Authority: m.Authority, Supply: m.Supply()}).Error; err != nil {
				return err
			}
		}
		for _, a := range l.Accounts() {
			row := tokenAccountRow{Addr: a.Addr, Mint: a.Mint, Owner: a.Owner, Balance: a.Balance()}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ======================================================================================
// Event log
// ======================================================================================

// AppendEvent writes one operation event to the log.
func (s *Storage) AppendEvent(ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	row := eventRow{
		Seq:     ev.GetSeq(),
		Ts:      ev.GetTs(),
		Type:    string(ev.GetType()),
		Payload: string(payload),
	}
	return s.db.Create(&row).Error
}

// StoredEvent is one replayable log entry.
type StoredEvent struct {
	Seq     uint64          `json:"seq"`
	Ts      int64           `json:"ts"`
	Type    event.Type      `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Events returns up to limit log entries with seq >= fromSeq.
func (s *Storage) Events(fromSeq uint64, limit int) ([]StoredEvent, error) {
	var rows []eventRow
	q := s.db.Where("seq >= ?", fromSeq).Order("seq")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]StoredEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, StoredEvent{
			Seq:     r.Seq,
			Ts:      r.Ts,
			Type:    event.Type(r.Type),
			Payload: json.RawMessage(r.Payload),
		})
	}
	return out, nil
}

// LastSeq returns the highest event sequence number, 0 when empty.
func (s *Storage) LastSeq() (uint64, error) {
	var row eventRow
	err := s.db.Order("seq desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Seq, nil
}
