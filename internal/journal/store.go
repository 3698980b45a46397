package journal

import (
	"context"

	"execgate/internal/model"
	"execgate/pkg/exception"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store writes routed events to postgres.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, exception.ErrNilInstance
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the execution_events table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return errors.Wrap(err, "migrate execution_events")
	}
	return nil
}

// Record stores e. Replaying an event id already stored is a no-op.
func (s *Store) Record(ctx context.Context, strategyID string, e model.Event) error {
	rec, err := NewRecord(strategyID, e)
	if err != nil {
		return errors.Wrap(err, "build journal record")
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return errors.Wrapf(err, "insert event %s", rec.EventID)
	}
	return nil
}

// ByOrder returns the stored events of orderID in insertion order.
func (s *Store) ByOrder(ctx context.Context, orderID string) ([]model.Event, error) {
	var recs []Record
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&recs).Error; err != nil {
		return nil, errors.Wrapf(err, "query order %s", orderID)
	}
	out := make([]model.Event, 0, len(recs))
	for _, rec := range recs {
		e, err := rec.Event()
		if err != nil {
			return nil, errors.Wrapf(err, "decode journal record %d", rec.ID)
		}
		out = append(out, e)
	}
	return out, nil
}
