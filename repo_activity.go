package ayushya

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ActivityRecords interface {
	repository.Repository[*ActivityRecord]

	Append(ctx context.Context, record *ActivityRecord) error
	AppendTx(ctx context.Context, tx bun.IDB, record *ActivityRecord) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*ActivityRecord, error)
}

type activityRecords struct {
	repository.Repository[*ActivityRecord]
	db *bun.DB
}

var (
	_ ActivityRecords                        = (*activityRecords)(nil)
	_ repository.Repository[*ActivityRecord] = (*activityRecords)(nil)
)

func NewActivityRepository(db *bun.DB) ActivityRecords {
	repo := repository.NewRepository[*ActivityRecord](db, repository.ModelHandlers[*ActivityRecord]{
		NewRecord: func() *ActivityRecord { return &ActivityRecord{} },
		GetID: func(r *ActivityRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *ActivityRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &activityRecords{
		Repository: repo,
		db:         db,
	}
}

func (a *activityRecords) Append(ctx context.Context, record *ActivityRecord) error {
	return a.AppendTx(ctx, a.db, record)
}

func (a *activityRecords) AppendTx(ctx context.Context, tx bun.IDB, record *ActivityRecord) error {
	if record == nil {
		return nil
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	_, err := a.Repository.CreateTx(ctx, tx, record)
	return err
}

func (a *activityRecords) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*ActivityRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []*ActivityRecord
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}
