package ayushya

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Sessions interface {
	repository.Repository[*Session]

	Create(ctx context.Context, record *Session, criteria ...repository.InsertCriteria) (*Session, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Session, criteria ...repository.InsertCriteria) (*Session, error)

	ListActive(ctx context.Context, userID uuid.UUID, now time.Time) ([]*Session, error)
	ActiveByToken(ctx context.Context, token string, now time.Time) (*Session, error)

	Touch(ctx context.Context, id uuid.UUID, at time.Time) error

	// Invalidate flips a session to inactive. Unknown ids error, already
	// inactive sessions succeed quietly.
	Invalidate(ctx context.Context, id uuid.UUID) (*Session, error)
	InvalidateByToken(ctx context.Context, token string) (*Session, error)
	InvalidateAllForUser(ctx context.Context, userID uuid.UUID) (int, error)
	InvalidateAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error)

	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type sessions struct {
	repository.Repository[*Session]
	db *bun.DB
}

var (
	_ Sessions                        = (*sessions)(nil)
	_ repository.Repository[*Session] = (*sessions)(nil)
)

func NewSessionsRepository(db *bun.DB) Sessions {
	repo := repository.NewRepository[*Session](db, repository.ModelHandlers[*Session]{
		NewRecord: func() *Session { return &Session{} },
		GetID: func(s *Session) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Session, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})

	return &sessions{
		Repository: repo,
		db:         db,
	}
}

func (a *sessions) Create(ctx context.Context, record *Session, criteria ...repository.InsertCriteria) (*Session, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *sessions) CreateTx(ctx context.Context, tx bun.IDB, record *Session, criteria ...repository.InsertCriteria) (*Session, error) {
	if record != nil {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		record.Active = true
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *sessions) ListActive(ctx context.Context, userID uuid.UUID, now time.Time) ([]*Session, error) {
	var records []*Session
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.active = ?", true).
		Where("?TableAlias.expires_at > ?", now).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *sessions) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := a.db.NewUpdate().
		Model((*Session)(nil)).
		Set("last_activity_at = ?", at).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.active = ?", true).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rowsAffected(res) == 0 {
		return ErrSessionNotFound.WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return nil
}

func (a *sessions) Invalidate(ctx context.Context, id uuid.UUID) (*Session, error) {
	record, err := a.Repository.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrSessionNotFound.WithMetadata(map[string]any{
				"id": id.String(),
			})
		}
		return nil, err
	}

	if !record.Active {
		return record, nil
	}

	_, err = a.db.NewUpdate().
		Model((*Session)(nil)).
		Set("active = ?", false).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	record.Active = false
	return record, nil
}

func (a *sessions) InvalidateByToken(ctx context.Context, token string) (*Session, error) {
	record := &Session{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return a.Invalidate(ctx, record.ID)
}

// ActiveByToken finds the live session backing a presented token.
func (a *sessions) ActiveByToken(ctx context.Context, token string, now time.Time) (*Session, error) {
	record := &Session{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.active = ?", true).
		Where("?TableAlias.expires_at > ?", now).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return record, nil
}

func (a *sessions) InvalidateAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return a.InvalidateAllForUserTx(ctx, a.db, userID)
}

func (a *sessions) InvalidateAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error) {
	res, err := tx.NewUpdate().
		Model((*Session)(nil)).
		Set("active = ?", false).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.active = ?", true).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return rowsAffected(res), nil
}

func (a *sessions) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := a.db.NewDelete().
		Model((*Session)(nil)).
		Where("?TableAlias.expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return rowsAffected(res), nil
}
