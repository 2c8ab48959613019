package ayushya

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// incrementAttemptSQL bumps the attempt counter without a read-modify-write
// cycle so two concurrent wrong guesses never overcount. The guard keeps the
// counter at the budget ceiling.
var incrementAttemptSQL = `UPDATE "auth_challenges" AS "chl"
SET
	"attempts" = "attempts" + 1
WHERE
	("chl".id = ?)
	AND "chl"."attempts" < ?
RETURNING "attempts";`

type Challenges interface {
	repository.Repository[*Challenge]

	GetPending(ctx context.Context, email string) (*Challenge, error)
	GetPendingTx(ctx context.Context, tx bun.IDB, email string) (*Challenge, error)

	// Supersede removes every live challenge for the contact point, returning
	// how many were displaced.
	Supersede(ctx context.Context, email string) (int, error)
	SupersedeTx(ctx context.Context, tx bun.IDB, email string) (int, error)

	// IncrementAttempts bumps the counter atomically. It returns the new
	// count and false when the counter already sat at the cap.
	IncrementAttempts(ctx context.Context, id uuid.UUID, maxAttempts int) (int, bool, error)

	// ClaimVerified flips the record to verified exactly once. A second
	// caller gets false.
	ClaimVerified(ctx context.Context, id uuid.UUID) (bool, error)

	Consume(ctx context.Context, id uuid.UUID) error
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type challenges struct {
	repository.Repository[*Challenge]
	db *bun.DB
}

var (
	_ Challenges                        = (*challenges)(nil)
	_ repository.Repository[*Challenge] = (*challenges)(nil)
)

func NewChallengesRepository(db *bun.DB) Challenges {
	repo := repository.NewRepository[*Challenge](db, repository.ModelHandlers[*Challenge]{
		NewRecord: func() *Challenge { return &Challenge{} },
		GetID: func(c *Challenge) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Challenge, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &challenges{
		Repository: repo,
		db:         db,
	}
}

func (a *challenges) GetPending(ctx context.Context, email string) (*Challenge, error) {
	return a.GetPendingTx(ctx, a.db, email)
}

func (a *challenges) GetPendingTx(ctx context.Context, tx bun.IDB, email string) (*Challenge, error) {
	email = NormalizeEmail(email)

	record := &Challenge{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.verified = ?", false).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrChallengeNotFound.WithMetadata(map[string]any{
				"email": email,
			})
		}
		return nil, err
	}

	return record, nil
}

func (a *challenges) Supersede(ctx context.Context, email string) (int, error) {
	return a.SupersedeTx(ctx, a.db, email)
}

func (a *challenges) SupersedeTx(ctx context.Context, tx bun.IDB, email string) (int, error) {
	email = NormalizeEmail(email)

	res, err := tx.NewDelete().
		Model((*Challenge)(nil)).
		Where("?TableAlias.email = ?", email).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return rowsAffected(res), nil
}

func (a *challenges) IncrementAttempts(ctx context.Context, id uuid.UUID, maxAttempts int) (int, bool, error) {
	var attempts int
	err := a.db.NewRaw(incrementAttemptSQL, id, maxAttempts).Scan(ctx, &attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			// Counter already at the cap, another caller got there first.
			return maxAttempts, false, nil
		}
		return 0, false, err
	}

	return attempts, true, nil
}

func (a *challenges) ClaimVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := a.db.NewUpdate().
		Model((*Challenge)(nil)).
		Set("verified = ?", true).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.verified = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	return rowsAffected(res) == 1, nil
}

func (a *challenges) Consume(ctx context.Context, id uuid.UUID) error {
	return a.ConsumeTx(ctx, a.db, id)
}

func (a *challenges) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Challenge)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

func (a *challenges) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := a.db.NewDelete().
		Model((*Challenge)(nil)).
		Where("?TableAlias.expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return rowsAffected(res), nil
}

func rowsAffected(res sql.Result) int {
	if res == nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}
