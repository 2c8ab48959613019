package ayushya

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Challenges() Challenges
	Sessions() Sessions
	Activity() ActivityRecords
}

type mngr struct {
	db         *bun.DB
	users      Users
	challenges Challenges
	sessions   Sessions
	activity   ActivityRecords
}

func NewRepositoryManager(db *bun.DB, opts ...UsersOption) RepositoryManager {
	return &mngr{
		db:         db,
		users:      NewUsersRepository(db, opts...),
		challenges: NewChallengesRepository(db),
		sessions:   NewSessionsRepository(db),
		activity:   NewActivityRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.challenges == nil {
		return errors.New("repository challenges should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	if m.activity == nil {
		return errors.New("repository activity should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Challenges() Challenges {
	return m.challenges
}

func (m mngr) Sessions() Sessions {
	return m.sessions
}

func (m mngr) Activity() ActivityRecords {
	return m.activity
}
