package ayushya

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

var trackLoginSQL = `UPDATE "users" AS "usr"
SET
	"last_login_at" = ?,
	"status" = 'active'
WHERE
	("usr".id = ?)
	AND "usr"."deleted_at" IS NULL;`

type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	GetOrProvision(ctx context.Context, email string) (*User, bool, error)
	GetOrProvisionTx(ctx context.Context, tx bun.IDB, email string) (*User, bool, error)

	TrackLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	TrackLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error

	UpdateProfile(ctx context.Context, record *User) (*User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error)

	Deactivate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
	Reactivate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db                  *bun.DB
	stateMachine        UserStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

type UsersOption func(*users)

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func WithUsersStateMachineOptions(options ...StateMachineOption) UsersOption {
	return func(u *users) {
		if len(options) == 0 {
			return
		}
		u.stateMachineOptions = append(u.stateMachineOptions, options...)
		u.stateMachine = nil
	}
}

func WithUsersStateMachine(sm UserStateMachine) UsersOption {
	return func(u *users) {
		u.stateMachine = sm
	}
}

func (a *users) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email, criteria...)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*User, error) {
	email = NormalizeEmail(email)

	record := &User{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

// GetOrProvision finds the account for a verified contact point, creating a
// bare one on first login. The bool reports whether the account is new.
func (a *users) GetOrProvision(ctx context.Context, email string) (*User, bool, error) {
	return a.GetOrProvisionTx(ctx, a.db, email)
}

func (a *users) GetOrProvisionTx(ctx context.Context, tx bun.IDB, email string) (*User, bool, error) {
	email = NormalizeEmail(email)

	user, err := a.GetByEmailTx(ctx, tx, email)
	if err == nil {
		return user, false, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, false, err
	}

	record := &User{
		Email:  email,
		Status: UserStatusActive,
	}

	user, err = a.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, false, err
	}

	return user, true, nil
}

func (a *users) TrackLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return a.TrackLoginTx(ctx, a.db, id, at)
}

func (a *users) TrackLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	// NOTE: Updating using the ORM wont touch last_login_at when the
	// record carries zero values, use raw SQL instead.
	_, err := tx.NewRaw(trackLoginSQL, at, id).Exec(ctx)
	return err
}

// UpdateProfile persists the profile fields a user may edit. Lifecycle fields
// (status, role, timestamps) go through their dedicated paths.
func (a *users) UpdateProfile(ctx context.Context, record *User) (*User, error) {
	if record == nil || record.ID == uuid.Nil {
		return nil, repository.NewRecordNotFound()
	}

	return a.Repository.Update(ctx, record, repository.UpdateByID(record.ID.String()))
}

func (a *users) UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, opts...)
}

func (a *users) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error) {
	record := &User{
		ID:     id,
		Status: status,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *users) Deactivate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusDeactivated, opts...)
}

func (a *users) Reactivate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusActive, opts...)
}

// StatusUpdateOption allows callers to mutate the user record before persisting status changes.
type StatusUpdateOption func(*User)

// WithDeactivatedAt sets the DeactivatedAt timestamp during a status transition.
func WithDeactivatedAt(at *time.Time) StatusUpdateOption {
	return func(u *User) {
		u.DeactivatedAt = at
	}
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleMember
	}

	record.Email = NormalizeEmail(record.Email)
	record.EnsureStatus()

	if record.Phone != "" {
		record.Phone = normalizePhone(record.Phone)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

// NormalizeEmail lowercases and trims a contact point so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsEmail reports whether the string parses as an address
func IsEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func normalizePhone(phone string) string {
	parsed, err := phonenumbers.Parse(phone, "IN")
	if err != nil {
		return strings.TrimSpace(phone)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return strings.TrimSpace(phone)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

func (a *users) lifecycleMachine() UserStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewUserStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}
