package ayushya

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus tracks the account lifecycle state
type UserStatus string

const (
	// UserStatusPending is an account that exists but never completed a login
	UserStatusPending UserStatus = "pending"
	// UserStatusActive is a regular usable account
	UserStatusActive UserStatus = "active"
	// UserStatusDeactivated is a disabled account, reversible by an operator
	UserStatusDeactivated UserStatus = "deactivated"
	// UserStatusArchived is a terminal state, the account cannot come back
	UserStatusArchived UserStatus = "archived"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status        UserStatus     `bun:"status,notnull" json:"status,omitempty"`
	FirstName     string         `bun:"first_name" json:"first_name,omitempty"`
	LastName      string         `bun:"last_name" json:"last_name,omitempty"`
	Email         string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string         `bun:"phone_number" json:"phone_number,omitempty"`
	ProfileImage  string         `bun:"profile_image" json:"profile_image,omitempty"`
	BloodGroup    string         `bun:"blood_group" json:"blood_group,omitempty"`
	HeightCm      float64        `bun:"height_cm,nullzero" json:"height_cm,omitempty"`
	WeightKg      float64        `bun:"weight_kg,nullzero" json:"weight_kg,omitempty"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	LastLoginAt   *time.Time     `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	DeactivatedAt *time.Time     `bun:"deactivated_at,nullzero" json:"deactivated_at,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the status for records created before the column existed
func (u *User) EnsureStatus() {
	if u == nil {
		return
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// FullName joins first and last name, tolerating either being empty
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Identity adapter so a User can be handed straight to the TokenService.

// identityFromUser wraps a User as an Identity
func identityFromUser(u *User) Identity {
	return userIdentity{user: u}
}

type userIdentity struct {
	user *User
}

func (i userIdentity) ID() string {
	if i.user == nil {
		return ""
	}
	return i.user.ID.String()
}

func (i userIdentity) Email() string {
	if i.user == nil {
		return ""
	}
	return i.user.Email
}

func (i userIdentity) Role() string {
	if i.user == nil {
		return ""
	}
	return string(i.user.Role)
}

// Challenge is a pending one-time-code waiting to be verified. A contact point
// has at most one of these alive at any moment.
type Challenge struct {
	bun.BaseModel `bun:"table:auth_challenges,alias:chl"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Code          string     `bun:"code,notnull" json:"-"`
	Attempts      int        `bun:"attempts,notnull,default:0" json:"attempts"`
	Verified      bool       `bun:"verified,notnull,default:false" json:"verified"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at"`
}

// ExpiredAt reports whether the challenge window has closed at the given instant
func (c *Challenge) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Session is a server-side record of an issued token
type Session struct {
	bun.BaseModel  `bun:"table:sessions,alias:ses"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID         uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User           *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Token          string     `bun:"token,notnull" json:"-"`
	Active         bool       `bun:"active,notnull,default:true" json:"active"`
	IPAddress      string     `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent      string     `bun:"user_agent" json:"user_agent,omitempty"`
	LastActivityAt *time.Time `bun:"last_activity_at,nullzero" json:"last_activity_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	ExpiresAt      time.Time  `bun:"expires_at,notnull" json:"expires_at"`
}

// ExpiredAt reports whether the session is past its fixed expiry at the given instant
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Usable reports whether the session still authorizes requests
func (s *Session) Usable(now time.Time) bool {
	return s.Active && !s.ExpiredAt(now)
}

// ActivityRecord is an append-only audit entry
type ActivityRecord struct {
	bun.BaseModel `bun:"table:user_activities,alias:act"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID     `bun:"user_id,nullzero,type:uuid" json:"user_id,omitempty"`
	Kind          string         `bun:"kind,notnull" json:"kind,omitempty"`
	ActorID       string         `bun:"actor_id" json:"actor_id,omitempty"`
	ActorType     string         `bun:"actor_type" json:"actor_type,omitempty"`
	Payload       map[string]any `bun:"payload" json:"payload,omitempty"`
	IPAddress     string         `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent     string         `bun:"user_agent" json:"user_agent,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
