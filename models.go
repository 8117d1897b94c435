package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model. Email and phone are both unique across
// accounts; either one can identify the account at sign-in.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string     `bun:"phone,notnull,unique" json:"phone,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Image         string     `bun:"image,nullzero" json:"image,omitempty"`
	TokenVersion  int        `bun:"token_version,notnull,default:0" json:"token_version"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Identity adapts the account record to the Identity interface.
func (a *Account) Identity() Identity {
	return accountIdentity{
		id:           a.ID.String(),
		name:         a.Name,
		email:        a.Email,
		phone:        a.Phone,
		tokenVersion: a.TokenVersion,
	}
}

type accountIdentity struct {
	id           string
	name         string
	email        string
	phone        string
	tokenVersion int
}

func (a accountIdentity) ID() string        { return a.id }
func (a accountIdentity) Name() string      { return a.name }
func (a accountIdentity) Email() string     { return a.email }
func (a accountIdentity) Phone() string     { return a.phone }
func (a accountIdentity) TokenVersion() int { return a.tokenVersion }

var _ Identity = accountIdentity{}

// IdentifierKind tells which column a sign-in identifier resolves against.
type IdentifierKind string

const (
	IdentifierEmail IdentifierKind = "email"
	IdentifierPhone IdentifierKind = "phone"
)

// Identifier is the single lookup key a validated sign-in payload yields.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}
