package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is the account row. Accounts are never physically deleted; social
// auto-provisioning creates them with placeholder credentials the user must
// replace later.
type User struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Login       string    `gorm:"column:login;unique;not null"`
	Password    string    `gorm:"column:password;not null"`
	IsSuperuser bool      `gorm:"column:is_superuser;default:false;not null"`
	Email       string    `gorm:"column:email"`
	TotpSecret  string    `gorm:"column:totp_secret"`
	TotpActive  bool      `gorm:"column:totp_active;default:false;not null"`
	TotpSync    bool      `gorm:"column:totp_sync;default:false;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`

	Roles []Role `gorm:"many2many:user_roles"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Role struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Role        string    `gorm:"column:role;unique;not null"`
	Description string    `gorm:"column:description"`

	Users []User `gorm:"many2many:user_roles"`
}

func (Role) TableName() string { return "roles" }

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// SocialAccount links a provider-issued subject id to a local user. The
// (provider, subject id) pair is unique; Profile keeps the raw userinfo payload
// captured when the link was created.
type SocialAccount struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	SocialID      string         `gorm:"column:social_id;not null;uniqueIndex:idx_social_accounts_pair"`
	SocialService string         `gorm:"column:social_service;not null;uniqueIndex:idx_social_accounts_pair"`
	Profile       datatypes.JSON `gorm:"column:profile"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
}

func (SocialAccount) TableName() string { return "social_accounts" }

func (s *SocialAccount) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// LoginHistory is an append-only audit row, one per login attempt. RequestID
// correlates the password step with the later TOTP step; TotpStatus is the only
// field ever mutated, flipped to false when a TOTP check for the same request
// fails.
type LoginHistory struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserAgent     string    `gorm:"column:user_agent"`
	LoginDate     time.Time `gorm:"column:login_date;index"`
	LoginStatus   bool      `gorm:"column:login_status;not null"`
	RequestID     string    `gorm:"column:request_id;index"`
	ServiceName   string    `gorm:"column:service_name"`
	TotpStatus    bool      `gorm:"column:totp_status;default:true;not null"`
}

func (LoginHistory) TableName() string { return "users_access_history" }

func (h *LoginHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.LoginDate.IsZero() {
		h.LoginDate = time.Now().UTC()
	}
	return nil
}
