package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/surdiana/authd/internal/model"
	"github.com/surdiana/authd/pkg/events"
)

// Persistence contracts consumed by the services. The gorm repositories
// satisfy them in production; tests substitute in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	AttachRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error
	DetachRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error
	RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type RoleStore interface {
	Create(ctx context.Context, role *model.Role) error
	GetAll(ctx context.Context) ([]model.Role, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type SocialAccountStore interface {
	Create(ctx context.Context, account *model.SocialAccount) error
	GetByPair(ctx context.Context, service, socialID string) (*model.SocialAccount, error)
	DeleteByUserAndService(ctx context.Context, userID uuid.UUID, service string) error
}

type HistoryStore interface {
	Create(ctx context.Context, entry *model.LoginHistory) error
	Page(ctx context.Context, userID uuid.UUID, pageNum, pageItems, year int, month time.Month) ([]model.LoginHistory, error)
	MarkTotpFailed(ctx context.Context, requestID string) error
}

// EventPublisher announces completed registrations to downstream consumers.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event events.UserRegisteredEvent) error
}
