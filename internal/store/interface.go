package store

import (
	"context"
	"errors"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrNameTaken          = errors.New("name already in use")
	ErrVersionMismatch    = errors.New("resource was modified concurrently")
	ErrCredentialNotFound = errors.New("resource credential not found")
)

// Record is the persisted document form of a resource. Config and Info are
// the JSON-encoded typed structs; the store never inspects them.
type Record struct {
	Kind        api.ResourceKind
	ID          string
	Name        string
	Description string
	Config      []byte
	Info        []byte
	Permissions map[string]api.PermissionLevel
	Version     int64
	UpdatedAt   time.Time
}

// ResourceCredential stores an encrypted git access token for one resource.
type ResourceCredential struct {
	Kind            api.ResourceKind
	ResourceID      string
	TokenCiphertext []byte
	TokenNonce      []byte
}

// Session is one issued bearer token, keyed by jti. Deleting a session
// revokes every token carrying its id.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// Store defines the interface for data persistence.
type Store interface {
	// Resources. CreateResource and RenameResource fail with ErrNameTaken on
	// duplicate names; UpdateResource guards on Record.Version and fails with
	// ErrVersionMismatch when the row moved underneath the caller, bumping
	// the version on success.
	CreateResource(ctx context.Context, rec *Record) error
	GetResource(ctx context.Context, kind api.ResourceKind, id string) (*Record, error)
	FindResourceByName(ctx context.Context, kind api.ResourceKind, name string) (*Record, error)
	ListResources(ctx context.Context, kind api.ResourceKind) ([]*Record, error)
	UpdateResource(ctx context.Context, rec *Record) error
	RenameResource(ctx context.Context, kind api.ResourceKind, id, name string) error
	DeleteResource(ctx context.Context, kind api.ResourceKind, id string) error
	SetResourcePermission(ctx context.Context, kind api.ResourceKind, id, userID string, level api.PermissionLevel) error

	// Encrypted per-resource credentials.
	UpsertResourceCredential(ctx context.Context, cred *ResourceCredential) error
	GetResourceCredential(ctx context.Context, kind api.ResourceKind, id string) (*ResourceCredential, error)
	DeleteResourceCredential(ctx context.Context, kind api.ResourceKind, id string) error

	// Users.
	CreateUser(ctx context.Context, user *api.User) error
	GetUser(ctx context.Context, id string) (*api.User, error)
	FindUserByUsername(ctx context.Context, username string) (*api.User, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUserFlags(ctx context.Context, id string, enabled, createServers, createBuilds *bool) error

	// Login secrets (API key/secret pairs).
	CreateLoginSecret(ctx context.Context, secret *api.LoginSecret) error
	FindLoginSecretByKey(ctx context.Context, key string) (*api.LoginSecret, error)
	DeleteLoginSecret(ctx context.Context, userID, name string) error

	// Sessions (bearer token revocation records).
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) error

	Close()
}
