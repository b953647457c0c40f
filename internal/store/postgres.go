package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marcoraddatz/komodo/internal/api"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS resources (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			config JSONB NOT NULL,
			info JSONB NOT NULL,
			permissions JSONB NOT NULL DEFAULT '{}',
			version BIGINT NOT NULL DEFAULT 1,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (kind, id),
			UNIQUE (kind, name)
		);`,
		`CREATE TABLE IF NOT EXISTS resource_credentials (
			kind TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			token_ciphertext BYTEA NOT NULL,
			token_nonce BYTEA NOT NULL,
			PRIMARY KEY (kind, resource_id)
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			admin BOOLEAN NOT NULL DEFAULT FALSE,
			enabled BOOLEAN NOT NULL DEFAULT FALSE,
			create_servers BOOLEAN NOT NULL DEFAULT FALSE,
			create_builds BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS login_secrets (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			secret_hash TEXT NOT NULL,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL
		);`,
	}
	for _, query := range queries {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func isPostgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateResource(ctx context.Context, rec *Record) error {
	perms, err := encodePermissions(rec.Permissions)
	if err != nil {
		return err
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO resources (kind, id, name, description, config, info, permissions, version, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.pool.Exec(ctx, query, rec.Kind, rec.ID, rec.Name, rec.Description, string(rec.Config), string(rec.Info), perms, rec.Version, rec.UpdatedAt)
	if isPostgresUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

func scanPostgresResource(row pgx.Row) (*Record, error) {
	var rec Record
	var config, info, perms string
	err := row.Scan(&rec.Kind, &rec.ID, &rec.Name, &rec.Description, &config, &info, &perms, &rec.Version, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Config = []byte(config)
	rec.Info = []byte(info)
	rec.Permissions, err = decodePermissions(perms)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

const pgResourceColumns = `kind, id, name, description, config::text, info::text, permissions::text, version, updated_at`

func (s *PostgresStore) GetResource(ctx context.Context, kind api.ResourceKind, id string) (*Record, error) {
	query := `SELECT ` + pgResourceColumns + ` FROM resources WHERE kind = $1 AND id = $2`
	return scanPostgresResource(s.pool.QueryRow(ctx, query, kind, id))
}

func (s *PostgresStore) FindResourceByName(ctx context.Context, kind api.ResourceKind, name string) (*Record, error) {
	query := `SELECT ` + pgResourceColumns + ` FROM resources WHERE kind = $1 AND name = $2`
	return scanPostgresResource(s.pool.QueryRow(ctx, query, kind, name))
}

func (s *PostgresStore) ListResources(ctx context.Context, kind api.ResourceKind) ([]*Record, error) {
	query := `SELECT ` + pgResourceColumns + ` FROM resources WHERE kind = $1 ORDER BY name`
	rows, err := s.pool.Query(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanPostgresResource(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *PostgresStore) UpdateResource(ctx context.Context, rec *Record) error {
	perms, err := encodePermissions(rec.Permissions)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
	UPDATE resources
	SET description = $1, config = $2, info = $3, permissions = $4, version = version + 1, updated_at = $5
	WHERE kind = $6 AND id = $7 AND version = $8
	`
	result, err := s.pool.Exec(ctx, query, rec.Description, string(rec.Config), string(rec.Info), perms, now, rec.Kind, rec.ID, rec.Version)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		if _, getErr := s.GetResource(ctx, rec.Kind, rec.ID); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionMismatch
	}
	rec.Version++
	rec.UpdatedAt = now
	return nil
}

func (s *PostgresStore) RenameResource(ctx context.Context, kind api.ResourceKind, id, name string) error {
	query := `UPDATE resources SET name = $1, version = version + 1, updated_at = $2 WHERE kind = $3 AND id = $4`
	result, err := s.pool.Exec(ctx, query, name, time.Now().UTC(), kind, id)
	if isPostgresUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteResource(ctx context.Context, kind api.ResourceKind, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM resource_credentials WHERE kind = $1 AND resource_id = $2`, kind, id); err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `DELETE FROM resources WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) SetResourcePermission(ctx context.Context, kind api.ResourceKind, id, userID string, level api.PermissionLevel) error {
	rec, err := s.GetResource(ctx, kind, id)
	if err != nil {
		return err
	}
	if level == api.PermissionNone {
		delete(rec.Permissions, userID)
	} else {
		rec.Permissions[userID] = level
	}
	raw, err := json.Marshal(rec.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}
	_, err = s.pool.Exec(ctx, `UPDATE resources SET permissions = $1 WHERE kind = $2 AND id = $3`, string(raw), kind, id)
	return err
}

func (s *PostgresStore) UpsertResourceCredential(ctx context.Context, cred *ResourceCredential) error {
	query := `
	INSERT INTO resource_credentials (kind, resource_id, token_ciphertext, token_nonce)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (kind, resource_id) DO UPDATE SET
		token_ciphertext = excluded.token_ciphertext,
		token_nonce = excluded.token_nonce
	`
	_, err := s.pool.Exec(ctx, query, cred.Kind, cred.ResourceID, cred.TokenCiphertext, cred.TokenNonce)
	return err
}

func (s *PostgresStore) GetResourceCredential(ctx context.Context, kind api.ResourceKind, id string) (*ResourceCredential, error) {
	query := `SELECT kind, resource_id, token_ciphertext, token_nonce FROM resource_credentials WHERE kind = $1 AND resource_id = $2`
	cred := &ResourceCredential{}
	err := s.pool.QueryRow(ctx, query, kind, id).Scan(&cred.Kind, &cred.ResourceID, &cred.TokenCiphertext, &cred.TokenNonce)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	return cred, nil
}

func (s *PostgresStore) DeleteResourceCredential(ctx context.Context, kind api.ResourceKind, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM resource_credentials WHERE kind = $1 AND resource_id = $2`, kind, id)
	return err
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *api.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `
	INSERT INTO users (id, username, password_hash, admin, enabled, create_servers, create_builds, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, query, user.ID, user.Username, user.PasswordHash, user.Admin, user.Enabled, user.CreateServers, user.CreateBuilds, user.CreatedAt)
	if isPostgresUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

const pgUserColumns = `id, username, password_hash, admin, enabled, create_servers, create_builds, created_at`

func scanPostgresUser(row pgx.Row) (*api.User, error) {
	var user api.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Admin, &user.Enabled, &user.CreateServers, &user.CreateBuilds, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*api.User, error) {
	return scanPostgresUser(s.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) FindUserByUsername(ctx context.Context, username string) (*api.User, error) {
	return scanPostgresUser(s.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE username = $1`, username))
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (s *PostgresStore) UpdateUserFlags(ctx context.Context, id string, enabled, createServers, createBuilds *bool) error {
	var sets []string
	var args []any
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}
	if enabled != nil {
		sets = append(sets, "enabled = "+arg(*enabled))
	}
	if createServers != nil {
		sets = append(sets, "create_servers = "+arg(*createServers))
	}
	if createBuilds != nil {
		sets = append(sets, "create_builds = "+arg(*createBuilds))
	}
	if len(sets) == 0 {
		return nil
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ` + arg(id)
	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateLoginSecret(ctx context.Context, secret *api.LoginSecret) error {
	if secret.CreatedAt.IsZero() {
		secret.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO login_secrets (key, name, secret_hash, user_id, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query, secret.Key, secret.Name, secret.SecretHash, secret.UserID, secret.CreatedAt)
	if isPostgresUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

func (s *PostgresStore) FindLoginSecretByKey(ctx context.Context, key string) (*api.LoginSecret, error) {
	query := `SELECT key, name, secret_hash, user_id, created_at FROM login_secrets WHERE key = $1`
	var secret api.LoginSecret
	err := s.pool.QueryRow(ctx, query, key).Scan(&secret.Key, &secret.Name, &secret.SecretHash, &secret.UserID, &secret.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &secret, nil
}

func (s *PostgresStore) DeleteLoginSecret(ctx context.Context, userID, name string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM login_secrets WHERE user_id = $1 AND name = $2`, userID, name)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, session *Session) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3)`, session.ID, session.UserID, session.ExpiresAt)
	return err
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.pool.QueryRow(ctx, `SELECT id, user_id, expires_at FROM sessions WHERE id = $1`, id).Scan(&session.ID, &session.UserID, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	return err
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
