package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore initializes the SQLite database and creates necessary tables.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS resources (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			config TEXT NOT NULL,
			info TEXT NOT NULL,
			permissions TEXT NOT NULL DEFAULT '{}',
			version INTEGER NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (kind, id),
			UNIQUE (kind, name)
		);`,
		`CREATE TABLE IF NOT EXISTS resource_credentials (
			kind TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			token_ciphertext BLOB NOT NULL,
			token_nonce BLOB NOT NULL,
			PRIMARY KEY (kind, resource_id)
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			admin INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 0,
			create_servers INTEGER NOT NULL DEFAULT 0,
			create_builds INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS login_secrets (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			secret_hash TEXT NOT NULL,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL,
			UNIQUE (user_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at DATETIME NOT NULL
		);`,
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func encodePermissions(perms map[string]api.PermissionLevel) (string, error) {
	if perms == nil {
		perms = map[string]api.PermissionLevel{}
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return "", fmt.Errorf("failed to encode permissions: %w", err)
	}
	return string(raw), nil
}

func decodePermissions(raw string) (map[string]api.PermissionLevel, error) {
	perms := map[string]api.PermissionLevel{}
	if raw == "" {
		return perms, nil
	}
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}
	return perms, nil
}

func (s *SQLiteStore) CreateResource(ctx context.Context, rec *Record) error {
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
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		rec.Kind,
		rec.ID,
		rec.Name,
		rec.Description,
		string(rec.Config),
		string(rec.Info),
		perms,
		rec.Version,
		rec.UpdatedAt,
	)
	if isSQLiteUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

func (s *SQLiteStore) scanResource(row interface {
	Scan(dest ...any) error
}) (*Record, error) {
	var rec Record
	var config, info, perms string
	err := row.Scan(&rec.Kind, &rec.ID, &rec.Name, &rec.Description, &config, &info, &perms, &rec.Version, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

const resourceColumns = `kind, id, name, description, config, info, permissions, version, updated_at`

func (s *SQLiteStore) GetResource(ctx context.Context, kind api.ResourceKind, id string) (*Record, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE kind = ? AND id = ?`
	return s.scanResource(s.db.QueryRowContext(ctx, query, kind, id))
}

func (s *SQLiteStore) FindResourceByName(ctx context.Context, kind api.ResourceKind, name string) (*Record, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE kind = ? AND name = ?`
	return s.scanResource(s.db.QueryRowContext(ctx, query, kind, name))
}

func (s *SQLiteStore) ListResources(ctx context.Context, kind api.ResourceKind) ([]*Record, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE kind = ? ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := s.scanResource(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) UpdateResource(ctx context.Context, rec *Record) error {
	perms, err := encodePermissions(rec.Permissions)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
	UPDATE resources
	SET description = ?, config = ?, info = ?, permissions = ?, version = version + 1, updated_at = ?
	WHERE kind = ? AND id = ? AND version = ?
	`
	result, err := s.db.ExecContext(ctx, query, rec.Description, string(rec.Config), string(rec.Info), perms, now, rec.Kind, rec.ID, rec.Version)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := s.GetResource(ctx, rec.Kind, rec.ID); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrVersionMismatch
	}
	rec.Version++
	rec.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) RenameResource(ctx context.Context, kind api.ResourceKind, id, name string) error {
	query := `UPDATE resources SET name = ?, version = version + 1, updated_at = ? WHERE kind = ? AND id = ?`
	result, err := s.db.ExecContext(ctx, query, name, time.Now().UTC(), kind, id)
	if isSQLiteUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteResource(ctx context.Context, kind api.ResourceKind, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM resource_credentials WHERE kind = ? AND resource_id = ?`, kind, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

func (s *SQLiteStore) SetResourcePermission(ctx context.Context, kind api.ResourceKind, id, userID string, level api.PermissionLevel) error {
	rec, err := s.GetResource(ctx, kind, id)
	if err != nil {
		return err
	}
	if level == api.PermissionNone {
		delete(rec.Permissions, userID)
	} else {
		rec.Permissions[userID] = level
	}
	perms, err := encodePermissions(rec.Permissions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE resources SET permissions = ? WHERE kind = ? AND id = ?`, perms, kind, id)
	return err
}

func (s *SQLiteStore) UpsertResourceCredential(ctx context.Context, cred *ResourceCredential) error {
	query := `
	INSERT INTO resource_credentials (kind, resource_id, token_ciphertext, token_nonce)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(kind, resource_id) DO UPDATE SET
		token_ciphertext = excluded.token_ciphertext,
		token_nonce = excluded.token_nonce
	`
	_, err := s.db.ExecContext(ctx, query, cred.Kind, cred.ResourceID, cred.TokenCiphertext, cred.TokenNonce)
	return err
}

func (s *SQLiteStore) GetResourceCredential(ctx context.Context, kind api.ResourceKind, id string) (*ResourceCredential, error) {
	query := `SELECT kind, resource_id, token_ciphertext, token_nonce FROM resource_credentials WHERE kind = ? AND resource_id = ?`
	cred := &ResourceCredential{}
	err := s.db.QueryRowContext(ctx, query, kind, id).Scan(&cred.Kind, &cred.ResourceID, &cred.TokenCiphertext, &cred.TokenNonce)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	return cred, nil
}

func (s *SQLiteStore) DeleteResourceCredential(ctx context.Context, kind api.ResourceKind, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM resource_credentials WHERE kind = ? AND resource_id = ?`, kind, id)
	return err
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *api.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `
	INSERT INTO users (id, username, password_hash, admin, enabled, create_servers, create_builds, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, user.Admin, user.Enabled, user.CreateServers, user.CreateBuilds, user.CreatedAt)
	if isSQLiteUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

const userColumns = `id, username, password_hash, admin, enabled, create_servers, create_builds, created_at`

func (s *SQLiteStore) scanUser(row *sql.Row) (*api.User, error) {
	var user api.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Admin, &user.Enabled, &user.CreateServers, &user.CreateBuilds, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*api.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) FindUserByUsername(ctx context.Context, username string) (*api.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) UpdateUserFlags(ctx context.Context, id string, enabled, createServers, createBuilds *bool) error {
	var sets []string
	var args []any
	if enabled != nil {
		sets = append(sets, "enabled = ?")
		args = append(args, *enabled)
	}
	if createServers != nil {
		sets = append(sets, "create_servers = ?")
		args = append(args, *createServers)
	}
	if createBuilds != nil {
		sets = append(sets, "create_builds = ?")
		args = append(args, *createBuilds)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateLoginSecret(ctx context.Context, secret *api.LoginSecret) error {
	if secret.CreatedAt.IsZero() {
		secret.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO login_secrets (key, name, secret_hash, user_id, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, secret.Key, secret.Name, secret.SecretHash, secret.UserID, secret.CreatedAt)
	if isSQLiteUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

func (s *SQLiteStore) FindLoginSecretByKey(ctx context.Context, key string) (*api.LoginSecret, error) {
	query := `SELECT key, name, secret_hash, user_id, created_at FROM login_secrets WHERE key = ?`
	var secret api.LoginSecret
	err := s.db.QueryRowContext(ctx, query, key).Scan(&secret.Key, &secret.Name, &secret.SecretHash, &secret.UserID, &secret.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &secret, nil
}

func (s *SQLiteStore) DeleteLoginSecret(ctx context.Context, userID, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM login_secrets WHERE user_id = ? AND name = ?`, userID, name)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`, session.ID, session.UserID, session.ExpiresAt)
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.db.QueryRowContext(ctx, `SELECT id, user_id, expires_at FROM sessions WHERE id = ?`, id).Scan(&session.ID, &session.UserID, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	return err
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}
