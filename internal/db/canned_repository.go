package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tOgg1/replydesk/internal/canned"
)

// ErrCannedAlreadyExists is returned when a message ID is already taken.
var ErrCannedAlreadyExists = errors.New("canned message with this id already exists")

// CannedRepository persists canned messages. It satisfies canned.Source.
type CannedRepository struct {
	db *DB
}

// NewCannedRepository creates a repository and ensures its schema exists.
func NewCannedRepository(ctx context.Context, db *DB) (*CannedRepository, error) {
	r := &CannedRepository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CannedRepository) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS canned_messages (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			shortcut TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			position INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS canned_messages_order_idx ON canned_messages(is_active, position, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize canned schema: %w", err)
		}
	}
	return nil
}

// Create adds a message, assigning an ID when it has none. New messages are
// ordered after existing ones.
func (r *CannedRepository) Create(ctx context.Context, msg *canned.Message) error {
	return r.db.RetryTransaction(ctx, func(tx *sql.Tx) error {
		return r.createWithTx(ctx, tx, msg)
	})
}

func (r *CannedRepository) createWithTx(ctx context.Context, tx *sql.Tx, msg *canned.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid canned message: %w", err)
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	var exists int
	err := tx.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(1) FROM canned_messages WHERE id = ?`), msg.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check canned message: %w", err)
	}
	if exists > 0 {
		return ErrCannedAlreadyExists
	}

	var position int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM canned_messages`).Scan(&position); err != nil {
		return fmt.Errorf("failed to compute canned position: %w", err)
	}

	_, err = tx.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO canned_messages (id, title, shortcut, body, is_active, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`),
		msg.ID,
		msg.Title,
		msg.Shortcut,
		msg.Body,
		boolToInt(msg.Active),
		position,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert canned message: %w", err)
	}
	return nil
}

// Import adds messages in one transaction. With replace set, existing
// messages are removed first.
func (r *CannedRepository) Import(ctx context.Context, msgs []canned.Message, replace bool) (int, error) {
	imported := 0
	err := r.db.RetryTransaction(ctx, func(tx *sql.Tx) error {
		imported = 0
		if replace {
			if _, err := tx.ExecContext(ctx, `DELETE FROM canned_messages`); err != nil {
				return fmt.Errorf("failed to clear canned messages: %w", err)
			}
		}
		for i := range msgs {
			msg := msgs[i]
			if err := r.createWithTx(ctx, tx, &msg); err != nil {
				return fmt.Errorf("message %d: %w", i+1, err)
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return imported, nil
}

// Get loads a single message.
func (r *CannedRepository) Get(ctx context.Context, id string) (*canned.Message, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT id, title, shortcut, body, is_active
		FROM canned_messages WHERE id = ?
	`), id)
	msg, err := scanCanned(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, canned.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get canned message: %w", err)
	}
	return msg, nil
}

// SetActive enables or disables a message.
func (r *CannedRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE canned_messages SET is_active = ? WHERE id = ?`), boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("failed to update canned message: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a message.
func (r *CannedRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM canned_messages WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete canned message: %w", err)
	}
	return requireAffected(res)
}

// List implements canned.Source.
func (r *CannedRepository) List(ctx context.Context, opts canned.ListOptions) ([]canned.Message, error) {
	query := `SELECT id, title, shortcut, body, is_active FROM canned_messages`
	args := []any{}
	if opts.IsActive {
		query += ` WHERE is_active = ?`
		args = append(args, 1)
	}
	query += ` ORDER BY position, created_at`
	if opts.PerPage > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.PerPage)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list canned messages: %w", err)
	}
	defer rows.Close()

	out := make([]canned.Message, 0)
	for rows.Next() {
		msg, err := scanCanned(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan canned message: %w", err)
		}
		out = append(out, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list canned messages: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCanned(row rowScanner) (*canned.Message, error) {
	var msg canned.Message
	var active int
	if err := row.Scan(&msg.ID, &msg.Title, &msg.Shortcut, &msg.Body, &active); err != nil {
		return nil, err
	}
	msg.Active = active != 0
	return &msg, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return canned.ErrNotFound
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
