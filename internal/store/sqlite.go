package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/rolechat/internal/directory"
	"github.com/matheus3301/rolechat/internal/message"
	"github.com/matheus3301/rolechat/internal/role"
)

const savedAtKey = "saved_at"

// Load reads the last saved snapshot.
func (db *DB) Load(ctx context.Context) (Snapshot, bool, error) {
	var savedAt string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, savedAtKey).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read meta: %w", err)
	}

	users, err := db.loadUsers(ctx)
	if err != nil {
		return Snapshot{}, false, err
	}
	msgs, err := db.loadMessages(ctx)
	if err != nil {
		return Snapshot{}, false, err
	}
	return Snapshot{Users: users, Messages: msgs}, true, nil
}

func (db *DB) loadUsers(ctx context.Context) ([]directory.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, email, role, online FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []directory.User
	for rows.Next() {
		var u directory.User
		var roleName string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &roleName, &u.Online); err != nil {
			return nil, err
		}
		if u.Role, err = role.Parse(roleName); err != nil {
			return nil, fmt.Errorf("user %d: %w", u.ID, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) loadMessages(ctx context.Context) ([]message.Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, sender_name, sender_role, body, timestamp, read, product
		FROM messages
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []message.Message
	for rows.Next() {
		var (
			m        message.Message
			roleName string
			ts       int64
			product  sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.SenderName, &roleName, &m.Text, &ts, &m.Read, &product); err != nil {
			return nil, err
		}
		if m.SenderRole, err = role.Parse(roleName); err != nil {
			return nil, fmt.Errorf("message %d: %w", m.ID, err)
		}
		m.Timestamp = time.Unix(0, ts).UTC()
		if product.Valid {
			m.Product = new(message.Product)
			if err := json.Unmarshal([]byte(product.String), m.Product); err != nil {
				return nil, fmt.Errorf("message %d product: %w", m.ID, err)
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Save replaces the stored snapshot in a single transaction.
func (db *DB) Save(ctx context.Context, snap Snapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	for i, u := range snap.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, seq, name, email, role, online) VALUES (?, ?, ?, ?, ?, ?)`,
			u.ID, i, u.Name, u.Email, u.Role.String(), u.Online); err != nil {
			return fmt.Errorf("insert user %d: %w", u.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, seq, sender_id, receiver_id, sender_name, sender_role, body, timestamp, read, product)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, m := range snap.Messages {
		var product sql.NullString
		if m.Product != nil {
			b, err := json.Marshal(m.Product)
			if err != nil {
				return fmt.Errorf("message %d product: %w", m.ID, err)
			}
			product = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID, i, m.SenderID, m.ReceiverID, m.SenderName, m.SenderRole.String(),
			m.Text, m.Timestamp.UnixNano(), m.Read, product); err != nil {
			return fmt.Errorf("insert message %d: %w", m.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		savedAtKey, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}

	return tx.Commit()
}
