// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Conversation is one row of the conversacion table.
type Conversation struct {
	ID        int64
	Name      string
	Context   bool
	Model     string
	CreatedAt time.Time
}

const conversationColumns = "id, nombre, contexto, modelo, fecha_creacion"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (Conversation, error) {
	var (
		c       Conversation
		created sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Context, &c.Model, &created); err != nil {
		return Conversation{}, err
	}
	c.CreatedAt = parseTime(created.String)
	return c, nil
}

// CreateConversation inserts a conversation with the column defaults for
// context and model.
func (d *DB) CreateConversation(ctx context.Context, name string) (Conversation, error) {
	if strings.TrimSpace(name) == "" {
		return Conversation{}, ErrEmptyName
	}
	ts := d.timestamp()
	res, err := d.db.ExecContext(ctx,
		"INSERT INTO conversacion (nombre, fecha_creacion) VALUES (?, ?)", name, ts)
	if err != nil {
		return Conversation{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Conversation{}, err
	}
	return Conversation{
		ID:        id,
		Name:      name,
		Context:   true,
		Model:     DefaultModel,
		CreatedAt: parseTime(ts),
	}, nil
}

// ListConversations returns every conversation, newest first.
func (d *DB) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT "+conversationColumns+" FROM conversacion ORDER BY fecha_creacion DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation returns one conversation or ErrNotFound.
func (d *DB) GetConversation(ctx context.Context, id int64) (Conversation, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversacion WHERE id = ?", id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return c, err
}

// RenameConversation sets the name of a conversation.
func (d *DB) RenameConversation(ctx context.Context, id int64, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return d.update(ctx, "UPDATE conversacion SET nombre = ? WHERE id = ?", name, id)
}

// SetModel sets the model of a conversation. The value is not validated here.
func (d *DB) SetModel(ctx context.Context, id int64, model string) error {
	return d.update(ctx, "UPDATE conversacion SET modelo = ? WHERE id = ?", model, id)
}

// ToggleContext flips the context flag and returns the new value.
func (d *DB) ToggleContext(ctx context.Context, id int64) (bool, error) {
	var enabled bool
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var current bool
		err := tx.QueryRowContext(ctx, "SELECT contexto FROM conversacion WHERE id = ?", id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		enabled = !current
		_, err = tx.ExecContext(ctx, "UPDATE conversacion SET contexto = ? WHERE id = ?", enabled, id)
		return err
	})
	return enabled, err
}

// DeleteConversation removes a conversation and its messages.
func (d *DB) DeleteConversation(ctx context.Context, id int64) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM mensaje WHERE conversacion_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM conversacion WHERE id = ?", id)
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

func (d *DB) update(ctx context.Context, query string, args ...any) error {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
