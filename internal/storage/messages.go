// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"time"
)

// Message is one row of the mensaje table.
type Message struct {
	ID             int64
	ConversationID int64
	Text           string
	IsUser         bool
	CreatedAt      time.Time
}

// Messages returns the messages of a conversation, oldest first. An unknown
// conversation has no messages.
func (d *DB) Messages(ctx context.Context, conversationID int64) ([]Message, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, conversacion_id, mensaje, es_usuario, fecha_creacion
		FROM mensaje WHERE conversacion_id = ?
		ORDER BY fecha_creacion, id`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var (
			m       Message
			created sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Text, &m.IsUser, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(created.String)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// AppendExchange stores a user message and the reply to it in one
// transaction. The reply is timestamped after the user message.
func (d *DB) AppendExchange(ctx context.Context, conversationID int64, user, reply string) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM conversacion WHERE id = ?", conversationID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		const insert = "INSERT INTO mensaje (conversacion_id, mensaje, es_usuario, fecha_creacion) VALUES (?, ?, ?, ?)"
		if _, err := tx.ExecContext(ctx, insert, conversationID, user, true, d.timestamp()); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insert, conversationID, reply, false, d.timestamp())
		return err
	})
}
