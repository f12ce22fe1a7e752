// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations and messages for the development
// backend started by `flaskchat serve`.
//
// The schema mirrors the FlaskChat database: a conversacion table holding the
// name, context flag and model of each conversation, and a mensaje table
// holding its messages. Deleting a conversation removes its messages.
//
// # Usage
//
//	db, err := storage.Open(path)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	conv, err := db.CreateConversation(ctx, "Recetas")
//	err = db.AppendExchange(ctx, conv.ID, "hola", "¡Hola!")
//	msgs, err := db.Messages(ctx, conv.ID)
//
// The database is opened with the pure Go modernc.org/sqlite driver, so no
// cgo toolchain is needed.
package storage
