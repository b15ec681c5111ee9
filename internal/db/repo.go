package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"doctorai/pkg"
)

// Repository wraps database operations for chat sessions and consult records.
// A single postgres database backs both.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// EnsureSession returns the session for the given platform chat, creating it
// with the supplied agent when it does not exist yet.
func (r *Repository) EnsureSession(ctx context.Context, platform, chatID, agent string) (*pkg.ChatSession, error) {
	var s pkg.ChatSession
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO chat_sessions (id, platform, chat_id, agent)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (platform, chat_id) DO UPDATE SET platform = EXCLUDED.platform
         RETURNING id, platform, chat_id, agent, created_at`,
		uuid.New(), platform, chatID, agent,
	).Scan(&s.ID, &s.Platform, &s.ChatID, &s.Agent, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetSessionAgent updates the per-chat agent selection.
func (r *Repository) SetSessionAgent(ctx context.Context, sessionID, agent string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE chat_sessions SET agent = $1 WHERE id = $2`, agent, sessionID)
	return err
}

// AppendMessages stores conversation turns for a session in order.
func (r *Repository) AppendMessages(ctx context.Context, sessionID string, entries ...pkg.HistoryEntry) error {
	for _, e := range entries {
		if _, err := r.DB.ExecContext(ctx,
			`INSERT INTO chat_messages (session_id, role, content) VALUES ($1, $2, $3)`,
			sessionID, e.Role, e.Content,
		); err != nil {
			return err
		}
	}
	return nil
}

// RecentMessages returns the last limit turns of a session in chronological
// order.
func (r *Repository) RecentMessages(ctx context.Context, sessionID string, limit int) ([]pkg.HistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT role, content FROM (
            SELECT id, role, content FROM chat_messages
            WHERE session_id = $1
            ORDER BY id DESC
            LIMIT $2
         ) recent ORDER BY id ASC`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []pkg.HistoryEntry
	for rows.Next() {
		var e pkg.HistoryEntry
		if err := rows.Scan(&e.Role, &e.Content); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordConsult persists a completed consult. The record's ID is assigned
// here when empty.
func (r *Repository) RecordConsult(ctx context.Context, rec *pkg.ConsultRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return r.DB.QueryRowContext(ctx,
		`INSERT INTO consults (id, agent, question, has_image, analysis, verified, model, verifier)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING created_at`,
		rec.ID, rec.Agent, rec.Question, rec.HasImage,
		[]byte(rec.Analysis), []byte(rec.Verified), rec.Model, rec.Verifier,
	).Scan(&rec.CreatedAt)
}

// ListConsults returns the most recent consults, newest first.
func (r *Repository) ListConsults(ctx context.Context, limit int) ([]pkg.ConsultRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, agent, question, has_image, analysis, verified, model, verifier, created_at
         FROM consults
         ORDER BY created_at DESC
         LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []pkg.ConsultRecord
	for rows.Next() {
		var rec pkg.ConsultRecord
		var analysis, verified []byte
		if err := rows.Scan(&rec.ID, &rec.Agent, &rec.Question, &rec.HasImage,
			&analysis, &verified, &rec.Model, &rec.Verifier, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Analysis = analysis
		rec.Verified = verified
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetConsult retrieves a single consult by ID. It returns nil without error
// when the record does not exist.
func (r *Repository) GetConsult(ctx context.Context, id string) (*pkg.ConsultRecord, error) {
	var rec pkg.ConsultRecord
	var analysis, verified []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, agent, question, has_image, analysis, verified, model, verifier, created_at
         FROM consults WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Agent, &rec.Question, &rec.HasImage,
		&analysis, &verified, &rec.Model, &rec.Verifier, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Analysis = analysis
	rec.Verified = verified
	return &rec, nil
}
