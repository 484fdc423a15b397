// Package posts provides the PostgreSQL repository for generated posts.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/dbx"
	"github.com/dmitrijs2005/socialmaster/internal/server/models"
)

const postColumns = `id, account_id, date, content, image_url, published, published_at, created_at, updated_at`

// PostgresRepository implements Repository over dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*models.Post, error) {
	var (
		p           models.Post
		imageURL    sql.NullString
		publishedAt sql.NullTime
	)
	if err := s.Scan(&p.ID, &p.AccountID, &p.Date, &p.Content, &imageURL, &p.Published, &publishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Date = common.DateOnly(p.Date)
	p.ImageURL = imageURL.String
	if publishedAt.Valid {
		t := publishedAt.Time
		p.PublishedAt = &t
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) FindByDate(ctx context.Context, accountID string, day time.Time) (*models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE account_id = $1 AND date = $2
	`
	p, err := scanPost(r.db.QueryRowContext(ctx, query, accountID, common.DateOnly(day)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Post) error {
	query := `
		INSERT INTO posts (id, account_id, date, content, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, p.ID, p.AccountID, common.DateOnly(p.Date), p.Content, nullString(p.ImageURL)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Post) error {
	query := `
		UPDATE posts
		SET content = $3, image_url = $4, updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, p.ID, p.AccountID, p.Content, nullString(p.ImageURL)).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListRange(ctx context.Context, accountID string, from, to time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE account_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`
	return r.list(ctx, query, accountID, common.DateOnly(from), common.DateOnly(to))
}

func (r *PostgresRepository) MarkPublished(ctx context.Context, accountID, id string, at time.Time) error {
	query := `
		UPDATE posts
		SET published = TRUE, published_at = $3, updated_at = now()
		WHERE id = $1 AND account_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, accountID, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Stats(ctx context.Context, accountID string) (*models.Stats, error) {
	query := `
		SELECT count(*), count(*) FILTER (WHERE published)
		FROM posts
		WHERE account_id = $1
	`
	var s models.Stats
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&s.Total, &s.Published); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.Scheduled = s.Total - s.Published
	return &s, nil
}

func (r *PostgresRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `SELECT p.id, p.account_id, p.date, p.content, p.image_url, p.published, p.published_at, p.created_at, p.updated_at
		FROM posts p
		JOIN posting_preferences pp ON pp.account_id = p.account_id
		WHERE pp.auto_publish AND NOT p.published
			AND (p.date < $1 OR (p.date = $1 AND pp.default_time <= $2))
		ORDER BY p.date, p.account_id
	`
	now = now.UTC()
	return r.list(ctx, query, common.DateOnly(now), now.Format("15:04"))
}

func (r *PostgresRepository) RecordDelivery(ctx context.Context, postID, socialAccountID, remoteID string, at time.Time) error {
	query := `
		INSERT INTO post_deliveries (post_id, social_account_id, remote_id, delivered_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, social_account_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, postID, socialAccountID, remoteID, at); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Deliveries(ctx context.Context, postID string) (map[string]string, error) {
	query := `SELECT social_account_id, remote_id FROM post_deliveries WHERE post_id = $1`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to select deliveries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var accID, remoteID string
		if err := rows.Scan(&accID, &remoteID); err != nil {
			return nil, err
		}
		out[accID] = remoteID
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	var result []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
