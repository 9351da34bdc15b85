package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vishnukv66991/pyshort/internal/entity"
	"github.com/jmoiron/sqlx"
)

const linkColumns = `id, long_url, short_code, created_at, hits, last_accessed, expires_at`

type linkDB struct {
	ID           int64          `db:"id"`
	LongURL      string         `db:"long_url"`
	ShortCode    sql.NullString `db:"short_code"`
	CreatedAt    time.Time      `db:"created_at"`
	Hits         int64          `db:"hits"`
	LastAccessed sql.NullTime   `db:"last_accessed"`
	ExpiresAt    sql.NullTime   `db:"expires_at"`
}

func (l *linkDB) toEntity() *entity.Link {
	return &entity.Link{
		ID:           l.ID,
		ShortCode:    l.ShortCode.String,
		LongURL:      l.LongURL,
		Hits:         l.Hits,
		CreatedAt:    l.CreatedAt.UTC(),
		LastAccessed: nullTimePtr(l.LastAccessed),
		ExpiresAt:    nullTimePtr(l.ExpiresAt),
	}
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// LinkRepository stores links in the links table. Every method runs inside the
// transaction carried by ctx when there is one (see Transactor).
type LinkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository returns a LinkRepository over db. Calls join a transaction
// started by Transactor when ctx carries one.
func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Insert adds a link without a short code and returns it with its assigned id.
func (r *LinkRepository) Insert(ctx context.Context, longURL string, createdAt time.Time, expiresAt *time.Time) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.Insert"
	const query = `INSERT INTO links(long_url, created_at, expires_at) VALUES ($1, $2, $3) RETURNING ` + linkColumns

	var link linkDB

	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &link, query, longURL, createdAt.UTC(), toNullTime(expiresAt)); err != nil {
		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return link.toEntity(), nil
}

// AssignShortCode sets the short code of the link with the given id.
func (r *LinkRepository) AssignShortCode(ctx context.Context, id int64, shortCode string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.AssignShortCode"
	const query = `UPDATE links SET short_code = $1 WHERE id = $2 RETURNING ` + linkColumns

	var link linkDB

	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &link, query, shortCode, id); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeTaken)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	return link.toEntity(), nil
}

// RetrieveByShortCode returns the link for shortCode whether or not it has expired.
func (r *LinkRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.RetrieveByShortCode"
	const query = `SELECT ` + linkColumns + ` FROM links WHERE short_code = $1`

	var link linkDB

	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &link, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from links table: %w", op, err)
	}

	return link.toEntity(), nil
}

// RetrieveByLongURL returns the oldest coded link pointing at longURL.
func (r *LinkRepository) RetrieveByLongURL(ctx context.Context, longURL string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.RetrieveByLongURL"
	const query = `SELECT ` + linkColumns + ` FROM links
		WHERE long_url = $1 AND short_code IS NOT NULL
		ORDER BY id
		LIMIT 1`

	var link linkDB

	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &link, query, longURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from links table: %w", op, err)
	}

	return link.toEntity(), nil
}

// UpdateExpiry replaces the expiry of link id.
func (r *LinkRepository) UpdateExpiry(ctx context.Context, id int64, expiresAt time.Time) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.UpdateExpiry"
	const query = `UPDATE links SET expires_at = $1 WHERE id = $2 RETURNING ` + linkColumns

	var link linkDB

	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &link, query, expiresAt.UTC(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	return link.toEntity(), nil
}

// RetrieveAndRecordHit increments the hit counter of a live link and stamps its
// last access in one statement. Unknown and expired codes yield entity.ErrLinkNotFound.
func (r *LinkRepository) RetrieveAndRecordHit(ctx context.Context, shortCode string, accessedAt time.Time) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.RetrieveAndRecordHit"
	const query = `UPDATE links SET hits = hits + 1, last_accessed = $2
		WHERE short_code = $1 AND (expires_at IS NULL OR expires_at >= $2)
		RETURNING ` + linkColumns

	var link linkDB

	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &link, query, shortCode, accessedAt.UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get and update links table row: %w", op, err)
	}

	return link.toEntity(), nil
}

// ListRecent returns up to limit coded links, newest first.
func (r *LinkRepository) ListRecent(ctx context.Context, limit int) ([]*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.ListRecent"
	const query = `SELECT ` + linkColumns + ` FROM links
		WHERE short_code IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	var rows []linkDB

	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows, query, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to select from links table: %w", op, err)
	}

	links := make([]*entity.Link, 0, len(rows))
	for i := range rows {
		links = append(links, rows[i].toEntity())
	}

	return links, nil
}
