// Package persistence implements the blog post repository over SQL
// datastores.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/conduit/internal/blog/domain"
	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database"
)

// SQLPostRepository persists blog posts, resolving its executor from the
// active transaction alias.
type SQLPostRepository struct {
	db *database.Manager
}

// NewSQLPostRepository creates a repository over the connection manager.
func NewSQLPostRepository(db *database.Manager) *SQLPostRepository {
	return &SQLPostRepository{db: db}
}

func (r *SQLPostRepository) executor(ctx context.Context) (database.Executor, database.Driver, error) {
	alias := r.db.ActiveAlias(ctx)
	conn, err := r.db.Get(alias)
	if err != nil {
		return nil, "", err
	}
	return database.ExecutorFromContext(ctx, alias, conn), conn.Driver(), nil
}

// Create implements domain.Repository.
func (r *SQLPostRepository) Create(ctx context.Context, post *domain.BlogPost) error {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return err
	}

	query := database.Rebind(driver, `
		INSERT INTO blog_posts (id, title, content, author_id, published, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = exec.Exec(ctx, query,
		post.ID.String(), post.Title, post.Content, post.AuthorID.String(),
		post.Published, nullableTime(post.PublishedAt), post.CreatedAt, post.UpdatedAt,
	)
	if database.IsUniqueViolation(err) {
		return application.NewConflict("blog post already exists").WithCause(err)
	}
	if err != nil {
		return fmt.Errorf("insert blog post: %w", err)
	}
	return nil
}

// Update implements domain.Repository.
func (r *SQLPostRepository) Update(ctx context.Context, post *domain.BlogPost) error {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return err
	}

	query := database.Rebind(driver, `
		UPDATE blog_posts
		SET title = ?, content = ?, published = ?, published_at = ?, updated_at = ?
		WHERE id = ?`)
	res, err := exec.Exec(ctx, query,
		post.Title, post.Content, post.Published, nullableTime(post.PublishedAt), post.UpdatedAt,
		post.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update blog post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update blog post: %w", err)
	}
	if affected == 0 {
		return application.NewNotFound("blog post not found")
	}
	return nil
}

// Delete implements domain.Repository.
func (r *SQLPostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return err
	}

	query := database.Rebind(driver, `DELETE FROM blog_posts WHERE id = ?`)
	res, err := exec.Exec(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("delete blog post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete blog post: %w", err)
	}
	if affected == 0 {
		return application.NewNotFound("blog post not found")
	}
	return nil
}

// GetByID implements domain.Repository.
func (r *SQLPostRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BlogPost, error) {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query := database.Rebind(driver, `
		SELECT id, title, content, author_id, published, published_at, created_at, updated_at
		FROM blog_posts WHERE id = ?`)
	post, err := scanPost(exec.QueryRow(ctx, query, id.String()))
	if database.IsNoRows(err) {
		return nil, application.NewNotFound("blog post not found")
	}
	return post, err
}

// List implements domain.Repository.
func (r *SQLPostRepository) List(ctx context.Context, authorID uuid.UUID, page, pageSize int) ([]*domain.BlogPost, int64, error) {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return nil, 0, err
	}

	where := ""
	args := []any{}
	if authorID != uuid.Nil {
		where = " WHERE author_id = ?"
		args = append(args, authorID.String())
	}

	var total int64
	countQuery := database.Rebind(driver, `SELECT COUNT(*) FROM blog_posts`+where)
	if err := exec.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blog posts: %w", err)
	}

	query := database.Rebind(driver, `
		SELECT id, title, content, author_id, published, published_at, created_at, updated_at
		FROM blog_posts`+where+`
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list blog posts: %w", err)
	}
	defer rows.Close()

	var posts []*domain.BlogPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list blog posts: %w", err)
	}
	return posts, total, nil
}

// DeleteByAuthor implements domain.Repository. Used by the user-deletion
// cleanup saga.
func (r *SQLPostRepository) DeleteByAuthor(ctx context.Context, authorID uuid.UUID) (int64, error) {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return 0, err
	}

	query := database.Rebind(driver, `DELETE FROM blog_posts WHERE author_id = ?`)
	res, err := exec.Exec(ctx, query, authorID.String())
	if err != nil {
		return 0, fmt.Errorf("delete posts by author: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*domain.BlogPost, error) {
	var (
		post        domain.BlogPost
		id          string
		authorID    string
		publishedAt sql.NullTime
	)
	err := row.Scan(&id, &post.Title, &post.Content, &authorID, &post.Published, &publishedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan blog post: %w", err)
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse blog post id %q: %w", id, err)
	}
	parsedAuthor, err := uuid.Parse(authorID)
	if err != nil {
		return nil, fmt.Errorf("parse author id %q: %w", authorID, err)
	}
	post.ID = parsedID
	post.AuthorID = parsedAuthor
	if publishedAt.Valid {
		t := publishedAt.Time
		post.PublishedAt = &t
	}
	return &post, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
