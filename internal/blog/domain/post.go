// Package domain contains the blog post aggregate and its repository
// contract.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// BlogPost is a published or draft article.
type BlogPost struct {
	ID          uuid.UUID
	Title       string
	Content     string
	AuthorID    uuid.UUID
	Published   bool
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewBlogPost creates a draft post.
func NewBlogPost(id uuid.UUID, title, content string, authorID uuid.UUID) *BlogPost {
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	return &BlogPost{
		ID:        id,
		Title:     title,
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Publish marks the post as published. Publishing twice is a no-op.
func (p *BlogPost) Publish() {
	if p.Published {
		return
	}
	now := time.Now().UTC()
	p.Published = true
	p.PublishedAt = &now
	p.UpdatedAt = now
}

// Touch bumps the update timestamp.
func (p *BlogPost) Touch() {
	p.UpdatedAt = time.Now().UTC()
}
