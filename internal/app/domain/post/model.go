package post

import (
	"time"

	"github.com/R3E-Network/chirp/internal/app/domain/author"
)

// Post is a short emoji message.
type Post struct {
	ID        string    `json:"id" db:"id"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// WithAuthor pairs a post with its author's public profile.
type WithAuthor struct {
	Post   Post          `json:"post"`
	Author author.Author `json:"author"`
}
