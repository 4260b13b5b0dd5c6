package comment

import (
	"time"

	"github.com/R3E-Network/chirp/internal/app/domain/author"
)

// Comment is a reply attached to a post.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	PostID    string    `json:"postId" db:"post_id"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// WithAuthor pairs a comment with its author's public profile.
type WithAuthor struct {
	Comment Comment       `json:"comment"`
	Author  author.Author `json:"author"`
}
