package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"blogapp/internal/models"
)

const postColumns = "p.id, p.title, p.content, p.author_id, COALESCE(u.username, ''), p.created_at"

func scanPost(row scanner) (*models.Post, error) {
	post := &models.Post{}
	var authorID sql.NullInt64
	if err := row.Scan(&post.ID, &post.Title, &post.Content, &authorID, &post.AuthorName, &post.CreatedAt); err != nil {
		return nil, translate(err)
	}
	if authorID.Valid {
		post.AuthorID = &authorID.Int64
	}
	return post, nil
}

// CreatePost stores a post. authorID may be nil for posts without a recorded author.
func (q *Queries) CreatePost(ctx context.Context, title, content string, authorID *int64) (*models.Post, error) {
	post := &models.Post{
		Title:     title,
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: time.Now().UTC(),
	}

	query := "INSERT INTO posts (title, content, author_id, created_at) VALUES (?, ?, ?, ?) RETURNING id"
	if err := q.queryRow(ctx, query, title, content, authorID, post.CreatedAt).Scan(&post.ID); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", translate(err))
	}
	return post, nil
}

func (q *Queries) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	row := q.queryRow(ctx, "SELECT "+postColumns+" FROM posts p LEFT JOIN users u ON u.id = p.author_id WHERE p.id = ?", id)
	return scanPost(row)
}

// ListPosts returns every post, newest first.
func (q *Queries) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := q.query(ctx, "SELECT "+postColumns+" FROM posts p LEFT JOIN users u ON u.id = p.author_id ORDER BY p.created_at DESC, p.id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// CreateComment fails with ErrNotFound when the user or the post does not exist.
func (q *Queries) CreateComment(ctx context.Context, postID, userID int64, content string) (*models.Comment, error) {
	comment := &models.Comment{
		Content:   content,
		UserID:    userID,
		PostID:    postID,
		CreatedAt: time.Now().UTC(),
	}

	query := "INSERT INTO comments (content, user_id, post_id, created_at) VALUES (?, ?, ?, ?) RETURNING id"
	if err := q.queryRow(ctx, query, content, userID, postID, comment.CreatedAt).Scan(&comment.ID); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", translate(err))
	}
	return comment, nil
}

// ListComments returns every comment with its author and post title, newest first.
func (q *Queries) ListComments(ctx context.Context) ([]models.Comment, error) {
	query := `SELECT c.id, c.content, c.user_id, c.post_id, u.username, p.title, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		JOIN posts p ON p.id = c.post_id
		ORDER BY c.created_at DESC, c.id DESC`

	rows, err := q.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.Content, &c.UserID, &c.PostID, &c.Author, &c.PostTitle, &c.CreatedAt); err != nil {
			return nil, translate(err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
