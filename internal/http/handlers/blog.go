package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"blogapp/internal/auth"
	"blogapp/internal/db"
	"blogapp/internal/http/forms"
	"blogapp/internal/http/render"
	"blogapp/internal/models"
	"blogapp/internal/security"
)

// PostView is a post with the comments left on it.
type PostView struct {
	Post     models.Post
	Comments []models.Comment
}

type BlogHandler struct {
	base
	posts PostStore
}

func NewBlogHandler(posts PostStore, sessions *security.SessionStore, view *render.Renderer, logger *zap.Logger) *BlogHandler {
	return &BlogHandler{
		base:  base{sessions: sessions, view: view, logger: logger},
		posts: posts,
	}
}

func (h *BlogHandler) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPosts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	comments, err := h.posts.ListComments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	byPost := lo.GroupBy(comments, func(c models.Comment) int64 { return c.PostID })
	page := h.page(w, r, "", &forms.CommentForm{})
	page.Data = lo.Map(posts, func(p models.Post, _ int) PostView {
		return PostView{Post: p, Comments: byPost[p.ID]}
	})
	h.view.Render(w, http.StatusOK, "posts", page)
}

func (h *BlogHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	postID, err := strconv.ParseInt(mux.Vars(r)["post_id"], 10, 64)
	if err != nil {
		h.redirect(w, r, "/", "danger", "Post not found.")
		return
	}

	form := &forms.CommentForm{}
	if err := forms.Bind(r, form); err != nil {
		if forms.Errors(err) == nil {
			h.fail(w, r, err)
			return
		}
		h.redirect(w, r, "/", "danger", "Failed to add comment.")
		return
	}

	if _, err := h.posts.CreateComment(r.Context(), postID, user.ID, form.Content); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.redirect(w, r, "/", "danger", "Post not found.")
			return
		}
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, "/", "success", "Your comment has been added.")
}
