package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"blogapp/internal/auth"
	"blogapp/internal/http/forms"
	"blogapp/internal/http/render"
	"blogapp/internal/models"
	"blogapp/internal/security"
)

// PostStore is the persistence behind posts and comments.
type PostStore interface {
	CreatePost(ctx context.Context, title, content string, authorID *int64) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	CreateComment(ctx context.Context, postID, userID int64, content string) (*models.Comment, error)
	ListComments(ctx context.Context) ([]models.Comment, error)
}

type UserDirectory interface {
	GetAllUsers(ctx context.Context) ([]models.User, error)
	SearchUsers(ctx context.Context, searchTerm string) ([]models.User, error)
}

// base carries what every handler needs to answer a request.
type base struct {
	sessions *security.SessionStore
	view     *render.Renderer
	logger   *zap.Logger
}

// page starts a view for the current principal and pops pending flashes.
func (b *base) page(w http.ResponseWriter, r *http.Request, title string, form any) render.Page {
	user, _ := auth.PrincipalFrom(r.Context())
	return render.Page{
		Title:     title,
		Principal: user,
		Flashes:   b.sessions.Flashes(w, r),
		Form:      form,
	}
}

// redirect flashes message and sends the browser to target.
func (b *base) redirect(w http.ResponseWriter, r *http.Request, target, category, message string) {
	if message != "" {
		b.sessions.AddFlash(w, r, category, message)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// rerender shows a view again with an inline notice.
func (b *base) rerender(w http.ResponseWriter, r *http.Request, status int, view, title string, form any, flash security.Flash) {
	page := b.page(w, r, title, form)
	page.Flashes = append(page.Flashes, flash)
	b.view.Render(w, status, view, page)
}

// invalid answers a failed submission. Field errors re-render the form with
// a 400; anything else is a server error.
func (b *base) invalid(w http.ResponseWriter, r *http.Request, view, title string, form any, err error) {
	fields := forms.Errors(err)
	if fields == nil {
		b.fail(w, r, err)
		return
	}
	page := b.page(w, r, title, form)
	page.Errors = fields
	b.view.Render(w, http.StatusBadRequest, view, page)
}

func (b *base) fail(w http.ResponseWriter, r *http.Request, err error) {
	b.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// SafeNext returns next when it is a path on this site, "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return next
}
