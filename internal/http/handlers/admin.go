package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"blogapp/internal/auth"
	"blogapp/internal/db"
	"blogapp/internal/http/forms"
	"blogapp/internal/http/render"
	"blogapp/internal/models"
	"blogapp/internal/security"
)

// DashboardData lists principals, optionally filtered by a username search.
type DashboardData struct {
	Users []models.User
	Query string
}

// AdminHandler serves the /admin pages. Callers are gated by the router.
type AdminHandler struct {
	base
	posts         PostStore
	users         UserDirectory
	creds         *auth.Credentials
	adminUsername string
}

func NewAdminHandler(posts PostStore, users UserDirectory, creds *auth.Credentials, adminUsername string, sessions *security.SessionStore, view *render.Renderer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		base:          base{sessions: sessions, view: view, logger: logger},
		posts:         posts,
		users:         users,
		creds:         creds,
		adminUsername: adminUsername,
	}
}

func (h *AdminHandler) AddPost(w http.ResponseWriter, r *http.Request) {
	form := &forms.PostForm{}
	if r.Method == http.MethodGet {
		h.view.Render(w, http.StatusOK, "add_post", h.page(w, r, "Add Post", form))
		return
	}

	if err := forms.Bind(r, form); err != nil {
		h.invalid(w, r, "add_post", "Add Post", form, err)
		return
	}

	var authorID *int64
	if user, ok := auth.PrincipalFrom(r.Context()); ok {
		authorID = &user.ID
	}
	post, err := h.posts.CreatePost(r.Context(), form.Title, form.Content, authorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("post created", zap.Int64("post_id", post.ID))
	h.redirect(w, r, "/", "success", "Post added successfully.")
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	searchTerm := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		users []models.User
		err   error
	)
	if searchTerm != "" {
		users, err = h.users.SearchUsers(r.Context(), searchTerm)
	} else {
		users, err = h.users.GetAllUsers(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page := h.page(w, r, "Dashboard", nil)
	page.Data = DashboardData{Users: users, Query: searchTerm}
	h.view.Render(w, http.StatusOK, "dashboard", page)
}

func (h *AdminHandler) Comments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.posts.ListComments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page := h.page(w, r, "Comments", nil)
	page.Data = comments
	h.view.Render(w, http.StatusOK, "comments", page)
}

// Update edits the account named by the configured admin username, or
// creates it as an administrator when no such account exists. Renaming the
// account means a later submission creates a fresh one.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	admin, err := h.creds.FindByUsername(r.Context(), h.adminUsername)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.fail(w, r, err)
			return
		}
		admin = nil
	}

	form := &forms.AdminLoginForm{}
	if r.Method == http.MethodGet {
		if admin != nil {
			form.Username = admin.Username
		}
		h.view.Render(w, http.StatusOK, "update_admin", h.page(w, r, "Admin Account", form))
		return
	}

	if err := forms.Bind(r, form); err != nil {
		h.invalid(w, r, "update_admin", "Admin Account", form, err)
		return
	}

	message := "Admin user updated successfully!"
	if admin != nil {
		err = h.creds.UpdateAccount(r.Context(), admin, form.Username, form.Password)
		if err == nil {
			err = h.sessions.RevokeOthers(r.Context(), admin.ID, h.sessions.SessionID(r))
		}
	} else {
		message = "Default admin user created successfully!"
		_, err = h.creds.Create(r.Context(), form.Username, form.Password, models.RoleAdmin)
	}

	switch {
	case err == nil:
		h.redirect(w, r, "/admin/update", "success", message)
	case errors.Is(err, auth.ErrDuplicateUsername):
		h.redirect(w, r, "/admin/update", "danger", "Username already exists.")
	default:
		h.invalid(w, r, "update_admin", "Admin Account", form, err)
	}
}
