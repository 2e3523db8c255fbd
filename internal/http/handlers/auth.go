package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"blogapp/internal/auth"
	"blogapp/internal/http/forms"
	"blogapp/internal/http/render"
	"blogapp/internal/models"
	"blogapp/internal/security"
)

type AuthHandler struct {
	base
	creds *auth.Credentials
}

func NewAuthHandler(creds *auth.Credentials, sessions *security.SessionStore, view *render.Renderer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		base:  base{sessions: sessions, view: view, logger: logger},
		creds: creds,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	form := &forms.LoginForm{}
	if r.Method == http.MethodGet {
		h.view.Render(w, http.StatusOK, "login", h.page(w, r, "Login", form))
		return
	}

	if err := forms.Bind(r, form); err != nil {
		h.invalid(w, r, "login", "Login", form, err)
		return
	}

	user, err := h.creds.Verify(r.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.rerender(w, r, http.StatusOK, "login", "Login", form, security.Flash{Category: "danger", Message: "Invalid username or password"})
			return
		}
		h.fail(w, r, err)
		return
	}

	if _, err := h.sessions.Login(w, r, user, form.Remember); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, SafeNext(r.URL.Query().Get("next")), "success", "Logged in successfully!")
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := &forms.RegistrationForm{}
	if r.Method == http.MethodGet {
		h.view.Render(w, http.StatusOK, "register", h.page(w, r, "Register", form))
		return
	}

	if err := forms.Bind(r, form); err != nil {
		h.invalid(w, r, "register", "Register", form, err)
		return
	}

	_, err := h.creds.Create(r.Context(), form.Username, form.Password, models.RoleStandard)
	switch {
	case err == nil:
		h.redirect(w, r, "/login", "success", "Registration successful! Please log in.")
	case errors.Is(err, auth.ErrDuplicateUsername):
		h.redirect(w, r, "/register", "danger", "Username already exists.")
	default:
		h.invalid(w, r, "register", "Register", form, err)
	}
}

// AdminLogin only admits administrators. A valid non-admin login gets the
// same answer as a wrong password.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	form := &forms.AdminLoginForm{}
	if r.Method == http.MethodGet {
		h.view.Render(w, http.StatusOK, "admin_login", h.page(w, r, "Admin Login", form))
		return
	}

	if err := forms.Bind(r, form); err != nil {
		h.invalid(w, r, "admin_login", "Admin Login", form, err)
		return
	}

	user, err := h.creds.Verify(r.Context(), form.Username, form.Password)
	if err != nil && !errors.Is(err, auth.ErrInvalidCredentials) {
		h.fail(w, r, err)
		return
	}
	if err != nil || !user.IsAdmin() {
		h.rerender(w, r, http.StatusOK, "admin_login", "Admin Login", form, security.Flash{Category: "danger", Message: "Invalid admin credentials"})
		return
	}

	if _, err := h.sessions.Login(w, r, user, form.Remember); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, "/admin/dashboard", "success", "Admin login successful!")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, "/", "info", "You have been logged out.")
}

// ChangePassword replaces the caller's password and logs out every other
// session they hold.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	form := &forms.ChangePasswordForm{}
	if r.Method == http.MethodGet {
		h.view.Render(w, http.StatusOK, "change_password", h.page(w, r, "Change Password", form))
		return
	}

	if err := forms.Bind(r, form); err != nil {
		h.invalid(w, r, "change_password", "Change Password", form, err)
		return
	}

	if !h.creds.CheckPassword(user, form.OldPassword) {
		h.rerender(w, r, http.StatusOK, "change_password", "Change Password", form, security.Flash{Category: "danger", Message: "Old password is incorrect."})
		return
	}

	if err := h.creds.SetPassword(r.Context(), user, form.NewPassword); err != nil {
		h.invalid(w, r, "change_password", "Change Password", form, err)
		return
	}
	if err := h.sessions.RevokeOthers(r.Context(), user.ID, h.sessions.SessionID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirect(w, r, "/", "success", "Your password has been updated.")
}
