package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"blogapp/internal/auth"
	"blogapp/internal/db"
	"blogapp/internal/http/handlers"
	"blogapp/internal/http/middleware"
	"blogapp/internal/http/render"
	"blogapp/internal/security"
)

func Setup(database *db.DB, creds *auth.Credentials, sessions *security.SessionStore, view *render.Renderer, adminUsername string, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recover(logger), middleware.Principal(sessions), middleware.AccessLog(logger))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(creds, sessions, view, logger)
	blogHandler := handlers.NewBlogHandler(database, sessions, view, logger)
	adminHandler := handlers.NewAdminHandler(database, database, creds, adminUsername, sessions, view, logger)

	requireAuth := middleware.RequireAuth(sessions)

	r.HandleFunc("/", blogHandler.Index).Methods("GET")
	r.HandleFunc("/login", authHandler.Login).Methods("GET", "POST")
	r.HandleFunc("/register", authHandler.Register).Methods("GET", "POST")
	r.HandleFunc("/admin_login", authHandler.AdminLogin).Methods("GET", "POST")
	r.Handle("/logout", requireAuth(http.HandlerFunc(authHandler.Logout))).Methods("GET")
	r.Handle("/change_password", requireAuth(http.HandlerFunc(authHandler.ChangePassword))).Methods("GET", "POST")
	r.Handle("/add_comment/{post_id:[0-9]+}", requireAuth(http.HandlerFunc(blogHandler.AddComment))).Methods("POST")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin(sessions))
	admin.HandleFunc("/add_post", adminHandler.AddPost).Methods("GET", "POST")
	admin.HandleFunc("/dashboard", adminHandler.Dashboard).Methods("GET")
	admin.HandleFunc("/comments", adminHandler.Comments).Methods("GET")
	admin.HandleFunc("/update", adminHandler.Update).Methods("GET", "POST")

	return r
}
