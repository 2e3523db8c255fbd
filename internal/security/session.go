package security

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/thejerf/abtime"
	"go.uber.org/zap"

	"blogapp/internal/db"
	"blogapp/internal/models"
)

const (
	sessionIDKey = "sid"
	rememberKey  = "remember"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

// UserLoader resolves a session's principal. A missing user must be reported
// as an error; the session then resolves to anonymous.
type UserLoader interface {
	Lookup(ctx context.Context, id int64) (*models.User, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	RevokeSession(ctx context.Context, sessionID string, at time.Time) error
	RevokeUserSessions(ctx context.Context, userID int64, keepID string, at time.Time) (int64, error)
}

type SessionOptions struct {
	CookieName    string
	Lifetime      time.Duration
	RememberFor   time.Duration
	Secure        bool
	AuthKey       []byte
	EncryptionKey []byte
}

// SessionStore signs a cookie that carries an opaque session id and pending
// flashes. The id is backed by a sessions row, so revoking the row logs the
// cookie out no matter how long the browser keeps it.
type SessionStore struct {
	store    *sessions.CookieStore
	sessions SessionRepository
	users    UserLoader
	clock    abtime.AbstractTime
	opts     SessionOptions
	logger   *zap.Logger
}

func NewSessionStore(repo SessionRepository, users UserLoader, opts SessionOptions, clock abtime.AbstractTime, logger *zap.Logger) *SessionStore {
	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = 24 * time.Hour
	}
	if opts.RememberFor <= 0 {
		opts.RememberFor = 365 * 24 * time.Hour
	}
	if clock == nil {
		clock = abtime.NewRealTime()
	}

	keys := [][]byte{opts.AuthKey}
	if len(opts.EncryptionKey) > 0 {
		keys = append(keys, opts.EncryptionKey)
	}
	store := sessions.NewCookieStore(keys...)
	// Expiry is enforced against the sessions row; the cookie timestamp is
	// not checked.
	store.MaxAge(0)

	s := &SessionStore{
		store:    store,
		sessions: repo,
		users:    users,
		clock:    clock,
		opts:     opts,
		logger:   logger,
	}
	store.Options = s.cookieOptions(false)
	return s
}

func (s *SessionStore) cookieOptions(remember bool) *sessions.Options {
	o := &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		o.MaxAge = int(s.opts.RememberFor / time.Second)
	}
	return o
}

// save writes the cookie back, keeping a remembered login persistent.
func (s *SessionStore) save(w http.ResponseWriter, r *http.Request, sess *sessions.Session) error {
	remember, _ := sess.Values[rememberKey].(bool)
	sess.Options = s.cookieOptions(remember)
	return sess.Save(r, w)
}

// cookie returns the request's cookie session. A cookie that fails
// verification yields a fresh, empty session.
func (s *SessionStore) cookie(r *http.Request) *sessions.Session {
	sess, err := s.store.Get(r, s.opts.CookieName)
	if err != nil {
		s.logger.Debug("discarding unreadable session cookie", zap.Error(err))
	}
	return sess
}

// Login mints a new session for user and returns its token. Any session
// already carried by the request is revoked first.
func (s *SessionStore) Login(w http.ResponseWriter, r *http.Request, user *models.User, remember bool) (string, error) {
	ctx := r.Context()
	sess := s.cookie(r)
	now := s.clock.Now().UTC()

	if old, ok := sess.Values[sessionIDKey].(string); ok && old != "" {
		if err := s.sessions.RevokeSession(ctx, old, now); err != nil {
			s.logger.Warn("failed to revoke previous session", zap.Error(err))
		}
	}

	lifetime := s.opts.Lifetime
	if remember {
		lifetime = s.opts.RememberFor
	}

	row := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Remember:  remember,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
	if err := s.sessions.CreateSession(ctx, row); err != nil {
		return "", err
	}

	sess.Values[sessionIDKey] = row.ID
	sess.Values[rememberKey] = remember
	if err := s.save(w, r, sess); err != nil {
		return "", err
	}

	s.logger.Info("session established",
		zap.Int64("user_id", user.ID),
		zap.Bool("remember", remember),
		zap.Time("expires_at", row.ExpiresAt))
	return row.ID, nil
}

// SessionID returns the id carried by the request's cookie, or "".
func (s *SessionStore) SessionID(r *http.Request) string {
	sid, _ := s.cookie(r).Values[sessionIDKey].(string)
	return sid
}

// Current resolves the request to its principal. nil means anonymous; lookup
// failures never fail the request.
func (s *SessionStore) Current(r *http.Request) *models.User {
	sid := s.SessionID(r)
	if sid == "" {
		return nil
	}

	ctx := r.Context()
	row, err := s.sessions.GetSession(ctx, sid)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger.Warn("failed to load session", zap.Error(err))
		}
		return nil
	}
	if !row.Active(s.clock.Now()) {
		return nil
	}

	user, err := s.users.Lookup(ctx, row.UserID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger.Warn("failed to load session user", zap.Int64("user_id", row.UserID), zap.Error(err))
		}
		return nil
	}
	return user
}

// Logout revokes the request's session. The cookie is kept, without its
// session id, so that flashes still work.
func (s *SessionStore) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := s.cookie(r)
	if sid, ok := sess.Values[sessionIDKey].(string); ok && sid != "" {
		if err := s.sessions.RevokeSession(r.Context(), sid, s.clock.Now().UTC()); err != nil {
			return err
		}
	}

	delete(sess.Values, sessionIDKey)
	delete(sess.Values, rememberKey)
	return s.save(w, r, sess)
}

// RevokeOthers logs userID out everywhere except keepID.
func (s *SessionStore) RevokeOthers(ctx context.Context, userID int64, keepID string) error {
	n, err := s.sessions.RevokeUserSessions(ctx, userID, keepID, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("revoked sessions", zap.Int64("user_id", userID), zap.Int64("count", n))
	}
	return nil
}

func (s *SessionStore) AddFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	sess := s.cookie(r)
	sess.AddFlash(Flash{Category: category, Message: message})
	if err := s.save(w, r, sess); err != nil {
		s.logger.Warn("failed to save flash", zap.Error(err))
	}
}

// Flashes pops the pending flashes.
func (s *SessionStore) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	sess := s.cookie(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := s.save(w, r, sess); err != nil {
		s.logger.Warn("failed to save session", zap.Error(err))
	}

	flashes := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	return flashes
}
