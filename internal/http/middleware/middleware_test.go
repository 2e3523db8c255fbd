package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"blogapp/internal/auth"
	"blogapp/internal/models"
)

type recordedFlash struct {
	category, message string
}

type fakeFlasher struct {
	flashes []recordedFlash
}

func (f *fakeFlasher) AddFlash(_ http.ResponseWriter, _ *http.Request, category, message string) {
	f.flashes = append(f.flashes, recordedFlash{category, message})
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("OK"))
})

func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), user))
}

func TestRecover(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Recover(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("test panic")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "handler panicked", logs.All()[0].Message)

	rec = httptest.NewRecorder()
	Recover(zap.New(core))(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := AccessLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	r := withUser(httptest.NewRequest(http.MethodGet, "/brew", nil), &models.User{ID: 7})
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.Equal(t, "/brew", fields["path"])
	assert.EqualValues(t, 7, fields["user_id"])
}

func TestAccessLogImplicitOK(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	AccessLog(zap.New(core))(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.NotContains(t, fields, "user_id")
}

func TestRequireAuth(t *testing.T) {
	flash := &fakeFlasher{}
	h := RequireAuth(flash)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/change_password", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fchange_password", rec.Header().Get("Location"))
	assert.Equal(t, []recordedFlash{{"info", "Please log in to access this page."}}, flash.flashes)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/change_password", nil), &models.User{ID: 1}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	t.Run("anonymous is sent to login", func(t *testing.T) {
		flash := &fakeFlasher{}
		rec := httptest.NewRecorder()
		RequireAdmin(flash)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/add_post", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.Equal(t, "info", flash.flashes[0].category)
		assert.NotContains(t, rec.Body.String(), "OK")
	})

	t.Run("non-admin is denied", func(t *testing.T) {
		flash := &fakeFlasher{}
		rec := httptest.NewRecorder()
		r := withUser(httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil), &models.User{ID: 2})
		RequireAdmin(flash)(okHandler).ServeHTTP(rec, r)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
		assert.Equal(t, []recordedFlash{{"danger", "Access denied."}}, flash.flashes)
	})

	t.Run("admin passes", func(t *testing.T) {
		flash := &fakeFlasher{}
		rec := httptest.NewRecorder()
		r := withUser(httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil), &models.User{ID: 3, Role: models.RoleAdmin})
		RequireAdmin(flash)(okHandler).ServeHTTP(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, flash.flashes)
	})
}
