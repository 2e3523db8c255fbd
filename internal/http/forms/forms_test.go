package forms

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogapp/internal/auth"
)

func postForm(values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestBindLoginForm(t *testing.T) {
	var form LoginForm
	err := Bind(postForm(url.Values{
		"username": {"  alice "},
		"password": {"secret1"},
		"remember": {"on"},
		"submit":   {"Login"},
	}), &form)
	require.NoError(t, err)

	assert.Equal(t, "alice", form.Username)
	assert.Equal(t, "secret1", form.Password)
	assert.True(t, form.Remember)
}

func TestBindReportsFieldNames(t *testing.T) {
	var form RegistrationForm
	err := Bind(postForm(url.Values{
		"username":         {"bob"},
		"password":         {"abc"},
		"confirm_password": {"abd"},
	}), &form)
	require.ErrorIs(t, err, auth.ErrValidationFailed)

	fields := Errors(err)
	assert.Equal(t, "Field must be at least 6 characters long.", fields["password"])
	assert.Equal(t, "Fields must match.", fields["confirm_password"])
	assert.NotContains(t, fields, "username")
}

func TestBindRequired(t *testing.T) {
	var form PostForm
	err := Bind(postForm(url.Values{"title": {"   "}}), &form)

	fields := Errors(err)
	assert.Equal(t, "This field is required.", fields["title"])
	assert.Equal(t, "This field is required.", fields["content"])
}

func TestBindCommentLength(t *testing.T) {
	var form CommentForm
	err := Bind(postForm(url.Values{"content": {strings.Repeat("ж", 501)}}), &form)
	assert.Equal(t, "Field must be at most 500 characters long.", Errors(err)["content"])

	err = Bind(postForm(url.Values{"content": {strings.Repeat("ж", 500)}}), &form)
	assert.NoError(t, err)
}

func TestBindBadCheckbox(t *testing.T) {
	var form AdminLoginForm
	err := Bind(postForm(url.Values{
		"username": {"user"},
		"password": {"password"},
		"remember": {"maybe"},
	}), &form)
	require.ErrorIs(t, err, auth.ErrValidationFailed)
	assert.Contains(t, Errors(err), "remember")
}

func TestErrorsOnOtherError(t *testing.T) {
	assert.Nil(t, Errors(assert.AnError))
}
