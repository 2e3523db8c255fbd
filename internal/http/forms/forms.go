// Package forms binds urlencoded request bodies onto typed forms and
// validates them.
package forms

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"blogapp/internal/auth"
)

type LoginForm struct {
	Username string `schema:"username" validate:"required,max=150"`
	Password string `schema:"password" validate:"required"`
	Remember bool   `schema:"remember"`
}

type RegistrationForm struct {
	Username        string `schema:"username" validate:"required,max=150"`
	Password        string `schema:"password" validate:"required,min=6"`
	ConfirmPassword string `schema:"confirm_password" validate:"required,eqfield=Password"`
}

type ChangePasswordForm struct {
	OldPassword        string `schema:"old_password" validate:"required"`
	NewPassword        string `schema:"new_password" validate:"required,min=6"`
	ConfirmNewPassword string `schema:"confirm_new_password" validate:"required,eqfield=NewPassword"`
}

type PostForm struct {
	Title   string `schema:"title" validate:"required,max=150"`
	Content string `schema:"content" validate:"required"`
}

type CommentForm struct {
	Content string `schema:"content" validate:"required,max=500"`
}

// AdminLoginForm also backs the admin account update page.
type AdminLoginForm struct {
	Username string `schema:"username" validate:"required,max=150"`
	Password string `schema:"password" validate:"required,min=6"`
	Remember bool   `schema:"remember"`
}

func (f *LoginForm) normalize() { f.Username = strings.TrimSpace(f.Username) }
func (f *RegistrationForm) normalize() { f.Username = strings.TrimSpace(f.Username) }
func (f *AdminLoginForm) normalize() { f.Username = strings.TrimSpace(f.Username) }
func (f *CommentForm) normalize() { f.Content = strings.TrimSpace(f.Content) }

func (f *PostForm) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Content = strings.TrimSpace(f.Content)
}

type normalizer interface {
	normalize()
}

var (
	decoder  = newDecoder()
	validate = newValidator()
)

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	// browsers send "on" for a checked box without a value attribute
	d.RegisterConverter(false, func(s string) reflect.Value {
		switch strings.ToLower(s) {
		case "on", "y", "yes", "1", "true":
			return reflect.ValueOf(true)
		case "", "off", "n", "no", "0", "false":
			return reflect.ValueOf(false)
		}
		return reflect.Value{}
	})
	return d
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("schema"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Bind decodes the request's form body into dst and validates it. Field
// problems come back as an *auth.ValidationError keyed by form field name.
func Bind(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return auth.NewValidationError("form", "Malformed form submission.")
	}

	if err := decoder.Decode(dst, r.PostForm); err != nil {
		var multi schema.MultiError
		if errors.As(err, &multi) {
			verr := &auth.ValidationError{Fields: map[string]string{}}
			for field := range multi {
				verr.Fields[field] = "Not a valid value."
			}
			return verr
		}
		return fmt.Errorf("failed to decode form: %w", err)
	}

	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate form: %w", err)
		}
		verr := &auth.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
		for _, fe := range fieldErrs {
			if _, seen := verr.Fields[fe.Field()]; !seen {
				verr.Fields[fe.Field()] = message(fe)
			}
		}
		return verr
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field must be at most %s characters long.", fe.Param())
	case "eqfield":
		return "Fields must match."
	}
	return "Invalid value."
}

// Errors extracts the per-field messages carried by err, if any.
func Errors(err error) map[string]string {
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
