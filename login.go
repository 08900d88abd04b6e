package courtdesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/picklecourt/courtdesk/remote"
	"github.com/picklecourt/courtdesk/session"
	"go.uber.org/zap"
)

// LoginPath is the identity service's token endpoint.
const LoginPath = "/identity/auth/token"

// LoginForm is the credentials form.
type LoginForm struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

var formValidate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}()

// Validate returns a *ValidationError naming every invalid field.
func (f LoginForm) Validate() error {
	err := formValidate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "max":
			fields[fe.Field()] = "must be at most " + fe.Param() + " characters"
		default:
			fields[fe.Field()] = "is invalid"
		}
	}
	return &ValidationError{Fields: fields}
}

type loginPayload struct {
	Token         string       `json:"token"`
	Authenticated *bool        `json:"authenticated"`
	User          session.User `json:"user"`
}

// loginResponse accepts both {"result": {...}} and the flat payload.
type loginResponse struct {
	loginPayload
	Result *loginPayload `json:"result"`
}

// Login validates the form, exchanges the credentials for a token and stores the
// session. An invalid form is rejected without a request.
func (d *Desk) Login(ctx context.Context, username, password string) (*session.Session, error) {
	if d.isClosed() {
		return nil, ErrClosed
	}
	form := LoginForm{Username: strings.TrimSpace(username), Password: password}
	if err := form.Validate(); err != nil {
		return nil, d.report(ctx, err)
	}

	var resp loginResponse
	err := d.client.Do(ctx, http.MethodPost, LoginPath, remote.Request{Body: form}, &resp)
	if err != nil {
		if re, ok := remote.AsRemoteError(err); ok && re.Status == http.StatusUnauthorized {
			err = fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, d.report(ctx, err)
	}

	payload := resp.loginPayload
	if resp.Result != nil {
		payload = *resp.Result
	}
	if payload.Authenticated != nil && !*payload.Authenticated {
		return nil, d.report(ctx, ErrInvalidCredentials)
	}
	if payload.Token == "" {
		return nil, d.report(ctx, ErrInvalidLoginResponse)
	}
	if payload.User.Username == "" {
		payload.User.Username = form.Username
	}

	sess := &session.Session{Token: payload.Token, User: payload.User}
	if err := d.session.Set(ctx, sess); err != nil {
		d.log.Warn("persist session failed", zap.Error(err))
		return sess.Clone(), err
	}
	d.log.Info("signed in",
		zap.String("user_id", sess.User.ID),
		zap.String("role", string(d.session.EffectiveRole())),
	)
	return sess.Clone(), nil
}

// Logout clears the session and any staged checkout.
func (d *Desk) Logout(ctx context.Context) error {
	if err := d.session.Clear(ctx); err != nil {
		return err
	}
	if err := d.stager.Clear(ctx); err != nil {
		d.log.Warn("clear staged checkout failed", zap.Error(err))
	}
	d.log.Info("signed out")
	return nil
}
