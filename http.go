package ayushya

import (
	"github.com/goayu/ayushya/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Middleware guards routes behind a verified token.
type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	AdminRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// RouteAuthenticator wires the Auther into HTTP middleware for a JSON API.
// Tokens travel in the Authorization header, there is no cookie state.
type RouteAuthenticator struct {
	auth             *Auther
	cfg              Config
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error

	validationListeners []ValidationListener
}

var _ Middleware = (*RouteAuthenticator)(nil)

func NewHTTPAuthenticator(auther *Auther, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// OnTokenValidated registers listeners invoked after every successful token
// validation on routes built from this authenticator.
func (a *RouteAuthenticator) OnTokenValidated(listeners ...ValidationListener) *RouteAuthenticator {
	a.validationListeners = append(a.validationListeners, listeners...)
	return a
}

// ProtectedRoute requires a valid token on every request passing through.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	mcfg := jwtware.Config{
		ErrorHandler:    errorHandler,
		AuthScheme:      cfg.GetAuthScheme(),
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		TokenValidator:  a.auth.TokenService(),
		ContextEnricher: ContextEnricherAdapter,
	}
	RegisterValidationListeners(&mcfg, a.validationListeners...)
	return jwtware.New(mcfg)
}

// AdminRoute additionally requires the admin role.
func (a *RouteAuthenticator) AdminRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	mcfg := jwtware.Config{
		ErrorHandler:    errorHandler,
		AuthScheme:      cfg.GetAuthScheme(),
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		TokenValidator:  a.auth.TokenService(),
		ContextEnricher: ContextEnricherAdapter,
		MinimumRole:     string(RoleAdmin),
	}
	RegisterValidationListeners(&mcfg, a.validationListeners...)
	return jwtware.New(mcfg)
}

// MakeAuthErrorHandler returns a handler that renders verification failures
// as JSON 401s, or lets the request continue when auth is optional.
func (a *RouteAuthenticator) MakeAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.AuthErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return c.JSON(router.StatusUnauthorized, map[string]any{
		"error": map[string]any{
			"message":   "unauthorized",
			"text_code": "UNAUTHORIZED",
		},
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.JSON(richErr.Code, map[string]any{
			"error": map[string]any{
				"message":   richErr.Message,
				"text_code": richErr.TextCode,
			},
		})
	}
}

// renderError maps a rich error to its JSON shape. Auth failures always come
// out as a plain 401 so callers cannot probe which step failed.
func renderError(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return c.JSON(router.StatusUnauthorized, map[string]any{
			"error": map[string]any{
				"message":   "unauthorized",
				"text_code": "UNAUTHORIZED",
			},
		})
	}

	code := richErr.Code
	if code == 0 {
		code = router.StatusInternalServerError
	}

	return c.JSON(code, map[string]any{
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
			"metadata":  richErr.Metadata,
		},
	})
}
