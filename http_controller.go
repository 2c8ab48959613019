package ayushya

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AuthControllerRoutes holds the path layout for the JSON API.
type AuthControllerRoutes struct {
	CheckEmail        string
	SendOTP           string
	VerifyOTP         string
	VerifyToken       string
	Logout            string
	Sessions          string
	CleanupChallenges string
	CleanupSessions   string
	Me                string
	MeActivity        string
	UserDeactivate    string
	UserReactivate    string
}

// AuthController serves the passwordless auth endpoints.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       *Auther
	Routes       *AuthControllerRoutes
	ContextKey   string
	Protected    router.MiddlewareFunc
	Admin        router.MiddlewareFunc
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerMiddleware(protected, admin router.MiddlewareFunc) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Protected = protected
		c.Admin = admin
		return c
	}
}

func WithControllerContextKey(key string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: renderError,
		ContextKey:   "user",
		Routes: &AuthControllerRoutes{
			CheckEmail:        "/auth/check-email",
			SendOTP:           "/auth/send-otp",
			VerifyOTP:         "/auth/verify-otp",
			VerifyToken:       "/auth/verify-token",
			Logout:            "/auth/logout",
			Sessions:          "/auth/sessions",
			CleanupChallenges: "/auth/cleanup/challenges",
			CleanupSessions:   "/auth/cleanup/sessions",
			Me:                "/users/me",
			MeActivity:        "/users/me/activity",
			UserDeactivate:    "/users/:id/deactivate",
			UserReactivate:    "/users/:id/reactivate",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth API on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	c := NewAuthController(opts...)

	app.Post(c.Routes.CheckEmail, c.CheckEmail).SetName("auth.check-email.post")
	app.Post(c.Routes.SendOTP, c.SendOTP).SetName("auth.send-otp.post")
	app.Post(c.Routes.VerifyOTP, c.VerifyOTP).SetName("auth.verify-otp.post")
	app.Post(c.Routes.VerifyToken, c.VerifyToken).SetName("auth.verify-token.post")
	app.Post(c.Routes.Logout, c.Logout).SetName("auth.logout.post")

	protected := c.guard()
	admin := c.adminGuard()

	app.Get(c.Routes.Sessions, c.ListSessions, protected...).SetName("auth.sessions.get")
	app.Delete(c.Routes.Sessions, c.InvalidateAllSessions, protected...).SetName("auth.sessions.delete")
	app.Delete(fmt.Sprintf("%s/:id", c.Routes.Sessions), c.InvalidateSession, protected...).SetName("auth.session.delete")

	app.Post(c.Routes.CleanupChallenges, c.CleanupChallenges, admin...).SetName("auth.cleanup-challenges.post")
	app.Post(c.Routes.CleanupSessions, c.CleanupSessions, admin...).SetName("auth.cleanup-sessions.post")

	app.Get(c.Routes.Me, c.Me, protected...).SetName("users.me.get")
	app.Put(c.Routes.Me, c.UpdateMe, protected...).SetName("users.me.put")
	app.Get(c.Routes.MeActivity, c.MyActivity, protected...).SetName("users.me-activity.get")

	app.Post(c.Routes.UserDeactivate, c.DeactivateUser, admin...).SetName("users.deactivate.post")
	app.Post(c.Routes.UserReactivate, c.ReactivateUser, admin...).SetName("users.reactivate.post")

	return c
}

func (a *AuthController) guard() []router.MiddlewareFunc {
	if a.Protected == nil {
		return nil
	}
	return []router.MiddlewareFunc{a.Protected}
}

func (a *AuthController) adminGuard() []router.MiddlewareFunc {
	if a.Admin == nil {
		return a.guard()
	}
	return []router.MiddlewareFunc{a.Admin}
}

// CheckEmailRequest payload
type CheckEmailRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r CheckEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// CheckEmail reports whether an account already exists for a contact point.
func (a *AuthController) CheckEmail(ctx router.Context) error {
	payload := new(CheckEmailRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	user, err := a.Repo.Users().GetByEmail(ctx.Context(), payload.Email)
	if err != nil {
		return ctx.JSON(router.StatusOK, map[string]any{
			"exists": false,
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"exists": true,
		"status": user.Status,
	})
}

// SendOTPRequest payload
type SendOTPRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r SendOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// SendOTP issues a one-time-code. The response never reveals whether the
// contact point maps to an account.
func (a *AuthController) SendOTP(ctx router.Context) error {
	payload := new(SendOTPRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("send otp request %s", print.MaybePrettyJSON(payload))
	}

	if err := a.Auther.RequestChallenge(ctx.Context(), payload.Email, originFromContext(ctx)); err != nil {
		// Do not leak issuance problems to the caller.
		a.Logger.Error("send otp error", "error", err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"message": "verification code sent",
	})
}

// VerifyOTPRequest payload
type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Validate will run validation rules
func (r VerifyOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(4, 10), is.Digit),
	)
}

// VerifyOTP completes the login, returning the token and account profile.
func (a *AuthController) VerifyOTP(ctx router.Context) error {
	payload := new(VerifyOTPRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	result, err := a.Auther.CompleteVerification(ctx.Context(), payload.Email, payload.Code, originFromContext(ctx))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":      true,
		"access_token": result.Token,
		"token_type":   "bearer",
		"expires_at":   result.ExpiresAt,
		"is_new_user":  result.IsNewUser,
		"user":         result.User,
	})
}

// VerifyTokenRequest payload
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

// VerifyToken checks a token and returns its session view. The token may come
// in the body or the Authorization header.
func (a *AuthController) VerifyToken(ctx router.Context) error {
	payload := new(VerifyTokenRequest)
	_ = ctx.Bind(payload)

	token := payload.Token
	if token == "" {
		token = bearerToken(ctx)
	}

	if token == "" {
		return a.ErrorHandler(ctx, ErrTokenMalformed)
	}

	session, err := a.Auther.SessionFromToken(token)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	// A token whose subject is not a well-formed id never maps to an account.
	if !HasUserUUID(session) {
		return a.ErrorHandler(ctx, ErrUnauthorized)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"valid":   true,
		"session": session,
	})
}

// Logout invalidates the caller's session. Always acknowledged.
func (a *AuthController) Logout(ctx router.Context) error {
	token := bearerToken(ctx)

	if token != "" {
		if err := a.Auther.Logout(ctx.Context(), token, originFromContext(ctx)); err != nil {
			a.Logger.Error("logout error", "error", err)
		}
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"message": "logged out",
	})
}

// ListSessions returns the caller's live sessions.
func (a *AuthController) ListSessions(ctx router.Context) error {
	userID, err := a.currentUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	sessions, err := a.Auther.ListSessions(ctx.Context(), userID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"sessions": sessions,
	})
}

// InvalidateSession revokes one of the caller's sessions by id.
func (a *AuthController) InvalidateSession(ctx router.Context) error {
	userID, err := a.currentUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	sessionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.badRequest(ctx, err)
	}

	// The session must belong to the caller unless they are an admin.
	session, err := a.Repo.Sessions().GetByID(ctx.Context(), sessionID.String())
	if err != nil {
		return a.ErrorHandler(ctx, ErrSessionNotFound)
	}

	claims, _ := GetRouterClaims(ctx, a.ContextKey)
	if session.UserID != userID && (claims == nil || !claims.IsAtLeast(string(RoleAdmin))) {
		return a.ErrorHandler(ctx, ErrUnauthorized)
	}

	actor := ActorRef{ID: userID.String(), Type: "user"}
	if err := a.Auther.InvalidateSession(ctx.Context(), actor, sessionID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}

// InvalidateAllSessions revokes every live session the caller owns.
func (a *AuthController) InvalidateAllSessions(ctx router.Context) error {
	userID, err := a.currentUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	actor := ActorRef{ID: userID.String(), Type: "user"}
	count, err := a.Auther.InvalidateAllSessions(ctx.Context(), actor, userID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":     true,
		"invalidated": count,
	})
}

// CleanupChallenges sweeps expired challenges. Admin only, idempotent.
func (a *AuthController) CleanupChallenges(ctx router.Context) error {
	removed, err := a.Auther.CleanupExpiredChallenges(ctx.Context())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"removed": removed,
	})
}

// CleanupSessions sweeps expired sessions. Admin only, idempotent.
func (a *AuthController) CleanupSessions(ctx router.Context) error {
	removed, err := a.Auther.CleanupExpiredSessions(ctx.Context())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"removed": removed,
	})
}

// Me returns the caller's profile.
func (a *AuthController) Me(ctx router.Context) error {
	userID, err := a.currentUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), userID.String())
	if err != nil {
		return a.ErrorHandler(ctx, ErrUserNotFound)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": user,
	})
}

// UpdateMeRequest carries the editable profile fields.
type UpdateMeRequest struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Phone        string  `json:"phone_number"`
	ProfileImage string  `json:"profile_image"`
	BloodGroup   string  `json:"blood_group"`
	HeightCm     float64 `json:"height_cm"`
	WeightKg     float64 `json:"weight_kg"`
}

// Validate will run validation rules
func (r UpdateMeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Phone, validation.Length(0, 20)),
		validation.Field(&r.HeightCm, validation.Min(0.0), validation.Max(300.0)),
		validation.Field(&r.WeightKg, validation.Min(0.0), validation.Max(500.0)),
	)
}

// UpdateMe edits the caller's profile.
func (a *AuthController) UpdateMe(ctx router.Context) error {
	userID, err := a.currentUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(UpdateMeRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), userID.String())
	if err != nil {
		return a.ErrorHandler(ctx, ErrUserNotFound)
	}

	user.FirstName = payload.FirstName
	user.LastName = payload.LastName
	user.Phone = payload.Phone
	user.ProfileImage = payload.ProfileImage
	user.BloodGroup = payload.BloodGroup
	user.HeightCm = payload.HeightCm
	user.WeightKg = payload.WeightKg

	updated, err := a.Repo.Users().UpdateProfile(ctx.Context(), user)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.appendActivity(ctx, ActivityEventUserUpdated, userID)

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": updated,
	})
}

// MyActivity returns the caller's recent audit trail.
func (a *AuthController) MyActivity(ctx router.Context) error {
	userID, err := a.currentUserID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	records, err := a.Repo.Activity().ListByUser(ctx.Context(), userID, 50)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"activity": records,
	})
}

// DeactivateUser disables an account and revokes its sessions.
func (a *AuthController) DeactivateUser(ctx router.Context) error {
	targetID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.badRequest(ctx, err)
	}

	actor := a.actorFromContext(ctx)

	user, err := a.Auther.Deactivate(ctx.Context(), actor, targetID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": user,
	})
}

// ReactivateUser re-enables a deactivated account.
func (a *AuthController) ReactivateUser(ctx router.Context) error {
	targetID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.badRequest(ctx, err)
	}

	actor := a.actorFromContext(ctx)

	user, err := a.Auther.Reactivate(ctx.Context(), actor, targetID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": user,
	})
}

func (a *AuthController) currentUserID(ctx router.Context) (uuid.UUID, error) {
	claims, ok := GetRouterClaims(ctx, a.ContextKey)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, ErrUnableToMapClaims
	}

	return id, nil
}

func (a *AuthController) actorFromContext(ctx router.Context) ActorRef {
	if claims, ok := GetRouterClaims(ctx, a.ContextKey); ok {
		return ActorRef{ID: claims.UserID(), Type: "user"}
	}
	return ActorRef{Type: "system"}
}

func (a *AuthController) appendActivity(ctx router.Context, kind ActivityEventType, userID uuid.UUID) {
	record := recordFromEvent(ActivityEvent{
		EventType: kind,
		Actor:     ActorRef{ID: userID.String(), Type: "user"},
		UserID:    userID.String(),
		Origin:    originFromContext(ctx),
	})

	if err := a.Repo.Activity().Append(ctx.Context(), record); err != nil {
		a.Logger.Warn("activity append error", "kind", kind, "error", err)
	}
}

func (a *AuthController) badRequest(ctx router.Context, err error) error {
	a.Logger.Error("failed to parse payload", "error", err)
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"message":   "failed to parse request body",
			"text_code": "BAD_REQUEST",
		},
	})
}

func (a *AuthController) validationFailed(ctx router.Context, err error) error {
	a.Logger.Debug("payload validation failed", "error", err)
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"message":   "validation failed",
			"text_code": "VALIDATION_FAILED",
			"fields":    FormatValidationErrorToMap(err),
		},
	})
}

// originFromContext captures client network facts for session/audit records.
func originFromContext(ctx router.Context) Origin {
	ip := ctx.GetString("X-Forwarded-For", "")
	if idx := strings.Index(ip, ","); idx > 0 {
		ip = strings.TrimSpace(ip[:idx])
	}
	if ip == "" {
		ip = ctx.GetString("X-Real-IP", "")
	}

	return Origin{
		IP:        ip,
		UserAgent: ctx.GetString("User-Agent", ""),
	}
}

// bearerToken pulls the raw token out of the Authorization header.
func bearerToken(ctx router.Context) string {
	header := ctx.GetString(router.HeaderAuthorization, "")
	if header == "" {
		return ""
	}

	const scheme = "Bearer"
	if len(header) > len(scheme)+1 && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}

	return ""
}

// FormatValidationErrorToMap flattens ozzo validation errors to field -> message.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if errs, ok := err.(validation.Errors); ok {
		for field, ferr := range errs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["_"] = err.Error()
	return out
}
