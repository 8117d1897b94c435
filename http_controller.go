package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// AuthController exposes the JSON API surface over the auth core.
type AuthController struct {
	Debug  bool
	Logger Logger
	Auther *Auther
	Config Config
	Routes *AuthControllerRoutes
}

type AuthControllerRoutes struct {
	SignUp     string
	SignIn     string
	SignOutAll string
	Password   string
	Me         string
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			SignUp:     "/auth/signup",
			SignIn:     "/auth/signin",
			SignOutAll: "/auth/signout-all",
			Password:   "/auth/password",
			Me:         "/auth/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	return c
}

func WithAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// RegisterAuthRoutes mounts the auth endpoints on the app.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.SignUp, controller.SignUpPost)
	app.Post(controller.Routes.SignIn, controller.SignInPost)

	protected := controller.Protected()
	app.Post(controller.Routes.SignOutAll, protected, controller.SignOutEverywhere)
	app.Put(controller.Routes.Password, protected, controller.PasswordChange)
	app.Get(controller.Routes.Me, protected, controller.Me)

	return controller
}

func (a *AuthController) SignUpPost(c *fiber.Ctx) error {
	payload := SignUpPayload{}

	if err := c.BodyParser(&payload); err != nil {
		a.Logger.Error("sign-up parse payload: %v", err)
		return a.respondError(c, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if a.Debug {
		fmt.Println("======= AUTH SIGNUP ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("==========================")
	}

	account, err := a.Auther.SignUp(c.UserContext(), payload)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":            account.ID,
		"name":          account.Name,
		"email":         account.Email,
		"phone":         account.Phone,
		"image":         account.Image,
		"token_version": account.TokenVersion,
	})
}

func (a *AuthController) SignInPost(c *fiber.Ctx) error {
	payload := SignInPayload{}

	if err := c.BodyParser(&payload); err != nil {
		a.Logger.Error("sign-in parse payload: %v", err)
		return a.respondError(c, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	token, identity, err := a.Auther.SignIn(c.UserContext(), payload)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"identity": fiber.Map{
			"id":    identity.ID(),
			"name":  identity.Name(),
			"email": identity.Email(),
		},
	})
}

func (a *AuthController) SignOutEverywhere(c *fiber.Ctx) error {
	identity, ok := IdentityFromFiber(c, a.Config.GetContextKey())
	if !ok {
		return a.respondError(c, ErrTokenMalformed)
	}

	version, err := a.Auther.RevokeAll(c.UserContext(), identity.ID())
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"revoked":       true,
		"token_version": version,
	})
}

// PasswordChangePayload is the change-password request body.
type PasswordChangePayload struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

func (a *AuthController) PasswordChange(c *fiber.Ctx) error {
	identity, ok := IdentityFromFiber(c, a.Config.GetContextKey())
	if !ok {
		return a.respondError(c, ErrTokenMalformed)
	}

	payload := PasswordChangePayload{}
	if err := c.BodyParser(&payload); err != nil {
		a.Logger.Error("password change parse payload: %v", err)
		return a.respondError(c, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	err := a.Auther.ChangePassword(c.UserContext(), identity.ID(), payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{"changed": true})
}

func (a *AuthController) Me(c *fiber.Ctx) error {
	identity, ok := IdentityFromFiber(c, a.Config.GetContextKey())
	if !ok {
		return a.respondError(c, ErrTokenMalformed)
	}

	return c.JSON(fiber.Map{
		"id":    identity.ID(),
		"name":  identity.Name(),
		"email": identity.Email(),
		"phone": identity.Phone(),
	})
}

// Protected returns middleware that runs the full token verification —
// signature, expiry, counter freshness — on every request. The freshness
// check reads the account store once per request; that is the standing
// cost of stateless revocation.
func (a *AuthController) Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := tokenFromRequest(c, a.Config)
		if err != nil {
			return a.respondError(c, err)
		}

		identity, err := a.Auther.Verify(c.UserContext(), raw)
		if err != nil {
			return a.respondError(c, err)
		}

		key := a.Config.GetContextKey()
		if key == "" {
			key = "identity"
		}
		c.Locals(key, identity)
		c.SetUserContext(WithIdentity(c.UserContext(), identity))

		return c.Next()
	}
}

// tokenFromRequest extracts the raw token per the configured lookup,
// e.g. "header:Authorization" with auth scheme "Bearer".
func tokenFromRequest(c *fiber.Ctx, cfg Config) (string, error) {
	lookup := cfg.GetTokenLookup()
	if lookup == "" {
		lookup = "header:Authorization"
	}

	source, name, found := strings.Cut(lookup, ":")
	if !found {
		name = "Authorization"
		source = "header"
	}

	var raw string
	switch source {
	case "header":
		raw = c.Get(name)
		scheme := cfg.GetAuthScheme()
		if scheme == "" {
			scheme = "Bearer"
		}
		if raw != "" {
			if !strings.HasPrefix(raw, scheme+" ") {
				return "", ErrTokenMalformed
			}
			raw = strings.TrimPrefix(raw, scheme+" ")
		}
	case "query":
		raw = c.Query(name)
	case "cookie":
		raw = c.Cookies(name)
	}

	if raw == "" {
		return "", ErrTokenMalformed.Clone().WithMetadata(map[string]any{
			"reason": "missing or malformed JWT",
		})
	}

	return raw, nil
}

func (a *AuthController) respondError(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := statusFromError(richErr)

	body := fiber.Map{
		"error": fiber.Map{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
			"category":  string(richErr.Category),
		},
	}

	if richErr.Category == errors.CategoryValidation && len(richErr.Metadata) > 0 {
		body["error"].(fiber.Map)["fields"] = richErr.Metadata
	}

	if status >= fiber.StatusInternalServerError {
		a.Logger.Error("auth controller error [%s]: %s %s",
			richErr.Category,
			richErr.Message,
			print.MaybePrettyJSON(richErr.Metadata),
		)
		// Never leak internals to the client.
		body["error"].(fiber.Map)["message"] = "internal server error"
	}

	return c.Status(status).JSON(body)
}

func statusFromError(richErr *errors.Error) int {
	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return fiber.StatusBadRequest
	case errors.CategoryAuth, errors.CategoryAuthz:
		return fiber.StatusUnauthorized
	case errors.CategoryConflict:
		return fiber.StatusConflict
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	case errors.CategoryExternal:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
