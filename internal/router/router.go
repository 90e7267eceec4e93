package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"authgate/internal/auth"
	"authgate/internal/config"
	"authgate/internal/handler"
)

// adminIDKey is the echo context key the admin guard stores the
// authenticated admin's id under.
const adminIDKey = "adminID"

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	adminHandler *handler.AdminHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/auth")

	// Public routes
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)
	api.POST("/forgot-password", authHandler.ForgotPassword)
	api.POST("/reset-password", authHandler.ResetPassword)
	api.POST("/admin/setup", adminHandler.Setup)
	api.POST("/admin/login", adminHandler.Login)

	// Admin routes: token must verify and carry the admin identity claim.
	guarded := api.Group("/admin", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
		// Absent, malformed, expired and forged tokens are all the same
		// authentication failure to the caller.
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "authorization token missing or invalid")
		},
	}), AdminOnly)

	guarded.POST("/approve", adminHandler.Approve)
	guarded.POST("/disapprove", adminHandler.Disapprove)
	guarded.DELETE("/delete-user/:id", adminHandler.DeleteUser)
	guarded.GET("/all-users", adminHandler.ListUsers)
}

// AdminOnly requires the verified token to carry the admin identity
// claim. A valid user token gets 403, not 401: the bearer is
// authenticated but not an administrator. Runs after the JWT middleware
// has verified signature and expiry.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authorization token missing or malformed")
		}
		claims, ok := token.Claims.(*auth.Claims)
		if !ok || claims.AdminID == 0 {
			return echo.NewHTTPError(http.StatusForbidden, "access denied: not an admin token")
		}
		c.Set(adminIDKey, claims.AdminID)
		return next(c)
	}
}

// AdminID returns the admin id the guard extracted for this request.
func AdminID(c echo.Context) (uint, bool) {
	id, ok := c.Get(adminIDKey).(uint)
	return id, ok
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
