// Package router builds the echo instance: global middleware, handler
// wiring and every route of the helpdesk.
package router

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/apprentice-helpdesk/internal/config"
	"github.com/iliyamo/apprentice-helpdesk/internal/flash"
	"github.com/iliyamo/apprentice-helpdesk/internal/handler"
	"github.com/iliyamo/apprentice-helpdesk/internal/mail"
	"github.com/iliyamo/apprentice-helpdesk/internal/middleware"
	"github.com/iliyamo/apprentice-helpdesk/internal/queue"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
	"github.com/iliyamo/apprentice-helpdesk/internal/service"
	"github.com/iliyamo/apprentice-helpdesk/internal/utils"
)

// App is everything the router needs from main.  Redis and Publisher may
// be nil; Mailer defaults to the sender chosen by mail.New.
type App struct {
	Config    config.Config
	RateLimit config.RateLimitConfig
	DB        *sql.DB
	Redis     *redis.Client
	Publisher queue.Publisher
	Mailer    mail.Sender
	Codec     *utils.TokenCodec
	Logger    *slog.Logger
}

// New returns a fully configured echo instance.
func New(app App) (*echo.Echo, error) {
	cfg := app.Config
	logger := app.Logger
	codec := app.Codec
	if codec == nil {
		codec = utils.NewTokenCodec(cfg.Secret)
	}
	mailer := app.Mailer
	if mailer == nil {
		mailer = mail.New(cfg.Mail, logger)
	}

	users := repository.NewUserRepo(app.DB)
	tickets := repository.NewTicketRepo(app.DB)
	fl := flash.NewStore(cfg.Secret, cfg.IsProd())

	h, err := handler.New(handler.Deps{
		Users:   users,
		Tickets: tickets,
		Auth:    service.NewAuthService(users, cfg.BcryptCost),
		Reset: &service.ResetService{
			Users:      users,
			Tokens:     codec,
			Mailer:     mailer,
			BcryptCost: cfg.BcryptCost,
			Logger:     logger,
		},
		Sessions:  middleware.SessionCookies{Codec: codec, TTL: cfg.SessionTTL, Secure: cfg.IsProd()},
		Flash:     fl,
		Publisher: app.Publisher,
		BaseURL:   cfg.BaseURL,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = h.Renderer
	e.HTTPErrorHandler = h.Errors

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger))
	e.Use(echomw.Recover())
	if cfg.CSRF {
		e.Use(echomw.CSRFWithConfig(echomw.CSRFConfig{
			TokenLookup:    "form:_csrf",
			CookieName:     "_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   cfg.IsProd(),
			CookieSameSite: http.SameSiteLaxMode,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/healthz" || c.Path() == "/api/tickets"
			},
		}))
	}
	e.Use(middleware.Session(codec))

	limiter := middleware.NewTokenBucket(app.RateLimit, app.Redis, logger)
	routes := routeSet{
		h:           h,
		login:       middleware.RequireLogin(users, fl, logger),
		loginJSON:   middleware.RequireLoginJSON(users, logger),
		adminForbid: middleware.RequireAdmin(users, fl, middleware.AbortForbidden, logger),
		adminUI:     middleware.RequireAdmin(users, fl, middleware.RedirectHome, logger),
		limiter:     limiter,
	}

	e.GET("/healthz", handler.Health(app.DB))
	routes.registerAccount(e)
	routes.registerTickets(e)
	routes.registerAdmin(e)
	routes.registerAPI(e)
	return e, nil
}

type routeSet struct {
	h           *handler.Handlers
	login       echo.MiddlewareFunc
	loginJSON   echo.MiddlewareFunc
	adminForbid echo.MiddlewareFunc // 403 for non-admins
	adminUI     echo.MiddlewareFunc // redirect home for non-admins
	limiter     echo.MiddlewareFunc
}

// requestLogger writes one slog record per request.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}
