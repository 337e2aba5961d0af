package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	docs "github.com/alexxvives/akademo_api/docs"
	"github.com/alexxvives/akademo_api/services/handlers"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog/log"
)

type HttpService struct {
	context.DefaultService

	authSvc       *AuthMiddleware
	rateLimitSvc  *RateLimitService
	monitoringSvc *MonitoringService
	sessionSvc    *SessionService
	playStateSvc  *PlayStateService

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

// Router groups what NewApp needs to serve the API
type Router struct {
	Auth       *AuthMiddleware
	RateLimit  *RateLimitService
	Monitoring *MonitoringService
	Sessions   handlers.SessionServiceInterface
	PlayStates handlers.PlayStateServiceInterface
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	svc.port = shared.GetEnvInt("HTTP_PORT", 8000)

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.authSvc = svc.Service(AUTH_MIDDLEWARE_SVC).(*AuthMiddleware)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	svc.monitoringSvc = svc.Service(MONITORING_SVC).(*MonitoringService)
	svc.sessionSvc = svc.Service(SESSION_SVC).(*SessionService)
	svc.playStateSvc = svc.Service(PLAY_STATE_SVC).(*PlayStateService)

	docs.SwaggerInfo.BasePath = ""

	svc.server = NewApp(Router{
		Auth:       svc.authSvc,
		RateLimit:  svc.rateLimitSvc,
		Monitoring: svc.monitoringSvc,
		Sessions:   svc.sessionSvc,
		PlayStates: svc.playStateSvc,
	})

	log.Info().Int("port", svc.port).Msg("HTTP server listening")
	return svc.server.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

// NewApp builds the fiber application with every route mounted
func NewApp(r Router) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "akademo_api",
		ErrorHandler: HandleError,
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
	})

	app.Use(recover.New())
	if os.Getenv("LOG_LEVEL") == "TRACE" {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: shared.GetEnv("CORS_ALLOW_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if r.Monitoring != nil {
		app.Use(MonitoringMiddleware(r.Monitoring))
	}
	if r.RateLimit != nil {
		app.Use(r.RateLimit.IPRateLimit())
	}

	//Validation endpoints
	app.Get("/ping", ping)
	app.Get("/swagger/*", swagger.HandlerDefault)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", ping)

	sessionHandler := handlers.NewSessionHandler(r.Sessions)
	playStateHandler := handlers.NewPlayStateHandler(r.PlayStates)
	adminHandler := handlers.NewAdminHandler(r.PlayStates)

	authed := v1.Group("", r.Auth.RequiredAuth(), r.Auth.ResolveDevice())

	session := authed.Group("/session", rateLimit(r.RateLimit, EndpointSessionCheck))
	session.Post("/check-in", sessionHandler.CheckIn)
	session.Get("/validate", sessionHandler.Validate)

	playState := authed.Group("/videos/:videoId/play-state", r.Auth.DeviceGuard())
	playState.Get("", playStateHandler.GetPlayState)
	playState.Post("/tick", rateLimit(r.RateLimit, EndpointProgressTick), playStateHandler.Tick)

	admin := authed.Group("/admin", r.Auth.RequireRole(shared.RoleTeacher, shared.RoleAcademy, shared.RoleAdmin))
	admin.Post("/videos/:videoId/play-state/:studentId/reset", adminHandler.ResetPlayState)
	admin.Get("/videos/:videoId/play-states", adminHandler.ListPlayStates)

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseNotFound(c)
	})

	return app
}

func rateLimit(svc *RateLimitService, endpointType string) fiber.Handler {
	if svc == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return svc.UserBasedRateLimit(endpointType)
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func ping(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=10")

	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}

// HandleError renders errors returned by handlers in the response envelope
func HandleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		}
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled request error")
	return shared.ResponseInternalError(c, err)
}
