package services

import (
	"net/http"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type AuthMiddleware struct {
	context.DefaultService

	jwtSvc     *JWTService
	sessionSvc *SessionService
}

const AUTH_MIDDLEWARE_SVC = "auth"

func (svc AuthMiddleware) Id() string {
	return AUTH_MIDDLEWARE_SVC
}

func NewAuthMiddleware(jwtSvc *JWTService, sessionSvc *SessionService) *AuthMiddleware {
	return &AuthMiddleware{jwtSvc: jwtSvc, sessionSvc: sessionSvc}
}

func (svc *AuthMiddleware) Configure(ctx *context.Context) error {
	svc.jwtSvc = ctx.Service(JWT_SVC).(*JWTService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthMiddleware) Start() error {
	svc.sessionSvc = svc.Service(SESSION_SVC).(*SessionService)
	return nil
}

// RequiredAuth verifies the bearer token and stores the caller's id and role
func (svc *AuthMiddleware) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := svc.jwtSvc.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", err.Error())
		}

		identity, err := svc.jwtSvc.VerifyJWTToken(token)
		if err != nil {
			log.WithError(err).Debug("Rejected access token")
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", "Invalid JWT token")
		}

		c.Locals(shared.UserID, identity.UserID)
		c.Locals(shared.UserRole, identity.Role)
		return c.Next()
	}
}

// RequireRole lets the request through only for the listed roles
func (svc *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[shared.NormalizeRole(role)] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(shared.UserRole).(string)
		if _, ok := allowed[role]; !ok {
			return shared.ResponseForbidden(c)
		}
		return c.Next()
	}
}

// ResolveDevice fingerprints the request and stores it in locals
func (svc *AuthMiddleware) ResolveDevice() fiber.Handler {
	return func(c *fiber.Ctx) error {
		device := svc.sessionSvc.ResolveDevice(c.Get(fiber.HeaderUserAgent), GetClientIP(c))
		c.Locals(shared.DeviceInfo, device)
		c.Locals(shared.Fingerprint, device.Fingerprint)
		return c.Next()
	}
}

// DeviceGuard rejects students whose device is no longer the active one.
// Must run after RequiredAuth and ResolveDevice.
func (svc *AuthMiddleware) DeviceGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := shared.CallerIdentity(c)
		if !shared.IsExclusivityEnforced(caller.Role) {
			return c.Next()
		}

		device := shared.CallerDevice(c)
		valid, err := svc.sessionSvc.IsCurrentDeviceValid(c.UserContext(), caller.UserID, device.Fingerprint)
		if err != nil {
			log.WithError(err).WithField("user_id", caller.UserID).Warn("Device check failed, rejecting request")
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Session could not be verified", nil)
		}
		if !valid {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Session terminated", dto.SessionValidityResponse{
				Valid:       false,
				Fingerprint: device.Fingerprint,
				Message:     msgSessionTerminated,
			})
		}
		return c.Next()
	}
}
