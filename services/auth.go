package services

import (
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/model"
	"github.com/skilltrail/academy_api/shared"
)

// AuthService verifies bearer tokens, runs the magic-link flow and decides
// admin status from the ADMIN_EMAILS allowlist.
type AuthService struct {
	context.DefaultService

	jwtSvc *JWTService
	db     *PostgresService
	events *EventLogService

	adminEmails map[string]bool
	adminOpen   bool
	appEnv      string
}

const AUTH_SVC = "auth_svc"

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Configure(ctx *context.Context) error {
	svc.adminEmails = make(map[string]bool)
	for _, email := range strings.Split(os.Getenv("ADMIN_EMAILS"), ",") {
		email = strings.TrimSpace(strings.ToLower(email))
		if email != "" {
			svc.adminEmails[email] = true
		}
	}
	svc.adminOpen = os.Getenv("ADMIN_OPEN") == "true"
	svc.appEnv = os.Getenv("APP_ENV")

	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthService) Start() error {
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.db = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.events = svc.Service(EVENT_LOG_SVC).(*EventLogService)

	if svc.adminOpen {
		log.Warn("ADMIN_OPEN is set: every authenticated user is an admin")
	}
	return nil
}

// IsAdmin consults the allowlist; ADMIN_OPEN short-circuits it for local dev.
func (svc *AuthService) IsAdmin(email string) bool {
	if svc.adminOpen {
		return true
	}
	return svc.adminEmails[strings.ToLower(email)]
}

// RequestMagicLink issues a short-lived sign-in token for the email. The
// token is returned in the response outside production so local clients can
// complete the flow without an email provider.
func (svc *AuthService) RequestMagicLink(req *dto.MagicLinkRequest) (*dto.MagicLinkResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	token, err := svc.jwtSvc.GenerateMagicLinkToken(email, req.FullName)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to issue magic link")
	}

	err = svc.events.Append(svc.db.Db(), shared.TopicMagicLinkIssued, nil, fiber.Map{
		"email": email,
	}, time.Now().UTC())
	if err != nil {
		log.WithError(err).Warn("failed to record magic link event")
	}

	resp := &dto.MagicLinkResponse{Sent: true}
	if svc.appEnv != "production" {
		resp.Token = token
	}
	return resp, nil
}

// RedeemMagicLink exchanges a valid link token for an access token, creating
// the user on first sign-in.
func (svc *AuthService) RedeemMagicLink(linkToken string) (*dto.TokenPair, error) {
	email, fullName, err := svc.jwtSvc.VerifyMagicLinkToken(linkToken)
	if err != nil {
		return nil, shared.NewUnauthorizedError(err, "invalid or expired magic link")
	}

	user, err := svc.db.GetUserByEmail(email)
	if err != nil {
		user, err = svc.createUser(email, fullName)
		if err != nil {
			return nil, shared.NewInternalError(err, "failed to create user")
		}
	}

	access, expiresIn, err := svc.jwtSvc.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to sign access token")
	}
	return &dto.TokenPair{AccessToken: access, ExpiresIn: expiresIn}, nil
}

func (svc *AuthService) createUser(email, fullName string) (*model.User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	user := &model.User{ID: id.String(), Email: email, FullName: fullName}
	if err := svc.db.Db().Create(user).Error; err != nil {
		// Lost a create race; the other writer's row wins.
		if existing, lookupErr := svc.db.GetUserByEmail(email); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}

	err = svc.events.Append(svc.db.Db(), shared.TopicUserCreated, &user.ID, fiber.Map{
		"email": email,
	}, time.Now().UTC())
	if err != nil {
		log.WithError(err).Warn("failed to record user created event")
	}
	return user, nil
}

// ==================== FIBER MIDDLEWARE ====================

// RequiredAuth rejects requests without a valid bearer token.
func (svc *AuthService) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := svc.identityFromHeader(c)
		if err != nil {
			return shared.ResponseJSON(c, fiber.StatusUnauthorized, "Unauthorized", nil)
		}
		svc.storeIdentity(c, identity)
		return c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and lets
// anonymous requests through untouched.
func (svc *AuthService) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if identity, err := svc.identityFromHeader(c); err == nil {
			svc.storeIdentity(c, identity)
		}
		return c.Next()
	}
}

// RequireAdmin must run after RequiredAuth.
func (svc *AuthService) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, _ := c.Locals(shared.IsAdmin).(bool)
		if !isAdmin {
			return shared.ResponseJSON(c, fiber.StatusForbidden, "Forbidden", nil)
		}
		return c.Next()
	}
}

func (svc *AuthService) identityFromHeader(c *fiber.Ctx) (*dto.Identity, error) {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, fiber.ErrUnauthorized
	}

	identity, err := svc.jwtSvc.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}
	identity.IsAdmin = svc.IsAdmin(identity.Email)
	return identity, nil
}

func (svc *AuthService) storeIdentity(c *fiber.Ctx, identity *dto.Identity) {
	c.Locals(shared.UserID, identity.UserID)
	c.Locals(shared.UserEmail, identity.Email)
	c.Locals(shared.IsAdmin, identity.IsAdmin)
}
