package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/shared"
)

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RequestMagicLink godoc
// @Summary Request a magic sign-in link
// @Description Always reports sent; outside production the token is included for local clients.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.MagicLinkRequest true "Email"
// @Success 200 {object} shared.Response{data=dto.MagicLinkResponse}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /api/v1/auth/magic_link [post]
func (h *AuthHandler) RequestMagicLink(c *fiber.Ctx) error {
	var req dto.MagicLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	resp, err := h.auth.RequestMagicLink(&req)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, resp)
}

type redeemRequest struct {
	Token string `json:"token"`
}

// RedeemMagicLink godoc
// @Summary Exchange a magic-link token for an access token
// @Description Creates the user on first sign-in.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body handlers.redeemRequest true "Link token"
// @Success 200 {object} shared.Response{data=dto.TokenPair}
// @Failure 401 {object} shared.Response
// @Router /api/v1/auth/magic_link/redeem [post]
func (h *AuthHandler) RedeemMagicLink(c *fiber.Ctx) error {
	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "invalid request body")
	}
	if req.Token == "" {
		return shared.NewBadRequestError(nil, "token is required")
	}

	pair, err := h.auth.RedeemMagicLink(req.Token)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, pair)
}
