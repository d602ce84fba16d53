package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/shared"
)

type CertificateHandler struct {
	certificates CertificateIssuer
}

func NewCertificateHandler(certificates CertificateIssuer) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// IssueCertificate godoc
// @Summary Issue or refresh the caller's certificate for a course
// @Description Requires every module finished. Re-issuing rotates the serial; reissue=true restamps the issue time unless keep_issued_at=true.
// @Tags certificates
// @Produce json
// @Param courseId path string true "Course id"
// @Param reissue query bool false "Restamp issue time and take the submitted name"
// @Param keep_issued_at query bool false "Keep the original issue time on reissue"
// @Param full_name query string false "Holder name printed on the certificate"
// @Success 200 {object} shared.Response{data=dto.CertificateResponse}
// @Failure 404 {object} shared.Response
// @Failure 409 {object} shared.Response
// @Router /api/v1/certificates/{courseId}/issue [post]
// @Security BearerAuth
func (h *CertificateHandler) IssueCertificate(c *fiber.Ctx) error {
	userID, _ := c.Locals(shared.UserID).(string)

	opts := &dto.IssueCertificateOptions{
		FullName:     c.Query("full_name"),
		Reissue:      c.QueryBool("reissue"),
		KeepIssuedAt: c.QueryBool("keep_issued_at"),
	}

	cert, err := h.certificates.Issue(userID, c.Params("courseId"), opts)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, cert)
}

// ListMyCertificates godoc
// @Summary List the caller's certificates
// @Tags certificates
// @Produce json
// @Success 200 {object} shared.Response{data=[]dto.CertificateResponse}
// @Router /api/v1/me/certificates [get]
// @Security BearerAuth
func (h *CertificateHandler) ListMyCertificates(c *fiber.Ctx) error {
	userID, _ := c.Locals(shared.UserID).(string)

	certs, err := h.certificates.ListForUser(userID)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, certs)
}

// VerifyBySerial godoc
// @Summary Publicly verify a certificate by serial
// @Tags certificates
// @Produce json
// @Param serial path string true "Certificate serial"
// @Success 200 {object} shared.Response{data=dto.CertificateVerifyResponse}
// @Failure 404 {object} shared.Response
// @Router /api/v1/certificates/verify/{serial} [get]
func (h *CertificateHandler) VerifyBySerial(c *fiber.Ctx) error {
	result, err := h.certificates.VerifyBySerial(c.Params("serial"))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, result)
}

// VerifyByHash godoc
// @Summary Publicly verify a certificate by integrity hash
// @Tags certificates
// @Produce json
// @Param hash query string true "Certificate hash"
// @Success 200 {object} shared.Response{data=dto.CertificateVerifyResponse}
// @Failure 404 {object} shared.Response
// @Router /api/v1/certificates/verify [get]
func (h *CertificateHandler) VerifyByHash(c *fiber.Ctx) error {
	hash := c.Query("hash")
	if hash == "" {
		return shared.NewBadRequestError(nil, "hash is required")
	}

	result, err := h.certificates.VerifyByHash(hash)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, result)
}
