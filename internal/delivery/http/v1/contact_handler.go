package v1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"contact-relay-backend/internal/delivery/http/middleware"
	"contact-relay-backend/internal/delivery/http/response"
	"contact-relay-backend/internal/domain"
	"contact-relay-backend/pkg/apperror"
	"contact-relay-backend/pkg/email"

	"github.com/gin-gonic/gin"
)

// Client-facing messages. Causes are never included in production responses.
const (
	MsgSent               = "Email sent successfully! I will get back to you soon."
	MsgInvalidBody        = "Invalid request body"
	MsgBodyTooLarge       = "Request body too large"
	MsgRateLimited        = "Too many requests. Please try again later."
	MsgConfigurationError = "Server configuration error. Please try again later."
	MsgAuthError          = "Email service authentication error. Please try again later."
	MsgUnavailable        = "Email service is temporarily unavailable. Please try again later."
	MsgSendFailed         = "Failed to send email. Please try again later."
)

type ContactHandler struct {
	contactUC domain.ContactUsecase
}

// NewContactHandler registers the contact route (public, no auth required)
func NewContactHandler(api *gin.RouterGroup, contactUC domain.ContactUsecase) {
	handler := &ContactHandler{
		contactUC: contactUC,
	}

	api.POST("/send-email", handler.SendEmail)
}

// SendEmail godoc
// @Summary      Submit Contact Form
// @Description  Validates a contact submission, applies the per-client rate limit and relays it to the site owner by email.
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        contact  body      domain.ContactRequest  true  "Contact Form Data"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /send-email [post]
func (h *ContactHandler) SendEmail(c *gin.Context) {
	req, err := decodeContactRequest(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(apperror.New(http.StatusRequestEntityTooLarge, MsgBodyTooLarge, err))
			return
		}
		c.Error(apperror.New(http.StatusBadRequest, MsgInvalidBody, err))
		return
	}

	if err := h.contactUC.Submit(c.Request.Context(), middleware.ClientIDFrom(c), req); err != nil {
		c.Error(toAppError(err))
		return
	}

	response.Success(c, http.StatusOK, MsgSent, nil)
}

var errNotObject = errors.New("request body must be a single JSON object")

// decodeContactRequest accepts exactly one JSON object. null, other JSON
// values and trailing data after the object are rejected.
func decodeContactRequest(body io.Reader) (*domain.ContactRequest, error) {
	if body == nil {
		return nil, errNotObject
	}
	dec := json.NewDecoder(body)

	var req *domain.ContactRequest
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errNotObject
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, errNotObject
	}
	return req, nil
}

// toAppError maps a Submit failure onto its status code and generic message.
func toAppError(err error) *apperror.AppError {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return apperror.BadRequest(verr.Reason)
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return apperror.TooManyRequests(MsgRateLimited)
	}

	switch email.Classify(err) {
	case email.KindConfiguration:
		return apperror.New(http.StatusInternalServerError, MsgConfigurationError, err)
	case email.KindAuth:
		return apperror.New(http.StatusInternalServerError, MsgAuthError, err)
	case email.KindTransport, email.KindTimeout:
		return apperror.ServiceUnavailable(MsgUnavailable, err)
	default:
		return apperror.New(http.StatusInternalServerError, MsgSendFailed, err)
	}
}
