package educonsent

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const genericErrorMessage = "Something went wrong"

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorHandler returns the fiber.ErrorHandler of the server. A *fiber.Error
// keeps its status; anything else is logged and answered with a 500 whose
// message is only revealed if expose is set.
func errorHandler(expose bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(
				errorResponse{
					Error:   utils.StatusMessage(fe.Code),
					Message: fe.Message,
				},
			)
		}
		log.WithError(err).WithFields(
			log.Fields{
				"method":     c.Method(),
				"path":       c.Path(),
				"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
			},
		).Error("unhandled error")
		msg := genericErrorMessage
		if expose {
			msg = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(
			errorResponse{
				Error:   "Internal server error",
				Message: msg,
			},
		)
	}
}
