package consentapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
	"github.com/WhitehatD/Student-Identity-Consent/consent"
	"github.com/WhitehatD/Student-Identity-Consent/gateway"
)

func registerStudentData(r fiber.Router, students StudentDataSource) {
	r.Get(
		"/data-types", func(c *fiber.Ctx) error {
			return c.JSON(
				fiber.Map{
					"success":   true,
					"dataTypes": consent.DataTypeCatalog(),
				},
			)
		},
	)

	r.Get(
		"/student-data/:cid", func(c *fiber.Ctx) error {
			requester := c.Get(HeaderRequesterAddress)
			if requester == "" {
				return unauthorized(c)
			}
			requesterAddr, err := chain.NormalizeAddress(requester)
			if err != nil {
				return invalidAddress(c, HeaderRequesterAddress, err)
			}
			data, err := students.StudentData(c.UserContext(), c.Params("cid"), requesterAddr.Hex())
			if err != nil {
				switch {
				case errors.Is(err, gateway.ErrUnauthorized):
					return unauthorized(c)
				case errors.Is(err, gateway.ErrStudentNotFound):
					return sendError(c, fiber.StatusNotFound, "Student not found", "No student with this CID exists")
				default:
					return err
				}
			}
			return c.JSON(
				fiber.Map{
					"success":        true,
					"studentAddress": data.StudentAddress,
					"data":           data.Data,
					"consents":       data.Consents,
				},
			)
		},
	)
}

func unauthorized(c *fiber.Ctx) error {
	return sendError(
		c, fiber.StatusUnauthorized, "Unauthorized",
		"Requester address is required in headers ("+HeaderRequesterAddress+")",
	)
}
