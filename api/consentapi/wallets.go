package consentapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

func registerWallets(r fiber.Router, wallets model.WalletStore, seeder Seeder) {
	type registerReq struct {
		WalletAddress string `json:"walletAddress"`
		DisplayName   string `json:"displayName"`
	}
	r.Post(
		"/wallets", func(c *fiber.Ctx) error {
			var req registerReq
			if err := c.BodyParser(&req); err != nil {
				return sendError(c, fiber.StatusBadRequest, "Invalid request", "could not parse request body")
			}
			req.DisplayName = strings.TrimSpace(req.DisplayName)
			if req.WalletAddress == "" || req.DisplayName == "" {
				return sendError(
					c, fiber.StatusBadRequest, "Missing required fields", "walletAddress and displayName are required",
				)
			}
			addr, err := chain.NormalizeAddress(req.WalletAddress)
			if err != nil {
				return invalidAddress(c, "walletAddress", err)
			}

			ctx := c.UserContext()
			w, created, err := wallets.Register(ctx, addr.Hex(), req.DisplayName)
			if err != nil {
				var exists model.AlreadyExistsError
				if errors.As(err, &exists) {
					return sendError(c, fiber.StatusConflict, "Duplicate entry", exists.Error())
				}
				return err
			}
			if !created {
				return c.Status(fiber.StatusConflict).JSON(
					fiber.Map{
						"error": "Wallet already registered",
						"cid":   w.CID,
					},
				)
			}
			if seeder != nil {
				if err = seeder.SeedStudent(ctx, w.CID); err != nil {
					log.WithError(err).WithField("cid", w.CID).Error("could not seed demo records")
				}
			}
			return c.Status(fiber.StatusCreated).JSON(
				fiber.Map{
					"success": true,
					"cid":     w.CID,
					"wallet":  w,
				},
			)
		},
	)

	r.Get(
		"/wallet/:address", func(c *fiber.Ctx) error {
			addr, ok, err := addressParam(c, "address")
			if !ok {
				return err
			}
			w, err := wallets.ByAddress(c.UserContext(), addr.Hex())
			if err != nil {
				var notFound model.NotFoundError
				if errors.As(err, &notFound) {
					return sendError(c, fiber.StatusNotFound, "Wallet not found", "No wallet with this address exists")
				}
				return err
			}
			return c.JSON(
				fiber.Map{
					"success": true,
					"wallet":  w,
				},
			)
		},
	)
}
