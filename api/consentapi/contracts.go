package consentapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

func registerContracts(r fiber.Router, c ChainReader, meta MetaStore) {
	abis := chain.RawABIs()
	r.Get(
		"/contracts/meta", func(ctx *fiber.Ctx) error {
			addrs := c.Addresses()
			updatedAt := time.Now()
			if meta != nil {
				changed, err := meta.SetIfChanged(
					ctx.UserContext(), model.KeyValueScopeContracts, model.KeyValueKeyAddresses, addrs,
				)
				if err != nil {
					log.WithError(err).Warn("could not track contract address changes")
				} else {
					updatedAt = changed
				}
			}
			return ctx.JSON(
				fiber.Map{
					"success":   true,
					"addresses": addrs,
					"abis":      abis,
					"updatedAt": updatedAt.UTC().Format(time.RFC3339),
				},
			)
		},
	)
}
