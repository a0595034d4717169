package consentapi

import (
	"math"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
	"github.com/WhitehatD/Student-Identity-Consent/consent"
)

type studentProfileResponse struct {
	Registered     bool   `json:"registered"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"displayName"`
	University     string `json:"university"`
	EnrollmentYear string `json:"enrollmentYear"`
	EmailHash      string `json:"emailHash"`
	ProfileCid     string `json:"profileCid"`
}

type requesterProfileResponse struct {
	Registered  bool   `json:"registered"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AppURI      string `json:"appUri"`
}

type consentDetailResponse struct {
	*consent.Record
	IsCurrentlyValid bool   `json:"isCurrentlyValid"`
	DataTypeName     string `json:"dataTypeName"`
}

func registerBlockchain(r fiber.Router, c ChainReader, consents ConsentService) {
	r.Get(
		"/student/:address", func(ctx *fiber.Ctx) error {
			addr, ok, err := addressParam(ctx, "address")
			if !ok {
				return err
			}
			isStudent, err := c.IsStudent(ctx.UserContext(), addr)
			if err != nil {
				return errors.Wrap(err, "could not check student registration")
			}
			if !isStudent {
				return sendError(
					ctx, fiber.StatusNotFound, "Not a student",
					"Address is not registered as a student on the blockchain",
				)
			}
			p, err := c.StudentProfile(ctx.UserContext(), addr)
			if err != nil {
				return errors.Wrap(err, "could not fetch student profile")
			}
			return ctx.JSON(
				fiber.Map{
					"success": true,
					"profile": studentProfileResponse{
						Registered:     p.Registered,
						Handle:         p.Handle,
						DisplayName:    p.DisplayName,
						University:     p.University,
						EnrollmentYear: strconv.FormatUint(uint64(p.EnrollmentYear), 10),
						EmailHash:      hexutil.Encode(p.EmailHash[:]),
						ProfileCid:     p.ProfileCid,
					},
				},
			)
		},
	)

	r.Get(
		"/student/:address/consents", func(ctx *fiber.Ctx) error {
			return ctx.JSON(
				fiber.Map{
					"success":  true,
					"consents": consents.ConsentLogs(ctx.UserContext(), ctx.Params("address")),
				},
			)
		},
	)

	r.Get(
		"/student/:address/balance", func(ctx *fiber.Ctx) error {
			addr, ok, err := addressParam(ctx, "address")
			if !ok {
				return err
			}
			balance, err := c.TokenBalance(ctx.UserContext(), addr)
			if err != nil {
				return errors.Wrap(err, "could not fetch token balance")
			}
			info, err := c.TokenInfo(ctx.UserContext())
			if err != nil {
				return errors.Wrap(err, "could not fetch token info")
			}
			return ctx.JSON(
				fiber.Map{
					"success":  true,
					"address":  addr.Hex(),
					"balance":  balance.String(),
					"symbol":   info.Symbol,
					"decimals": info.Decimals,
				},
			)
		},
	)

	r.Get(
		"/requester/:address", func(ctx *fiber.Ctx) error {
			addr, ok, err := addressParam(ctx, "address")
			if !ok {
				return err
			}
			isRequester, err := c.IsRequester(ctx.UserContext(), addr)
			if err != nil {
				return errors.Wrap(err, "could not check requester registration")
			}
			if !isRequester {
				return sendError(
					ctx, fiber.StatusNotFound, "Not a requester",
					"Address is not registered as a requester on the blockchain",
				)
			}
			p, err := c.RequesterProfile(ctx.UserContext(), addr)
			if err != nil {
				return errors.Wrap(err, "could not fetch requester profile")
			}
			return ctx.JSON(
				fiber.Map{
					"success": true,
					"profile": requesterProfileResponse{
						Registered:  p.Registered,
						Name:        p.Name,
						Description: p.Description,
						AppURI:      p.AppUri,
					},
				},
			)
		},
	)

	r.Get(
		"/role/:address", func(ctx *fiber.Ctx) error {
			addr, ok, err := addressParam(ctx, "address")
			if !ok {
				return err
			}
			role, err := c.Role(ctx.UserContext(), addr)
			if err != nil {
				return errors.Wrap(err, "could not fetch role")
			}
			return ctx.JSON(
				fiber.Map{
					"success":  true,
					"role":     uint8(role),
					"roleName": role.String(),
				},
			)
		},
	)

	r.Get(
		"/consent/:studentAddress/:requesterAddress/:dataType", func(ctx *fiber.Ctx) error {
			dt, err := consent.ParseDataType(ctx.Params("dataType"))
			if err != nil {
				return sendError(ctx, fiber.StatusBadRequest, "Invalid data type", consent.ErrInvalidDataType.Error())
			}
			owner, requester := ctx.Params("studentAddress"), ctx.Params("requesterAddress")
			record := consents.ConsentDetails(ctx.UserContext(), owner, requester, dt)
			if record == nil || !record.Exists {
				return sendError(
					ctx, fiber.StatusNotFound, "Consent not found", "No consent exists for this combination",
				)
			}
			return ctx.JSON(
				fiber.Map{
					"success": true,
					"consent": consentDetailResponse{
						Record:           record,
						IsCurrentlyValid: consents.HasValidConsent(ctx.UserContext(), owner, requester, dt),
						DataTypeName:     dt.Name(),
					},
				},
			)
		},
	)

	type checkReq struct {
		StudentAddress   string `json:"studentAddress"`
		RequesterAddress string `json:"requesterAddress"`
		DataTypes        []any  `json:"dataTypes"`
	}
	r.Post(
		"/check-consents", func(ctx *fiber.Ctx) error {
			var req checkReq
			if err := ctx.BodyParser(&req); err != nil {
				return sendError(ctx, fiber.StatusBadRequest, "Invalid request", "could not parse request body")
			}
			if req.StudentAddress == "" || req.RequesterAddress == "" || req.DataTypes == nil {
				return sendError(
					ctx, fiber.StatusBadRequest, "Invalid request",
					"studentAddress, requesterAddress, and dataTypes array are required",
				)
			}
			owner, err := chain.NormalizeAddress(req.StudentAddress)
			if err != nil {
				return invalidAddress(ctx, "studentAddress", err)
			}
			requester, err := chain.NormalizeAddress(req.RequesterAddress)
			if err != nil {
				return invalidAddress(ctx, "requesterAddress", err)
			}
			dataTypes, ok := parseDataTypes(req.DataTypes)
			if !ok {
				return sendError(ctx, fiber.StatusBadRequest, "Invalid data type", "All dataTypes must be 0, 1, or 2")
			}
			return ctx.JSON(
				fiber.Map{
					"success":          true,
					"studentAddress":   req.StudentAddress,
					"requesterAddress": req.RequesterAddress,
					"consents": consents.CheckMultipleConsents(
						ctx.UserContext(), owner.Hex(), requester.Hex(), dataTypes,
					),
				},
			)
		},
	)

	type emailHashReq struct {
		Email string `json:"email"`
	}
	r.Post(
		"/compute-email-hash", func(ctx *fiber.Ctx) error {
			var req emailHashReq
			if err := ctx.BodyParser(&req); err != nil {
				return sendError(ctx, fiber.StatusBadRequest, "Invalid request", "could not parse request body")
			}
			email := strings.TrimSpace(req.Email)
			if email == "" {
				return sendError(ctx, fiber.StatusBadRequest, "Missing required fields", "email is required")
			}
			hash, err := c.ComputeEmailHash(ctx.UserContext(), email)
			if err != nil {
				return errors.Wrap(err, "could not compute email hash")
			}
			return ctx.JSON(
				fiber.Map{
					"success":   true,
					"emailHash": hash.Hex(),
				},
			)
		},
	)
}

// parseDataTypes accepts JSON numbers that are whole and in the range of the
// known data types
func parseDataTypes(raw []any) ([]consent.DataType, bool) {
	dataTypes := make([]consent.DataType, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) || f < 0 || f > math.MaxUint8 {
			return nil, false
		}
		dt, err := consent.DataTypeFromInt(int(f))
		if err != nil {
			return nil, false
		}
		dataTypes = append(dataTypes, dt)
	}
	return dataTypes, true
}
