package consentapi

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
	"github.com/WhitehatD/Student-Identity-Consent/consent"
	"github.com/WhitehatD/Student-Identity-Consent/gateway"
	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

// HeaderRequesterAddress carries the address of the requester asking for
// student data
const HeaderRequesterAddress = "X-Requester-Address"

// Endpoints lists the routes mounted by Register, relative to the router
var Endpoints = []string{
	"GET /contracts/meta",
	"POST /wallets",
	"GET /student-data/:cid",
	"GET /data-types",
	"GET /wallet/:address",
	"GET /blockchain/student/:address",
	"GET /blockchain/student/:address/consents",
	"GET /blockchain/student/:address/balance",
	"GET /blockchain/requester/:address",
	"GET /blockchain/role/:address",
	"GET /blockchain/consent/:studentAddress/:requesterAddress/:dataType",
	"POST /blockchain/check-consents",
	"POST /blockchain/compute-email-hash",
}

// ConsentService answers consent questions; it is implemented by
// *consent.Service
type ConsentService interface {
	HasValidConsent(ctx context.Context, owner, requester string, dt consent.DataType) bool
	ConsentDetails(ctx context.Context, owner, requester string, dt consent.DataType) *consent.Record
	CheckMultipleConsents(
		ctx context.Context, owner, requester string, dataTypes []consent.DataType,
	) map[consent.DataType]bool
	ConsentLogs(ctx context.Context, owner string) []consent.LogEntry
}

// ChainReader gives access to the on-chain identity and token data; it is
// implemented by *chain.Client
type ChainReader interface {
	Addresses() chain.Addresses
	IsStudent(ctx context.Context, addr common.Address) (bool, error)
	IsRequester(ctx context.Context, addr common.Address) (bool, error)
	StudentProfile(ctx context.Context, addr common.Address) (*chain.StudentProfile, error)
	RequesterProfile(ctx context.Context, addr common.Address) (*chain.RequesterProfile, error)
	Role(ctx context.Context, addr common.Address) (chain.Role, error)
	ComputeEmailHash(ctx context.Context, email string) (common.Hash, error)
	TokenBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	TokenInfo(ctx context.Context) (*chain.TokenInfo, error)
}

// StudentDataSource assembles consent-gated student data; it is implemented
// by *gateway.Gateway
type StudentDataSource interface {
	StudentData(ctx context.Context, cid, requester string) (*gateway.StudentData, error)
}

// Seeder creates demo records for a newly registered wallet
type Seeder interface {
	SeedStudent(ctx context.Context, cid string) error
}

// MetaStore remembers when the published contract addresses last changed
type MetaStore interface {
	SetIfChanged(ctx context.Context, scope, key string, v any) (time.Time, error)
}

// Deps are the collaborators of the consent API. Seeder and Meta are
// optional.
type Deps struct {
	Wallets  model.WalletStore
	Students StudentDataSource
	Consents ConsentService
	Chain    ChainReader
	Seeder   Seeder
	Meta     MetaStore
}

// Register mounts all consent API routes under the provided router
func Register(r fiber.Router, deps Deps) {
	registerContracts(r, deps.Chain, deps.Meta)
	registerWallets(r, deps.Wallets, deps.Seeder)
	registerStudentData(r, deps.Students)
	registerBlockchain(r.Group("/blockchain"), deps.Chain, deps.Consents)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func sendError(c *fiber.Ctx, status int, err, message string) error {
	return c.Status(status).JSON(
		errorResponse{
			Error:   err,
			Message: message,
		},
	)
}

func invalidAddress(c *fiber.Ctx, field string, err error) error {
	return sendError(c, fiber.StatusBadRequest, "Invalid address", field+": "+err.Error())
}

// addressParam normalizes the address route parameter with the given name;
// if it is malformed a 400 response is sent and ok is false
func addressParam(c *fiber.Ctx, name string) (addr common.Address, ok bool, err error) {
	addr, err = chain.NormalizeAddress(c.Params(name))
	if err != nil {
		return addr, false, invalidAddress(c, name, err)
	}
	return addr, true, nil
}
