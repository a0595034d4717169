package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/WhitehatD/Student-Identity-Consent/internal/version"
)

const defaultRequestTimeout = 10 * time.Second

// Backend is the part of an ethereum node client used by Client
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Client gives typed read access to the EduIdentity, EduConsent and EduToken
// contracts. A single Client is safe for concurrent use.
type Client struct {
	backend   Backend
	closer    func()
	addresses Addresses
	timeout   time.Duration
	limiter   *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the timeout applied to each RPC request
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit limits the number of RPC requests per second; a
// non-positive value disables limiting
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewClient creates a Client on top of an existing Backend
func NewClient(backend Backend, addrs Addresses, opts ...Option) *Client {
	c := &Client{
		backend:   backend,
		addresses: addrs,
		timeout:   defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to the JSON-RPC endpoint configured in conf
func Dial(ctx context.Context, conf Config) (*Client, error) {
	if conf.RPCURL == "" {
		return nil, errors.New("no rpc url configured")
	}
	if missing := conf.Contracts.Missing(); len(missing) > 0 {
		return nil, errors.Errorf("missing contract addresses: %v", missing)
	}
	rpcClient, err := rpc.DialOptions(ctx, conf.RPCURL, rpc.WithHeader("User-Agent", version.UserAgent()))
	if err != nil {
		return nil, errors.Wrapf(err, "could not connect to '%s'", conf.RPCURL)
	}
	c := NewClient(
		ethclient.NewClient(rpcClient), conf.Contracts,
		WithTimeout(conf.RequestTimeout), WithRateLimit(conf.MaxRPS),
	)
	c.closer = rpcClient.Close
	log.WithField("rpc", conf.RPCURL).Info("Connected to ethereum node")
	return c, nil
}

// Close closes the underlying rpc connection if the client owns one
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Addresses returns the contract addresses the client talks to
func (c *Client) Addresses() Addresses {
	return c.addresses
}

func (c *Client) prepare(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, errors.Wrap(err, "rpc rate limit")
		}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return ctx, cancel, nil
}

func (c *Client) call(
	ctx context.Context, contract *abi.ABI, to common.Address, method string, args ...any,
) ([]any, error) {
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not pack call to '%s'", method)
	}
	ctx, cancel, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	output, err := c.backend.CallContract(
		ctx, ethereum.CallMsg{
			To:   &to,
			Data: input,
		}, nil,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "call to '%s' failed", method)
	}
	res, err := contract.Unpack(method, output)
	if err != nil {
		return nil, errors.Wrapf(err, "could not unpack result of '%s'", method)
	}
	if len(res) == 0 {
		return nil, errors.Errorf("empty result for '%s'", method)
	}
	return res, nil
}

func convertTuple[T any](v any) (out *T, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.Errorf("unexpected tuple layout: %v", r)
		}
	}()
	converted, ok := abi.ConvertType(v, new(T)).(*T)
	if !ok {
		return nil, errors.Errorf("unexpected tuple type %T", v)
	}
	return converted, nil
}

func first[T any](res []any, method string) (T, error) {
	v, ok := res[0].(T)
	if !ok {
		var zero T
		return zero, errors.Errorf("unexpected result type %T for '%s'", res[0], method)
	}
	return v, nil
}

// Consent mirrors the consent struct stored by the EduConsent contract
type Consent struct {
	Owner     common.Address
	ExpiresAt uint64
	DataType  uint8
	Exists    bool
	Active    bool
	Requester common.Address
}

// HasValidConsent calls EduConsent.hasValidConsent
func (c *Client) HasValidConsent(
	ctx context.Context, owner, requester common.Address, dataType uint8,
) (bool, error) {
	res, err := c.call(ctx, &ConsentABI, c.addresses.Consent, "hasValidConsent", owner, requester, dataType)
	if err != nil {
		return false, err
	}
	return first[bool](res, "hasValidConsent")
}

// GetConsent calls EduConsent.getConsent
func (c *Client) GetConsent(
	ctx context.Context, owner, requester common.Address, dataType uint8,
) (*Consent, error) {
	res, err := c.call(ctx, &ConsentABI, c.addresses.Consent, "getConsent", owner, requester, dataType)
	if err != nil {
		return nil, err
	}
	return convertTuple[Consent](res[0])
}

// ConsentGrantedLogs returns all ConsentGranted logs of owner up to toBlock;
// a nil toBlock means the latest block
func (c *Client) ConsentGrantedLogs(ctx context.Context, owner common.Address, toBlock *big.Int) (
	[]types.Log, error,
) {
	return c.ownerLogs(ctx, EventConsentGranted, owner, toBlock)
}

// ConsentRevokedLogs returns all ConsentRevoked logs of owner up to toBlock;
// a nil toBlock means the latest block
func (c *Client) ConsentRevokedLogs(ctx context.Context, owner common.Address, toBlock *big.Int) (
	[]types.Log, error,
) {
	return c.ownerLogs(ctx, EventConsentRevoked, owner, toBlock)
}

func (c *Client) ownerLogs(ctx context.Context, event string, owner common.Address, toBlock *big.Int) (
	[]types.Log, error,
) {
	ev, ok := ConsentABI.Events[event]
	if !ok {
		return nil, errors.Errorf("unknown event '%s'", event)
	}
	ctx, cancel, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	logs, err := c.backend.FilterLogs(
		ctx, ethereum.FilterQuery{
			FromBlock: big.NewInt(0),
			ToBlock:   toBlock,
			Addresses: []common.Address{c.addresses.Consent},
			Topics: [][]common.Hash{
				{ev.ID},
				{common.BytesToHash(owner.Bytes())},
			},
		},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "could not query %s logs", event)
	}
	return logs, nil
}

// BlockNumber returns the latest block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel, err := c.prepare(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()
	n, err := c.backend.BlockNumber(ctx)
	return n, errors.Wrap(err, "could not get block number")
}

// IsStudent calls EduIdentity.isStudent
func (c *Client) IsStudent(ctx context.Context, addr common.Address) (bool, error) {
	res, err := c.call(ctx, &IdentityABI, c.addresses.Identity, "isStudent", addr)
	if err != nil {
		return false, err
	}
	return first[bool](res, "isStudent")
}

// IsRequester calls EduIdentity.isRequester
func (c *Client) IsRequester(ctx context.Context, addr common.Address) (bool, error) {
	res, err := c.call(ctx, &IdentityABI, c.addresses.Identity, "isRequester", addr)
	if err != nil {
		return false, err
	}
	return first[bool](res, "isRequester")
}

// StudentProfile is the on-chain profile of a student
type StudentProfile struct {
	Registered     bool
	Handle         string
	DisplayName    string
	University     string
	EnrollmentYear uint16
	EmailHash      [32]byte
	ProfileCid     string
}

// StudentProfile calls EduIdentity.getStudentProfile
func (c *Client) StudentProfile(ctx context.Context, addr common.Address) (*StudentProfile, error) {
	res, err := c.call(ctx, &IdentityABI, c.addresses.Identity, "getStudentProfile", addr)
	if err != nil {
		return nil, err
	}
	return convertTuple[StudentProfile](res[0])
}

// RequesterProfile is the on-chain profile of a data requester
type RequesterProfile struct {
	Registered  bool
	Name        string
	Description string
	AppUri      string
}

// RequesterProfile calls EduIdentity.getRequesterProfile
func (c *Client) RequesterProfile(ctx context.Context, addr common.Address) (*RequesterProfile, error) {
	res, err := c.call(ctx, &IdentityABI, c.addresses.Identity, "getRequesterProfile", addr)
	if err != nil {
		return nil, err
	}
	return convertTuple[RequesterProfile](res[0])
}

// Role is the role enum of the EduIdentity contract
type Role uint8

// Roles known to EduIdentity
const (
	RoleNone Role = iota
	RoleStudent
	RoleRequester
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "None"
	case RoleStudent:
		return "Student"
	case RoleRequester:
		return "Requester"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Role calls EduIdentity.roles
func (c *Client) Role(ctx context.Context, addr common.Address) (Role, error) {
	res, err := c.call(ctx, &IdentityABI, c.addresses.Identity, "roles", addr)
	if err != nil {
		return RoleNone, err
	}
	r, err := first[uint8](res, "roles")
	return Role(r), err
}

// ComputeEmailHash calls EduIdentity.computeEmailHash
func (c *Client) ComputeEmailHash(ctx context.Context, email string) (common.Hash, error) {
	res, err := c.call(ctx, &IdentityABI, c.addresses.Identity, "computeEmailHash", email)
	if err != nil {
		return common.Hash{}, err
	}
	h, err := first[[32]byte](res, "computeEmailHash")
	return common.Hash(h), err
}

// TokenBalance calls EduToken.balanceOf
func (c *Client) TokenBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	res, err := c.call(ctx, &TokenABI, c.addresses.Token, "balanceOf", addr)
	if err != nil {
		return nil, err
	}
	return first[*big.Int](res, "balanceOf")
}

// TokenInfo describes the EduToken
type TokenInfo struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// TokenInfo reads name, symbol and decimals of the EduToken
func (c *Client) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	info := &TokenInfo{}
	res, err := c.call(ctx, &TokenABI, c.addresses.Token, "name")
	if err != nil {
		return nil, err
	}
	if info.Name, err = first[string](res, "name"); err != nil {
		return nil, err
	}
	if res, err = c.call(ctx, &TokenABI, c.addresses.Token, "symbol"); err != nil {
		return nil, err
	}
	if info.Symbol, err = first[string](res, "symbol"); err != nil {
		return nil, err
	}
	if res, err = c.call(ctx, &TokenABI, c.addresses.Token, "decimals"); err != nil {
		return nil, err
	}
	if info.Decimals, err = first[uint8](res, "decimals"); err != nil {
		return nil, err
	}
	return info, nil
}
