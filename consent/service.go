package consent

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
	"github.com/WhitehatD/Student-Identity-Consent/internal/metrics"
)

// Chain is the read access to the EduConsent contract needed by the Service;
// it is implemented by *chain.Client
type Chain interface {
	HasValidConsent(ctx context.Context, owner, requester common.Address, dataType uint8) (bool, error)
	GetConsent(ctx context.Context, owner, requester common.Address, dataType uint8) (*chain.Consent, error)
	ConsentGrantedLogs(ctx context.Context, owner common.Address, toBlock *big.Int) ([]types.Log, error)
	ConsentRevokedLogs(ctx context.Context, owner common.Address, toBlock *big.Int) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// LogCache caches reconstructed consent logs per owner and block height
type LogCache interface {
	Get(ctx context.Context, owner string, block uint64) ([]LogEntry, bool, error)
	Set(ctx context.Context, owner string, block uint64, entries []LogEntry) error
}

// Service answers consent questions from the EduConsent contract.
//
// All of its methods fail closed: any error while checking a consent (bad
// input, rpc failure, revert, undecodable data) is logged and turned into a
// denial, a nil record or an empty history. Errors are never returned to the
// caller, so a failing check can never be read as granted access.
type Service struct {
	chain Chain
	cache LogCache
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLogCache enables caching of reconstructed consent logs
func WithLogCache(c LogCache) ServiceOption {
	return func(s *Service) {
		s.cache = c
	}
}

// NewService creates a new Service
func NewService(c Chain, opts ...ServiceOption) *Service {
	s := &Service{chain: c}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizePair(owner, requester string) (common.Address, common.Address, error) {
	ownerAddr, err := chain.NormalizeAddress(owner)
	if err != nil {
		return common.Address{}, common.Address{}, errors.Wrap(err, "owner")
	}
	requesterAddr, err := chain.NormalizeAddress(requester)
	if err != nil {
		return common.Address{}, common.Address{}, errors.Wrap(err, "requester")
	}
	return ownerAddr, requesterAddr, nil
}

func checkLogger(owner, requester string, dt DataType) *log.Entry {
	return log.WithFields(
		log.Fields{
			"owner":     owner,
			"requester": requester,
			"data_type": dt.Name(),
		},
	)
}

// HasValidConsent checks if requester currently holds a valid consent of
// owner for the given DataType
func (s *Service) HasValidConsent(ctx context.Context, owner, requester string, dt DataType) bool {
	logger := checkLogger(owner, requester, dt)
	ownerAddr, requesterAddr, err := normalizePair(owner, requester)
	if err == nil && !dt.Valid() {
		err = errors.WithStack(ErrInvalidDataType)
	}
	if err == nil {
		var ok bool
		ok, err = s.chain.HasValidConsent(ctx, ownerAddr, requesterAddr, uint8(dt))
		if err == nil {
			if !ok {
				logger.Debug("consent denied")
				metrics.ConsentCheck(dt.Name(), metrics.OutcomeDenied)
				return false
			}
			logger.Debug("consent granted")
			metrics.ConsentCheck(dt.Name(), metrics.OutcomeGranted)
			return true
		}
	}
	logger.WithError(err).Error("consent check failed")
	metrics.ConsentCheck(dt.Name(), metrics.OutcomeError)
	return false
}

// ConsentDetails returns the consent record of (owner, requester, dt) or nil
// if there is none or it could not be fetched
func (s *Service) ConsentDetails(ctx context.Context, owner, requester string, dt DataType) *Record {
	logger := checkLogger(owner, requester, dt)
	ownerAddr, requesterAddr, err := normalizePair(owner, requester)
	if err != nil {
		logger.WithError(err).Error("could not fetch consent details")
		return nil
	}
	if !dt.Valid() {
		logger.WithError(ErrInvalidDataType).Error("could not fetch consent details")
		return nil
	}
	c, err := s.chain.GetConsent(ctx, ownerAddr, requesterAddr, uint8(dt))
	if err != nil {
		logger.WithError(err).Error("could not fetch consent details")
		return nil
	}
	if !c.Exists {
		logger.Debug("no consent record")
		return nil
	}
	return recordFromChain(c)
}

// CheckMultipleConsents runs HasValidConsent for each of the data types, one
// after the other. The result has an entry for every requested type.
func (s *Service) CheckMultipleConsents(
	ctx context.Context, owner, requester string, dataTypes []DataType,
) map[DataType]bool {
	results := make(map[DataType]bool, len(dataTypes))
	for _, dt := range dataTypes {
		results[dt] = s.HasValidConsent(ctx, owner, requester, dt)
	}
	return results
}

// ConsentLogs reconstructs the consent history of owner from the
// ConsentGranted and ConsentRevoked events. The result is never nil; on
// failure it is empty.
func (s *Service) ConsentLogs(ctx context.Context, owner string) []LogEntry {
	logger := log.WithField("owner", owner)
	entries, err := s.consentLogs(ctx, owner, logger)
	if err != nil {
		logger.WithError(err).Error("could not reconstruct consent logs")
		return []LogEntry{}
	}
	return entries
}

func (s *Service) consentLogs(ctx context.Context, owner string, logger *log.Entry) ([]LogEntry, error) {
	ownerAddr, err := chain.NormalizeAddress(owner)
	if err != nil {
		return nil, err
	}
	block, err := s.chain.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, ownerAddr.Hex(), block)
		switch {
		case err != nil:
			logger.WithError(err).Warn("consent log cache lookup failed")
		case found:
			logger.WithField("block", block).Debug("consent logs served from cache")
			return cached, nil
		}
	}

	toBlock := new(big.Int).SetUint64(block)
	grantLogs, err := s.chain.ConsentGrantedLogs(ctx, ownerAddr, toBlock)
	if err != nil {
		return nil, err
	}
	revokeLogs, err := s.chain.ConsentRevokedLogs(ctx, ownerAddr, toBlock)
	if err != nil {
		return nil, err
	}
	entries := reconcile(
		decodeAll(chain.EventConsentGranted, grantLogs, logger),
		decodeAll(chain.EventConsentRevoked, revokeLogs, logger),
	)

	if s.cache != nil {
		if err = s.cache.Set(ctx, ownerAddr.Hex(), block, entries); err != nil {
			logger.WithError(err).Warn("could not cache consent logs")
		}
	}
	return entries, nil
}

func decodeAll(event string, logs []types.Log, logger *log.Entry) []consentEvent {
	events := make([]consentEvent, 0, len(logs))
	for _, l := range logs {
		res := decodeEvent(event, l)
		if res.status == unparseable {
			logger.WithFields(
				log.Fields{
					"event":  event,
					"block":  l.BlockNumber,
					"tx":     l.TxHash.Hex(),
					"reason": res.reason,
				},
			).Warn("skipping unparseable consent event")
			metrics.SkippedEvent(event)
			continue
		}
		events = append(events, res.event)
	}
	return events
}
