package consent

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
)

// LogStatus is the reconstructed state of a consent
type LogStatus string

// Possible LogStatus values
const (
	StatusActive  LogStatus = "active"
	StatusRevoked LogStatus = "revoked"
)

// LogEntry is one consent reconstructed from the grant and revoke events of
// an owner
type LogEntry struct {
	ID          string    `json:"id" msgpack:"id"`
	Requester   string    `json:"requester" msgpack:"requester"`
	DataType    DataType  `json:"dataType" msgpack:"data_type"`
	ExpiresAt   string    `json:"expiresAt" msgpack:"expires_at"`
	Status      LogStatus `json:"status" msgpack:"status"`
	BlockNumber uint64    `json:"blockNumber" msgpack:"block_number"`
}

func logID(requester common.Address, dt DataType) string {
	return fmt.Sprintf("%s-%d", requester.Hex(), dt)
}

type consentEvent struct {
	Requester   common.Address
	DataType    DataType
	ExpiresAt   uint64
	BlockNumber uint64
	Index       uint
	TxHash      common.Hash
}

type decodeStatus int

const (
	decoded decodeStatus = iota
	unparseable
)

type decodeResult struct {
	status decodeStatus
	event  consentEvent
	reason string
}

// decodeEvent decodes a ConsentGranted or ConsentRevoked log. The log is
// first decoded with the contract ABI; if that fails the raw topics and data
// are read directly, accepting dataType either as data word or as a third
// indexed topic.
func decodeEvent(name string, l types.Log) decodeResult {
	ev := consentEvent{
		BlockNumber: l.BlockNumber,
		Index:       l.Index,
		TxHash:      l.TxHash,
	}
	abiErr := decodeWithABI(name, l, &ev)
	if abiErr != nil {
		if rawErr := decodeRaw(name, l, &ev); rawErr != nil {
			return decodeResult{
				status: unparseable,
				event:  ev,
				reason: fmt.Sprintf("abi: %v; raw: %v", abiErr, rawErr),
			}
		}
	}
	if !ev.DataType.Valid() {
		return decodeResult{
			status: unparseable,
			event:  ev,
			reason: fmt.Sprintf("unknown data type %d", ev.DataType),
		}
	}
	return decodeResult{
		status: decoded,
		event:  ev,
	}
}

func decodeWithABI(name string, l types.Log, ev *consentEvent) error {
	event, ok := chain.ConsentABI.Events[name]
	if !ok {
		return errors.Errorf("unknown event '%s'", name)
	}
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(l.Topics) != len(indexed)+1 {
		return errors.Errorf("expected %d topics, got %d", len(indexed)+1, len(l.Topics))
	}
	if l.Topics[0] != event.ID {
		return errors.New("event signature mismatch")
	}
	args := make(map[string]any)
	if err := abi.ParseTopicsIntoMap(args, indexed, l.Topics[1:]); err != nil {
		return errors.WithStack(err)
	}
	if err := event.Inputs.UnpackIntoMap(args, l.Data); err != nil {
		return errors.WithStack(err)
	}
	requester, ok := args["requester"].(common.Address)
	if !ok {
		return errors.New("missing requester")
	}
	dt, ok := args["dataType"].(uint8)
	if !ok {
		return errors.New("missing dataType")
	}
	ev.Requester = requester
	ev.DataType = DataType(dt)
	if name == chain.EventConsentGranted {
		expiresAt, ok := args["expiresAt"].(uint64)
		if !ok {
			return errors.New("missing expiresAt")
		}
		ev.ExpiresAt = expiresAt
	}
	return nil
}

func decodeRaw(name string, l types.Log, ev *consentEvent) error {
	event, ok := chain.ConsentABI.Events[name]
	if !ok {
		return errors.Errorf("unknown event '%s'", name)
	}
	if len(l.Topics) < 3 {
		return errors.Errorf("expected at least 3 topics, got %d", len(l.Topics))
	}
	if l.Topics[0] != event.ID {
		return errors.New("event signature mismatch")
	}
	requester, err := topicAddress(l.Topics[2])
	if err != nil {
		return err
	}
	words, err := dataWords(l.Data)
	if err != nil {
		return err
	}
	if len(l.Topics) > 3 {
		// dataType emitted as indexed topic
		words = append([]*big.Int{l.Topics[3].Big()}, words...)
	}
	need := 1
	if name == chain.EventConsentGranted {
		need = 2
	}
	if len(words) < need {
		return errors.Errorf("expected %d values, got %d", need, len(words))
	}
	if !words[0].IsUint64() || words[0].Uint64() > 255 {
		return errors.New("dataType out of range")
	}
	ev.Requester = requester
	ev.DataType = DataType(words[0].Uint64())
	if need == 2 {
		if !words[1].IsUint64() {
			return errors.New("expiresAt out of range")
		}
		ev.ExpiresAt = words[1].Uint64()
	}
	return nil
}

func topicAddress(topic common.Hash) (common.Address, error) {
	for _, b := range topic[:common.HashLength-common.AddressLength] {
		if b != 0 {
			return common.Address{}, errors.New("topic is not an address")
		}
	}
	return common.BytesToAddress(topic[common.HashLength-common.AddressLength:]), nil
}

func dataWords(data []byte) ([]*big.Int, error) {
	if len(data)%32 != 0 {
		return nil, errors.Errorf("data length %d is not a multiple of 32", len(data))
	}
	words := make([]*big.Int, 0, len(data)/32)
	for i := 0; i < len(data); i += 32 {
		words = append(words, new(big.Int).SetBytes(data[i:i+32]))
	}
	return words, nil
}

func sortEvents(events []consentEvent) {
	sort.SliceStable(
		events, func(i, j int) bool {
			if events[i].BlockNumber != events[j].BlockNumber {
				return events[i].BlockNumber < events[j].BlockNumber
			}
			return events[i].Index < events[j].Index
		},
	)
}

// reconcile merges grant and revoke events into one entry per
// (requester, dataType). The latest grant wins; a revoke only applies when it
// is in a later block than that grant.
func reconcile(grants, revokes []consentEvent) []LogEntry {
	sortEvents(grants)
	sortEvents(revokes)

	entries := make(map[string]*LogEntry, len(grants))
	for _, g := range grants {
		id := logID(g.Requester, g.DataType)
		entries[id] = &LogEntry{
			ID:          id,
			Requester:   g.Requester.Hex(),
			DataType:    g.DataType,
			ExpiresAt:   strconv.FormatUint(g.ExpiresAt, 10),
			Status:      StatusActive,
			BlockNumber: g.BlockNumber,
		}
	}
	for _, r := range revokes {
		e, ok := entries[logID(r.Requester, r.DataType)]
		if !ok {
			continue
		}
		if r.BlockNumber > e.BlockNumber {
			e.Status = StatusRevoked
		}
	}

	out := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	sort.Slice(
		out, func(i, j int) bool {
			if out[i].BlockNumber != out[j].BlockNumber {
				return out[i].BlockNumber > out[j].BlockNumber
			}
			return out[i].ID < out[j].ID
		},
	)
	return out
}
