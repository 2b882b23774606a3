package multicall

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/taikoxyz/batchwallet/internal/codec"
)

// Multicall3 tryAggregate: https://github.com/mds1/multicall
const tryAggregateJSON = `[{
	"name": "tryAggregate",
	"type": "function",
	"inputs": [
		{"name": "requireSuccess", "type": "bool"},
		{"name": "calls", "type": "tuple[]", "components": [
			{"name": "target", "type": "address"},
			{"name": "callData", "type": "bytes"}
		]}
	],
	"outputs": [
		{"name": "returnData", "type": "tuple[]", "components": [
			{"name": "success", "type": "bool"},
			{"name": "returnData", "type": "bytes"}
		]}
	]
}]`

var (
	ErrAggregateCall = errors.New("aggregate call reverted")
	ErrTransport     = errors.New("transport failure")
)

// ContractCaller is the read-side transport dependency, satisfied by
// *ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Call describes one pending contract read: where to call, which table
// method to encode, and the arguments. Decoding uses the same method's
// declared outputs, so the descriptor fully determines the result shape.
type Call struct {
	Target common.Address
	Method codec.Method
	Args   []interface{}
}

// aggregateCall mirrors the tryAggregate tuple component layout.
type aggregateCall struct {
	Target   common.Address
	CallData []byte
}

type aggregateResult struct {
	Success    bool
	ReturnData []byte
}

// Decoded is the per-call outcome of an aggregate invocation. Value is nil
// when the call reverted, or when it succeeded with empty return data.
// Single-output methods yield the bare value; multi-output methods yield
// []interface{}.
type Decoded struct {
	Success bool
	Value   interface{}
}

// DeriveFunc builds the next phase's calls from the previous phase's
// decoded results. It must be pure; returning an empty slice ends the chain
// early.
type DeriveFunc func(prev []Decoded) ([]Call, error)

// Caller batches independent contract reads into single tryAggregate
// invocations. Stateless after construction; one blocking round trip per
// Aggregate call.
type Caller struct {
	client   ContractCaller
	contract common.Address
	codec    *codec.Codec
	abi      abi.ABI
	log      *zap.SugaredLogger
}

func New(client ContractCaller, contract common.Address, cdc *codec.Codec, log *zap.SugaredLogger) (*Caller, error) {
	parsed, err := abi.JSON(strings.NewReader(tryAggregateJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse multicall ABI: %w", err)
	}

	return &Caller{
		client:   client,
		contract: contract,
		codec:    cdc,
		abi:      parsed,
		log:      log,
	}, nil
}

// Aggregate encodes every descriptor, performs one tryAggregate round trip
// and resolves each raw result. The returned slice always has the same
// length and order as calls.
//
// With allowFailure=true an individual revert is not an error: it surfaces
// as Decoded{Success: false}. With allowFailure=false any inner revert
// aborts the whole aggregate call and no partial results are returned.
func (c *Caller) Aggregate(ctx context.Context, calls []Call, allowFailure bool) ([]Decoded, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	packed := make([]aggregateCall, len(calls))
	for i, call := range calls {
		data, err := c.codec.Encode(call.Method, call.Args...)
		if err != nil {
			return nil, fmt.Errorf("call %d: %w", i, err)
		}
		packed[i] = aggregateCall{Target: call.Target, CallData: data}
	}

	input, err := c.abi.Pack("tryAggregate", !allowFailure, packed)
	if err != nil {
		return nil, fmt.Errorf("failed to pack tryAggregate input: %w", err)
	}

	c.log.Debugw("aggregate call", "calls", len(calls), "allowFailure", allowFailure)

	output, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: input}, nil)
	if err != nil {
		// With requireSuccess set, an inner revert bubbles up as a revert of
		// the aggregate entry point itself. The RPC error does not let us
		// tell that apart from a network fault reliably, so classify by the
		// mode that was requested.
		if !allowFailure {
			return nil, fmt.Errorf("%w: %v", ErrAggregateCall, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var results []aggregateResult
	if err := c.abi.UnpackIntoInterface(&results, "tryAggregate", output); err != nil {
		return nil, fmt.Errorf("failed to unpack tryAggregate output: %w", err)
	}
	if len(results) != len(calls) {
		return nil, fmt.Errorf("%w: expected %d results, got %d", ErrAggregateCall, len(calls), len(results))
	}

	decoded := make([]Decoded, len(calls))
	for i, res := range results {
		d, err := c.resolve(calls[i].Method, res)
		if err != nil {
			return nil, fmt.Errorf("call %d (%s): %w", i, calls[i].Method, err)
		}
		decoded[i] = d
	}
	return decoded, nil
}

// resolve turns one raw aggregate result into a Decoded value. A failed
// call and a successful call with empty return data both carry no value;
// only a successful, non-empty result is decoded, and a decode failure
// there is a hard error since it means the signature table disagrees with
// the contract.
func (c *Caller) resolve(method codec.Method, res aggregateResult) (Decoded, error) {
	if !res.Success {
		return Decoded{Success: false}, nil
	}
	if len(res.ReturnData) == 0 {
		return Decoded{Success: true}, nil
	}

	values, err := c.codec.Decode(method, res.ReturnData)
	if err != nil {
		return Decoded{}, err
	}

	var value interface{}
	switch len(values) {
	case 0:
	case 1:
		value = values[0]
	default:
		value = values
	}
	return Decoded{Success: true, Value: value}, nil
}

// AggregateChain runs a dependent fan-out: the first batch, then one batch
// per derive function, each built from the previous phase's results. Every
// phase is fully materialized before the next round trip. The returned
// slice holds one result set per executed phase; the chain stops early when
// a derive function yields no calls.
func (c *Caller) AggregateChain(
	ctx context.Context,
	first []Call,
	allowFailure bool,
	derives ...DeriveFunc,
) ([][]Decoded, error) {
	phases := make([][]Decoded, 0, len(derives)+1)

	current := first
	for i := 0; ; i++ {
		decoded, err := c.Aggregate(ctx, current, allowFailure)
		if err != nil {
			return nil, fmt.Errorf("phase %d: %w", i, err)
		}
		phases = append(phases, decoded)

		if i >= len(derives) {
			return phases, nil
		}
		next, err := derives[i](decoded)
		if err != nil {
			return nil, fmt.Errorf("derive phase %d: %w", i+1, err)
		}
		if len(next) == 0 {
			return phases, nil
		}
		current = next
	}
}
