package batch

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ExecutionCall is one sub-call of a delegated batch: target, native value
// in wei, and raw calldata (empty for a plain value transfer).
type ExecutionCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// Mode is the ERC-7821 execution mode tag passed to the delegate's
// execute entry point.
type Mode [32]byte

// ModeDefault selects a single atomic batch: sub-calls run in order and any
// failure reverts the whole batch.
var ModeDefault = Mode{0x01}

var (
	ErrEmptyBatch  = errors.New("batch must contain at least one call")
	ErrInvalidCall = errors.New("invalid batch call")
)

// ABI arguments marshaling components for the Call tuple.
var callComponents = []abi.ArgumentMarshaling{
	{Name: "target", Type: "address"},
	{Name: "value", Type: "uint256"},
	{Name: "data", Type: "bytes"},
}

var (
	callsArrayType, _ = abi.NewType("tuple[]", "Call", callComponents)
	callsArrayArgs    = abi.Arguments{
		{Name: "Call[]", Type: callsArrayType},
	}
)

const executeJSON = `[{
	"name": "execute",
	"type": "function",
	"stateMutability": "payable",
	"inputs": [
		{"name": "mode", "type": "bytes32"},
		{"name": "executionData", "type": "bytes"}
	]
}]`

var executeABI abi.ABI

func init() {
	var err error
	if executeABI, err = abi.JSON(strings.NewReader(executeJSON)); err != nil {
		panic(fmt.Sprintf("failed to parse execute ABI: %v", err))
	}
}

type abiCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

func validate(calls []ExecutionCall) error {
	if len(calls) == 0 {
		return ErrEmptyBatch
	}
	for i, call := range calls {
		if call.Target == (common.Address{}) {
			return fmt.Errorf("%w: call %d has zero target", ErrInvalidCall, i)
		}
		if call.Value != nil && call.Value.Sign() < 0 {
			return fmt.Errorf("%w: call %d has negative value", ErrInvalidCall, i)
		}
	}
	return nil
}

// EncodeCalls performs the solidity `abi.encode` of the ordered Call tuple
// array, the executionData layout the delegate contract expects. Pure
// serialization: no validation of the targets beyond the batch
// preconditions.
func EncodeCalls(calls []ExecutionCall) ([]byte, error) {
	if err := validate(calls); err != nil {
		return nil, err
	}

	packed := make([]abiCall, len(calls))
	for i, call := range calls {
		value := call.Value
		if value == nil {
			value = new(big.Int)
		}
		data := call.Data
		if data == nil {
			data = []byte{}
		}
		packed[i] = abiCall{Target: call.Target, Value: value, Data: data}
	}

	b, err := callsArrayArgs.Pack(packed)
	if err != nil {
		return nil, fmt.Errorf("failed to abi.encode batch calls: %w", err)
	}
	return b, nil
}

// EncodeExecute produces the complete execute(bytes32,bytes) calldata that
// becomes the data field of the outer self-addressed transaction.
func EncodeExecute(mode Mode, calls []ExecutionCall) ([]byte, error) {
	executionData, err := EncodeCalls(calls)
	if err != nil {
		return nil, err
	}

	input, err := executeABI.Pack("execute", [32]byte(mode), executionData)
	if err != nil {
		return nil, fmt.Errorf("failed to pack execute input: %w", err)
	}
	return input, nil
}
