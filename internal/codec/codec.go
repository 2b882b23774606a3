package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Method identifies one entry of the fixed signature table. Only methods
// declared here can be encoded or decoded; there is no runtime registration.
type Method string

const (
	Name                Method = "name"
	Symbol              Method = "symbol"
	Decimals            Method = "decimals"
	TotalSupply         Method = "totalSupply"
	BalanceOf           Method = "balanceOf"
	Transfer            Method = "transfer"
	OwnerOf             Method = "ownerOf"
	TokenOfOwnerByIndex Method = "tokenOfOwnerByIndex"
	TokenURI            Method = "tokenURI"
	GetEthBalance       Method = "getEthBalance"
)

var (
	ErrEncode        = errors.New("encode failed")
	ErrDecode        = errors.New("decode failed")
	ErrUnknownMethod = errors.New("method not in signature table")
)

// The supported function set: ERC-20 and ERC-721 reads, ERC-20 transfer for
// batch calldata, and Multicall3's getEthBalance. balanceOf(address) is
// shared between both token standards.
const tableJSON = `[
	{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"ownerOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"name":"tokenOfOwnerByIndex","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"tokenURI","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"name":"getEthBalance","type":"function","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]}
]`

// Codec encodes and decodes contract calls against the fixed signature
// table. It is stateless after construction and safe for concurrent use.
type Codec struct {
	table abi.ABI
}

func New() (*Codec, error) {
	table, err := abi.JSON(strings.NewReader(tableJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse signature table: %w", err)
	}
	return &Codec{table: table}, nil
}

// Encode packs the method selector and arguments into call input bytes.
// Arity or type mismatches against the declared signature fail with ErrEncode.
func (c *Codec) Encode(method Method, args ...interface{}) ([]byte, error) {
	if _, ok := c.table.Methods[string(method)]; !ok {
		return nil, fmt.Errorf("%w: %q: %w", ErrEncode, method, ErrUnknownMethod)
	}

	data, err := c.table.Pack(string(method), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrEncode, method, err)
	}
	return data, nil
}

// Decode unpacks raw return bytes per the method's declared outputs. Empty
// input is never treated as "no data" here; callers that want that behavior
// must check emptiness before calling Decode.
func (c *Codec) Decode(method Method, raw []byte) ([]interface{}, error) {
	m, ok := c.table.Methods[string(method)]
	if !ok {
		return nil, fmt.Errorf("%w: %q: %w", ErrDecode, method, ErrUnknownMethod)
	}

	values, err := m.Outputs.Unpack(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrDecode, method, err)
	}
	return values, nil
}
