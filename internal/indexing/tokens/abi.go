package tokens

import (
	"encoding/hex"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

// Event signature topics shared by the supported token standards.
// ERC-20 and ERC-721 emit the same Transfer topic and are told apart by
// the indexed topic count.
const (
	topicTransfer       = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef" // Transfer(address,address,uint256)
	topicTransferSingle = "0xc3d58168c5ae7397731d063d5bbf3d657854427343f4c083240f7aacaa2d0f62" // TransferSingle(address,address,address,uint256,uint256)
	topicTransferBatch  = "0x4a39dc06d4c0dbc64b70af90fd698a233a518aa5d07e595d983b8c0526c8f7fb" // TransferBatch(address,address,address,uint256[],uint256[])
)

// Read-call selectors for the metadata and balance views.
var (
	selName        = []byte{0x06, 0xfd, 0xde, 0x03} // name()
	selSymbol      = []byte{0x95, 0xd8, 0x9b, 0x41} // symbol()
	selDecimals    = []byte{0x31, 0x3c, 0xe5, 0x67} // decimals()
	selTotalSupply = []byte{0x18, 0x16, 0x0d, 0xdd} // totalSupply()
	selBalanceOf   = []byte{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)
	selOwnerOf     = []byte{0x63, 0x52, 0x21, 0x1e} // ownerOf(uint256)
	selTokenURI    = []byte{0xc8, 0x7b, 0x56, 0xdd} // tokenURI(uint256)
	selURI         = []byte{0x0e, 0x89, 0x34, 0x1c} // uri(uint256)
	selBalanceOfID = []byte{0x00, 0xfd, 0xd5, 0x8e} // balanceOf(address,uint256)
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// topicAddress extracts the address packed into a 32-byte indexed topic.
func topicAddress(topic string) string {
	return strings.ToLower(common.HexToAddress(topic).Hex())
}

// topicBig decodes a 32-byte indexed topic as an unsigned integer.
func topicBig(topic string) *big.Int {
	return new(big.Int).SetBytes(common.FromHex(topic))
}

// dataWords splits hex-encoded log data into consecutive 32-byte words.
// Returns nil when the payload is not a whole number of words.
func dataWords(data string) [][]byte {
	raw, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
	if err != nil || len(raw)%32 != 0 {
		return nil
	}
	words := make([][]byte, 0, len(raw)/32)
	for i := 0; i < len(raw); i += 32 {
		words = append(words, raw[i:i+32])
	}
	return words
}

func wordBig(word []byte) *big.Int {
	return new(big.Int).SetBytes(word)
}

// decodeUintArrays decodes TransferBatch data: two dynamic uint256
// arrays (ids, values) of equal length.
func decodeUintArrays(data string) (ids, values []*big.Int) {
	words := dataWords(data)
	if len(words) < 2 {
		return nil, nil
	}
	ids = decodeUintArrayAt(words, wordBig(words[0]))
	values = decodeUintArrayAt(words, wordBig(words[1]))
	if len(ids) != len(values) {
		return nil, nil
	}
	return ids, values
}

func decodeUintArrayAt(words [][]byte, offset *big.Int) []*big.Int {
	if !offset.IsUint64() || offset.Uint64()%32 != 0 {
		return nil
	}
	idx := int(offset.Uint64() / 32)
	if idx >= len(words) {
		return nil
	}
	length := wordBig(words[idx])
	if !length.IsUint64() || idx+1+int(length.Uint64()) > len(words) {
		return nil
	}
	out := make([]*big.Int, length.Uint64())
	for i := range out {
		out[i] = wordBig(words[idx+1+i])
	}
	return out
}

// encodeCall builds selector ++ 32-byte-padded arguments.
func encodeCall(selector []byte, args ...[]byte) []byte {
	out := make([]byte, 0, 4+32*len(args))
	out = append(out, selector...)
	for _, arg := range args {
		word := make([]byte, 32)
		copy(word[32-len(arg):], arg)
		out = append(out, word...)
	}
	return out
}

func addressArg(addr string) []byte {
	a := common.HexToAddress(addr)
	return a.Bytes()
}

func uintArg(v *big.Int) []byte {
	return v.Bytes()
}

// decodeReturnedString decodes a contract string return value. Handles
// both the standard dynamic encoding (offset, length, bytes) and the
// bytes32 form some older contracts use for name/symbol.
func decodeReturnedString(ret []byte) (string, bool) {
	if len(ret) == 32 {
		s := strings.TrimRight(string(ret), "\x00")
		if s != "" && utf8.ValidString(s) {
			return s, true
		}
		return "", false
	}
	if len(ret) < 64 {
		return "", false
	}
	offset := wordBig(ret[:32])
	if !offset.IsUint64() || offset.Uint64()+32 > uint64(len(ret)) {
		return "", false
	}
	start := offset.Uint64()
	length := wordBig(ret[start : start+32])
	if !length.IsUint64() || start+32+length.Uint64() > uint64(len(ret)) {
		return "", false
	}
	s := string(ret[start+32 : start+32+length.Uint64()])
	if !utf8.ValidString(s) {
		return "", false
	}
	return s, true
}

// decodeReturnedUint decodes a single uint256 return value.
func decodeReturnedUint(ret []byte) (*big.Int, bool) {
	if len(ret) < 32 {
		return nil, false
	}
	return wordBig(ret[:32]), true
}

// decodeReturnedAddress decodes a single address return value.
func decodeReturnedAddress(ret []byte) (string, bool) {
	if len(ret) < 32 {
		return "", false
	}
	return strings.ToLower(common.BytesToAddress(ret[12:32]).Hex()), true
}
