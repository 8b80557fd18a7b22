package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
)

// IsValidChain checks that a chain is a CAIP-2 EVM identifier, eip155:<positive decimal chain id>
func IsValidChain(chain Chain) bool {
	reference, ok := strings.CutPrefix(string(chain), "eip155:")
	if !ok {
		return false
	}
	id, ok := new(big.Int).SetString(reference, 10)
	return ok && id.Sign() > 0 && id.String() == reference
}

// EIP155Chain returns the CAIP-2 identifier of an EVM chain id
func EIP155Chain(chainID *big.Int) Chain {
	return Chain(fmt.Sprintf("eip155:%s", chainID.String()))
}

// ItemSlot is the record stored at one index of the marketplace items mapping
type ItemSlot struct {
	ItemID          uint64
	ContractAddress string
	TokenID         string // uint256 as decimal string
	Owner           string
	Price           string // wei as decimal string, "0" when not listed
}

// OfferSlot is the record stored for an (item, offerer) pair of the marketplace offers mapping
type OfferSlot struct {
	ItemID          uint64
	ContractAddress string
	TokenID         string
	Offerer         string
	Seller          string
	Price           string
	IsAccepted      bool
}

// NormalizeAddress returns the EIP-55 checksum form of a hex address.
// Every address that reaches the store goes through here so equality filters match.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// AddressHex returns the checksum hex of a decoded address
func AddressHex(address common.Address) string {
	return address.Hex()
}

// BigToDecimal converts an on-chain uint256 to its decimal string form, nil maps to "0"
func BigToDecimal(v *big.Int) string {
	if v == nil {
		return ZeroPrice
	}
	return v.String()
}

// BigToUint64 converts an on-chain uint256 to uint64, failing when it does not fit
func BigToUint64(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: nil integer", ErrInvalidSlot)
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in uint64", ErrInvalidSlot, v.String())
	}
	return v.Uint64(), nil
}

// DedupeAddresses returns the distinct addresses in first-seen order.
// Comparison is done on the normalized form; invalid addresses are kept verbatim.
func DedupeAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	unique := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		key := addr
		if normalized, err := NormalizeAddress(addr); err == nil {
			key = normalized
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}
	return unique
}
