package marketplace

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract method names
const (
	methodCollectionCount = "collectionCount"
	methodItemCount       = "itemCount"
	methodCollections     = "collections"
	methodItems           = "items"
	methodGetOfferers     = "getOfferers"
	methodOffers          = "offers"
)

// Contract event names
const (
	eventCollectionAdded      = "LogCollectionAdded"
	eventItemAdded            = "LogItemAdded"
	eventItemListed           = "LogItemListed"
	eventItemSold             = "LogItemSold"
	eventItemClaimed          = "LogItemClaimed"
	eventOfferPlaced          = "LogOfferPlaced"
	eventOfferAccepted        = "LogOfferAccepted"
	eventOwnershipTransferred = "OwnershipTransferred"
)

// marketplaceABI covers the read methods and events of the marketplace contract
const marketplaceABI = `[
	{"type":"function","name":"collectionCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"itemCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"collections","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"items","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
		{"name":"id","type":"uint256"},
		{"name":"nftContract","type":"address"},
		{"name":"tokenId","type":"uint256"},
		{"name":"owner","type":"address"},
		{"name":"price","type":"uint256"}
	]},
	{"type":"function","name":"getOfferers","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"offers","stateMutability":"view","inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],"outputs":[
		{"name":"itemId","type":"uint256"},
		{"name":"nftContract","type":"address"},
		{"name":"tokenId","type":"uint256"},
		{"name":"seller","type":"address"},
		{"name":"price","type":"uint256"},
		{"name":"isAccepted","type":"bool"}
	]},
	{"type":"event","name":"LogCollectionAdded","anonymous":false,"inputs":[
		{"name":"id","type":"uint256","indexed":true},
		{"name":"nftCollection","type":"address","indexed":true}
	]},
	{"type":"event","name":"LogItemAdded","anonymous":false,"inputs":[
		{"name":"id","type":"uint256","indexed":true},
		{"name":"nftContract","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":false},
		{"name":"owner","type":"address","indexed":false}
	]},
	{"type":"event","name":"LogItemListed","anonymous":false,"inputs":[
		{"name":"id","type":"uint256","indexed":true},
		{"name":"price","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"LogItemSold","anonymous":false,"inputs":[
		{"name":"id","type":"uint256","indexed":true},
		{"name":"buyer","type":"address","indexed":true},
		{"name":"price","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"LogItemClaimed","anonymous":false,"inputs":[
		{"name":"id","type":"uint256","indexed":true},
		{"name":"claimer","type":"address","indexed":true}
	]},
	{"type":"event","name":"LogOfferPlaced","anonymous":false,"inputs":[
		{"name":"id","type":"uint256","indexed":true},
		{"name":"buyer","type":"address","indexed":true},
		{"name":"price","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"LogOfferAccepted","anonymous":false,"inputs":[
		{"name":"id","type":"uint256","indexed":true},
		{"name":"offerer","type":"address","indexed":true}
	]},
	{"type":"event","name":"OwnershipTransferred","anonymous":false,"inputs":[
		{"name":"previousOwner","type":"address","indexed":true},
		{"name":"newOwner","type":"address","indexed":true}
	]}
]`

// parseABI parses the marketplace ABI
func parseABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(marketplaceABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse marketplace ABI: %w", err)
	}
	return parsed, nil
}

// itemResult mirrors the outputs of items(uint256).
// Field names must match the ABI output names for UnpackIntoInterface.
type itemResult struct {
	Id          *big.Int //nolint:revive,stylecheck
	NftContract common.Address
	TokenId     *big.Int //nolint:revive,stylecheck
	Owner       common.Address
	Price       *big.Int
}

// offerResult mirrors the outputs of offers(uint256,address)
type offerResult struct {
	ItemId      *big.Int //nolint:revive,stylecheck
	NftContract common.Address
	TokenId     *big.Int //nolint:revive,stylecheck
	Seller      common.Address
	Price       *big.Int
	IsAccepted  bool
}
