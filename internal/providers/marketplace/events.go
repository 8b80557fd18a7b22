package marketplace

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/feral-file/marketplace-mirror/internal/domain"
)

// decodeLog decodes a marketplace log into a typed event.
// Logs with an unknown signature return domain.ErrUnknownEvent.
func (g *gateway) decodeLog(vLog types.Log) (domain.Event, error) {
	if len(vLog.Topics) == 0 {
		return nil, fmt.Errorf("%w: log without topics", domain.ErrUnknownEvent)
	}

	ev, err := g.abi.EventByID(vLog.Topics[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEvent, vLog.Topics[0].Hex())
	}

	values := make(map[string]interface{})
	if len(ev.Inputs.NonIndexed()) > 0 {
		if err := g.abi.UnpackIntoMap(values, ev.Name, vLog.Data); err != nil {
			return nil, fmt.Errorf("failed to unpack %s data: %w", ev.Name, err)
		}
	}

	var indexed abi.Arguments
	for _, input := range ev.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(vLog.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("invalid %s event: expected %d topics, got %d", ev.Name, len(indexed)+1, len(vLog.Topics))
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, vLog.Topics[1:]); err != nil {
		return nil, fmt.Errorf("failed to parse %s topics: %w", ev.Name, err)
	}

	args := eventArgs{name: ev.Name, values: values}
	meta := domain.EventMeta{
		BlockNumber: vLog.BlockNumber,
		TxHash:      vLog.TxHash.Hex(),
		LogIndex:    vLog.Index,
	}

	var event domain.Event
	switch ev.Name {
	case eventCollectionAdded:
		event = domain.CollectionAdded{
			EventMeta: meta,
			ID:        args.number("id"),
			Address:   args.address("nftCollection"),
		}
	case eventItemAdded:
		event = domain.ItemAdded{
			EventMeta:       meta,
			ItemID:          args.number("id"),
			ContractAddress: args.address("nftContract"),
			TokenID:         args.decimal("tokenId"),
			Owner:           args.address("owner"),
		}
	case eventItemListed:
		event = domain.ItemListed{
			EventMeta: meta,
			ItemID:    args.number("id"),
			Price:     args.decimal("price"),
		}
	case eventItemSold:
		event = domain.ItemSold{
			EventMeta: meta,
			ItemID:    args.number("id"),
			Buyer:     args.address("buyer"),
			Price:     args.decimal("price"),
		}
	case eventItemClaimed:
		event = domain.ItemClaimed{
			EventMeta: meta,
			ItemID:    args.number("id"),
			Claimer:   args.address("claimer"),
		}
	case eventOfferPlaced:
		event = domain.OfferPlaced{
			EventMeta: meta,
			ItemID:    args.number("id"),
			Buyer:     args.address("buyer"),
			Price:     args.decimal("price"),
		}
	case eventOfferAccepted:
		event = domain.OfferAccepted{
			EventMeta: meta,
			ItemID:    args.number("id"),
			Offerer:   args.address("offerer"),
		}
	case eventOwnershipTransferred:
		event = domain.OwnershipTransferred{
			EventMeta:     meta,
			PreviousOwner: args.address("previousOwner"),
			NewOwner:      args.address("newOwner"),
		}
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEvent, ev.Name)
	}

	if args.err != nil {
		return nil, args.err
	}
	return event, nil
}

// eventArgs reads typed values out of an unpacked event, keeping the first failure
type eventArgs struct {
	name   string
	values map[string]interface{}
	err    error
}

func (a *eventArgs) bigInt(key string) *big.Int {
	v, ok := a.values[key].(*big.Int)
	if !ok && a.err == nil {
		a.err = fmt.Errorf("invalid %s event: missing uint256 %q", a.name, key)
	}
	return v
}

func (a *eventArgs) number(key string) uint64 {
	v := a.bigInt(key)
	if v == nil {
		return 0
	}
	n, err := domain.BigToUint64(v)
	if err != nil && a.err == nil {
		a.err = fmt.Errorf("invalid %s event %q: %w", a.name, key, err)
	}
	return n
}

func (a *eventArgs) decimal(key string) string {
	return domain.BigToDecimal(a.bigInt(key))
}

func (a *eventArgs) address(key string) string {
	v, ok := a.values[key].(common.Address)
	if !ok && a.err == nil {
		a.err = fmt.Errorf("invalid %s event: missing address %q", a.name, key)
	}
	return domain.AddressHex(v)
}
