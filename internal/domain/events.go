package domain

import "fmt"

// EventKind identifies a decoded marketplace event
type EventKind string

const (
	EventKindCollectionAdded      EventKind = "collection_added"
	EventKindItemAdded            EventKind = "item_added"
	EventKindItemListed           EventKind = "item_listed"
	EventKindItemSold             EventKind = "item_sold"
	EventKindItemClaimed          EventKind = "item_claimed"
	EventKindOfferPlaced          EventKind = "offer_placed"
	EventKindOfferAccepted        EventKind = "offer_accepted"
	EventKindOwnershipTransferred EventKind = "ownership_transferred"
)

// EventMeta locates the log an event was decoded from
type EventMeta struct {
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint   `json:"log_index"`
}

// Event is a decoded marketplace contract event.
// The concrete types below are the only implementations.
type Event interface {
	Kind() EventKind
	Meta() EventMeta
	fmt.Stringer
}

// Meta returns the log location of the event
func (m EventMeta) Meta() EventMeta {
	return m
}

// CollectionAdded is emitted when a collection contract is registered
type CollectionAdded struct {
	EventMeta
	ID      uint64
	Address string
}

func (e CollectionAdded) Kind() EventKind { return EventKindCollectionAdded }

func (e CollectionAdded) String() string {
	return fmt.Sprintf("CollectionAdded{id: %d, address: %s}", e.ID, e.Address)
}

// ItemAdded is emitted when a token is registered as a marketplace item
type ItemAdded struct {
	EventMeta
	ItemID          uint64
	ContractAddress string
	TokenID         string
	Owner           string
}

func (e ItemAdded) Kind() EventKind { return EventKindItemAdded }

func (e ItemAdded) String() string {
	return fmt.Sprintf("ItemAdded{id: %d, contract: %s, token_id: %s, owner: %s}",
		e.ItemID, e.ContractAddress, e.TokenID, e.Owner)
}

// ItemListed is emitted when an item is put up for direct sale
type ItemListed struct {
	EventMeta
	ItemID uint64
	Price  string
}

func (e ItemListed) Kind() EventKind { return EventKindItemListed }

func (e ItemListed) String() string {
	return fmt.Sprintf("ItemListed{id: %d, price: %s}", e.ItemID, e.Price)
}

// ItemSold is emitted when a listed item is bought
type ItemSold struct {
	EventMeta
	ItemID uint64
	Buyer  string
	Price  string
}

func (e ItemSold) Kind() EventKind { return EventKindItemSold }

func (e ItemSold) String() string {
	return fmt.Sprintf("ItemSold{id: %d, buyer: %s, price: %s}", e.ItemID, e.Buyer, e.Price)
}

// ItemClaimed is emitted when an offerer claims an item after acceptance
type ItemClaimed struct {
	EventMeta
	ItemID  uint64
	Claimer string
}

func (e ItemClaimed) Kind() EventKind { return EventKindItemClaimed }

func (e ItemClaimed) String() string {
	return fmt.Sprintf("ItemClaimed{id: %d, claimer: %s}", e.ItemID, e.Claimer)
}

// OfferPlaced is emitted when a buyer places or replaces an offer on an item.
// The event does not carry the seller.
type OfferPlaced struct {
	EventMeta
	ItemID uint64
	Buyer  string
	Price  string
}

func (e OfferPlaced) Kind() EventKind { return EventKindOfferPlaced }

func (e OfferPlaced) String() string {
	return fmt.Sprintf("OfferPlaced{id: %d, buyer: %s, price: %s}", e.ItemID, e.Buyer, e.Price)
}

// OfferAccepted is emitted when the item owner accepts an offer
type OfferAccepted struct {
	EventMeta
	ItemID  uint64
	Offerer string
}

func (e OfferAccepted) Kind() EventKind { return EventKindOfferAccepted }

func (e OfferAccepted) String() string {
	return fmt.Sprintf("OfferAccepted{id: %d, offerer: %s}", e.ItemID, e.Offerer)
}

// OwnershipTransferred is emitted when the marketplace contract owner changes
type OwnershipTransferred struct {
	EventMeta
	PreviousOwner string
	NewOwner      string
}

func (e OwnershipTransferred) Kind() EventKind { return EventKindOwnershipTransferred }

func (e OwnershipTransferred) String() string {
	return fmt.Sprintf("OwnershipTransferred{previous_owner: %s, new_owner: %s}", e.PreviousOwner, e.NewOwner)
}
