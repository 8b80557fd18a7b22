package schema

// Item represents the items table - the mirror of one marketplace item slot
type Item struct {
	// ItemID is the on-chain sequential item identifier
	ItemID uint64 `gorm:"column:item_id;primaryKey;autoIncrement:false" json:"item_id"`
	// ContractAddress is the address of the token contract
	ContractAddress string `gorm:"column:contract_address;not null;type:text" json:"contract_address"`
	// TokenID is the token id within the contract (string to support uint256)
	TokenID string `gorm:"column:token_id;not null;type:text" json:"token_id"`
	// Owner is the current holder of the item
	Owner string `gorm:"column:owner;not null;type:text;index" json:"owner"`
	// Price is the listing price in wei, "0" when the item is not listed
	Price string `gorm:"column:price;not null;type:text" json:"price"`
	// Off-chain metadata, populated outside the mirror
	Name        *string `gorm:"column:name;type:text" json:"name"`
	Description *string `gorm:"column:description;type:text" json:"description"`
	Image       *string `gorm:"column:image;type:text" json:"image"`
}

// TableName specifies the table name for the Item model
func (Item) TableName() string {
	return "items"
}
