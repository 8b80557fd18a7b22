package schema

// Offer represents the offers table - at most one row per (item_id, offerer)
type Offer struct {
	ItemID  uint64 `gorm:"column:item_id;primaryKey;autoIncrement:false" json:"item_id"`
	Offerer string `gorm:"column:offerer;primaryKey;type:text" json:"offerer"`
	// Seller is the item owner at the time the offer was placed
	Seller     string `gorm:"column:seller;not null;type:text" json:"seller"`
	Price      string `gorm:"column:price;not null;type:text" json:"price"`
	IsAccepted bool   `gorm:"column:is_accepted;not null" json:"is_accepted"`
}

// TableName specifies the table name for the Offer model
func (Offer) TableName() string {
	return "offers"
}
