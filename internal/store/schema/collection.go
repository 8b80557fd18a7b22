package schema

// Collection represents the collections table - one row per collection contract registered on the marketplace
type Collection struct {
	// ID is the sequential on-chain index of the collection, stringified
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`
	// Address is the contract address registered under this collection
	Address string `gorm:"column:address;not null;type:text" json:"address"`
}

// TableName specifies the table name for the Collection model
func (Collection) TableName() string {
	return "collections"
}
