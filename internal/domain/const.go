package domain

// ZeroPrice marks an item that is not listed for direct sale
const ZeroPrice = "0"
