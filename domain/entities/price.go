package entities

// PriceQuote is one off-chain price as stored by the host feeder.
// Price is fixed-point: the real value is Price / 10^Decimals.
type PriceQuote struct {
	Symbol    string `json:"symbol"`
	DataID    DataID `json:"data_id"`
	Price     uint64 `json:"price"`
	Timestamp uint64 `json:"timestamp"` // Unix seconds
	Decimals  uint8  `json:"decimals"`
}

// PriceSnapshot is the value stored under the PriceNamespace/PriceItem key.
type PriceSnapshot struct {
	Quotes    []PriceQuote `json:"quotes"`
	UpdatedAt uint64       `json:"updated_at"` // Unix seconds
}

// Quote returns the quote for id, if present.
func (s PriceSnapshot) Quote(id DataID) (PriceQuote, bool) {
	for _, q := range s.Quotes {
		if q.DataID == id {
			return q, true
		}
	}
	return PriceQuote{}, false
}
