package wireformat

import (
	"github.com/reglet-dev/reglet-oracle/domain/entities"
)

// EncodePriceQuote appends q to e.
func EncodePriceQuote(e *Encoder, q entities.PriceQuote) {
	e.WriteU64(q.DataID).
		WriteString(q.Symbol).
		WriteU64(q.Price).
		WriteU8(q.Decimals).
		WriteU64(q.Timestamp)
}

// DecodePriceQuote reads a quote written by EncodePriceQuote.
func DecodePriceQuote(d *Decoder) (entities.PriceQuote, error) {
	var q entities.PriceQuote
	var err error
	if q.DataID, err = d.ReadU64(); err != nil {
		return q, err
	}
	if q.Symbol, err = d.ReadString(); err != nil {
		return q, err
	}
	if q.Price, err = d.ReadU64(); err != nil {
		return q, err
	}
	if q.Decimals, err = d.ReadU8(); err != nil {
		return q, err
	}
	q.Timestamp, err = d.ReadU64()
	return q, err
}

// EncodePriceSnapshot encodes s as u64 updated_at, u32 count, then each quote.
func EncodePriceSnapshot(s entities.PriceSnapshot) []byte {
	e := NewEncoder(U64Size + U32Size + len(s.Quotes)*40)
	e.WriteU64(s.UpdatedAt)
	e.WriteU32(uint32(len(s.Quotes))) //nolint:gosec // G115: snapshot sizes are small
	for _, q := range s.Quotes {
		EncodePriceQuote(e, q)
	}
	return e.Bytes()
}

// DecodePriceSnapshot decodes a buffer holding exactly one snapshot.
func DecodePriceSnapshot(b []byte) (entities.PriceSnapshot, error) {
	var s entities.PriceSnapshot
	d := NewDecoder(b)

	updatedAt, err := d.ReadU64()
	if err != nil {
		return s, err
	}
	count, err := d.ReadU32()
	if err != nil {
		return s, err
	}
	// Every quote takes at least 29 bytes; reject counts the input cannot hold
	// before allocating.
	const minQuoteSize = U64Size + U32Size + U64Size + U8Size + U64Size
	if int(count) > d.Remaining()/minQuoteSize {
		return s, d.fail("price_snapshot", errQuoteCount(count, d.Remaining()))
	}

	s.UpdatedAt = updatedAt
	s.Quotes = make([]entities.PriceQuote, 0, count)
	for i := uint32(0); i < count; i++ {
		q, err := DecodePriceQuote(d)
		if err != nil {
			return entities.PriceSnapshot{}, err
		}
		s.Quotes = append(s.Quotes, q)
	}
	return s, d.Finish()
}

// EncodePriceQuoteValue encodes a single quote as a standalone storage value.
func EncodePriceQuoteValue(q entities.PriceQuote) []byte {
	e := NewEncoder(40)
	EncodePriceQuote(e, q)
	return e.Bytes()
}

// DecodePriceQuoteValue decodes a buffer holding exactly one quote.
func DecodePriceQuoteValue(b []byte) (entities.PriceQuote, error) {
	d := NewDecoder(b)
	q, err := DecodePriceQuote(d)
	if err != nil {
		return entities.PriceQuote{}, err
	}
	return q, d.Finish()
}
