package model

import (
	"bytes"
	"fmt"
	"strconv"
)

// BridgeEvent is one deposit into the bridge as served by the indexer query
// endpoint.
type BridgeEvent struct {
	OriginNetwork      uint32   `json:"originNetwork"`
	DestinationNetwork uint32   `json:"destinationNetwork"`
	OriginAddress      string   `json:"originAddress,omitempty"`
	BlockNumber        uint64   `json:"block_number"`
	TxHash             string   `json:"transaction_hash"`
	Amount             Quantity `json:"amount"`
}

// Quantity is a base-unit amount that the indexer serves either as a JSON
// string or as a bare number.
type Quantity string

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*q = "0"
	case len(data) > 0 && data[0] == '"':
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		*q = Quantity(s)
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err != nil {
			return fmt.Errorf("quantity: invalid number %s", data)
		}
		*q = Quantity(data)
	}
	return nil
}
