package model

// WrappedTokenMapping is a NewWrappedToken event as served by the indexer.
type WrappedTokenMapping struct {
	OriginNetwork       uint32 `json:"originNetwork"`
	OriginTokenAddress  string `json:"originTokenAddress"`
	WrappedTokenAddress string `json:"wrappedTokenAddress"`
	Metadata            string `json:"metadata"`
	// RollupID is the network holding the wrapped asset.
	RollupID    uint32 `json:"rollup_id"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	TxHash      string `json:"transaction_hash,omitempty"`
	LogIndex    uint64 `json:"log_index,omitempty"`
}
