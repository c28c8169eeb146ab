package model

// TokenMeta captures the identity decoded from a wrapped-token metadata blob.
type TokenMeta struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}
