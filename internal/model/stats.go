package model

// FlowCount is a bridge count between a source and a target network.
type FlowCount struct {
	Source uint32 `json:"source"`
	Target uint32 `json:"target"`
	Value  uint64 `json:"value"`
}

// EventCount is a per-network count of bridge or claim events.
type EventCount struct {
	Network uint32 `json:"network"`
	Count   uint64 `json:"count"`
}
