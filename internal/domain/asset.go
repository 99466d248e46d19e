package domain

// Principal is an opaque authenticated identity supplied by the wallet layer.
// The core never inspects it.
type Principal string

// AssetID uniquely identifies an asset within the registry.
type AssetID uint64

// Asset is a uniquely identified digital item tracked by the registry.
// Creator is set at mint time and never changes; Holder is mutated only by
// registry transfers on successful settlement or auction return.
type Asset struct {
	ID          AssetID   `json:"id"`
	Holder      Principal `json:"holder"`
	Creator     Principal `json:"creator"`
	MetadataRef string    `json:"metadata_ref"` // opaque content-addressed handle
}

// Approval is a blanket custody grant: Operator may move any asset held by
// Owner. Revoked approvals are removed, not flagged.
type Approval struct {
	Owner    Principal `json:"owner"`
	Operator Principal `json:"operator"`
}
