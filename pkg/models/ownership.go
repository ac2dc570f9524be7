package models

import "encoding/json"

// ============================================================================
// Ownership Tree
// ============================================================================

// OwnershipNode is one node in a recursive ownership tree. A node's children's
// percentages are shares of the node itself, not of the ultimate target, and
// are never implicitly renormalized. A tree is owned by exactly one
// EnrichmentBundle and never shared.
//
// Exactly one of the degradation flags may be set; a flagged node always has
// empty children. Err carries the message for nodes degraded by a recursion
// error, so a failure on one branch never aborts its siblings.
type OwnershipNode struct {
	Name           string         `json:"name"`
	RegistryNumber string         `json:"registry_number,omitempty"`
	RegistryStatus string         `json:"registry_status,omitempty"`
	SharesHeld     int64          `json:"shares_held,omitempty"`
	SharesKnown    bool           `json:"shares_known"`
	ShareClass     string         `json:"share_class,omitempty"`
	Percentage     float64        `json:"percentage"` // unset (0) on the root
	PercentageBand string         `json:"percentage_band,omitempty"`
	Classification Classification `json:"classification,omitempty"`

	ExtractionStatus ExtractionStatus `json:"extraction_status,omitempty"`
	TotalShares      int64            `json:"total_shares,omitempty"`
	Depth            int              `json:"depth"`

	// Snapshot caches the child entity's officers/control-register data for
	// downstream screening without a re-fetch.
	Snapshot json.RawMessage `json:"snapshot,omitempty"`

	Children []*OwnershipNode `json:"children"`

	CircularReference bool   `json:"circular_reference,omitempty"`
	MaxDepthReached   bool   `json:"max_depth_reached,omitempty"`
	SearchFailed      bool   `json:"search_failed,omitempty"`
	Err               string `json:"error,omitempty"`
}

// IsLeaf reports whether the node terminates a chain: an individual, or a
// corporate node that is unresolved, circular, depth-capped or degraded.
func (n *OwnershipNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Degraded reports whether any degradation flag or error is set.
func (n *OwnershipNode) Degraded() bool {
	return n.CircularReference || n.MaxDepthReached || n.SearchFailed || n.Err != ""
}

// ============================================================================
// Flattened Chains
// ============================================================================

// ChainLink is one step in a flattened ownership chain.
type ChainLink struct {
	Name           string  `json:"name"`
	Percentage     float64 `json:"percentage"`
	SharesHeld     int64   `json:"shares_held,omitempty"`
	IsCompany      bool    `json:"is_company"`
	RegistryNumber string  `json:"registry_number,omitempty"`
}

// OwnershipChain is the path from the enrichment target down to one ultimate
// owner, produced by flattening an ownership tree.
type OwnershipChain struct {
	UltimateOwner   string      `json:"ultimate_owner"`
	Chain           []ChainLink `json:"ownership_chain"`
	ChainLength     int         `json:"chain_length"`
	TotalPercentage float64     `json:"total_percentage"`
}
