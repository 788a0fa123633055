package core

import "github.com/shopspring/decimal"

// StarCoordinates locates a star and carries its story.
// RA and Dec are free-form and never parsed.
type StarCoordinates struct {
	RA        string           `json:"ra"`
	Dec       string           `json:"dec"`
	Magnitude *decimal.Decimal `json:"mag,omitempty"`
	Story     string           `json:"story"`
}

// StarRecord is the payload registered on the ledger for an address
type StarRecord struct {
	Address string          `json:"address"`
	Star    StarCoordinates `json:"star"`
}

// DecodedStar exposes the on-chain story next to its readable form
type DecodedStar struct {
	StarCoordinates
	StoryDecoded string `json:"storyDecoded"`
}

// DecodedStarRecord is a StarRecord as returned to clients
type DecodedStarRecord struct {
	Address string      `json:"address"`
	Star    DecodedStar `json:"star"`
}
