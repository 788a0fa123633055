package ports

import "github.com/layer-3/starnotary/core"

// Tokenizer converts between registration grants and tokens
type Tokenizer interface {
	GrantToToken(grant *core.Grant) (string, error)
	TokenToGrant(token string) (*core.Grant, error)
}
