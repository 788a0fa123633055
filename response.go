package starnotary

import (
	"encoding/json"

	"github.com/layer-3/starnotary/core"
)

// SessionResponse describes a freshly issued challenge
type SessionResponse struct {
	Address          string `json:"address"`
	RequestTimeStamp int64  `json:"requestTimeStamp"`
	Message          string `json:"message"`
	ValidationWindow int64  `json:"validationWindow"`
}

// NewSessionResponse assembles the response for a newly issued session
func NewSessionResponse(session *core.Session) SessionResponse {
	return SessionResponse{
		Address:          session.Address,
		RequestTimeStamp: session.IssuedAt,
		Message:          session.ChallengeMessage(),
		ValidationWindow: session.WindowSeconds(),
	}
}

// AuthenticationStatus is the status block of an AuthenticationResponse
type AuthenticationStatus struct {
	Address          string `json:"address"`
	RequestTimeStamp int64  `json:"requestTimeStamp"`
	Message          string `json:"message"`
	ValidationWindow int64  `json:"validationWindow"`
	MessageSignature bool   `json:"messageSignature"`
}

// AuthenticationResponse reports whether the address may register a star
type AuthenticationResponse struct {
	RegisterStar bool                 `json:"registerStar"`
	Status       AuthenticationStatus `json:"status"`
}

// NewAuthenticationResponse assembles the response for an authentication result
func NewAuthenticationResponse(result *core.AuthenticationResult) AuthenticationResponse {
	return AuthenticationResponse{
		RegisterStar: result.RegisterStar,
		Status: AuthenticationStatus{
			Address:          result.Status.Address,
			RequestTimeStamp: result.Status.RequestTimeStamp,
			Message:          result.Status.Message,
			ValidationWindow: result.Status.ValidationWindow,
			MessageSignature: result.Status.MessageSignature,
		},
	}
}

// SingleStarResponse is one block with its story decoded
type SingleStarResponse struct {
	Hash              string          `json:"hash"`
	Height            uint64          `json:"height"`
	Body              json.RawMessage `json:"body"`
	Time              string          `json:"time"`
	PreviousBlockHash string          `json:"previousBlockHash"`
}

// NewSingleStarResponse decodes block for clients; the genesis block passes through as stored
func NewSingleStarResponse(block core.Block) (SingleStarResponse, error) {
	decoded, err := core.DecodeStarBlock(block)
	if err != nil {
		return SingleStarResponse{}, err
	}
	return SingleStarResponse{
		Hash:              decoded.Hash,
		Height:            decoded.Height,
		Body:              decoded.Body,
		Time:              decoded.Time,
		PreviousBlockHash: decoded.PreviousBlockHash,
	}, nil
}

// MultiStarResponse is an ordered list of decoded blocks
type MultiStarResponse []SingleStarResponse

// NewMultiStarResponse decodes blocks keeping their order
func NewMultiStarResponse(blocks []core.Block) (MultiStarResponse, error) {
	stars := make(MultiStarResponse, 0, len(blocks))
	for _, block := range blocks {
		if err := stars.Add(block); err != nil {
			return nil, err
		}
	}
	return stars, nil
}

// Add decodes block and appends it
func (m *MultiStarResponse) Add(block core.Block) error {
	star, err := NewSingleStarResponse(block)
	if err != nil {
		return err
	}
	*m = append(*m, star)
	return nil
}
