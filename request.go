package starnotary

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/layer-3/starnotary/core"
	"github.com/shopspring/decimal"
)

// SessionRequest asks for an ownership challenge
type SessionRequest struct {
	Address string `json:"address" binding:"required"`
}

// AuthenticationRequest submits the signed challenge
type AuthenticationRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// StarRequest is the star as submitted by clients, story in plain text
type StarRequest struct {
	RA        string           `json:"ra" binding:"required"`
	Dec       string           `json:"dec" binding:"required"`
	Magnitude *decimal.Decimal `json:"mag,omitempty"`
	Story     string           `json:"story"`
}

// RegisterStarRequest registers a star for an authenticated address
type RegisterStarRequest struct {
	Address string      `json:"address" binding:"required"`
	Star    StarRequest `json:"star"`
}

// ParseSessionRequest decodes and validates a session request
func ParseSessionRequest(data []byte) (SessionRequest, error) {
	var req SessionRequest
	if err := bind(data, &req); err != nil {
		return SessionRequest{}, err
	}
	return req, nil
}

// ParseAuthenticationRequest decodes and validates an authentication request
func ParseAuthenticationRequest(data []byte) (AuthenticationRequest, error) {
	var req AuthenticationRequest
	if err := bind(data, &req); err != nil {
		return AuthenticationRequest{}, err
	}
	return req, nil
}

// ParseRegisterStarRequest decodes and validates a star registration
func ParseRegisterStarRequest(data []byte) (RegisterStarRequest, error) {
	var req RegisterStarRequest
	if err := bind(data, &req); err != nil {
		return RegisterStarRequest{}, err
	}
	return req, nil
}

// Record returns the star record as submitted
func (r RegisterStarRequest) Record() core.StarRecord {
	return core.StarRecord{
		Address: r.Address,
		Star: core.StarCoordinates{
			RA:        r.Star.RA,
			Dec:       r.Star.Dec,
			Magnitude: r.Star.Magnitude,
			Story:     r.Star.Story,
		},
	}
}

// EncodedRecord returns the star record ready to be appended to the ledger
func (r RegisterStarRequest) EncodedRecord() core.StarRecord {
	return core.EncodeStarRecord(r.Record())
}

func bind(data []byte, obj any) error {
	if err := binding.JSON.BindBody(data, obj); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
