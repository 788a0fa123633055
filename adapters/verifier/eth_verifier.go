package verifier

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/starnotary/core"
)

// EthVerifier checks personal_sign (EIP-191) signatures made by Ethereum wallets
type EthVerifier struct{}

// NewEthVerifier creates a new Ethereum signature verifier
func NewEthVerifier() *EthVerifier {
	return &EthVerifier{}
}

// VerifySignature recovers the signer of message and compares it with address
func (v *EthVerifier) VerifySignature(message, signatureStr, addressStr string) error {
	if !common.IsHexAddress(addressStr) {
		return fmt.Errorf("%w: %q is not a hex address", core.ErrSignatureInvalid, addressStr)
	}
	sig, err := hexutil.Decode(signatureStr)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", core.ErrSignatureInvalid)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrSignatureInvalid)
	}

	// Wallets produce V as 27/28
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("failed to recover signer: %w", core.ErrSignatureInvalid)
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(addressStr) {
		return core.ErrSignatureInvalid
	}
	return nil
}
