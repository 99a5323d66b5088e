package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	dErrors "metrina/pkg/domain-errors"
)

// permitVersion is the fixed version tag bound into the permit domain
// separator. It never changes within a deployment.
const permitVersion = "2"

var (
	domainTypeHash = crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	permitTypeHash = crypto.Keccak256([]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))
)

// Permit sets the allowance (owner -> spender) to value, authorized by a
// typed-data signature instead of a direct call from owner. The signed
// message binds owner, spender, value, owner's current nonce and the
// deadline under the ledger's domain separator; a successful permit consumes
// the nonce, so the same signature can never apply twice.
func (t *Token) Permit(_ context.Context, owner, spender common.Address, value, deadline *big.Int, signature []byte) error {
	if err := requireAmount(value); err != nil {
		return err
	}
	if deadline == nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "deadline is required")
	}
	if len(signature) != 65 {
		return dErrors.New(dErrors.CodeInvalidArgument, "signature must be 65 bytes")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if big.NewInt(t.now().Unix()).Cmp(deadline) > 0 {
		return dErrors.New(dErrors.CodeExpired, "permit deadline passed")
	}

	digest := t.permitDigest(owner, spender, value, t.nonces[owner], deadline)
	signer, err := recoverSigner(digest, signature)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "malformed signature")
	}
	if signer != owner {
		return dErrors.New(dErrors.CodeUnauthorized, "signature does not match owner")
	}

	t.nonces[owner]++
	setAllowance(t.allowances, owner, spender, value)
	t.emitApproval(owner, spender, value)
	return nil
}

// PermitDigest exposes the digest a wallet must sign for the given permit
// parameters and the owner's current nonce. Read-only helper for clients.
func (t *Token) PermitDigest(owner, spender common.Address, value, deadline *big.Int) []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.permitDigest(owner, spender, value, t.nonces[owner], deadline)
}

func (t *Token) permitDigest(owner, spender common.Address, value *big.Int, nonce uint64, deadline *big.Int) []byte {
	structHash := crypto.Keccak256(encodeWords(
		permitTypeHash,
		addressWord(owner),
		addressWord(spender),
		uint256Word(value),
		uint256Word(new(big.Int).SetUint64(nonce)),
		uint256Word(deadline),
	))
	return crypto.Keccak256([]byte{0x19, 0x01}, t.domainSeparator(), structHash)
}

// domainSeparator derives the EIP-712 domain from the ledger's name, the
// fixed version tag, the execution network id and the ledger's own address.
func (t *Token) domainSeparator() []byte {
	return crypto.Keccak256(encodeWords(
		domainTypeHash,
		crypto.Keccak256([]byte(t.cfg.Name)),
		crypto.Keccak256([]byte(permitVersion)),
		uint256Word(t.cfg.ChainID),
		addressWord(t.cfg.Address),
	))
}

func recoverSigner(digest []byte, signature []byte) (common.Address, error) {
	sig := make([]byte, 65)
	copy(sig, signature)
	// Accept both the raw 0/1 recovery id and the Ethereum 27/28 convention.
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// encodeWords concatenates 32-byte words, ABI-style.
func encodeWords(words ...[]byte) []byte {
	out := make([]byte, 0, 32*len(words))
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

func uint256Word(v *big.Int) []byte {
	word := make([]byte, 32)
	if v != nil {
		v.FillBytes(word)
	}
	return word
}

func addressWord(addr common.Address) []byte {
	word := make([]byte, 32)
	copy(word[12:], addr.Bytes())
	return word
}
