package permit

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/math"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-geth/signer/core/apitypes"
	"github.com/pkg/errors"
	"github.com/thpani/fuzz-pb25/fuzzing/accounts"
)

// permitTypes describes the EIP-712 types of an EIP-2612 permit.
var permitTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Permit": {
		{Name: "owner", Type: "address"},
		{Name: "spender", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// Permit describes a signed EIP-2612 authorization, along with the nonce and digest it was signed over.
type Permit struct {
	Owner    common.Address
	Spender  common.Address
	Value    *big.Int
	Nonce    *big.Int
	Deadline *big.Int

	// V, R and S are the signature components. V is 27 or 28.
	V uint8
	R [32]byte
	S [32]byte

	// Digest is the EIP-712 signing digest the signature covers.
	Digest common.Hash
}

// Args returns the permit as the argument list of `permit(owner, spender, value, deadline, v, r, s)`.
func (p *Permit) Args() []any {
	return []any{p.Owner, p.Spender, p.Value, p.Deadline, p.V, p.R, p.S}
}

// Signer issues EIP-2612 permits for the accounts of a pool, bound to one contract instance. It tracks the next
// nonce of every owner locally: a nonce is consumed by every issued signature, whether or not the permit later
// succeeds on-chain. A Signer is not safe for concurrent use.
type Signer struct {
	typedData       apitypes.TypedData
	domainSeparator common.Hash
	keys            map[common.Address]*ecdsa.PrivateKey
	nonces          map[common.Address]*big.Int
}

// NewSigner creates a Signer for the contract at verifyingContract, computing its domain separator once.
func NewSigner(name string, version string, chainID *big.Int, verifyingContract common.Address, pool *accounts.AccountPool) (*Signer, error) {
	typedData := apitypes.TypedData{
		Types:       permitTypes,
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
			VerifyingContract: verifyingContract.Hex(),
		},
	}
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, errors.Wrap(err, "could not compute permit domain separator")
	}

	keys := make(map[common.Address]*ecdsa.PrivateKey, pool.Len())
	for _, account := range pool.Accounts() {
		keys[account.Address] = account.PrivateKey
	}
	return &Signer{
		typedData:       typedData,
		domainSeparator: common.BytesToHash(domainSeparator),
		keys:            keys,
		nonces:          make(map[common.Address]*big.Int),
	}, nil
}

// DomainSeparator returns the EIP-712 domain separator permits are bound to.
func (s *Signer) DomainSeparator() common.Hash {
	return s.domainSeparator
}

// Nonce returns the nonce the next permit for the owner will be signed with.
func (s *Signer) Nonce(owner common.Address) *big.Int {
	if nonce, ok := s.nonces[owner]; ok {
		return new(big.Int).Set(nonce)
	}
	return new(big.Int)
}

// SetNonce overwrites the nonce the next permit for the owner will be signed with, e.g. to resynchronize it with the
// contract.
func (s *Signer) SetNonce(owner common.Address, nonce *big.Int) {
	s.nonces[owner] = new(big.Int).Set(nonce)
}

// Sign issues a permit letting spender move value tokens of owner until deadline. The owner's current nonce is
// embedded in the signed message and then incremented. Returns an error if the owner is not a pool account.
func (s *Signer) Sign(owner common.Address, spender common.Address, value *big.Int, deadline *big.Int) (*Permit, error) {
	key, ok := s.keys[owner]
	if !ok {
		return nil, errors.Errorf("cannot sign permit for unknown owner %s", owner.Hex())
	}

	nonce := s.Nonce(owner)
	digest, err := s.digest(owner, spender, value, nonce, deadline)
	if err != nil {
		return nil, err
	}
	signature, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, errors.Wrap(err, "could not sign permit")
	}
	s.nonces[owner] = new(big.Int).Add(nonce, big.NewInt(1))

	permit := &Permit{
		Owner:    owner,
		Spender:  spender,
		Value:    new(big.Int).Set(value),
		Nonce:    nonce,
		Deadline: new(big.Int).Set(deadline),
		V:        signature[64] + 27,
		Digest:   digest,
	}
	copy(permit.R[:], signature[:32])
	copy(permit.S[:], signature[32:64])
	return permit, nil
}

// digest computes keccak256(0x19 0x01 ‖ domainSeparator ‖ hashStruct(Permit)).
func (s *Signer) digest(owner common.Address, spender common.Address, value *big.Int, nonce *big.Int, deadline *big.Int) (common.Hash, error) {
	message := apitypes.TypedDataMessage{
		"owner":    owner.Hex(),
		"spender":  spender.Hex(),
		"value":    value,
		"nonce":    nonce,
		"deadline": deadline,
	}
	structHash, err := s.typedData.HashStruct("Permit", message)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "could not hash permit message")
	}
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, s.domainSeparator.Bytes(), structHash), nil
}
