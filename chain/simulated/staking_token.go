package simulated

import (
	"bytes"
	_ "embed"
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/pkg/errors"
	"github.com/thpani/fuzz-pb25/chain/config"
	"github.com/thpani/fuzz-pb25/compilation"
	"github.com/thpani/fuzz-pb25/utils"
)

// StakingTokenArtifactJSON is a Hardhat-style build artifact for the StakingToken contract. Its init code is
// registered with simulated ledgers created by NewStakingTokenLedger.
//
//go:embed staking_token.json
var StakingTokenArtifactJSON []byte

// StakingTokenInitialSupply is the amount of tokens minted to the deployer on construction.
var StakingTokenInitialSupply = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e18))

const (
	// StakingTokenName and StakingTokenVersion are the EIP-712 domain name and version of the StakingToken.
	StakingTokenName    = "StakingToken"
	StakingTokenVersion = "1"
)

var (
	errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	panicSelector = crypto.Keccak256([]byte("Panic(uint256)"))[:4]

	eip712DomainTypeHash = crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	permitTypeHash       = crypto.Keccak256([]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))
)

// StakingTokenArtifact parses the embedded StakingToken artifact.
func StakingTokenArtifact() (*compilation.ContractArtifact, error) {
	return compilation.ParseArtifact(StakingTokenArtifactJSON, StakingTokenName)
}

// NewStakingTokenLedger creates a simulated ledger which deploys a StakingToken when the embedded artifact's init code
// is submitted. The parsed artifact is returned alongside the ledger.
func NewStakingTokenLedger(ledgerConfig *config.LedgerConfig) (*Ledger, *compilation.ContractArtifact, error) {
	artifact, err := StakingTokenArtifact()
	if err != nil {
		return nil, nil, err
	}
	ledger := NewLedger(ledgerConfig)
	ledger.RegisterFactory(artifact.InitBytecode, artifact.RuntimeBytecode, func(deployer common.Address, address common.Address, chainID *big.Int) (Contract, error) {
		return NewStakingToken(&artifact.Abi, deployer, address, chainID), nil
	})
	return ledger, artifact, nil
}

// StakingToken is a native ERC20 token with administrators, EIP-2612 permits and 1:1 staking. Staked tokens are held
// by the token contract itself and tracked as staking shares. Arithmetic is checked: an under- or overflow reverts
// with Panic(0x11), like Solidity >= 0.8.0.
type StakingToken struct {
	contractAbi     *abi.ABI
	address         common.Address
	domainSeparator common.Hash

	balances           map[common.Address]*big.Int
	allowances         map[common.Address]map[common.Address]*big.Int
	shares             map[common.Address]*big.Int
	nonces             map[common.Address]*big.Int
	admins             map[common.Address]bool
	totalSupply        *big.Int
	totalStakingShares *big.Int
}

// NewStakingToken creates a StakingToken deployed at the provided address. The deployer becomes the sole
// administrator and receives the initial supply.
func NewStakingToken(contractAbi *abi.ABI, deployer common.Address, address common.Address, chainID *big.Int) *StakingToken {
	t := &StakingToken{
		contractAbi:        contractAbi,
		address:            address,
		balances:           make(map[common.Address]*big.Int),
		allowances:         make(map[common.Address]map[common.Address]*big.Int),
		shares:             make(map[common.Address]*big.Int),
		nonces:             make(map[common.Address]*big.Int),
		admins:             map[common.Address]bool{deployer: true},
		totalSupply:        new(big.Int).Set(StakingTokenInitialSupply),
		totalStakingShares: new(big.Int),
	}
	t.balances[deployer] = new(big.Int).Set(StakingTokenInitialSupply)
	t.domainSeparator = crypto.Keccak256Hash(
		eip712DomainTypeHash,
		crypto.Keccak256([]byte(StakingTokenName)),
		crypto.Keccak256([]byte(StakingTokenVersion)),
		common.LeftPadBytes(chainID.Bytes(), 32),
		common.LeftPadBytes(address.Bytes(), 32),
	)
	return t
}

// CorruptTotalSupply adds delta to the recorded total supply without touching any balance. It exists to let tests
// break the token's accounting.
func (t *StakingToken) CorruptTotalSupply(delta *big.Int) {
	t.totalSupply = new(big.Int).Add(t.totalSupply, delta)
}

// Run decodes the calldata against the token ABI and dispatches it.
func (t *StakingToken) Run(call *Call) ([]byte, error) {
	if len(call.Input) < 4 {
		return nil, &RevertError{}
	}
	method, err := t.contractAbi.MethodById(call.Input[:4])
	if err != nil {
		return nil, &RevertError{}
	}
	if call.Value != nil && call.Value.Sign() != 0 {
		return nil, &RevertError{}
	}
	args, err := method.Inputs.Unpack(call.Input[4:])
	if err != nil {
		return nil, &RevertError{}
	}

	outputs, err := t.dispatch(call, method.Name, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(outputs...)
}

func (t *StakingToken) dispatch(call *Call, name string, args []any) ([]any, error) {
	caller := call.Caller
	switch name {
	case "DOMAIN_SEPARATOR":
		return []any{[32]byte(t.domainSeparator)}, nil
	case "totalSupply":
		return []any{new(big.Int).Set(t.totalSupply)}, nil
	case "balanceOf":
		return []any{t.balanceOf(args[0].(common.Address))}, nil
	case "stakingShares":
		return []any{valueOf(t.shares, args[0].(common.Address))}, nil
	case "totalStakingShares":
		return []any{new(big.Int).Set(t.totalStakingShares)}, nil
	case "countAdmins":
		return []any{big.NewInt(int64(len(t.admins)))}, nil
	case "isAdmin":
		return []any{t.admins[args[0].(common.Address)]}, nil
	case "nonces":
		return []any{valueOf(t.nonces, args[0].(common.Address))}, nil
	case "allowance":
		return []any{t.allowance(args[0].(common.Address), args[1].(common.Address))}, nil
	case "transfer":
		return []any{true}, t.transfer(caller, args[0].(common.Address), args[1].(*big.Int))
	case "approve":
		t.setAllowance(caller, args[0].(common.Address), args[1].(*big.Int))
		return []any{true}, nil
	case "transferFrom":
		return []any{true}, t.transferFrom(caller, args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int))
	case "mint":
		return nil, t.mint(caller, args[0].(common.Address), args[1].(*big.Int))
	case "burn":
		return nil, t.burn(caller, args[0].(*big.Int))
	case "stake":
		return nil, t.stake(caller, args[0].(*big.Int))
	case "unstake":
		return nil, t.unstake(caller, args[0].(*big.Int))
	case "permit":
		return nil, t.permit(call.Timestamp, args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int),
			args[3].(*big.Int), args[4].(uint8), args[5].([32]byte), args[6].([32]byte))
	case "addAdmin":
		return nil, t.addAdmin(caller, args[0].(common.Address))
	case "removeAdmin":
		return nil, t.removeAdmin(caller, args[0].(common.Address))
	default:
		return nil, &RevertError{}
	}
}

func (t *StakingToken) balanceOf(account common.Address) *big.Int {
	return valueOf(t.balances, account)
}

func (t *StakingToken) allowance(owner common.Address, spender common.Address) *big.Int {
	if spenders, ok := t.allowances[owner]; ok {
		return valueOf(spenders, spender)
	}
	return new(big.Int)
}

func (t *StakingToken) setAllowance(owner common.Address, spender common.Address, amount *big.Int) {
	if _, ok := t.allowances[owner]; !ok {
		t.allowances[owner] = make(map[common.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
}

func (t *StakingToken) transfer(from common.Address, to common.Address, amount *big.Int) error {
	if to == t.address {
		return revertReason("cannot transfer to the token contract")
	}
	if t.balanceOf(from).Cmp(amount) < 0 {
		return revertPanic(0x11)
	}
	t.balances[from] = new(big.Int).Sub(t.balanceOf(from), amount)
	t.balances[to] = new(big.Int).Add(t.balanceOf(to), amount)
	return nil
}

func (t *StakingToken) transferFrom(spender common.Address, from common.Address, to common.Address, amount *big.Int) error {
	allowance := t.allowance(from, spender)
	if allowance.Cmp(amount) < 0 {
		return revertReason("insufficient allowance")
	}
	if err := t.transfer(from, to, amount); err != nil {
		return err
	}
	if allowance.Cmp(utils.MaxUint256) != 0 {
		t.setAllowance(from, spender, new(big.Int).Sub(allowance, amount))
	}
	return nil
}

func (t *StakingToken) mint(caller common.Address, to common.Address, amount *big.Int) error {
	if !t.admins[caller] {
		return t.revertUnauthorized(caller)
	}
	if to == t.address {
		return revertReason("cannot mint to the token contract")
	}
	newSupply := new(big.Int).Add(t.totalSupply, amount)
	if newSupply.Cmp(utils.MaxUint256) > 0 {
		return revertPanic(0x11)
	}
	t.totalSupply = newSupply
	t.balances[to] = new(big.Int).Add(t.balanceOf(to), amount)
	return nil
}

func (t *StakingToken) burn(caller common.Address, amount *big.Int) error {
	if t.balanceOf(caller).Cmp(amount) < 0 {
		return revertPanic(0x11)
	}
	t.balances[caller] = new(big.Int).Sub(t.balanceOf(caller), amount)
	t.totalSupply = new(big.Int).Sub(t.totalSupply, amount)
	return nil
}

func (t *StakingToken) stake(caller common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return revertReason("cannot stake zero")
	}
	if t.balanceOf(caller).Cmp(amount) < 0 {
		return revertPanic(0x11)
	}
	t.balances[caller] = new(big.Int).Sub(t.balanceOf(caller), amount)
	t.balances[t.address] = new(big.Int).Add(t.balanceOf(t.address), amount)
	t.shares[caller] = new(big.Int).Add(valueOf(t.shares, caller), amount)
	t.totalStakingShares = new(big.Int).Add(t.totalStakingShares, amount)
	return nil
}

func (t *StakingToken) unstake(caller common.Address, shares *big.Int) error {
	if shares.Sign() == 0 {
		return revertReason("cannot unstake zero")
	}
	if valueOf(t.shares, caller).Cmp(shares) < 0 {
		return revertPanic(0x11)
	}
	t.shares[caller] = new(big.Int).Sub(valueOf(t.shares, caller), shares)
	t.totalStakingShares = new(big.Int).Sub(t.totalStakingShares, shares)
	t.balances[t.address] = new(big.Int).Sub(t.balanceOf(t.address), shares)
	t.balances[caller] = new(big.Int).Add(t.balanceOf(caller), shares)
	return nil
}

func (t *StakingToken) permit(timestamp uint64, owner common.Address, spender common.Address, value *big.Int, deadline *big.Int, v uint8, r [32]byte, s [32]byte) error {
	if deadline.Cmp(new(big.Int).SetUint64(timestamp)) < 0 {
		return revertReason("permit expired")
	}
	nonce := valueOf(t.nonces, owner)
	structHash := crypto.Keccak256(
		permitTypeHash,
		common.LeftPadBytes(owner.Bytes(), 32),
		common.LeftPadBytes(spender.Bytes(), 32),
		common.LeftPadBytes(value.Bytes(), 32),
		common.LeftPadBytes(nonce.Bytes(), 32),
		common.LeftPadBytes(deadline.Bytes(), 32),
	)
	digest := crypto.Keccak256([]byte{0x19, 0x01}, t.domainSeparator.Bytes(), structHash)

	if v != 27 && v != 28 {
		return revertReason("invalid signature")
	}
	signature := make([]byte, 0, 65)
	signature = append(signature, r[:]...)
	signature = append(signature, s[:]...)
	signature = append(signature, v-27)
	publicKey, err := crypto.SigToPub(digest, signature)
	if err != nil || crypto.PubkeyToAddress(*publicKey) != owner {
		return revertReason("invalid signature")
	}

	t.nonces[owner] = new(big.Int).Add(nonce, big.NewInt(1))
	t.setAllowance(owner, spender, value)
	return nil
}

func (t *StakingToken) addAdmin(caller common.Address, account common.Address) error {
	if !t.admins[caller] {
		return t.revertUnauthorized(caller)
	}
	if t.admins[account] {
		return revertReason("already an admin")
	}
	t.admins[account] = true
	return nil
}

func (t *StakingToken) removeAdmin(caller common.Address, account common.Address) error {
	if !t.admins[caller] {
		return t.revertUnauthorized(caller)
	}
	if !t.admins[account] {
		return revertReason("not an admin")
	}
	if len(t.admins) == 1 {
		return revertReason("cannot remove the last admin")
	}
	delete(t.admins, account)
	return nil
}

// revertUnauthorized reverts with the custom Unauthorized(address) error declared in the token ABI.
func (t *StakingToken) revertUnauthorized(account common.Address) error {
	customError, ok := t.contractAbi.Errors["Unauthorized"]
	if !ok {
		return &RevertError{}
	}
	packed, err := customError.Inputs.Pack(account)
	if err != nil {
		return errors.WithStack(err)
	}
	return &RevertError{Data: append(common.CopyBytes(customError.ID.Bytes()[:4]), packed...)}
}

// revertReason reverts with an Error(string) payload.
func revertReason(reason string) error {
	stringType, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: stringType}}.Pack(reason)
	return &RevertError{Data: append(common.CopyBytes(errorSelector), packed...)}
}

// revertPanic reverts with a Panic(uint256) payload.
func revertPanic(code int64) error {
	var payload bytes.Buffer
	payload.Write(panicSelector)
	payload.Write(common.LeftPadBytes(big.NewInt(code).Bytes(), 32))
	return &RevertError{Data: payload.Bytes()}
}

// valueOf reads a mapping entry, defaulting to zero.
func valueOf(m map[common.Address]*big.Int, key common.Address) *big.Int {
	if v, ok := m[key]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}
