package harness

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/thpani/fuzz-pb25/chain"
	"github.com/thpani/fuzz-pb25/chain/types"
	"github.com/thpani/fuzz-pb25/compilation"
	"github.com/thpani/fuzz-pb25/compilation/abiutils"
	"github.com/thpani/fuzz-pb25/fuzzing/accounts"
	"github.com/thpani/fuzz-pb25/logging"
)

// Harness is the only component which submits transactions to the ledger. It funds every sender before submission
// so that ether balances never gate an episode, deploys the contract under test, and answers read-only queries about
// its state on behalf of the call generator and the invariant checker.
type Harness struct {
	ledger        chain.Ledger
	pool          *accounts.AccountPool
	signer        gethTypes.Signer
	senderBalance *uint256.Int

	// contractAbi and contractAddress describe the deployed contract under test. They are set by Deploy.
	contractAbi     *abi.ABI
	contractAddress *common.Address

	errorDecoder *abiutils.ErrorDecoder
	logger       *logging.Logger
}

// NewHarness creates a Harness submitting to the provided ledger from accounts of the provided pool. Every sender is
// credited with senderBalance wei before each submission.
func NewHarness(ledger chain.Ledger, pool *accounts.AccountPool, senderBalance *big.Int) (*Harness, error) {
	if senderBalance == nil || senderBalance.Sign() < 0 {
		return nil, errors.Errorf("sender balance %v must be non-negative", senderBalance)
	}
	balance, overflow := uint256.FromBig(senderBalance)
	if overflow {
		return nil, errors.Errorf("sender balance %v does not fit in a uint256", senderBalance)
	}
	return &Harness{
		ledger:        ledger,
		pool:          pool,
		signer:        gethTypes.LatestSignerForChainID(ledger.ChainID()),
		senderBalance: balance,
		errorDecoder:  abiutils.NewErrorDecoder(nil),
		logger:        logging.GlobalLogger.NewSubLogger("module", logging.HARNESS_SERVICE),
	}, nil
}

// Submit signs a legacy transaction from the signer to the target (or a contract creation when to is nil) and
// applies it. The signer is credited with the configured sender balance first. The returned error is reserved for
// transactions the ledger refused to include; reverts are reported through the result.
func (h *Harness) Submit(signer accounts.Account, to *common.Address, data []byte, value *big.Int) (*types.ExecutionResult, error) {
	if value == nil {
		value = new(big.Int)
	}
	nonce := h.ledger.GetNonce(signer.Address)
	gasPrice := h.ledger.GasPrice()
	h.ledger.SetBalance(signer.Address, h.senderBalance)

	tx := gethTypes.NewTx(&gethTypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      h.ledger.GasLimit(),
		To:       to,
		Value:    value,
		Data:     data,
	})
	signedTx, err := gethTypes.SignTx(tx, h.signer, signer.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "could not sign transaction")
	}

	result, err := h.ledger.ApplyTransaction(signedTx)
	if err != nil {
		return nil, errors.Wrapf(err, "transaction from %s was rejected", signer.Address.Hex())
	}
	return result, nil
}

// Deploy deploys the artifact from the pool's deployer and records the contract address. When verify is set, the
// code stored at the address must equal the artifact's runtime bytecode.
func (h *Harness) Deploy(artifact *compilation.ContractArtifact, verify bool) (common.Address, error) {
	if h.contractAddress != nil {
		return common.Address{}, errors.Errorf("contract already deployed at %s", h.contractAddress.Hex())
	}

	deployer := h.pool.Deployer()
	result, err := h.Submit(deployer, nil, artifact.InitBytecode, nil)
	if err != nil {
		return common.Address{}, errors.Wrapf(err, "could not deploy contract '%s'", artifact.Name)
	}
	if result.Failed() {
		return common.Address{}, errors.Errorf("deployment of contract '%s' failed: %s", artifact.Name, abiutils.NewErrorDecoder(&artifact.Abi).Decode(result))
	}
	if result.ContractAddress == nil {
		return common.Address{}, errors.Errorf("deployment of contract '%s' did not report a contract address", artifact.Name)
	}
	address := *result.ContractAddress

	if metadata := artifact.Metadata(); metadata != nil {
		if version := metadata.CompilerVersion(); version != nil && !metadata.HasPanicCodes() {
			h.logger.Warn("Contract '", artifact.Name, "' was compiled with solc ", version.String(),
				", arithmetic failures will not be reported as Panic(0x11)")
		}
	}

	if verify {
		if err := verifyDeployedCode(artifact, h.ledger.GetCode(address)); err != nil {
			return common.Address{}, err
		}
	}

	h.contractAbi = &artifact.Abi
	h.contractAddress = &address
	h.errorDecoder = abiutils.NewErrorDecoder(&artifact.Abi)
	h.logger.Info("Deployed contract '", artifact.Name, "' to ", address.Hex(), " from ", deployer.Address.Hex())
	return address, nil
}

// verifyDeployedCode compares the code stored after deployment with the artifact's runtime bytecode. Mismatches are
// described using the bytecode hashes embedded in the contract metadata, if present.
func verifyDeployedCode(artifact *compilation.ContractArtifact, deployedCode []byte) error {
	if len(artifact.RuntimeBytecode) == 0 {
		return errors.Errorf("contract '%s' has no runtime bytecode to verify the deployment against", artifact.Name)
	}
	if bytes.Equal(deployedCode, artifact.RuntimeBytecode) {
		return nil
	}

	detail := fmt.Sprintf("deployed %d bytes, expected %d bytes", len(deployedCode), len(artifact.RuntimeBytecode))
	deployedMetadata := compilation.ExtractContractMetadata(deployedCode)
	expectedMetadata := artifact.Metadata()
	if deployedMetadata != nil && expectedMetadata != nil {
		detail = fmt.Sprintf("%s, deployed metadata hash 0x%x, expected metadata hash 0x%x", detail,
			deployedMetadata.ExtractBytecodeHash(), expectedMetadata.ExtractBytecodeHash())
	}
	if bytes.Equal(compilation.RemoveContractMetadata(deployedCode), compilation.RemoveContractMetadata(artifact.RuntimeBytecode)) {
		detail += ", code differs only in its metadata"
	}
	return errors.Errorf("code deployed for contract '%s' does not match its runtime bytecode: %s", artifact.Name, detail)
}

// ContractAddress returns the address of the deployed contract under test. It must only be called after Deploy.
func (h *Harness) ContractAddress() common.Address {
	if h.contractAddress == nil {
		return common.Address{}
	}
	return *h.contractAddress
}

// ErrorDecoder returns the decoder for failures of the contract under test.
func (h *Harness) ErrorDecoder() *abiutils.ErrorDecoder {
	return h.errorDecoder
}

// Call packs a call to the named method of the contract under test and submits it from the signer.
func (h *Harness) Call(signer accounts.Account, method string, args ...any) (*types.ExecutionResult, error) {
	if h.contractAddress == nil {
		return nil, errors.New("contract has not been deployed")
	}
	data, err := h.contractAbi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode call to '%s'", method)
	}
	return h.Submit(signer, h.contractAddress, data, nil)
}

// queryUint256 calls a method returning a single uint256 from the deployer and returns its value.
func (h *Harness) queryUint256(method string, args ...any) (*big.Int, error) {
	result, err := h.Call(h.pool.Deployer(), method, args...)
	if err != nil {
		return nil, &QueryFailedError{Method: method, Args: args, Err: err}
	}
	if result.Failed() {
		return nil, &QueryFailedError{Method: method, Args: args, Reason: h.errorDecoder.Decode(result)}
	}
	values, err := h.contractAbi.Unpack(method, result.ReturnData)
	if err != nil {
		return nil, &QueryFailedError{Method: method, Args: args, Err: errors.Wrap(err, "could not decode return data")}
	}
	if len(values) != 1 {
		return nil, &QueryFailedError{Method: method, Args: args, Reason: fmt.Sprintf("expected one return value, got %d", len(values))}
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, &QueryFailedError{Method: method, Args: args, Reason: fmt.Sprintf("expected a uint256 return value, got %T", values[0])}
	}
	return value, nil
}

// BalanceOf queries the token balance of the account.
func (h *Harness) BalanceOf(account common.Address) (*big.Int, error) {
	return h.queryUint256("balanceOf", account)
}

// TotalSupply queries the total token supply.
func (h *Harness) TotalSupply() (*big.Int, error) {
	return h.queryUint256("totalSupply")
}

// StakingShares queries the staking shares held by the account.
func (h *Harness) StakingShares(account common.Address) (*big.Int, error) {
	return h.queryUint256("stakingShares", account)
}

// TotalStakingShares queries the total staking shares issued.
func (h *Harness) TotalStakingShares() (*big.Int, error) {
	return h.queryUint256("totalStakingShares")
}

// CountAdmins queries the number of administrators.
func (h *Harness) CountAdmins() (*big.Int, error) {
	return h.queryUint256("countAdmins")
}

// PermitNonce queries the permit nonce the contract expects next for the owner.
func (h *Harness) PermitNonce(owner common.Address) (*big.Int, error) {
	return h.queryUint256("nonces", owner)
}
