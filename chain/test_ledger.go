package chain

import (
	"encoding/binary"
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	"github.com/crytic/medusa-geth/core/rawdb"
	gethState "github.com/crytic/medusa-geth/core/state"
	"github.com/crytic/medusa-geth/core/tracing"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/core/vm"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-geth/params"
	"github.com/crytic/medusa-geth/triedb"
	"github.com/crytic/medusa-geth/triedb/hashdb"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/thpani/fuzz-pb25/chain/config"
	"github.com/thpani/fuzz-pb25/chain/types"
	"github.com/thpani/fuzz-pb25/utils"
)

// TestLedger is an in-memory EVM ledger used for fuzzing. It keeps a single world state, strips away blocks and
// consensus objects, and applies each transaction in its own pseudo-block whose number and timestamp advance by one.
type TestLedger struct {
	// config describes the ledger parameters this instance was created with.
	config *config.LedgerConfig

	// chainConfig represents the go-ethereum fork configuration used by the EVM.
	chainConfig *params.ChainConfig

	// vmConfigExtensions defines EVM extensions to use with each transaction.
	vmConfigExtensions *vm.ConfigExtensions

	// signer recovers transaction senders for the configured chain ID.
	signer gethTypes.Signer

	// stateDatabase refers to the database object which state uses to store data.
	stateDatabase gethState.Database

	// state represents the current world state: balances, nonces, code and storage.
	state *gethState.StateDB

	// blockNumber and blockTime describe the pseudo-block the last transaction was applied in.
	blockNumber uint64
	blockTime   uint64
}

// NewTestLedger creates an empty in-memory ledger with every fork up to Prague active from genesis. If a nil config
// is provided, a default one is used.
func NewTestLedger(ledgerConfig *config.LedgerConfig) (*TestLedger, error) {
	if ledgerConfig == nil {
		ledgerConfig = config.DefaultLedgerConfig()
	}

	// Copy our chain config, so it is not shared across ledgers.
	chainConfig, err := utils.CopyChainConfig(params.TestChainConfig)
	if err != nil {
		return nil, err
	}
	forkTime := uint64(0)
	chainConfig.ChainID = ledgerConfig.ChainIDBig()
	chainConfig.ShanghaiTime = &forkTime
	chainConfig.CancunTime = &forkTime
	chainConfig.PragueTime = &forkTime
	chainConfig.BlobScheduleConfig = params.DefaultBlobSchedule

	// Create an in-memory database and an empty state over it.
	db := rawdb.NewMemoryDatabase()
	trieDB := triedb.NewDatabase(db, &triedb.Config{HashDB: hashdb.Defaults})
	stateDatabase := gethState.NewDatabase(trieDB, nil)
	stateDB, err := gethState.New(gethTypes.EmptyRootHash, stateDatabase)
	if err != nil {
		return nil, errors.Wrap(err, "could not create ledger state")
	}

	return &TestLedger{
		config:             ledgerConfig,
		chainConfig:        chainConfig,
		vmConfigExtensions: ledgerConfig.GetVMConfigExtensions(),
		signer:             gethTypes.LatestSignerForChainID(chainConfig.ChainID),
		stateDatabase:      stateDatabase,
		state:              stateDB,
	}, nil
}

// Close releases the trie database cache. A ledger must not be used after it is closed.
func (l *TestLedger) Close() {
	l.stateDatabase.TrieDB().Close()
}

// ChainID returns the chain identifier transactions must be signed for.
func (l *TestLedger) ChainID() *big.Int {
	return new(big.Int).Set(l.chainConfig.ChainID)
}

// GasPrice returns the configured base fee, which is the cheapest price a transaction can offer.
func (l *TestLedger) GasPrice() *big.Int {
	return new(big.Int).SetUint64(l.config.BaseFee)
}

// GasLimit returns the configured per-transaction gas limit.
func (l *TestLedger) GasLimit() uint64 {
	return l.config.TransactionGasLimit
}

// BlockNumber returns the number of the pseudo-block the last transaction was applied in.
func (l *TestLedger) BlockNumber() uint64 {
	return l.blockNumber
}

// GetNonce returns the current nonce of the provided account.
func (l *TestLedger) GetNonce(address common.Address) uint64 {
	return l.state.GetNonce(address)
}

// GetBalance returns the current ether balance of the provided account.
func (l *TestLedger) GetBalance(address common.Address) *uint256.Int {
	return l.state.GetBalance(address).Clone()
}

// SetBalance overwrites the ether balance of the provided account.
func (l *TestLedger) SetBalance(address common.Address, amount *uint256.Int) {
	l.state.SetBalance(address, amount, tracing.BalanceChangeUnspecified)
	l.state.Finalise(true)
}

// GetCode returns the code stored at the provided address.
func (l *TestLedger) GetCode(address common.Address) []byte {
	return common.CopyBytes(l.state.GetCode(address))
}

// ApplyTransaction executes a signed transaction against the current state in a new pseudo-block.
func (l *TestLedger) ApplyTransaction(tx *gethTypes.Transaction) (*types.ExecutionResult, error) {
	baseFee := l.GasPrice()
	msg, err := core.TransactionToMessage(tx, l.signer, baseFee)
	if err != nil {
		return nil, errors.Wrap(err, "could not derive message from transaction")
	}

	// Create the block context for the pseudo-block this transaction lands in.
	blockNumber := l.blockNumber + 1
	blockTime := l.blockTime + 1
	blockContext := newLedgerBlockContext(blockNumber, blockTime, baseFee, l.config.BlockGasLimit)

	// Create our EVM instance.
	l.state.SetTxContext(tx.Hash(), 0)
	evm := vm.NewEVM(blockContext, l.state, l.chainConfig, vm.Config{
		NoBaseFee:        true,
		ConfigExtensions: l.vmConfigExtensions,
	})

	// Consensus-level failures (bad nonce, insufficient funds for gas) may have touched state before being
	// detected, so they are rolled back entirely.
	snapshot := l.state.Snapshot()
	gasPool := new(core.GasPool).AddGas(l.config.BlockGasLimit)
	executionResult, err := core.ApplyMessage(evm, msg, gasPool)
	if err != nil {
		l.state.RevertToSnapshot(snapshot)
		return nil, errors.Wrap(err, "transaction could not be applied")
	}
	l.state.Finalise(true)
	l.blockNumber = blockNumber
	l.blockTime = blockTime

	result := &types.ExecutionResult{
		Success: !executionResult.Failed(),
		GasUsed: executionResult.UsedGas,
		Err:     executionResult.Err,
	}
	if executionResult.Failed() {
		result.RevertData = common.CopyBytes(executionResult.Revert())
	} else {
		result.ReturnData = common.CopyBytes(executionResult.Return())
	}

	// If the transaction created a contract, record the creation address.
	if msg.To == nil {
		contractAddress := crypto.CreateAddress(msg.From, tx.Nonce())
		result.ContractAddress = &contractAddress
	}
	return result, nil
}

// pseudoBlockHash derives a stable hash for a pseudo-block number, served to the BLOCKHASH opcode.
func pseudoBlockHash(number uint64) common.Hash {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], number)
	return crypto.Keccak256Hash(b[:])
}
