package chain

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	"github.com/crytic/medusa-geth/core/vm"
)

// newLedgerBlockContext obtains a new vm.BlockContext for a TestLedger pseudo-block.
func newLedgerBlockContext(number uint64, time uint64, baseFee *big.Int, gasLimit uint64) vm.BlockContext {
	// The previous randao value is set so the EVM treats the chain as post-merge, enabling Shanghai and later forks.
	random := pseudoBlockHash(number)
	return vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash: func(n uint64) common.Hash {
			if n >= number {
				return common.Hash{}
			}
			return pseudoBlockHash(n)
		},
		Coinbase:    common.Address{},
		BlockNumber: new(big.Int).SetUint64(number),
		Time:        time,
		Difficulty:  big.NewInt(0),
		BaseFee:     new(big.Int).Set(baseFee),
		BlobBaseFee: big.NewInt(1),
		GasLimit:    gasLimit,
		Random:      &random,
	}
}
