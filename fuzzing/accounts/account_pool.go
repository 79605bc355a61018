package accounts

import (
	"crypto/ecdsa"
	"math/rand"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/pkg/errors"
	"github.com/thpani/fuzz-pb25/utils/randomutils"
)

// maxKeyAttempts bounds how many times key material is redrawn when it does not form a valid secp256k1 key.
const maxKeyAttempts = 16

// Account describes a test identity: a private key and the address derived from it.
type Account struct {
	// PrivateKey is the key used to sign transactions and permits for this account.
	PrivateKey *ecdsa.PrivateKey
	// Address is the address derived from PrivateKey.
	Address common.Address
}

// AccountPool holds the fixed set of accounts a campaign sends transactions from. The first account is the deployer.
// An AccountPool is not mutated after construction.
type AccountPool struct {
	accounts []Account
	index    map[common.Address]int
}

// NewAccountPool generates count accounts from random key material drawn from a provider forked off the provided one,
// so the pool is reproducible from the campaign seed.
func NewAccountPool(count int, randomProvider *rand.Rand) (*AccountPool, error) {
	if count < 1 {
		return nil, errors.Errorf("account pool requires at least one account, got %d", count)
	}

	keyProvider := randomutils.ForkRandomProvider(randomProvider)
	pool := &AccountPool{
		accounts: make([]Account, 0, count),
		index:    make(map[common.Address]int, count),
	}
	for len(pool.accounts) < count {
		key, err := newPrivateKey(keyProvider)
		if err != nil {
			return nil, err
		}
		address := crypto.PubkeyToAddress(key.PublicKey)
		// Distinct key material could, in theory, collide on an address.
		if _, exists := pool.index[address]; exists {
			continue
		}
		pool.index[address] = len(pool.accounts)
		pool.accounts = append(pool.accounts, Account{PrivateKey: key, Address: address})
	}
	return pool, nil
}

// newPrivateKey draws 32 bytes of key material until it forms a valid secp256k1 private key.
func newPrivateKey(keyProvider *rand.Rand) (*ecdsa.PrivateKey, error) {
	var lastErr error
	for i := 0; i < maxKeyAttempts; i++ {
		key, err := crypto.ToECDSA(randomutils.RandomBytes(keyProvider, 32))
		if err == nil {
			return key, nil
		}
		lastErr = err
	}
	return nil, errors.Wrap(lastErr, "could not generate an account key")
}

// Accounts returns every account in the pool, deployer first.
func (p *AccountPool) Accounts() []Account {
	return append([]Account(nil), p.accounts...)
}

// Addresses returns the addresses of every account in the pool, deployer first.
func (p *AccountPool) Addresses() []common.Address {
	addresses := make([]common.Address, len(p.accounts))
	for i, account := range p.accounts {
		addresses[i] = account.Address
	}
	return addresses
}

// Len returns the number of accounts in the pool.
func (p *AccountPool) Len() int {
	return len(p.accounts)
}

// Deployer returns the account which deploys the contract under test and sends read-only queries.
func (p *AccountPool) Deployer() Account {
	return p.accounts[0]
}

// Random returns an account chosen uniformly at random, consuming one draw from the provider.
func (p *AccountPool) Random(randomProvider *rand.Rand) Account {
	return p.accounts[randomProvider.Intn(len(p.accounts))]
}

// Lookup returns the account with the provided address, if it belongs to the pool.
func (p *AccountPool) Lookup(address common.Address) (Account, bool) {
	i, ok := p.index[address]
	if !ok {
		return Account{}, false
	}
	return p.accounts[i], true
}
