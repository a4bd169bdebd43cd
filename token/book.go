// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/nuonetwork/staking/nuo"
)

var (
	// ErrInsufficientBalance indicates a transfer above the sender's balance.
	ErrInsufficientBalance = errors.New("insufficient token balance")
	// ErrInvalidTransfer indicates a non-positive transfer amount.
	ErrInvalidTransfer = errors.New("invalid transfer amount")
)

// Book is an in-process fungible token ledger. Balances never go negative.
type Book struct {
	mu       sync.RWMutex
	balances map[nuo.Address]*big.Int
}

// NewBook creates an empty token book.
func NewBook() *Book {
	return &Book{balances: make(map[nuo.Address]*big.Int)}
}

// Mint credits the holder, growing supply.
func (b *Book) Mint(holder nuo.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[holder]
	if !ok {
		bal = new(big.Int)
		b.balances[holder] = bal
	}
	bal.Add(bal, amount)
}

// Transfer moves amount between holders, failing without effect if the
// sender's balance is insufficient.
func (b *Book) Transfer(from, to nuo.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidTransfer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fromBal := b.balances[from]
	if fromBal == nil || fromBal.Cmp(amount) < 0 {
		return errors.WithMessagef(ErrInsufficientBalance, "holder %s", from)
	}
	fromBal.Sub(fromBal, amount)

	toBal, ok := b.balances[to]
	if !ok {
		toBal = new(big.Int)
		b.balances[to] = toBal
	}
	toBal.Add(toBal, amount)
	return nil
}

// Balance returns the holder's balance.
func (b *Book) Balance(holder nuo.Address) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if bal, ok := b.balances[holder]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Custody binds a book to the engine's custody account, implementing Token.
type Custody struct {
	book *Book
	addr nuo.Address
}

var _ Token = (*Custody)(nil)

// NewCustody creates the Token view of the book for the custody account.
func NewCustody(book *Book, addr nuo.Address) *Custody {
	return &Custody{book: book, addr: addr}
}

// Address returns the custody account.
func (c *Custody) Address() nuo.Address {
	return c.addr
}

// TransferIn pulls tokens from a holder into custody.
func (c *Custody) TransferIn(from nuo.Address, amount *big.Int) error {
	return c.book.Transfer(from, c.addr, amount)
}

// TransferOut pays tokens out of custody.
func (c *Custody) TransferOut(to nuo.Address, amount *big.Int) error {
	return c.book.Transfer(c.addr, to, amount)
}

// BalanceOf returns the holder's balance.
func (c *Custody) BalanceOf(holder nuo.Address) *big.Int {
	return c.book.Balance(holder)
}
