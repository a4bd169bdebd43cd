// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/nuonetwork/staking/kv"
)

var (
	stakePrefix = []byte("s")
	nextIDKey   = []byte("next-stake-id")
)

func stakeKey(id uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = stakePrefix[0]
	binary.BigEndian.PutUint64(key[1:], id)
	return key
}

func putStake(batch kv.Batch, s *Stake) error {
	data, err := rlp.EncodeToBytes(s)
	if err != nil {
		return errors.Wrap(err, "encode stake")
	}
	return batch.Put(stakeKey(s.ID), data)
}

func putNextID(batch kv.Batch, next uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	return batch.Put(nextIDKey, buf[:])
}

// loadAll replays every persisted stake, in id order, into the callback.
// Returns the persisted id counter (0 when the store is fresh).
func loadAll(store kv.Getter, cb func(*Stake) error) (uint64, error) {
	it := store.NewIterator(kv.PrefixRange(stakePrefix))
	defer it.Release()

	for it.Next() {
		var s Stake
		if err := rlp.DecodeBytes(it.Value(), &s); err != nil {
			return 0, errors.Wrap(err, "decode stake")
		}
		if err := cb(&s); err != nil {
			return 0, err
		}
	}
	if err := it.Error(); err != nil {
		return 0, errors.Wrap(err, "iterate stakes")
	}

	data, err := store.Get(nextIDKey)
	if err != nil {
		if store.IsNotFound(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "load stake id counter")
	}
	if len(data) != 8 {
		return 0, errors.New("corrupt stake id counter")
	}
	return binary.BigEndian.Uint64(data), nil
}
