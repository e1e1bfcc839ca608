package session

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
)

const badgerKey = "dealerdesk/session"

// BadgerStore keeps the envelope under a single key of a badger database.
type BadgerStore struct {
	db    *badger.DB
	owned bool
}

// OpenBadgerStore opens (or creates) a database in dir. Close releases it.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, owned: true}, nil
}

// NewBadgerStore uses an already opened database. Close leaves it open.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (b *BadgerStore) Load(context.Context) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKey))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, constants.ErrNoSession
	}
	return data, err
}

func (b *BadgerStore) Save(_ context.Context, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKey), data)
	})
}

func (b *BadgerStore) Delete(context.Context) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerKey))
	})
}

func (b *BadgerStore) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}
