package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/verbetes/verbete-server/internal/store"
)

// entity provides keyed CRUD for one record type inside caller-owned
// transactions. Records live at prefix+zero-padded id so prefix scans
// return them in id order; unique secondary indexes live at
// prefix+"idx:"+name+":"+value and hold the decimal id.
type entity[T any] struct {
	prefix  string
	indexes []index[T]
}

type index[T any] struct {
	name   string
	keyGen func(*T) []string
}

func newEntity[T any](prefix string) *entity[T] {
	return &entity[T]{prefix: prefix}
}

// withIndex adds a unique secondary index. Empty generated values are
// not indexed.
func (e *entity[T]) withIndex(name string, keyGen func(*T) []string) *entity[T] {
	e.indexes = append(e.indexes, index[T]{name: name, keyGen: keyGen})
	return e
}

func (e *entity[T]) key(id int64) []byte {
	return fmt.Appendf(nil, "%s%020d", e.prefix, id)
}

func (e *entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

func (e *entity[T]) indexValues(idx index[T], v *T) []string {
	return slices.DeleteFunc(idx.keyGen(v), func(s string) bool { return s == "" })
}

// get returns store.ErrNotFound when id is absent.
func (e *entity[T]) get(txn *badger.Txn, id int64) (*T, error) {
	item, err := txn.Get(e.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	var v T
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &v)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s%d: %w", e.prefix, id, err)
	}
	return &v, nil
}

// lookup resolves a unique index value to its record.
func (e *entity[T]) lookup(txn *badger.Txn, name, value string) (*T, error) {
	item, err := txn.Get(e.indexKey(name, value))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get index key: %w", err)
	}
	var id int64
	err = item.Value(func(val []byte) error {
		id, err = strconv.ParseInt(string(val), 10, 64)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode index %s: %w", name, err)
	}
	return e.get(txn, id)
}

// exists reports whether a unique index value is taken.
func (e *entity[T]) exists(txn *badger.Txn, name, value string) (bool, error) {
	_, err := txn.Get(e.indexKey(name, value))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// insert writes a new record. Returns store.ErrAlreadyExists if id or a
// unique index value is taken.
func (e *entity[T]) insert(txn *badger.Txn, id int64, v *T) error {
	_, err := txn.Get(e.key(id))
	if err == nil {
		return store.ErrAlreadyExists
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("check existing key: %w", err)
	}
	return e.write(txn, id, nil, v)
}

// replace overwrites an existing record. Returns store.ErrNotFound if
// id is absent.
func (e *entity[T]) replace(txn *badger.Txn, id int64, v *T) error {
	old, err := e.get(txn, id)
	if err != nil {
		return err
	}
	return e.write(txn, id, old, v)
}

func (e *entity[T]) write(txn *badger.Txn, id int64, old, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	for _, idx := range e.indexes {
		var oldKeys []string
		if old != nil {
			oldKeys = e.indexValues(idx, old)
		}
		newKeys := e.indexValues(idx, v)

		for _, k := range oldKeys {
			if slices.Contains(newKeys, k) {
				continue
			}
			if err := txn.Delete(e.indexKey(idx.name, k)); err != nil {
				return fmt.Errorf("delete old index key: %w", err)
			}
		}
		for _, k := range newKeys {
			if slices.Contains(oldKeys, k) {
				continue
			}
			taken, err := e.exists(txn, idx.name, k)
			if err != nil {
				return fmt.Errorf("check index key: %w", err)
			}
			if taken {
				return store.ErrAlreadyExists.WithCause(fmt.Errorf("index %s conflict on key %s", idx.name, k))
			}
			if err := txn.Set(e.indexKey(idx.name, k), []byte(strconv.FormatInt(id, 10))); err != nil {
				return fmt.Errorf("set index key: %w", err)
			}
		}
	}

	if err := txn.Set(e.key(id), data); err != nil {
		return fmt.Errorf("set key: %w", err)
	}
	return nil
}

// remove deletes a record and its index keys. Returns store.ErrNotFound
// if id is absent.
func (e *entity[T]) remove(txn *badger.Txn, id int64) error {
	old, err := e.get(txn, id)
	if err != nil {
		return err
	}
	for _, idx := range e.indexes {
		for _, k := range e.indexValues(idx, old) {
			if err := txn.Delete(e.indexKey(idx.name, k)); err != nil {
				return fmt.Errorf("delete index key: %w", err)
			}
		}
	}
	if err := txn.Delete(e.key(id)); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}

// each calls fn for every record in id order until fn returns false or
// an error.
func (e *entity[T]) each(txn *badger.Txn, fn func(*T) (bool, error)) error {
	prefix := []byte(e.prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = true

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if strings.HasPrefix(string(it.Item().Key()[len(prefix):]), "idx:") {
			continue
		}
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return fmt.Errorf("unmarshal %s: %w", it.Item().Key(), err)
		}
		more, err := fn(&v)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}
