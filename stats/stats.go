package stats

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/badger"
)

const (
	scannedMessagesPrefix = "scannedMsgs"
	relayedTokensPrefix   = "relayedTokens"

	dateLayout = "2006-01-02"
)

// Store keeps per-destination daily counters of messages seen and tokens
// relayed. Keys look like "relayedTokens:<chatId>:<2006-01-02>".
type Store struct {
	db *badger.DB
}

func Open(path string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path))
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC reclaims value-log space every few minutes until ctx is cancelled.
func (s *Store) RunGC(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		again:
			if err := s.db.RunValueLogGC(0.7); err == nil {
				goto again
			}
		}
	}
}

func (s *Store) IncrementScanned(chatId int64) {
	key := dayKey(scannedMessagesPrefix, chatId, time.Now().UTC())
	val := s.increment(key)
	log.Printf("IncrementScanned() key: %s val: %d", key, val)
}

func (s *Store) IncrementRelayed(chatId int64) {
	key := dayKey(relayedTokensPrefix, chatId, time.Now().UTC())
	val := s.increment(key)
	log.Printf("IncrementRelayed() key: %s val: %d", key, val)
}

func (s *Store) ScannedOn(chatId int64, day time.Time) int64 {
	return s.get(dayKey(scannedMessagesPrefix, chatId, day))
}

func (s *Store) RelayedOn(chatId int64, day time.Time) int64 {
	return s.get(dayKey(relayedTokensPrefix, chatId, day))
}

func dayKey(prefix string, chatId int64, day time.Time) []byte {
	return []byte(fmt.Sprintf("%s:%d:%s", prefix, chatId, day.UTC().Format(dateLayout)))
}

func (s *Store) increment(key []byte) int64 {
	add := func(existing, delta []byte) []byte {
		return uint64ToBytes(bytesToUint64(existing) + bytesToUint64(delta))
	}
	m := s.db.GetMergeOperator(key, add, 200*time.Millisecond)
	defer m.Stop()
	m.Add(uint64ToBytes(1))
	val, err := m.Get()
	if err != nil {
		log.Printf("increment() key: %s %s", key, err)
		return 0
	}
	return int64(bytesToUint64(val))
}

func (s *Store) get(key []byte) int64 {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return 0
	}
	if err != nil {
		log.Printf("get() key: %s %s", key, err)
		return 0
	}
	if len(val) == 0 {
		return 0
	}
	return int64(bytesToUint64(val))
}

func uint64ToBytes(i uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], i)
	return buf[:]
}

func bytesToUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
