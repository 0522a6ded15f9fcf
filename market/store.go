package market

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/filecoin-project/go-storedcounter"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	dsq "github.com/ipfs/go-datastore/query"
	"golang.org/x/xerrors"

	cborrpc "github.com/filecoin-project/go-cbor-util"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
)

const (
	dsKeyListingPrefix = "/listings"
	dsKeyIDSeq         = "/meta/idseq"
	dsKeySettledCount  = "/meta/settled"
	dsKeyFeeBps        = "/meta/feebps"
	dsKeyBalance       = "/meta/balance"
)

// Store is the authoritative mapping from listing id to listing record, plus
// the durable marketplace scalars: the id sequence, the settled counter, the
// fee rate and the undistributed balance.
//
// The store serializes its own accesses; cross-operation ordering discipline
// lives in the Engine.
type Store struct {
	lk sync.Mutex

	ds  datastore.Batching
	ids *storedcounter.StoredCounter
}

func NewStore(ds datastore.Batching) *Store {
	ds = namespace.Wrap(ds, datastore.NewKey("/marketplace"))
	return &Store{
		ds:  ds,
		ids: storedcounter.New(ds, datastore.NewKey(dsKeyIDSeq)),
	}
}

// Listing ids are keyed zero-padded so that lexicographic key order is
// numeric id order.
func dskeyForListing(id ListingID) datastore.Key {
	return datastore.NewKey(fmt.Sprintf("%s/%020d", dsKeyListingPrefix, id))
}

// NextID issues a fresh listing id. Issued ids are durable and never reused,
// including ids consumed by operations that later aborted.
func (s *Store) NextID(ctx context.Context) (ListingID, error) {
	next, err := s.ids.Next()
	if err != nil {
		return 0, err
	}
	// the counter starts at zero; ids start at one
	return ListingID(next + 1), nil
}

// TotalIssued returns the number of ids ever issued. Ids consumed by aborted
// creations count; the aggregate is monotonically non-decreasing.
func (s *Store) TotalIssued(ctx context.Context) (uint64, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	b, err := s.ds.Get(ctx, datastore.NewKey(dsKeyIDSeq))
	if err == datastore.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	last, _ := binary.Uvarint(b)
	return last + 1, nil
}

// CreateListing stores a brand-new record. The id must not already be
// present; the engine guarantees this by construction, so a duplicate is a
// hard error.
func (s *Store) CreateListing(ctx context.Context, l *Listing) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	k := dskeyForListing(l.ID)
	has, err := s.ds.Has(ctx, k)
	if err != nil {
		return err
	}
	if has {
		return xerrors.Errorf("listing %d already exists", l.ID)
	}

	return s.putListing(ctx, l)
}

func (s *Store) putListing(ctx context.Context, l *Listing) error {
	b, err := cborrpc.Dump(l)
	if err != nil {
		return err
	}
	return s.ds.Put(ctx, dskeyForListing(l.ID), b)
}

// GetListing returns the record for id, or ErrListingNotFound. An id that was
// withdrawn and an id that was never issued are both "not found".
func (s *Store) GetListing(ctx context.Context, id ListingID) (*Listing, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	return s.getListing(ctx, id)
}

func (s *Store) getListing(ctx context.Context, id ListingID) (*Listing, error) {
	b, err := s.ds.Get(ctx, dskeyForListing(id))
	if err == datastore.ErrNotFound {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}

	var l Listing
	if err := l.UnmarshalCBOR(bytes.NewReader(b)); err != nil {
		return nil, err
	}

	return &l, nil
}

// UpdateListing mutates the stored record for id in place. It is used only
// for the settlement transition.
func (s *Store) UpdateListing(ctx context.Context, id ListingID, mutate func(*Listing)) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	l, err := s.getListing(ctx, id)
	if err != nil {
		return err
	}

	mutate(l)

	return s.putListing(ctx, l)
}

// RemoveListing deletes the record for id. It is used for withdrawal and for
// unwinding a failed creation.
func (s *Store) RemoveListing(ctx context.Context, id ListingID) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	k := dskeyForListing(id)
	has, err := s.ds.Has(ctx, k)
	if err != nil {
		return err
	}
	if !has {
		return ErrListingNotFound
	}

	return s.ds.Delete(ctx, k)
}

// ListListings returns all records matching filter, in increasing id order.
// A nil filter matches everything.
func (s *Store) ListListings(ctx context.Context, filter func(*Listing) bool) ([]*Listing, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	res, err := s.ds.Query(ctx, dsq.Query{
		Prefix: dsKeyListingPrefix,
		Orders: []dsq.Order{dsq.OrderByKey{}},
	})
	if err != nil {
		return nil, err
	}
	defer res.Close() // nolint: errcheck

	var out []*Listing
	for {
		r, ok := res.NextSync()
		if !ok {
			break
		}
		if r.Error != nil {
			return nil, r.Error
		}

		var l Listing
		if err := l.UnmarshalCBOR(bytes.NewReader(r.Value)); err != nil {
			return nil, xerrors.Errorf("failed reading listing (%q) from datastore: %w", r.Key, err)
		}

		if filter == nil || filter(&l) {
			out = append(out, &l)
		}
	}

	return out, nil
}

// TotalSettled returns the number of successful purchases so far.
func (s *Store) TotalSettled(ctx context.Context) (uint64, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	return s.getUint(ctx, dsKeySettledCount, 0)
}

// IncrementSettled bumps the settled counter by one.
func (s *Store) IncrementSettled(ctx context.Context) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	cur, err := s.getUint(ctx, dsKeySettledCount, 0)
	if err != nil {
		return err
	}
	return s.putUint(ctx, dsKeySettledCount, cur+1)
}

// SetTotalSettled overwrites the settled counter. Used only to unwind a
// failed settlement.
func (s *Store) SetTotalSettled(ctx context.Context, n uint64) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	return s.putUint(ctx, dsKeySettledCount, n)
}

// FeeBps returns the current fee rate in basis points, or def when no rate
// has been persisted yet.
func (s *Store) FeeBps(ctx context.Context, def uint64) (uint64, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	return s.getUint(ctx, dsKeyFeeBps, def)
}

func (s *Store) SetFeeBps(ctx context.Context, bps uint64) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	return s.putUint(ctx, dsKeyFeeBps, bps)
}

// MarketBalance returns the undistributed balance held by the marketplace.
func (s *Store) MarketBalance(ctx context.Context) (abi.TokenAmount, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	return s.getBalance(ctx)
}

func (s *Store) SetMarketBalance(ctx context.Context, amt abi.TokenAmount) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	return s.putBalance(ctx, amt)
}

// AddBalance credits the undistributed balance by amt.
func (s *Store) AddBalance(ctx context.Context, amt abi.TokenAmount) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	cur, err := s.getBalance(ctx)
	if err != nil {
		return err
	}
	return s.putBalance(ctx, big.Add(cur, amt))
}

func (s *Store) getBalance(ctx context.Context) (abi.TokenAmount, error) {
	b, err := s.ds.Get(ctx, datastore.NewKey(dsKeyBalance))
	if err == datastore.ErrNotFound {
		return big.Zero(), nil
	}
	if err != nil {
		return big.Zero(), err
	}

	amt, err := big.FromString(string(b))
	if err != nil {
		return big.Zero(), xerrors.Errorf("failed parsing stored balance: %w", err)
	}
	return amt, nil
}

func (s *Store) putBalance(ctx context.Context, amt abi.TokenAmount) error {
	return s.ds.Put(ctx, datastore.NewKey(dsKeyBalance), []byte(amt.String()))
}

func (s *Store) getUint(ctx context.Context, key string, def uint64) (uint64, error) {
	b, err := s.ds.Get(ctx, datastore.NewKey(key))
	if err == datastore.ErrNotFound {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	v, _ := binary.Uvarint(b)
	return v, nil
}

func (s *Store) putUint(ctx context.Context, key string, v uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	size := binary.PutUvarint(buf, v)
	return s.ds.Put(ctx, datastore.NewKey(key), buf[:size])
}
