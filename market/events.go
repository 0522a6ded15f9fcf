package market

import (
	"github.com/hannahhoward/go-pubsub"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
)

// Journal / subscription payloads. One is emitted per successful state
// transition, strictly after the transition's effects are final.

type ListedEvt struct {
	ID         ListingID
	Collection address.Address
	Asset      AssetID
	Seller     address.Address
	Price      abi.TokenAmount
}

type SoldEvt struct {
	ID         ListingID
	Collection address.Address
	Asset      AssetID
	Seller     address.Address
	Buyer      address.Address
	Price      abi.TokenAmount
	Fee        abi.TokenAmount
}

type DelistedEvt struct {
	ID         ListingID
	Collection address.Address
	Asset      AssetID
	Seller     address.Address
}

type FeeChangedEvt struct {
	Bps uint64
}

type FeesWithdrawnEvt struct {
	Amount      abi.TokenAmount
	Beneficiary address.Address
}

type evtListeners struct {
	ps *pubsub.PubSub
}

type subscriberFn func(evt interface{})

func newEvtListeners() evtListeners {
	ps := pubsub.New(func(event pubsub.Event, subFn pubsub.SubscriberFn) error {
		sub, ok := subFn.(subscriberFn)
		if !ok {
			return xerrors.Errorf("wrong type of subscriber")
		}
		sub(event)
		return nil
	})
	return evtListeners{ps: ps}
}

// subscribe registers a callback invoked for every marketplace event. The
// returned function unsubscribes it.
func (el *evtListeners) subscribe(cb func(evt interface{})) pubsub.Unsubscribe {
	return el.ps.Subscribe(subscriberFn(cb))
}

// fire delivers evt to all subscribers.
func (el *evtListeners) fire(evt interface{}) {
	if err := el.ps.Publish(evt); err != nil {
		// In theory we shouldn't ever get an error here
		log.Errorf("unexpected error publishing marketplace event: %s", err)
	}
}
