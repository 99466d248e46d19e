package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"aura_go/internal/event"
)

func newTestStore(t *testing.T) *EventStore {
	t.Helper()
	store, err := NewEventStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewEventStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEventStore_SaveLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	events := []event.Event{
		&event.AssetMintedEvent{
			BaseEvent:   event.BaseEvent{Seq: 1, Ts: 100},
			AssetID:     0,
			Creator:     "alice",
			MetadataRef: "ipfs://x",
		},
		&event.ListedEvent{
			BaseEvent: event.BaseEvent{Seq: 2, Ts: 200},
			ListingID: 0,
			AssetID:   0,
			Seller:    "alice",
			Price:     1_000_000,
		},
		&event.SaleEvent{
			BaseEvent: event.BaseEvent{Seq: 3, Ts: 300},
			ListingID: 0,
			AssetID:   0,
			Seller:    "alice",
			Buyer:     "bob",
			Creator:   "alice",
			Price:     1_000_000,
			SellerNet: 950_000,
			Royalty:   25_000,
			Fee:       25_000,
		},
		&event.BidPlacedEvent{
			BaseEvent:  event.BaseEvent{Seq: 4, Ts: 400},
			AuctionID:  0,
			Bidder:     "carol",
			Amount:     500,
			PrevBidder: "bob",
			PrevAmount: 400,
		},
	}
	for _, ev := range events {
		if err := store.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("SaveEvent failed: %v", err)
		}
	}

	lastSeq, err := store.GetLastSeq(ctx)
	if err != nil {
		t.Fatalf("GetLastSeq failed: %v", err)
	}
	if lastSeq != 4 {
		t.Errorf("lastSeq = %d, want 4", lastSeq)
	}

	loaded, err := store.LoadEvents(ctx, 1)
	if err != nil {
		t.Fatalf("LoadEvents failed: %v", err)
	}
	if len(loaded) != 4 {
		t.Fatalf("loaded %d events, want 4", len(loaded))
	}

	sale, ok := loaded[2].(*event.SaleEvent)
	if !ok {
		t.Fatalf("event 3 decoded as %T, want *SaleEvent", loaded[2])
	}
	if sale.SellerNet != 950_000 || sale.Royalty != 25_000 || sale.Fee != 25_000 {
		t.Errorf("split lost in round trip: %+v", sale)
	}

	bid, ok := loaded[3].(*event.BidPlacedEvent)
	if !ok {
		t.Fatalf("event 4 decoded as %T, want *BidPlacedEvent", loaded[3])
	}
	if bid.PrevBidder != "bob" || bid.PrevAmount != 400 {
		t.Errorf("superseded bid lost in round trip: %+v", bid)
	}

	// Tail load honors fromSeq
	tail, err := store.LoadEvents(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 2 || tail[0].GetSeq() != 3 {
		t.Errorf("tail = %d events from %d", len(tail), tail[0].GetSeq())
	}
}

func TestEventStore_EmptyJournal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lastSeq, err := store.GetLastSeq(ctx)
	if err != nil {
		t.Fatalf("GetLastSeq failed: %v", err)
	}
	if lastSeq != 0 {
		t.Errorf("lastSeq = %d, want 0", lastSeq)
	}

	events, err := store.LoadEvents(ctx, 1)
	if err != nil {
		t.Fatalf("LoadEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestEventStore_Metadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertMetadata(ctx, "last_boot_unix", "100", 100); err != nil {
		t.Fatalf("UpsertMetadata failed: %v", err)
	}
	if err := store.UpsertMetadata(ctx, "last_boot_unix", "200", 200); err != nil {
		t.Fatalf("UpsertMetadata update failed: %v", err)
	}

	value, err := store.GetMetadata(ctx, "last_boot_unix")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if value != "200" {
		t.Errorf("value = %s, want 200", value)
	}

	missing, err := store.GetMetadata(ctx, "nope")
	if err != nil {
		t.Fatalf("GetMetadata for missing key failed: %v", err)
	}
	if missing != "" {
		t.Errorf("missing key value = %q, want empty", missing)
	}
}

func TestJournal_AppendAndFanout(t *testing.T) {
	store := newTestStore(t)
	j := NewJournal(store, 0)

	var seen []event.Event
	j.Subscribe(func(ev event.Event) { seen = append(seen, ev) })

	now := time.Unix(1_700_000_000, 0)
	ev := j.Append(context.Background(), now, func(base event.BaseEvent) event.Event {
		return &event.ListingCanceledEvent{BaseEvent: base, ListingID: 3}
	})

	if ev.GetSeq() != 1 {
		t.Errorf("seq = %d, want 1", ev.GetSeq())
	}
	if j.LastSeq() != 1 {
		t.Errorf("LastSeq = %d, want 1", j.LastSeq())
	}
	if len(seen) != 1 || seen[0].GetSeq() != 1 {
		t.Errorf("sink saw %d events", len(seen))
	}

	// And the event is durable
	loaded, err := store.LoadEvents(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].GetType() != event.EvListingCanceled {
		t.Errorf("persisted journal mismatch: %+v", loaded)
	}
}
