package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"aura_go/internal/domain"
	"aura_go/pkg/money"
)

// Snapshot is a point-in-time capture of all settlement state, keyed by the
// last journal sequence it reflects. Recovery loads the newest snapshot and
// replays only the journal tail after Seq.
type Snapshot struct {
	Seq    int64 `json:"seq"` // int64 for Sscanf-friendly filenames
	TsUnix int64 `json:"ts"`

	Registry RegistryState                     `json:"registry"`
	Market   MarketState                       `json:"market"`
	Auction  AuctionState                      `json:"auction"`
	Balances map[domain.Principal]money.Amount `json:"balances"`
}

// RegistryState is the asset registry's exportable state.
type RegistryState struct {
	NextAssetID uint64            `json:"next_asset_id"`
	RoyaltyBps  money.Bps         `json:"royalty_bps"`
	Assets      []domain.Asset    `json:"assets"`
	Approvals   []domain.Approval `json:"approvals"`
}

// MarketState is the marketplace's exportable state.
type MarketState struct {
	NextListingID uint64           `json:"next_listing_id"`
	Listings      []domain.Listing `json:"listings"`
}

// AuctionState is the auction engine's exportable state.
type AuctionState struct {
	NextAuctionID uint64                            `json:"next_auction_id"`
	Auctions      []domain.Auction                  `json:"auctions"`
	Bids          map[domain.AuctionID][]domain.Bid `json:"bids"`
	Escrow        []domain.EscrowEntry              `json:"escrow"`
}

// SnapshotManager saves and loads snapshot files under one directory.
type SnapshotManager struct {
	dir string
}

// NewSnapshotManager creates a snapshot manager rooted at dir.
func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

// Save writes a snapshot to disk.
func (sm *SnapshotManager) Save(snap *Snapshot) error {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	filename := fmt.Sprintf("snapshot_%d_%d.json", snap.Seq, snap.TsUnix)
	path := filepath.Join(sm.dir, filename)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Snapshot saved",
		slog.Int64("seq", snap.Seq),
		slog.String("path", path))

	return nil
}

// LoadLatest loads the snapshot with the highest sequence number. Returns nil
// (not an error) when no snapshot exists.
func (sm *SnapshotManager) LoadLatest() (*Snapshot, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No snapshots yet
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	var latestPath string
	var latestSeq int64 = -1

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		var seq, ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d_%d.json", &seq, &ts); err != nil {
			continue // Not a snapshot file
		}

		if seq > latestSeq {
			latestSeq = seq
			latestPath = filepath.Join(sm.dir, entry.Name())
		}
	}

	if latestPath == "" {
		return nil, nil // No snapshots found
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	slog.Info("Snapshot loaded",
		slog.Int64("seq", snap.Seq),
		slog.String("path", latestPath))

	return &snap, nil
}

// Cleanup removes old snapshots, keeping only the newest keepCount.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type snapFile struct {
		path string
		seq  int64
	}
	var files []snapFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var seq, ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d_%d.json", &seq, &ts); err == nil {
			files = append(files, snapFile{
				path: filepath.Join(sm.dir, entry.Name()),
				seq:  seq,
			})
		}
	}

	if len(files) <= keepCount {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].seq > files[j].seq })

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", files[i].path))
		} else {
			slog.Info("Removed old snapshot", slog.String("path", files[i].path))
		}
	}

	return nil
}
