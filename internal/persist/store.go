// Package persist provides crash-safe JSON/CSV persistence: per-coin
// position snapshots that LoadPosition reads back (cmd/quantis writes them
// at shutdown and does not load them at startup), and backtest/paper run results
// exported for offline analysis. Grounded on the teacher's internal/store
// (atomic write-tmp-then-rename JSON files, one per market), generalized
// from a single strategy.Position shape into market.Position plus a
// structured backtest/paper Result export.
package persist

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/0xtitan6/quantis/internal/backtest"
	"github.com/0xtitan6/quantis/pkg/market"
)

// Store persists positions and run results to files in a directory. All
// operations are mutex-protected against concurrent file corruption.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates a store backed by dir, creating it if necessary.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Close() error { return nil }

// SavePosition atomically persists coin's current position.
func (s *Store) SavePosition(coin string, pos market.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("persist: marshal position: %w", err)
	}
	return writeAtomic(filepath.Join(s.dir, "pos_"+coin+".json"), data)
}

// LoadPosition restores coin's position from disk. Returns nil, nil if
// nothing has been saved yet.
func (s *Store) LoadPosition(coin string) (*market.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, "pos_"+coin+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: read position: %w", err)
	}

	var pos market.Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return nil, fmt.Errorf("persist: unmarshal position: %w", err)
	}
	return &pos, nil
}

// RunResult wraps a backtest/paper Result with the metadata needed to
// identify the run it came from.
type RunResult struct {
	Name   string           `json:"name"`
	Config backtest.Config  `json:"config"`
	Result *backtest.Result `json:"result"`
}

// SaveRunResultJSON writes the full run (config, metrics, trades, equity
// curve) as one JSON document named <name>.json.
func (s *Store) SaveRunResultJSON(name string, run RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal run result: %w", err)
	}
	return writeAtomic(filepath.Join(s.dir, name+".json"), data)
}

// SaveRunResultCSV writes <name>_trades.csv and <name>_equity.csv alongside
// the JSON export, for spreadsheet/pandas-style offline analysis.
func (s *Store) SaveRunResultCSV(name string, result *backtest.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeTradesCSV(filepath.Join(s.dir, name+"_trades.csv"), result.Trades); err != nil {
		return err
	}
	return writeEquityCSV(filepath.Join(s.dir, name+"_equity.csv"), result.EquityCurve)
}

func writeTradesCSV(path string, trades []backtest.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: create trades csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"pair", "side", "entry_price", "exit_price", "size", "pnl", "commission", "entry_time", "exit_time"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.Pair.Symbol(),
			string(t.Side),
			t.EntryPrice.String(),
			t.ExitPrice.String(),
			t.Size.String(),
			t.PnL.String(),
			t.Commission.String(),
			t.EntryTime.String(),
			t.ExitTime.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeEquityCSV(path string, equity []backtest.EquityPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: create equity csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "equity"}); err != nil {
		return err
	}
	for _, p := range equity {
		if err := w.Write([]string{p.Timestamp.String(), p.Equity.String()}); err != nil {
			return err
		}
	}
	return nil
}

// writeAtomic writes data to a .tmp file and renames it over path, so a
// reader never observes a partially written file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("persist: write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
