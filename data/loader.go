package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// MarketSnapshot is one quote file on disk: the grid, the discount curve it
// was observed against and the valuation date.
type MarketSnapshot struct {
	ValuationDate string    `json:"valuation_date"`
	Curve         CurveSpec `json:"curve"`
	Grid          QuoteGrid `json:"grid"`
}

// LoadSnapshot reads one market snapshot file.
func LoadSnapshot(path string) (MarketSnapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return MarketSnapshot{}, err
	}
	var snap MarketSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return MarketSnapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// SnapshotDir resolves the quote file directory from the environment,
// defaulting to ./marketdata.
func SnapshotDir() string {
	_ = godotenv.Load()
	if dir := os.Getenv("CAPVOL_DATA_DIR"); dir != "" {
		return dir
	}
	return "marketdata"
}

// ListSnapshots returns the snapshot file paths in the data directory in
// lexical order.
func ListSnapshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
