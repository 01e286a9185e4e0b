package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// State is the persisted form of a monitor.
type State struct {
	Symbol    string    `json:"symbol"`
	LastPrice float64   `json:"last_price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns the monitor's current state.
func (m *PriceMonitor) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Symbol: m.symbol, LastPrice: m.lastPrice}
}

// Restore seeds the last price from a saved state of the same symbol.
func (m *PriceMonitor) Restore(s State) bool {
	if s.Symbol != m.symbol || s.LastPrice <= 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPrice = s.LastPrice
	return true
}

// LoadState reads monitor state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, err
	}
	return state, nil
}

// SaveState writes monitor state to a JSON file.
func SaveState(filePath string, state State) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}
