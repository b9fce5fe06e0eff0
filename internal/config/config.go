// Package config holds the simulation's tunable settings: tick size and
// stop time, the variant-scoring weights, and where the run's SQLite store
// lives. Persistence is a thin JSON encode/decode, the way the teacher's
// config layer treated its own settings struct.
package config

import "encoding/json"

// Config holds every setting a simulation run needs, with JSON tags so a
// scenario file can override defaults field by field.
type Config struct {
	// TickSize is the simulation clock's discrete advance per loop
	// iteration (spec.md §4.H).
	TickSize float64 `json:"tick_size"`
	// TimeStop is the clock value at which the run ends.
	TimeStop float64 `json:"time_stop"`

	// FinishWeight, StartWeight, and PriceWeight are the multi-criteria
	// variant-scoring weights (spec.md "Variant scoring"); they should sum
	// to 1 but the scorer does not enforce it, so a host can experiment.
	FinishWeight float64 `json:"finish_weight"`
	StartWeight  float64 `json:"start_weight"`
	PriceWeight  float64 `json:"price_weight"`

	// StorePath is the SQLite file the run's store writes to. Empty means
	// an in-memory, run-scoped database (no cross-run persistence, per
	// spec.md's Non-goals).
	StorePath string `json:"store_path"`

	// MailboxSize bounds how many pending messages an agent's inbox
	// buffers before Send blocks its caller.
	MailboxSize int `json:"mailbox_size"`
}

// Default returns a Config with the weights and tick parameters spec.md
// itself uses in its worked scenarios.
func Default() *Config {
	return &Config{
		TickSize:     0.5,
		TimeStop:     1000,
		FinishWeight: 0.3,
		StartWeight:  0.2,
		PriceWeight:  0.5,
		StorePath:    "",
		MailboxSize:  4096,
	}
}

// Marshal renders the config as indented JSON.
func (c *Config) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Unmarshal decodes JSON into c, leaving any field the document omits at
// its current value.
func (c *Config) Unmarshal(data []byte) error {
	return json.Unmarshal(data, c)
}
