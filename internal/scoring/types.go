package scoring

import "encoding/json"

// Metadata carries indicator-specific parameters and context alongside each
// breakdown row. Implementations marshal to JSON for persistence.
type Metadata interface {
	metadataKind() string
}

type RSIMeta struct {
	Period int `json:"period"`
}

type MACDMeta struct {
	ShortPeriod int `json:"short_period"`
	LongPeriod  int `json:"long_period"`
}

type BollingerMeta struct {
	Period     int     `json:"period"`
	Multiplier float64 `json:"multiplier"`
}

type VolumeMeta struct {
	Window int `json:"window"`
}

type StochasticMeta struct {
	Period int `json:"period"`
}

type WilliamsMeta struct {
	Period int `json:"period"`
}

type LevelMeta struct {
	Lookback     int     `json:"lookback"`
	ProximityPct float64 `json:"proximity_pct"`
	Kind         string  `json:"kind,omitempty"`
	Distance     float64 `json:"distance,omitempty"`
}

func (RSIMeta) metadataKind() string        { return IndRSI }
func (MACDMeta) metadataKind() string       { return IndMACD }
func (BollingerMeta) metadataKind() string  { return IndBollinger }
func (VolumeMeta) metadataKind() string     { return IndVolume }
func (StochasticMeta) metadataKind() string { return IndStochastic }
func (WilliamsMeta) metadataKind() string   { return IndWilliams }
func (LevelMeta) metadataKind() string      { return IndLevel }

// MarshalMetadata serializes metadata for storage. A nil value becomes the
// JSON null literal so the database column stays queryable.
func MarshalMetadata(m Metadata) []byte {
	if m == nil {
		return []byte("null")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("null")
	}
	return b
}
