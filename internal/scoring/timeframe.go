package scoring

import (
	"equity-signal-engine/internal/indicators"
	"equity-signal-engine/internal/marketdata"
)

// Indicator period constants. These are the classic institutional defaults
// and are fixed rather than tunable.
const (
	RSIPeriod        = 14
	MACDShortPeriod  = 12
	MACDLongPeriod   = 26
	BollingerPeriod  = 20
	BollingerMult    = 2.0
	StochasticPeriod = 14
	WilliamsPeriod   = 14
	VolumeWindow     = 20
	LevelLookback    = 50
	// Swing levels further than 2% from current price are not actionable.
	LevelProximityPct = 2.0
)

// Indicator names as persisted in the breakdown rows.
const (
	IndRSI        = "rsi"
	IndMACD       = "macd"
	IndBollinger  = "bollinger_b"
	IndVolume     = "volume_ratio"
	IndStochastic = "stochastic_k"
	IndWilliams   = "williams_r"
	IndLevel      = "support_resistance"
)

// IndicatorNames lists the seven indicators in breakdown order.
var IndicatorNames = []string{
	IndRSI, IndMACD, IndBollinger, IndVolume, IndStochastic, IndWilliams, IndLevel,
}

// IndicatorResult is one indicator's output for one (ticker, timeframe).
// RawValue is nil when the series was too short for a real reading; the
// indicator then contributed its neutral adjustment of zero.
type IndicatorResult struct {
	Name          string
	Timeframe     marketdata.Timeframe
	RawValue      *float64
	Contribution  float64
	DataAvailable bool
	Metadata      Metadata
}

// TimeframeScore combines the seven indicator results for one timeframe.
// A Score of 0 means too few indicators had real data; callers must treat
// that as a skip, never as a numeric zero in aggregation.
type TimeframeScore struct {
	Timeframe marketdata.Timeframe
	Score     float64
	Breakdown []IndicatorResult
}

// Valid reports whether the score carries real information.
func (ts TimeframeScore) Valid() bool {
	return ts.Score > 0
}

// minRealIndicators is the floor of data-backed indicators a timeframe needs
// before its score counts.
const minRealIndicators = 3

const baseScore = 60.0

// ScoreTimeframe computes all seven indicators for a series and folds them
// into a single 0-100 score. The breakdown always has seven entries, one per
// indicator, regardless of data coverage.
func ScoreTimeframe(series *marketdata.Series) TimeframeScore {
	tf := marketdata.TF1d
	if series != nil {
		tf = series.Timeframe
	}

	ts := TimeframeScore{Timeframe: tf}

	if series == nil || len(series.Bars) == 0 {
		ts.Breakdown = emptyBreakdown(tf)
		return ts
	}

	prices := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()
	current := prices[len(prices)-1]

	results := make([]IndicatorResult, 0, len(IndicatorNames))

	// RSI
	rsiAvailable := len(prices) >= RSIPeriod+1
	rsi := indicators.RSI(prices, RSIPeriod)
	results = append(results, IndicatorResult{
		Name:          IndRSI,
		Timeframe:     tf,
		RawValue:      rawIf(rsiAvailable, rsi),
		Contribution:  adjustIf(rsiAvailable, rsiAdjustment(rsi)),
		DataAvailable: rsiAvailable,
		Metadata:      RSIMeta{Period: RSIPeriod},
	})

	// MACD
	macdAvailable := len(prices) >= MACDLongPeriod
	macd := indicators.MACD(prices, MACDShortPeriod, MACDLongPeriod)
	results = append(results, IndicatorResult{
		Name:          IndMACD,
		Timeframe:     tf,
		RawValue:      rawIf(macdAvailable, macd),
		Contribution:  adjustIf(macdAvailable, macdAdjustment(macd)),
		DataAvailable: macdAvailable,
		Metadata:      MACDMeta{ShortPeriod: MACDShortPeriod, LongPeriod: MACDLongPeriod},
	})

	// Bollinger %B
	bollAvailable := len(prices) >= BollingerPeriod
	percentB := indicators.BollingerPercentB(prices, BollingerPeriod, BollingerMult)
	results = append(results, IndicatorResult{
		Name:          IndBollinger,
		Timeframe:     tf,
		RawValue:      rawIf(bollAvailable, percentB),
		Contribution:  adjustIf(bollAvailable, bollingerAdjustment(percentB)),
		DataAvailable: bollAvailable,
		Metadata:      BollingerMeta{Period: BollingerPeriod, Multiplier: BollingerMult},
	})

	// Volume ratio
	volAvailable := len(volumes) >= 2
	volRatio := 1.0
	if volAvailable {
		recent := volumes[:len(volumes)-1]
		if len(recent) > VolumeWindow {
			recent = recent[len(recent)-VolumeWindow:]
		}
		volRatio = indicators.VolumeRatio(volumes[len(volumes)-1], recent)
	}
	results = append(results, IndicatorResult{
		Name:          IndVolume,
		Timeframe:     tf,
		RawValue:      rawIf(volAvailable, volRatio),
		Contribution:  adjustIf(volAvailable, volumeAdjustment(volRatio)),
		DataAvailable: volAvailable,
		Metadata:      VolumeMeta{Window: VolumeWindow},
	})

	// Stochastic %K
	stochAvailable := len(prices) >= StochasticPeriod
	stoch := indicators.StochasticK(prices, highs, lows, StochasticPeriod)
	results = append(results, IndicatorResult{
		Name:          IndStochastic,
		Timeframe:     tf,
		RawValue:      rawIf(stochAvailable, stoch),
		Contribution:  adjustIf(stochAvailable, stochasticAdjustment(stoch)),
		DataAvailable: stochAvailable,
		Metadata:      StochasticMeta{Period: StochasticPeriod},
	})

	// Williams %R
	williamsAvailable := len(prices) >= WilliamsPeriod
	williams := indicators.WilliamsR(prices, highs, lows, WilliamsPeriod)
	results = append(results, IndicatorResult{
		Name:          IndWilliams,
		Timeframe:     tf,
		RawValue:      rawIf(williamsAvailable, williams),
		Contribution:  adjustIf(williamsAvailable, williamsAdjustment(williams)),
		DataAvailable: williamsAvailable,
		Metadata:      WilliamsMeta{Period: WilliamsPeriod},
	})

	// Support / resistance proximity
	levelAvailable := len(prices) >= 3
	var level *indicators.Level
	if levelAvailable {
		proximity := current * LevelProximityPct / 100
		level = indicators.SupportResistance(prices, highs, lows, LevelLookback, proximity)
	}
	levelResult := IndicatorResult{
		Name:          IndLevel,
		Timeframe:     tf,
		DataAvailable: levelAvailable,
		Metadata:      LevelMeta{Lookback: LevelLookback, ProximityPct: LevelProximityPct},
	}
	if level != nil {
		levelResult.RawValue = &level.Price
		levelResult.Contribution = levelAdjustment(level.Kind)
		levelResult.Metadata = LevelMeta{
			Lookback:     LevelLookback,
			ProximityPct: LevelProximityPct,
			Kind:         string(level.Kind),
			Distance:     level.Distance,
		}
	}
	results = append(results, levelResult)

	ts.Breakdown = results

	realCount := 0
	for _, r := range results {
		if r.DataAvailable {
			realCount++
		}
	}
	if realCount < minRealIndicators {
		return ts
	}

	total := baseScore
	for _, r := range results {
		total += r.Contribution
	}
	ts.Score = Clamp(total, 0, 100)

	return ts
}

// Fixed adjustment tables. The point values are institutionally derived
// constants; RSI dominates the weighting.

func rsiAdjustment(rsi float64) float64 {
	switch {
	case rsi < 30: // oversold
		return 20
	case rsi > 70: // overbought
		return -10
	default:
		// Graded bonus across the neutral band, +10 at 30 tapering to 0 at 70.
		return (70 - rsi) / 40 * 10
	}
}

func macdAdjustment(macd float64) float64 {
	switch {
	case macd > 0:
		return 15
	case macd < 0:
		return -5
	default:
		return 0
	}
}

func bollingerAdjustment(percentB float64) float64 {
	switch {
	case percentB < 0.2: // at or below the lower band
		return 15
	case percentB < 0.35:
		return 8
	case percentB > 0.8: // pressing the upper band
		return -10
	case percentB >= 0.4 && percentB <= 0.6:
		return 5
	default:
		return 0
	}
}

func volumeAdjustment(ratio float64) float64 {
	switch {
	case ratio > 1.5:
		return 10
	case ratio < 0.8:
		return -5
	default:
		return 0
	}
}

func stochasticAdjustment(k float64) float64 {
	switch {
	case k < 20:
		return 8
	case k > 80:
		return -5
	default:
		return 0
	}
}

func williamsAdjustment(r float64) float64 {
	switch {
	case r < -80:
		return 7
	case r > -20:
		return -5
	default:
		return 0
	}
}

func levelAdjustment(kind indicators.LevelKind) float64 {
	switch kind {
	case indicators.LevelSupport:
		return 5
	case indicators.LevelResistance:
		return -5
	default:
		return 0
	}
}

func rawIf(available bool, value float64) *float64 {
	if !available {
		return nil
	}
	return &value
}

func adjustIf(available bool, value float64) float64 {
	if !available {
		return 0
	}
	return value
}

func emptyBreakdown(tf marketdata.Timeframe) []IndicatorResult {
	out := make([]IndicatorResult, len(IndicatorNames))
	for i, name := range IndicatorNames {
		out[i] = IndicatorResult{Name: name, Timeframe: tf}
	}
	return out
}
