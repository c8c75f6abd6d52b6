// Package synthetic generates deterministic bar streams from a geometric
// Brownian motion. Same seed, same series; useful for strategy smoke tests
// and load runs without data files.
package synthetic

import (
	"math"
	"math/rand"
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/feed"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

type Option func(*Generator)

// WithVolumeRange bounds the uniform per-bar volume draw.
func WithVolumeRange(minVolume, maxVolume int64) Option {
	return func(g *Generator) {
		g.minVolume = minVolume
		g.maxVolume = maxVolume
	}
}

// WithPriceDigits sets the decimal scale of generated prices.
func WithPriceDigits(digits int) Option {
	return func(g *Generator) {
		g.priceDigits = digits
	}
}

// Generator is a feed source producing a fixed number of GBM bars. Each
// bar takes a handful of intra-period samples so high and low straddle
// open and close plausibly.
type Generator struct {
	symbol    string
	frequency market.Frequency
	rng       *rand.Rand

	startTime time.Time
	lastPrice float64
	mu        float64
	sigma     float64
	deltaT    float64
	steps     int64
	t         int64

	minVolume   int64
	maxVolume   int64
	priceDigits int

	next *market.Bar
}

func NewGenerator(
	symbol string,
	frequency market.Frequency,
	seed int64,
	startTime time.Time,
	startPrice, mu, sigma float64,
	steps int64,
	options ...Option) *Generator {

	g := &Generator{
		symbol:    symbol,
		frequency: frequency,
		rng:       rand.New(rand.NewSource(seed)),

		startTime: startTime,
		lastPrice: startPrice,
		mu:        mu,
		sigma:     sigma,
		deltaT:    frequency.Duration().Hours() / (24 * 365),
		steps:     steps,

		minVolume:   100,
		maxVolume:   10_000,
		priceDigits: 4,
	}

	for _, option := range options {
		option(g)
	}

	return g
}

func (g *Generator) Open() error  { return nil }
func (g *Generator) Close() error { return nil }

func (g *Generator) NextBars() (market.Bars, error) {
	if err := g.fill(); err != nil {
		return market.Bars{}, err
	}
	if g.next == nil {
		return market.Bars{}, feed.ErrEOF
	}

	b := *g.next
	g.next = nil
	return market.MustNewBars(b), nil
}

func (g *Generator) PeekTime() (time.Time, bool) {
	_ = g.fill()
	if g.next == nil {
		return time.Time{}, false
	}
	return g.next.TimeStamp, true
}

const samplesPerBar = 4

func (g *Generator) fill() error {
	if g.next != nil || g.t >= g.steps {
		return nil
	}

	open := g.lastPrice
	high, low := open, open
	price := open

	sampleDeltaT := g.deltaT / samplesPerBar
	drift := (g.mu - 0.5*g.sigma*g.sigma) * sampleDeltaT
	diffusion := g.sigma * math.Sqrt(sampleDeltaT)

	for i := 0; i < samplesPerBar; i++ {
		price *= math.Exp(drift + diffusion*g.rng.NormFloat64())
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
	}

	ts := g.startTime.Add(time.Duration(g.t) * g.frequency.Duration())
	volume := g.minVolume + g.rng.Int63n(g.maxVolume-g.minVolume+1)

	g.next = &market.Bar{
		Symbol:    g.symbol,
		TimeStamp: ts,
		Frequency: g.frequency,
		Open:      fixed.FromFloat64(open).Rescale(g.priceDigits),
		High:      fixed.FromFloat64(high).Rescale(g.priceDigits),
		Low:       fixed.FromFloat64(low).Rescale(g.priceDigits),
		Close:     fixed.FromFloat64(price).Rescale(g.priceDigits),
		Volume:    fixed.FromInt64(volume, 0),
	}

	g.lastPrice = price
	g.t++
	return nil
}
