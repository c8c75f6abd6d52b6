// Package livefeed connects a bar feed to a websocket market data stream.
// A background goroutine reads JSON messages into a bounded queue; the
// dispatcher thread drains the queue through NextBars. Raw trades are
// rolled into bars with an aggregator before they reach the queue.
package livefeed

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tradeloop-dev/tradeloop/pkg/feed"
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

const (
	queueCapacity = 1024
	pollTimeout   = 10 * time.Millisecond

	defaultMaxRetries     = 5
	defaultInitialBackoff = time.Second
)

// message is the wire format. Type is "bar" or "trade"; unused fields stay
// zero.
type message struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	TimeStamp int64   `json:"ts"`
	Open      float64 `json:"open,omitempty"`
	High      float64 `json:"high,omitempty"`
	Low       float64 `json:"low,omitempty"`
	Close     float64 `json:"close,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Size      float64 `json:"size,omitempty"`
	Volume    float64 `json:"volume,omitempty"`
	TakerBuy  bool    `json:"taker_buy,omitempty"`
}

type Option func(*Source)

// WithFrequency sets the bar frequency trades are aggregated into.
// Defaults to one minute.
func WithFrequency(frequency market.Frequency) Option {
	return func(s *Source) {
		s.frequency = frequency
	}
}

// WithRetry overrides the reconnect budget and the first backoff step. The
// step doubles on every consecutive failure; a successful read resets the
// budget.
func WithRetry(maxRetries int, initialBackoff time.Duration) Option {
	return func(s *Source) {
		s.maxRetries = maxRetries
		s.initialBackoff = initialBackoff
	}
}

// Source streams bars for one instrument over a websocket. Bar messages
// pass straight through; trade messages are aggregated locally. The queue
// is bounded, a slow consumer drops the oldest data first.
type Source struct {
	logger *zap.Logger
	url    string
	symbol string

	frequency  market.Frequency
	aggregator *market.Aggregator

	maxRetries     int
	initialBackoff time.Duration

	connMu sync.Mutex
	conn   *websocket.Conn

	queue chan market.Bar
	stopC chan struct{}
	wg    sync.WaitGroup

	next *market.Bar
}

func NewSource(logger *zap.Logger, url, symbol string, options ...Option) *Source {
	s := &Source{
		logger:         logger,
		url:            url,
		symbol:         symbol,
		frequency:      market.FrequencyMinute,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		queue:          make(chan market.Bar, queueCapacity),
		stopC:          make(chan struct{}),
	}

	for _, option := range options {
		option(s)
	}

	s.aggregator = market.NewAggregator(symbol, s.frequency)
	return s
}

func (s *Source) Open() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %q: %w", s.url, err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	s.wg.Add(1)
	go s.read()

	return nil
}

func (s *Source) Close() error {
	close(s.stopC)

	s.connMu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

// Join blocks until the read goroutine exits, either through Close or after
// reconnection gives up.
func (s *Source) Join() error {
	s.wg.Wait()
	return nil
}

// NextBars waits briefly for queued data. An empty queue is ErrNoData so
// the dispatcher can run its idle round; a closed queue is ErrEOF.
func (s *Source) NextBars() (market.Bars, error) {
	if s.next != nil {
		b := *s.next
		s.next = nil
		return market.MustNewBars(b), nil
	}

	select {
	case b, ok := <-s.queue:
		if !ok {
			return market.Bars{}, feed.ErrEOF
		}
		return market.MustNewBars(b), nil
	case <-time.After(pollTimeout):
		return market.Bars{}, feed.ErrNoData
	}
}

func (s *Source) PeekTime() (time.Time, bool) {
	if s.next == nil {
		select {
		case b, ok := <-s.queue:
			if !ok {
				return time.Time{}, false
			}
			s.next = &b
		default:
			return time.Time{}, false
		}
	}
	return s.next.TimeStamp, true
}

func (s *Source) read() {
	defer s.wg.Done()
	defer close(s.queue)

	retries := 0
	for {
		select {
		case <-s.stopC:
			return
		default:
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopC:
				return
			default:
			}

			if retries >= s.maxRetries {
				s.logger.Error("websocket gave up reconnecting",
					zap.String("url", s.url),
					zap.Error(err))
				return
			}

			backoff := s.initialBackoff << retries
			retries++
			s.logger.Warn("websocket read failed, reconnecting",
				zap.Duration("backoff", backoff),
				zap.Int("attempt", retries),
				zap.Error(err))

			select {
			case <-s.stopC:
				return
			case <-time.After(backoff):
			}

			if err := s.reconnect(); err != nil {
				s.logger.Warn("reconnect failed", zap.Error(err))
			}
			continue
		}
		retries = 0

		var msg message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warn("bad message", zap.ByteString("raw", raw), zap.Error(err))
			continue
		}
		if msg.Symbol != s.symbol {
			continue
		}

		switch msg.Type {
		case "bar":
			s.enqueue(market.Bar{
				Symbol:    msg.Symbol,
				TimeStamp: time.Unix(0, msg.TimeStamp).UTC(),
				Frequency: s.frequency,
				Open:      fixed.FromFloat64(msg.Open),
				High:      fixed.FromFloat64(msg.High),
				Low:       fixed.FromFloat64(msg.Low),
				Close:     fixed.FromFloat64(msg.Close),
				Volume:    fixed.FromFloat64(msg.Volume),
			})
		case "trade":
			completed, ok := s.aggregator.Add(market.Trade{
				Symbol:    msg.Symbol,
				TimeStamp: time.Unix(0, msg.TimeStamp).UTC(),
				Price:     fixed.FromFloat64(msg.Price),
				Size:      fixed.FromFloat64(msg.Size),
				TakerBuy:  msg.TakerBuy,
			})
			if ok {
				s.enqueue(completed)
			}
		default:
			s.logger.Debug("unknown message type", zap.String("type", msg.Type))
		}
	}
}

func (s *Source) enqueue(b market.Bar) {
	select {
	case s.queue <- b:
	default:
		// Queue full. Drop the oldest bar so the stream stays current.
		select {
		case <-s.queue:
		default:
		}
		select {
		case s.queue <- b:
		default:
		}
	}
}

func (s *Source) reconnect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %q: %w", s.url, err)
	}

	s.connMu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = conn
	s.connMu.Unlock()

	return nil
}
