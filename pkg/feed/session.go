package feed

import (
	"github.com/tradeloop-dev/tradeloop/pkg/market"
)

// SessionCloseFn decides whether current is the last bar of its trading
// session. next is nil when no further bar is known to exist.
type SessionCloseFn func(current market.Bar, next *market.Bar) bool

// DefaultSessionClose flags a bar when it is the last one overall or when
// the following bar falls on a different calendar day.
func DefaultSessionClose(current market.Bar, next *market.Bar) bool {
	if next == nil {
		return true
	}
	cy, cm, cd := current.TimeStamp.Date()
	ny, nm, nd := next.TimeStamp.Date()
	return cy != ny || cm != nm || cd != nd
}
