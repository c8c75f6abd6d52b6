package indicators

import (
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/series"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

func appendOutput(out *series.Sequence[fixed.Point], ts time.Time, v fixed.Point) {
	if ts.IsZero() {
		out.Append(v)
		return
	}
	_ = out.AppendWithTime(ts, v)
}
