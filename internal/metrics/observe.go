package metrics

import (
	"time"

	"github.com/dw2tools/dw2file/dw2l"
)

// Operation names.
const (
	OpDecode = "decode"
	OpEncode = "encode"
)

func result(warn, err error) string {
	switch {
	case err != nil:
		return ResultError
	case warn != nil:
		return ResultWarning
	default:
		return ResultOK
	}
}

// Observe records one decode or encode of the level l over n bytes that
// started at start. l may be nil when the operation failed.
func (m *Metrics) Observe(op string, l *dw2l.Level, n int, start time.Time, warn, err error) {
	if m == nil {
		return
	}
	m.OperationCounterVec.WithLabelValues(op, result(warn, err)).Inc()
	m.OperationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil || l == nil {
		return
	}
	m.BytesCounterVec.WithLabelValues(op).Add(float64(n))
	for _, d := range l.Descriptors() {
		m.ChunkCounterVec.WithLabelValues(op, d.Kind.String()).Inc()
	}
}
