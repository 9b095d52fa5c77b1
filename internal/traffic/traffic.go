// Package traffic samples host network counters and derives upload and
// download rates between consecutive samples.
package traffic

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/procfs"
)

// Counters are cumulative byte counters across all interfaces.
type Counters struct {
	BytesSent uint64
	BytesRecv uint64
}

// CounterSource reads the current cumulative counters.
type CounterSource func() (Counters, error)

// Status is the traffic snapshot served at /api/network/traffic.
type Status struct {
	CheckedAt      string  `json:"checked_at"`
	BytesSentTotal uint64  `json:"bytes_sent_total"`
	BytesRecvTotal uint64  `json:"bytes_recv_total"`
	UploadBps      float64 `json:"upload_bps"`
	DownloadBps    float64 `json:"download_bps"`
	UploadMbps     float64 `json:"upload_mbps"`
	DownloadMbps   float64 `json:"download_mbps"`
	Error          *string `json:"error"`
}

// Sampler computes rates from consecutive counter readings.
//
// The first sample reports totals with zero rates. Counter resets (a value
// lower than the previous one) clamp the rate to zero. Sampler is safe for
// concurrent use.
type Sampler struct {
	source CounterSource
	now    func() time.Time

	mu   sync.Mutex
	prev *sample
}

type sample struct {
	at       time.Time
	counters Counters
}

// NewSampler creates a [Sampler]. A nil source reads /proc/net/dev.
func NewSampler(source CounterSource) *Sampler {
	if source == nil {
		source = ProcNetDev
	}
	return &Sampler{source: source, now: time.Now}
}

// Sample reads the counters and returns totals plus rates since the
// previous successful sample. Read failures are reported in Error.
func (s *Sampler) Sample() Status {
	// The clock and counters are read under the lock so prev stays in time
	// order across concurrent callers.
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st := Status{CheckedAt: now.UTC().Format(time.RFC3339Nano)}

	c, err := s.source()
	if err != nil {
		msg := err.Error()
		st.Error = &msg
		return st
	}

	st.BytesSentTotal = c.BytesSent
	st.BytesRecvTotal = c.BytesRecv

	prev := s.prev
	s.prev = &sample{at: now, counters: c}

	if prev != nil {
		dt := now.Sub(prev.at).Seconds()
		if dt < 1e-6 {
			dt = 1e-6
		}
		st.UploadBps = rate(prev.counters.BytesSent, c.BytesSent, dt)
		st.DownloadBps = rate(prev.counters.BytesRecv, c.BytesRecv, dt)
	}

	st.UploadMbps = st.UploadBps * 8 / 1_000_000
	st.DownloadMbps = st.DownloadBps * 8 / 1_000_000
	return st
}

func rate(prev, cur uint64, seconds float64) float64 {
	if cur <= prev {
		return 0
	}
	return float64(cur-prev) / seconds
}

// ProcNetDev reads counters from /proc/net/dev, summed over every
// interface except loopback.
func ProcNetDev() (Counters, error) {
	return NetDevSource(procfs.DefaultMountPoint)()
}

// NetDevSource returns a [CounterSource] reading net/dev below the given
// proc mount point.
func NetDevSource(mountPoint string) CounterSource {
	return func() (Counters, error) {
		fs, err := procfs.NewFS(mountPoint)
		if err != nil {
			return Counters{}, fmt.Errorf("failed to open procfs: %w", err)
		}
		dev, err := fs.NetDev()
		if err != nil {
			return Counters{}, fmt.Errorf("failed to read network counters: %w", err)
		}
		return sumNetDev(dev)
	}
}

// sumNetDev totals the byte counters of all non-loopback interfaces.
func sumNetDev(dev procfs.NetDev) (Counters, error) {
	var total Counters
	found := false
	for name, line := range dev {
		if name == "lo" {
			continue
		}
		total.BytesRecv += line.RxBytes
		total.BytesSent += line.TxBytes
		found = true
	}
	if !found {
		return Counters{}, errors.New("no network interfaces found")
	}
	return total, nil
}
