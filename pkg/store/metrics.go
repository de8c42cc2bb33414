package store

import (
	"io/fs"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatrelay_store_ops_total",
	Help: "Completed session store mutations by operation.",
}, []string{"op"})

var diskBytes = promauto.NewGaugeFunc(prometheus.GaugeOpts{
	Name: "chatrelay_store_disk_bytes",
	Help: "Best-effort on-disk size of the session database directory.",
}, func() float64 { return float64(DiskUsage()) })

// DiskUsage computes the total bytes under the database directory. It is a
// best-effort figure; walk errors are ignored.
func DiskUsage() uint64 {
	if db == nil || dbPath == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		total += uint64(fi.Size())
		return nil
	})
	return total
}
