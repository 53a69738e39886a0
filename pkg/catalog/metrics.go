package catalog

import "time"

// Metrics receives measurements from catalog operations. A nil Metrics
// disables instrumentation entirely; the service never requires one.
// The prometheus implementation lives in pkg/metrics/prometheus.
type Metrics interface {
	// ObserveOperation records one service operation with its outcome.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordAssetSaved records a completed save with the asset's kind
	// and size in bytes.
	RecordAssetSaved(kind string, bytes int64)

	// RecordAssetsDeleted records how many assets a bulk delete removed.
	RecordAssetsDeleted(count int)

	// RecordFoldersDeleted records how many folder rows a delete
	// cascade removed.
	RecordFoldersDeleted(count int)

	// RecordHookVeto records a decision hook vetoing an operation.
	RecordHookVeto(hook string)
}

// observe reports an operation to the configured metrics sink, if any.
func (s *Service) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOperation(operation, time.Since(start), err)
}
