package summarizer

import (
	"context"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/usecase/monitor"
)

// NoOp is a summarizer that performs no external enrichment. It returns
// the raw content truncated to the standard summary bound, which matches
// the fallback the pipeline applies when a provider fails.
type NoOp struct{}

// NewNoOp creates a new no-op summarizer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Summarize returns the truncated raw content without calling any provider.
func (n *NoOp) Summarize(_ context.Context, req monitor.SummaryRequest) (string, error) {
	return entity.TruncateSummary(req.Content), nil
}
