package report

import "context"

// Stages reported while assembling.
const (
	StageAggregate = "aggregate"
	StageRender    = "render"
	StageNarrative = "narrative"
	StageDone      = "done"
	StageWrite     = "write"
)

// Update is one progress notification.
type Update struct {
	Stage   string `json:"stage"`
	Section string `json:"section,omitempty"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// Progress receives assembly progress.
type Progress interface {
	Report(ctx context.Context, u Update)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(ctx context.Context, u Update)

// Report implements Progress.
func (f ProgressFunc) Report(ctx context.Context, u Update) {
	f(ctx, u)
}

type noProgress struct{}

func (noProgress) Report(context.Context, Update) {}
