package apicall

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBusyLabel is shown when Begin is called without a label.
const DefaultBusyLabel = "Loading..."

// Indicator is the single visible "work in progress" surface a Coordinator drives.
// Show and Hide are called with the coordinator's lock held and strictly alternate,
// so implementations must not call back into the coordinator.
type Indicator interface {
	Show(label string)
	Hide()
}

// NopIndicator discards Show and Hide. It is the default coordinator's surface.
type NopIndicator struct{}

// Show implements Indicator.
func (NopIndicator) Show(string) {}

// Hide implements Indicator.
func (NopIndicator) Hide() {}

// LogIndicator reports visibility transitions on a logger.
type LogIndicator struct {
	Logger *slog.Logger
}

// Show implements Indicator.
func (i LogIndicator) Show(label string) {
	i.logger().Info("busy indicator shown", "label", label)
}

// Hide implements Indicator.
func (i LogIndicator) Hide() {
	i.logger().Info("busy indicator hidden")
}

func (i LogIndicator) logger() *slog.Logger {
	if i.Logger == nil {
		return slog.Default()
	}
	return i.Logger
}

// Coordinator shares one Indicator between overlapping operations. The indicator is
// shown when the first operation begins and hidden when the last one ends; labels of
// operations that begin while it is already visible are ignored.
type Coordinator struct {
	indicator Indicator
	logger    *slog.Logger
	metrics   *Metrics
	label     string
	mu        sync.Mutex
	count     int
}

// CoordinatorOption is a functional option for configuring a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets a custom logger for the coordinator.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithCoordinatorMetrics records indicator state on m.
func WithCoordinatorMetrics(m *Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator creates a hidden coordinator driving indicator.
func NewCoordinator(indicator Indicator, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		indicator: indicator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.indicator == nil {
		c.indicator = NopIndicator{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Begin registers one more outstanding operation. Only the transition from hidden to
// visible shows the indicator, with label or DefaultBusyLabel when label is empty.
func (c *Coordinator) Begin(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.count++
	shown := c.count == 1
	if shown {
		if label == "" {
			label = DefaultBusyLabel
		}
		c.label = label
		c.indicator.Show(label)
	}
	c.metrics.observeBusy(c.count, shown)
}

// End releases one outstanding operation. The last release hides the indicator. An End
// without a matching Begin is ignored, so the count never goes negative.
func (c *Coordinator) End() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == 0 {
		c.logger.Debug("busy end without matching begin ignored")
		return
	}

	c.count--
	if c.count == 0 {
		c.label = ""
		c.indicator.Hide()
	}
	c.metrics.observeBusy(c.count, false)
}

// Track begins an operation and returns its release function. Calling release more
// than once has no further effect.
//
// Example:
//
//	release := busy.Track("Refreshing stocks")
//	defer release()
func (c *Coordinator) Track(label string) (release func()) {
	c.Begin(label)
	var once sync.Once
	return func() {
		once.Do(c.End)
	}
}

// Run holds the indicator for the duration of fn, releasing it on every exit path.
func (c *Coordinator) Run(label string, fn func() error) error {
	c.Begin(label)
	defer c.End()
	return fn()
}

// Visible reports whether the indicator is shown.
func (c *Coordinator) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count > 0
}

// Outstanding returns the number of operations holding the indicator.
func (c *Coordinator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Label returns the label currently shown, empty while hidden.
func (c *Coordinator) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label
}

// Status returns a consistent snapshot of the coordinator.
func (c *Coordinator) Status() BusyStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BusyStatus{
		Label:       c.label,
		Outstanding: c.count,
		Visible:     c.count > 0,
	}
}

var defaultCoordinator atomic.Pointer[Coordinator]

func init() {
	defaultCoordinator.Store(NewCoordinator(NopIndicator{}))
}

// DefaultCoordinator returns the process-wide coordinator used by BeginBusy and EndBusy.
func DefaultCoordinator() *Coordinator {
	return defaultCoordinator.Load()
}

// SetDefaultCoordinator replaces the process-wide coordinator. Call it at startup,
// before any BeginBusy; operations already begun on the old one must end there.
func SetDefaultCoordinator(c *Coordinator) {
	if c == nil {
		return
	}
	defaultCoordinator.Store(c)
}

// BeginBusy calls Begin on the process-wide coordinator.
func BeginBusy(label string) {
	DefaultCoordinator().Begin(label)
}

// EndBusy calls End on the process-wide coordinator.
func EndBusy() {
	DefaultCoordinator().End()
}
