package client

import "sync"

// BusyLabel is shown on a control while its submission is in flight.
const BusyLabel = "Processing..."

// Control is the UI element that triggered a submission.
type Control interface {
	Label() string
	SetLabel(string)
	Enabled() bool
	SetEnabled(bool)
}

// Button is an in-memory Control.
type Button struct {
	mu      sync.Mutex
	label   string
	enabled bool
}

// NewButton returns an enabled Button showing label.
func NewButton(label string) *Button {
	return &Button{label: label, enabled: true}
}

func (b *Button) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label
}

func (b *Button) SetLabel(l string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.label = l
}

func (b *Button) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

func (b *Button) SetEnabled(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = v
}

// markBusy disables ctl and swaps in BusyLabel. The returned release restores the
// previous state; calls after the first do nothing.
func markBusy(ctl Control) (release func()) {
	if ctl == nil {
		return func() {}
	}
	label, enabled := ctl.Label(), ctl.Enabled()
	ctl.SetEnabled(false)
	ctl.SetLabel(BusyLabel)

	var once sync.Once
	return func() {
		once.Do(func() {
			ctl.SetLabel(label)
			ctl.SetEnabled(enabled)
		})
	}
}
