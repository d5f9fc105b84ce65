package clipboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PollingBackend wraps a backend without change notifications and polls
// it on a cron "@every" schedule, reporting content changes.
type PollingBackend struct {
	inner    Backend
	interval time.Duration
}

func NewPollingBackend(inner Backend, interval time.Duration) *PollingBackend {
	return &PollingBackend{inner: inner, interval: interval}
}

func (b *PollingBackend) GetText() (string, error) { return b.inner.GetText() }

func (b *PollingBackend) SetText(text string) error { return b.inner.SetText(text) }

func (b *PollingBackend) Watch(onChange func(string)) (func() error, error) {
	p, err := b.newPoller(onChange)
	if err != nil {
		return nil, err
	}
	c := cron.New()
	if _, err := c.AddFunc("@every "+b.interval.String(), p.check); err != nil {
		return nil, fmt.Errorf("clipboard: poll schedule: %w", err)
	}
	c.Start()

	var once sync.Once
	return func() error {
		once.Do(func() { <-c.Stop().Done() })
		return nil
	}, nil
}

func (b *PollingBackend) newPoller(onChange func(string)) (*poller, error) {
	last, err := b.inner.GetText()
	if err != nil {
		return nil, err
	}
	return &poller{read: b.inner.GetText, last: last, onChange: onChange}, nil
}

// poller remembers the last seen contents between polls.
type poller struct {
	read     func() (string, error)
	onChange func(string)

	mu   sync.Mutex
	last string
}

func (p *poller) check() {
	text, err := p.read()
	if err != nil {
		return
	}
	p.mu.Lock()
	changed := text != p.last
	p.last = text
	p.mu.Unlock()
	if changed {
		p.onChange(text)
	}
}
