package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

// --- In-memory collaborators ---

type fakeAlertRepo struct {
	mu      sync.Mutex
	alerts  []domain.Alert
	touched [][]int64
	markErr error
}

func (r *fakeAlertRepo) GetActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Alert
	for _, a := range r.alerts {
		if a.Status == domain.AlertStatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) GetActiveSymbols(ctx context.Context) ([]string, error) {
	active, _ := r.GetActiveAlerts(ctx)
	seen := map[string]bool{}
	var out []string
	for _, a := range active {
		if !seen[a.Symbol] {
			seen[a.Symbol] = true
			out = append(out, a.Symbol)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) MarkTriggered(ctx context.Context, id int64, price decimal.Decimal, at time.Time, final bool) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alerts {
		if r.alerts[i].ID == id {
			t := at
			r.alerts[i].TriggeredAt = &t
			r.alerts[i].TriggerPrice = decimal.NewNullDecimal(price)
			if final {
				r.alerts[i].Status = domain.AlertStatusTriggered
			}
			return nil
		}
	}
	return errors.New("alert not found")
}

func (r *fakeAlertRepo) TouchLastChecked(ctx context.Context, ids []int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, ids)
	for i := range r.alerts {
		for _, id := range ids {
			if r.alerts[i].ID == id {
				t := at
				r.alerts[i].LastCheckedAt = &t
			}
		}
	}
	return nil
}

func (r *fakeAlertRepo) get(id int64) domain.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID == id {
			return a
		}
	}
	return domain.Alert{}
}

type fakeSectorRepo struct {
	strategies []domain.SectorStrategy
	triggered  []int64
}

func (r *fakeSectorRepo) GetActiveStrategies(ctx context.Context) ([]domain.SectorStrategy, error) {
	var out []domain.SectorStrategy
	for _, st := range r.strategies {
		if st.IsActive {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeSectorRepo) GetSectorSymbols(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, st := range r.strategies {
		for _, stock := range st.Sector.Stocks {
			if !seen[stock.Symbol] {
				seen[stock.Symbol] = true
				out = append(out, stock.Symbol)
			}
		}
	}
	return out, nil
}

func (r *fakeSectorRepo) MarkStrategyTriggered(ctx context.Context, id int64, at time.Time) error {
	r.triggered = append(r.triggered, id)
	return nil
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []domain.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = int64(len(r.created) + 1)
	r.created = append(r.created, *n)
	return nil
}

func (r *fakeNotificationRepo) byChannel(ch domain.NotificationChannel) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.created {
		if n.Channel == ch {
			out = append(out, n)
		}
	}
	return out
}

type fakeUserRepo struct {
	users map[int64]*domain.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.users[id], nil
}

type fakeCache struct {
	mu   sync.Mutex
	live map[string]decimal.Decimal
	prev map[string]decimal.Decimal
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		live: map[string]decimal.Decimal{},
		prev: map[string]decimal.Decimal{},
	}
}

func (c *fakeCache) PutLive(ctx context.Context, symbol string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live[symbol] = price
}

func (c *fakeCache) GetLive(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.live[symbol]
	return v, ok
}

func (c *fakeCache) PutPrevClose(ctx context.Context, symbol string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prev[symbol] = price
}

func (c *fakeCache) GetPrevClose(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.prev[symbol]
	return v, ok
}

func (c *fakeCache) GetAllLive(ctx context.Context, symbols []string) map[string]decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]decimal.Decimal)
	for _, s := range symbols {
		if v, ok := c.live[s]; ok {
			out[s] = v
		}
	}
	return out
}

type fakeQuoteProvider struct {
	mu     sync.Mutex
	quotes map[string]*domain.Quote
	calls  []string
}

func (p *fakeQuoteProvider) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, symbol)
	return p.quotes[symbol], nil
}

type mailCall struct {
	to, subject, text, html string
}

type fakeMailer struct {
	failures int // fail the first N sends
	calls    []mailCall
}

func (m *fakeMailer) Send(to, subject, textBody, htmlBody string) error {
	m.calls = append(m.calls, mailCall{to, subject, textBody, htmlBody})
	if len(m.calls) <= m.failures {
		return errors.New("smtp unavailable")
	}
	return nil
}

// recordingSleeper captures pacing without waiting.
type recordingSleeper struct {
	slept []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) {
	s.slept = append(s.slept, d)
}

// --- Harness ---

type engineHarness struct {
	engine  *AlertEngine
	alerts  *fakeAlertRepo
	sectors *fakeSectorRepo
	notifs  *fakeNotificationRepo
	users   *fakeUserRepo
	cache   *fakeCache
	quotes  *fakeQuoteProvider
	mailer  *fakeMailer
	sleeper *recordingSleeper
	now     time.Time
}

func newHarness() *engineHarness {
	h := &engineHarness{
		alerts:  &fakeAlertRepo{},
		sectors: &fakeSectorRepo{},
		notifs:  &fakeNotificationRepo{},
		users:   &fakeUserRepo{users: map[int64]*domain.User{}},
		cache:   newFakeCache(),
		quotes:  &fakeQuoteProvider{quotes: map[string]*domain.Quote{}},
		mailer:  &fakeMailer{},
		sleeper: &recordingSleeper{},
		now:     time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	}
	h.engine = NewAlertEngine(h.alerts, h.sectors, h.notifs, h.users, h.cache, h.quotes, h.mailer).
		WithClock(func() time.Time { return h.now }).
		WithSleeper(h.sleeper.sleep)
	return h
}
