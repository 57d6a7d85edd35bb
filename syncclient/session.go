package syncclient

import (
	"context"
	"sync"
	"time"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/realtime"
	"github.com/ciclus/rd-dashboard/utils"
)

// DefaultPollInterval is how often a Session checks the API is reachable.
const DefaultPollInterval = 30 * time.Second

type SessionOptions struct {
	PollInterval time.Duration
	// OnReports is called with a copy of the report list after every change.
	OnReports func([]models.Report)
	// OnOnline is called when reachability flips.
	OnOnline func(bool)
}

// Session keeps a local copy of the report list in sync: it re-fetches on
// every pushed change and polls reachability. Close releases both.
type Session struct {
	client *Client
	opts   SessionOptions

	mu          sync.Mutex
	reports     []models.Report
	online      bool
	unsubscribe func()

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open loads the reports, subscribes to the change feed and starts the
// reachability poll. A failed subscription is retried on each poll.
func Open(ctx context.Context, client *Client, opts SessionOptions) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	s := &Session{client: client, opts: opts, reports: []models.Report{}}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.checkOnline()
	s.Refresh()
	s.subscribe()

	s.wg.Add(1)
	go s.poll()
	return s
}

func (s *Session) poll() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.checkOnline() {
				s.subscribe()
			} else {
				s.dropSubscription()
			}
		}
	}
}

func (s *Session) checkOnline() bool {
	online := s.client.Ping(s.ctx) == nil

	s.mu.Lock()
	changed := online != s.online
	s.online = online
	s.mu.Unlock()

	if changed && s.opts.OnOnline != nil {
		s.opts.OnOnline(online)
	}
	return online
}

func (s *Session) subscribe() {
	s.mu.Lock()
	active := s.unsubscribe != nil
	s.mu.Unlock()
	if active || s.ctx.Err() != nil {
		return
	}

	unsubscribe, err := s.client.Subscribe(s.ctx, func(n realtime.ChangeNotice) {
		if n.Table == realtime.TableReports {
			s.Refresh()
		}
	})
	if err != nil {
		utils.InfoLogger.Warnf("change feed unavailable: %v", err)
		return
	}

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
}

// Refresh re-fetches the reports. On failure the cached list is kept.
func (s *Session) Refresh() {
	reports, err := s.client.listReports(s.ctx)
	if err != nil {
		if s.ctx.Err() == nil {
			utils.ErrorLogger.Errorf("refresh reports: %v", err)
		}
		return
	}
	s.mu.Lock()
	s.reports = reports
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Reports() []models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Report(nil), s.reports...)
}

func (s *Session) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// UpdateStatus shows the new status locally at once, then writes it. When
// the write fails the local report is put back as it was.
func (s *Session) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, note string) (models.Report, error) {
	prev, found := s.replace(id, func(r models.Report) models.Report {
		r.Status = status
		r.SupervisorNote = note
		return r
	})
	if found {
		s.notify()
	}

	saved, err := s.client.UpdateStatus(ctx, id, status, note)
	if err != nil {
		if found {
			s.replace(id, func(models.Report) models.Report { return prev })
			s.notify()
		}
		return models.Report{}, err
	}

	if _, ok := s.replace(id, func(models.Report) models.Report { return saved }); ok {
		s.notify()
	}
	return saved, nil
}

// replace swaps the cached report id for fn(report) and returns the old one.
func (s *Session) replace(id string, fn func(models.Report) models.Report) (models.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reports {
		if r.ID == id {
			s.reports[i] = fn(r)
			return r, true
		}
	}
	return models.Report{}, false
}

func (s *Session) notify() {
	if s.opts.OnReports != nil {
		s.opts.OnReports(s.Reports())
	}
}

// dropSubscription releases a feed that may have died with the connection;
// the next successful poll subscribes again.
func (s *Session) dropSubscription() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Close stops the poll and the subscription and waits for both.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.dropSubscription()
	})
}
