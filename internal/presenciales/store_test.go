package presenciales

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/estetica-academy/presenciales/internal/models"
)

// memStore is an in-memory Store with the same one-vote-per-user semantics as the SQL upsert.
type memStore struct {
	mu      sync.Mutex
	polls   map[uuid.UUID]*models.Poll
	order   []uuid.UUID
	votes   map[uuid.UUID]map[uuid.UUID]models.Vote // poll -> user -> vote
	exports map[uuid.UUID]models.PollExport
}

func newMemStore() *memStore {
	return &memStore{
		polls:   make(map[uuid.UUID]*models.Poll),
		votes:   make(map[uuid.UUID]map[uuid.UUID]models.Vote),
		exports: make(map[uuid.UUID]models.PollExport),
	}
}

func clonePoll(p *models.Poll) *models.Poll {
	cp := *p
	cp.Options = append([]models.PollOption(nil), p.Options...)
	if p.Eligibility != nil {
		e := *p.Eligibility
		cp.Eligibility = &e
	}
	return &cp
}

func (m *memStore) CreatePoll(ctx context.Context, p *models.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	for i := range p.Options {
		p.Options[i].ID = uuid.New()
		p.Options[i].PollID = p.ID
	}
	m.polls[p.ID] = clonePoll(p)
	m.order = append([]uuid.UUID{p.ID}, m.order...)
	return nil
}

func (m *memStore) ListPolls(ctx context.Context) ([]models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Poll, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *clonePoll(m.polls[id]))
	}
	return out, nil
}

func (m *memStore) GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePoll(p), nil
}

func (m *memStore) ClosePoll(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok || p.Status != models.PollStatusOpen {
		return false, nil
	}
	p.Status = models.PollStatusClosed
	p.ClosedAt = &at
	return true, nil
}

func (m *memStore) UpsertVote(ctx context.Context, v *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[v.PollID]
	if !ok || p.Status != models.PollStatusOpen {
		return ErrPollClosed
	}
	if m.votes[v.PollID] == nil {
		m.votes[v.PollID] = make(map[uuid.UUID]models.Vote)
	}
	v.CreatedAt = time.Now()
	m.votes[v.PollID][v.UserID] = *v
	return nil
}

func (m *memStore) ListVotes(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Vote{}
	for _, v := range m.votes[pollID] {
		out = append(out, v)
	}
	return out, nil
}

func (m *memStore) GetExport(ctx context.Context, pollID uuid.UUID) (*models.PollExport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exports[pollID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memStore) SaveExport(ctx context.Context, e models.PollExport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports[e.PollID] = e
	return nil
}

type ownershipStub map[uuid.UUID][]string

func (o ownershipStub) ActiveCourseIDs(ctx context.Context, userID uuid.UUID, now time.Time) ([]string, error) {
	return o[userID], nil
}

// lockStub hands out one lock per key until released.
type lockStub struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *lockStub) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

type queueStub struct {
	mu    sync.Mutex
	polls []uuid.UUID
	err   error
}

func (q *queueStub) EnqueuePollExport(ctx context.Context, pollID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.polls = append(q.polls, pollID)
	return q.err
}

type signerStub struct{}

func (signerStub) PresignExportURL(ctx context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}
