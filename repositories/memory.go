package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"heartmatch/models"
)

// NewMemoryStore returns a Store backed by process memory. Used by tests and
// by STORAGE_DRIVER=memory.
func NewMemoryStore() *Store {
	return &Store{
		Users:    NewMemoryUserRepository(),
		Matches:  NewMemoryMatchRepository(),
		Messages: NewMemoryMessageRepository(),
		Pushes:   NewMemoryPushSubscriptionRepository(),
		Tx:       NoTransaction{},
	}
}

// NoTransaction runs fn directly.
type NoTransaction struct{}

func (NoTransaction) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*models.User
	order []primitive.ObjectID
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *MemoryUserRepository) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(u.Email)
	for _, existing := range r.users {
		if strings.ToLower(existing.Email) == email {
			return ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = cloneUser(u)
	r.order = append(r.order, u.ID)
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range r.users {
		if strings.ToLower(u.Email) == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	upd.ApplyTo(u, time.Now())
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) AddPhoto(ctx context.Context, id primitive.ObjectID, url string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Photos = append(u.Photos, url)
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) AddLike(ctx context.Context, actor, target primitive.ObjectID) error {
	return r.addToSet(actor, target, func(u *models.User) *[]primitive.ObjectID { return &u.Likes })
}

func (r *MemoryUserRepository) AddDislike(ctx context.Context, actor, target primitive.ObjectID) error {
	return r.addToSet(actor, target, func(u *models.User) *[]primitive.ObjectID { return &u.Dislikes })
}

func (r *MemoryUserRepository) addToSet(id, value primitive.ObjectID, field func(*models.User) *[]primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	set := field(u)
	for _, v := range *set {
		if v == value {
			return nil
		}
	}
	*set = append(*set, value)
	u.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) SetOnline(ctx context.Context, id primitive.ObjectID, online bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsOnline = online
	u.LastActive = at
	return nil
}

func (r *MemoryUserRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.User, error) {
	r.mu.RLock()
	all := make([]models.User, 0, len(r.order))
	for _, id := range r.order {
		all = append(all, *cloneUser(r.users[id]))
	}
	r.mu.RUnlock()

	return q.Select(all), nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.InterestedIn = append([]models.Gender(nil), u.InterestedIn...)
	c.Photos = append([]string(nil), u.Photos...)
	c.Interests = append([]string(nil), u.Interests...)
	c.Likes = append([]primitive.ObjectID(nil), u.Likes...)
	c.Dislikes = append([]primitive.ObjectID(nil), u.Dislikes...)
	if u.Location != nil {
		loc := *u.Location
		c.Location = &loc
	}
	return &c
}

// MemoryMatchRepository is an in-memory implementation of MatchRepository.
type MemoryMatchRepository struct {
	mu      sync.RWMutex
	matches map[primitive.ObjectID]*models.Match
}

func NewMemoryMatchRepository() *MemoryMatchRepository {
	return &MemoryMatchRepository{matches: make(map[primitive.ObjectID]*models.Match)}
}

func (r *MemoryMatchRepository) UpsertActive(ctx context.Context, m *models.Match) (*models.Match, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.activeByKey(m.PairKey); existing != nil {
		return cloneMatch(existing), false, nil
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	r.matches[m.ID] = cloneMatch(m)
	return cloneMatch(m), true, nil
}

func (r *MemoryMatchRepository) FindActiveByPair(ctx context.Context, pair models.Pair) (*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m := r.activeByKey(pair.Key()); m != nil {
		return cloneMatch(m), nil
	}
	return nil, ErrNotFound
}

func (r *MemoryMatchRepository) activeByKey(key string) *models.Match {
	for _, m := range r.matches {
		if m.IsActive && m.PairKey == key {
			return m
		}
	}
	return nil
}

func (r *MemoryMatchRepository) GetActive(ctx context.Context, id primitive.ObjectID) (*models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.matches[id]
	if !ok || !m.IsActive {
		return nil, ErrNotFound
	}
	return cloneMatch(m), nil
}

func (r *MemoryMatchRepository) ListActiveForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Match, 0)
	for _, m := range r.matches {
		if m.IsActive && m.Users.Contains(userID) {
			out = append(out, *cloneMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

func (r *MemoryMatchRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[id]
	if !ok || !m.IsActive {
		return ErrNotFound
	}
	m.IsActive = false
	m.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryMatchRepository) RecordMessage(ctx context.Context, id, recipient primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[id]
	if !ok || !m.IsActive {
		return ErrNotFound
	}
	m.LastMessageAt = at
	m.UpdatedAt = at
	if m.UnreadCount == nil {
		m.UnreadCount = make(map[string]int)
	}
	m.UnreadCount[recipient.Hex()]++
	return nil
}

func (r *MemoryMatchRepository) ResetUnread(ctx context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[id]
	if !ok {
		return ErrNotFound
	}
	if m.UnreadCount == nil {
		m.UnreadCount = make(map[string]int)
	}
	m.UnreadCount[userID.Hex()] = 0
	return nil
}

func cloneMatch(m *models.Match) *models.Match {
	c := *m
	c.UnreadCount = make(map[string]int, len(m.UnreadCount))
	for k, v := range m.UnreadCount {
		c.UnreadCount[k] = v
	}
	return &c
}

// MemoryMessageRepository is an in-memory implementation of MessageRepository.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages []*models.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{}
}

func (r *MemoryMessageRepository) Create(ctx context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	c := *m
	r.messages = append(r.messages, &c)
	return nil
}

func (r *MemoryMessageRepository) ListByMatch(ctx context.Context, matchID primitive.ObjectID, skip, limit int) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []models.Message
	for i := len(r.messages) - 1; i >= 0; i-- {
		if m := r.messages[i]; m.MatchID == matchID && !m.IsDeleted {
			all = append(all, *m)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	out := make([]models.Message, 0)
	if skip >= len(all) {
		return out, nil
	}
	end := len(all)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return append(out, all[skip:end]...), nil
}

func (r *MemoryMessageRepository) MarkRead(ctx context.Context, matchID, reader primitive.ObjectID, at time.Time, ids ...primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var n int64
	for _, m := range r.messages {
		if m.MatchID != matchID || m.RecipientID != reader || m.IsRead || m.IsDeleted {
			continue
		}
		if len(ids) > 0 && !wanted[m.ID] {
			continue
		}
		readAt := at
		m.IsRead = true
		m.ReadAt = &readAt
		n++
	}
	return n, nil
}

// MemoryPushSubscriptionRepository is an in-memory implementation of PushSubscriptionRepository.
type MemoryPushSubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[primitive.ObjectID]models.PushSubscription
}

func NewMemoryPushSubscriptionRepository() *MemoryPushSubscriptionRepository {
	return &MemoryPushSubscriptionRepository{subs: make(map[primitive.ObjectID]models.PushSubscription)}
}

func (r *MemoryPushSubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.subs[sub.UserID]; ok {
		sub.ID = existing.ID
	} else if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	r.subs[sub.UserID] = *sub
	return nil
}

func (r *MemoryPushSubscriptionRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (r *MemoryPushSubscriptionRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subs, userID)
	return nil
}
