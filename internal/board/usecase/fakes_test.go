package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	authdomain "mailboard-backend/internal/auth/domain"
	boarddomain "mailboard-backend/internal/board/domain"
	"mailboard-backend/pkg/config"
)

// In-memory fakes for the repositories and gateways. They mirror the
// ordering and idempotency contracts of the real implementations.

type fakeCachedRepo struct {
	mu    sync.Mutex
	items map[string]*boarddomain.CachedEmail
	seq   map[string]int
	next  int
}

func newFakeCachedRepo() *fakeCachedRepo {
	return &fakeCachedRepo{
		items: make(map[string]*boarddomain.CachedEmail),
		seq:   make(map[string]int),
	}
}

func cacheKey(userID, messageID string) string {
	return userID + "/" + messageID
}

func (r *fakeCachedRepo) Insert(item *boarddomain.CachedEmail) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := cacheKey(item.UserID, item.MessageID)
	if _, exists := r.items[key]; exists {
		return false, nil
	}
	if item.ID == "" {
		item.ID = fmt.Sprintf("id-%d", r.next)
	}
	copied := *item
	r.items[key] = &copied
	r.seq[key] = r.next
	r.next++
	return true, nil
}

func (r *fakeCachedRepo) GetByMessageID(userID, messageID string) (*boarddomain.CachedEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[cacheKey(userID, messageID)]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (r *fakeCachedRepo) Update(item *boarddomain.CachedEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := cacheKey(item.UserID, item.MessageID)
	if _, ok := r.items[key]; !ok {
		return fmt.Errorf("item not found: %s", key)
	}
	copied := *item
	r.items[key] = &copied
	return nil
}

func (r *fakeCachedRepo) Delete(userID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, cacheKey(userID, messageID))
	return nil
}

// sortedByStatus returns a user's items in one column, newest first,
// ties broken by insertion order.
func (r *fakeCachedRepo) sortedByStatus(userID, status string, olderThan *time.Time) []*boarddomain.CachedEmail {
	var matched []*boarddomain.CachedEmail
	for _, item := range r.items {
		if item.UserID != userID || item.Status != status {
			continue
		}
		if olderThan != nil && !item.ReceivedAt.Before(*olderThan) {
			continue
		}
		copied := *item
		matched = append(matched, &copied)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].ReceivedAt.Equal(matched[j].ReceivedAt) {
			return matched[i].ReceivedAt.After(matched[j].ReceivedAt)
		}
		return r.seq[cacheKey(matched[i].UserID, matched[i].MessageID)] > r.seq[cacheKey(matched[j].UserID, matched[j].MessageID)]
	})
	return matched
}

func (r *fakeCachedRepo) ListByStatus(userID, status string, olderThan *time.Time, limit int) ([]*boarddomain.CachedEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := r.sortedByStatus(userID, status, olderThan)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeCachedRepo) CountByStatus(userID, status string, olderThan *time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sortedByStatus(userID, status, olderThan))), nil
}

func (r *fakeCachedRepo) OldestReceivedAt(userID, status string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := r.sortedByStatus(userID, status, nil)
	if len(matched) == 0 {
		return nil, nil
	}
	oldest := matched[len(matched)-1].ReceivedAt
	return &oldest, nil
}

func (r *fakeCachedRepo) MigrateStatus(userID, fromStatus, toStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.UserID == userID && item.Status == fromStatus {
			item.Status = toStatus
		}
	}
	return nil
}

func (r *fakeCachedRepo) ListRecent(userID string, limit int) ([]*boarddomain.CachedEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*boarddomain.CachedEmail
	for _, item := range r.items {
		if item.UserID != userID {
			continue
		}
		copied := *item
		matched = append(matched, &copied)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ReceivedAt.After(matched[j].ReceivedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeCachedRepo) ListSnoozedDue(userID string, now time.Time) ([]*boarddomain.CachedEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*boarddomain.CachedEmail
	for _, item := range r.items {
		if item.UserID != userID {
			continue
		}
		if item.SnoozeDue(now) {
			copied := *item
			due = append(due, &copied)
		}
	}
	return due, nil
}

func (r *fakeCachedRepo) ListAllSnoozedDue(now time.Time) ([]*boarddomain.CachedEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*boarddomain.CachedEmail
	for _, item := range r.items {
		if item.SnoozeDue(now) {
			copied := *item
			due = append(due, &copied)
		}
	}
	return due, nil
}

type fakeColumnRepo struct {
	mu      sync.Mutex
	columns map[string][]*boarddomain.KanbanColumn
}

func newFakeColumnRepo() *fakeColumnRepo {
	return &fakeColumnRepo{columns: make(map[string][]*boarddomain.KanbanColumn)}
}

func (r *fakeColumnRepo) GetColumnsByUserID(userID string) ([]*boarddomain.KanbanColumn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	columns := make([]*boarddomain.KanbanColumn, 0, len(r.columns[userID]))
	for _, column := range r.columns[userID] {
		copied := *column
		columns = append(columns, &copied)
	}
	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].Order < columns[j].Order
	})
	return columns, nil
}

func (r *fakeColumnRepo) GetColumnByID(userID, columnID string) (*boarddomain.KanbanColumn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, column := range r.columns[userID] {
		if column.ColumnID == columnID {
			copied := *column
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeColumnRepo) CreateColumn(column *boarddomain.KanbanColumn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *column
	r.columns[column.UserID] = append(r.columns[column.UserID], &copied)
	return nil
}

func (r *fakeColumnRepo) ReplaceColumns(userID string, columns []*boarddomain.KanbanColumn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced := make([]*boarddomain.KanbanColumn, 0, len(columns))
	for _, column := range columns {
		copied := *column
		replaced = append(replaced, &copied)
	}
	r.columns[userID] = replaced
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*authdomain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*authdomain.User)}
}

func (r *fakeUserRepo) Create(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindAll() ([]*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]*authdomain.User, 0, len(r.users))
	for _, user := range r.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func (r *fakeUserRepo) Update(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

type modifyCall struct {
	messageID string
	add       []string
	remove    []string
}

type fakeMailProvider struct {
	mu sync.Mutex

	// pages holds scripted list responses per label, consumed in order.
	pages     map[string][]*boarddomain.MessagePage
	pageIdx   map[string]int
	listErr   error
	lastQuery boarddomain.ListQuery

	messages map[string]*boarddomain.RemoteMessage
	getErr   error

	modifyCalls []modifyCall
	modifyErr   error

	labels []*boarddomain.RemoteLabel

	history    []*boarddomain.RemoteChange
	historyID  uint64
	watchCalls int
}

func newFakeMailProvider() *fakeMailProvider {
	return &fakeMailProvider{
		pages:    make(map[string][]*boarddomain.MessagePage),
		pageIdx:  make(map[string]int),
		messages: make(map[string]*boarddomain.RemoteMessage),
	}
}

func (p *fakeMailProvider) ListMessages(ctx context.Context, accessToken, refreshToken string, q boarddomain.ListQuery, onTokenRefresh boarddomain.TokenUpdateFunc) (*boarddomain.MessagePage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastQuery = q
	if p.listErr != nil {
		return nil, p.listErr
	}
	queue := p.pages[q.LabelID]
	idx := p.pageIdx[q.LabelID]
	if idx >= len(queue) {
		return &boarddomain.MessagePage{}, nil
	}
	p.pageIdx[q.LabelID] = idx + 1
	return queue[idx], nil
}

func (p *fakeMailProvider) GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh boarddomain.TokenUpdateFunc) (*boarddomain.RemoteMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	msg, ok := p.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("message not found: %s", messageID)
	}
	return msg, nil
}

func (p *fakeMailProvider) ModifyLabels(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh boarddomain.TokenUpdateFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modifyCalls = append(p.modifyCalls, modifyCall{
		messageID: messageID,
		add:       addLabelIDs,
		remove:    removeLabelIDs,
	})
	return p.modifyErr
}

func (p *fakeMailProvider) ListLabels(ctx context.Context, accessToken, refreshToken string, onTokenRefresh boarddomain.TokenUpdateFunc) ([]*boarddomain.RemoteLabel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.labels, nil
}

func (p *fakeMailProvider) HistoryChanges(ctx context.Context, accessToken, refreshToken string, sinceHistoryID uint64, onTokenRefresh boarddomain.TokenUpdateFunc) ([]*boarddomain.RemoteChange, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history, p.historyID, nil
}

func (p *fakeMailProvider) Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh boarddomain.TokenUpdateFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watchCalls++
	return nil
}

type fakeVectorIndex struct {
	mu sync.Mutex

	docs map[string]string // messageID -> text

	// hitsByThreshold scripts SearchSimilar responses keyed by minScore.
	hitsByThreshold map[float64][]*boarddomain.VectorHit
	searchErr       error
	searchCalls     []float64

	deleted []string
}

func newFakeVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{
		docs:            make(map[string]string),
		hitsByThreshold: make(map[float64][]*boarddomain.VectorHit),
	}
}

func (v *fakeVectorIndex) Upsert(ctx context.Context, userID, messageID string, meta boarddomain.EmbeddingMetadata, text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.docs[messageID] = text
	return nil
}

func (v *fakeVectorIndex) SearchSimilar(ctx context.Context, userID, query string, k int, minScore float64) ([]*boarddomain.VectorHit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.searchCalls = append(v.searchCalls, minScore)
	if v.searchErr != nil {
		return nil, v.searchErr
	}
	return v.hitsByThreshold[minScore], nil
}

func (v *fakeVectorIndex) Delete(ctx context.Context, messageID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deleted = append(v.deleted, messageID)
	delete(v.docs, messageID)
	return nil
}

type sentEvent struct {
	userID    string
	eventType string
	payload   interface{}
}

type fakeEventService struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (s *fakeEventService) SendToUser(userID, eventType string, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEvent{userID: userID, eventType: eventType, payload: payload})
}

// testEnv bundles one wired usecase with its fakes.
type testEnv struct {
	uc       BoardUsecase
	cached   *fakeCachedRepo
	columns  *fakeColumnRepo
	users    *fakeUserRepo
	provider *fakeMailProvider
	vector   *fakeVectorIndex
}

func newTestEnv() *testEnv {
	cached := newFakeCachedRepo()
	columns := newFakeColumnRepo()
	users := newFakeUserRepo()
	provider := newFakeMailProvider()
	vector := newFakeVectorIndex()

	cfg := &config.Config{
		BoardPageSize:     10,
		FuzzySearchWindow: 500,
		SummaryTTL:        24 * time.Hour,
	}

	uc := NewBoardUsecase(cached, columns, users, provider, cfg, "projects/test/topics/mail")
	uc.SetVectorIndex(vector)

	return &testEnv{
		uc:       uc,
		cached:   cached,
		columns:  columns,
		users:    users,
		provider: provider,
		vector:   vector,
	}
}

func (e *testEnv) addUser(id string) *authdomain.User {
	user := &authdomain.User{
		ID:           id,
		Email:        id + "@example.com",
		Provider:     "google",
		AccessToken:  "access-" + id,
		RefreshToken: "refresh-" + id,
	}
	_ = e.users.Create(user)
	return user
}

func (e *testEnv) addColumn(userID, columnID, name string, order int, label *string) {
	_ = e.columns.CreateColumn(&boarddomain.KanbanColumn{
		UserID:     userID,
		ColumnID:   columnID,
		Name:       name,
		Order:      order,
		GmailLabel: label,
	})
}

func (e *testEnv) addCached(userID, messageID, status string, receivedAt time.Time) *boarddomain.CachedEmail {
	item := &boarddomain.CachedEmail{
		UserID:     userID,
		MessageID:  messageID,
		Subject:    "Subject " + messageID,
		FromName:   "Sender " + messageID,
		FromEmail:  messageID + "@example.com",
		Status:     status,
		ReceivedAt: receivedAt,
	}
	_, _ = e.cached.Insert(item)
	return item
}

func remoteMessage(id string, receivedAt time.Time, labels ...string) *boarddomain.RemoteMessage {
	return &boarddomain.RemoteMessage{
		ID:         id,
		ThreadID:   "thread-" + id,
		FromName:   "Sender " + id,
		FromEmail:  id + "@example.com",
		Subject:    "Subject " + id,
		Snippet:    "Snippet " + id,
		ReceivedAt: receivedAt,
		LabelIDs:   labels,
	}
}
