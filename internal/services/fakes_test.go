package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/study-assistant-service/internal/auth"
	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
	"github.com/SAP-F-2025/study-assistant-service/internal/completion"
	"github.com/SAP-F-2025/study-assistant-service/internal/events"
	"github.com/SAP-F-2025/study-assistant-service/internal/facematch"
	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

const testDims = 4

// ===== IN-MEMORY REPOSITORY =====

type memStore struct {
	clock time.Time

	users    map[string]*models.User
	faces    map[string]*models.FaceEmbedding
	plans    []*models.LearningPlan
	quizzes  []*models.QuizResult
	notes    map[string]*models.Note
	versions map[string]*models.NoteVersion

	failUserCreate error
	failNoteUpdate error
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    map[string]*models.User{},
		faces:    map[string]*models.FaceEmbedding{},
		notes:    map[string]*models.Note{},
		versions: map[string]*models.NoteVersion{},
	}
}

// tick returns strictly increasing timestamps so orderings are deterministic
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

type memSnapshot struct {
	users    map[string]*models.User
	faces    map[string]*models.FaceEmbedding
	plans    []*models.LearningPlan
	quizzes  []*models.QuizResult
	notes    map[string]*models.Note
	versions map[string]*models.NoteVersion
}

func (s *memStore) snapshot() memSnapshot {
	return memSnapshot{
		users:    copyMap(s.users),
		faces:    copyMap(s.faces),
		plans:    append([]*models.LearningPlan(nil), s.plans...),
		quizzes:  append([]*models.QuizResult(nil), s.quizzes...),
		notes:    copyMap(s.notes),
		versions: copyMap(s.versions),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.users = snap.users
	s.faces = snap.faces
	s.plans = snap.plans
	s.quizzes = snap.quizzes
	s.notes = snap.notes
	s.versions = snap.versions
}

func copyMap[T any](m map[string]*T) map[string]*T {
	out := make(map[string]*T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, repositories.ErrNotFound)
}

type memRepository struct {
	store    *memStore
	identity repositories.IdentityRepository
}

func (r *memRepository) User() repositories.UserRepository {
	return memUsers{r.store}
}

func (r *memRepository) Identity() repositories.IdentityRepository {
	return r.identity
}

func (r *memRepository) FaceEmbedding() repositories.FaceEmbeddingRepository {
	return memFaces{r.store}
}

func (r *memRepository) LearningPlan() repositories.LearningPlanRepository {
	return memPlans{r.store}
}

func (r *memRepository) QuizResult() repositories.QuizResultRepository {
	return memQuizzes{r.store}
}

func (r *memRepository) Note() repositories.NoteRepository {
	return memNotes{r.store}
}

func (r *memRepository) NoteVersion() repositories.NoteVersionRepository {
	return memVersions{r.store}
}

func (r *memRepository) Stats() repositories.StatsRepository {
	return memStats{r.store}
}

func (r *memRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *memRepository) Close() error {
	return nil
}

// WithTransaction rolls every store back when fn fails
func (r *memRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	snap := r.store.snapshot()
	if err := fn(r); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

type memUsers struct{ s *memStore }

func (u memUsers) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if u.s.failUserCreate != nil {
		return u.s.failUserCreate
	}
	for _, existing := range u.s.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.ExternalID == user.ExternalID {
			return fmt.Errorf("duplicate key value violates unique constraint")
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = u.s.tick()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	u.s.users[user.ID] = &stored
	return nil
}

func (u memUsers) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if _, ok := u.s.users[user.ID]; !ok {
		return notFound("update user")
	}
	user.UpdatedAt = u.s.tick()
	stored := *user
	u.s.users[user.ID] = &stored
	return nil
}

func (u memUsers) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	if user, ok := u.s.users[id]; ok {
		out := *user
		return &out, nil
	}
	return nil, notFound("get user")
}

func (u memUsers) find(match func(*models.User) bool) (*models.User, error) {
	for _, user := range u.s.users {
		if match(user) {
			out := *user
			return &out, nil
		}
	}
	return nil, notFound("get user")
}

func (u memUsers) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	return u.find(func(user *models.User) bool { return strings.EqualFold(user.Email, email) })
}

func (u memUsers) GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*models.User, error) {
	return u.find(func(user *models.User) bool { return user.ExternalID == externalID })
}

func (u memUsers) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	_, err := u.GetByEmail(ctx, tx, email)
	return err == nil, nil
}

// DeleteByExternalID mirrors the ON DELETE CASCADE foreign keys
func (u memUsers) DeleteByExternalID(ctx context.Context, tx *gorm.DB, externalID string) error {
	user, err := u.GetByExternalID(ctx, tx, externalID)
	if err != nil {
		return err
	}
	delete(u.s.users, user.ID)
	delete(u.s.faces, user.ID)
	for id, note := range u.s.notes {
		if note.UserID == user.ID {
			_ = memNotes{u.s}.Delete(ctx, tx, id)
		}
	}
	return nil
}

type memFaces struct{ s *memStore }

func (f memFaces) Upsert(ctx context.Context, tx *gorm.DB, face *models.FaceEmbedding) error {
	now := f.s.tick()
	if existing, ok := f.s.faces[face.UserID]; ok {
		face.ID = existing.ID
		face.CreatedAt = existing.CreatedAt
	} else {
		face.ID = uuid.NewString()
		face.CreatedAt = now
	}
	face.UpdatedAt = now
	stored := *face
	f.s.faces[face.UserID] = &stored
	return nil
}

func (f memFaces) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.FaceEmbedding, error) {
	if face, ok := f.s.faces[userID]; ok {
		out := *face
		return &out, nil
	}
	return nil, notFound("get face embedding")
}

func (f memFaces) ListAll(ctx context.Context, tx *gorm.DB) ([]*models.FaceEmbedding, error) {
	out := make([]*models.FaceEmbedding, 0, len(f.s.faces))
	for _, face := range f.s.faces {
		c := *face
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f memFaces) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID string) error {
	if _, ok := f.s.faces[userID]; !ok {
		return notFound("delete face embedding")
	}
	delete(f.s.faces, userID)
	return nil
}

type memPlans struct{ s *memStore }

func (p memPlans) Create(ctx context.Context, tx *gorm.DB, plan *models.LearningPlan) error {
	plan.ID = uuid.NewString()
	plan.CreatedAt = p.s.tick()
	stored := *plan
	p.s.plans = append(p.s.plans, &stored)
	return nil
}

func (p memPlans) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.HistoryFilters) ([]*models.LearningPlan, error) {
	var out []*models.LearningPlan
	for i := len(p.s.plans) - 1; i >= 0; i-- {
		if p.s.plans[i].UserID == userID {
			c := *p.s.plans[i]
			out = append(out, &c)
		}
	}
	return paginate(out, filters.Limit, filters.Offset), nil
}

type memQuizzes struct{ s *memStore }

func (q memQuizzes) Create(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error {
	result.ID = uuid.NewString()
	result.CreatedAt = q.s.tick()
	stored := *result
	q.s.quizzes = append(q.s.quizzes, &stored)
	return nil
}

func (q memQuizzes) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.HistoryFilters) ([]*models.QuizResult, error) {
	var out []*models.QuizResult
	for i := len(q.s.quizzes) - 1; i >= 0; i-- {
		if q.s.quizzes[i].UserID == userID {
			c := *q.s.quizzes[i]
			out = append(out, &c)
		}
	}
	return paginate(out, filters.Limit, filters.Offset), nil
}

type memStats struct{ s *memStore }

func (m memStats) GetUserTotals(ctx context.Context, tx *gorm.DB, userID string) (*repositories.UserTotals, error) {
	totals := &repositories.UserTotals{}
	var percentSum float64

	seen := func(at time.Time) {
		if totals.LastActiveAt == nil || at.After(*totals.LastActiveAt) {
			t := at
			totals.LastActiveAt = &t
		}
	}

	for _, plan := range m.s.plans {
		if plan.UserID == userID {
			totals.TotalPlans++
			seen(plan.CreatedAt)
		}
	}
	for _, quiz := range m.s.quizzes {
		if quiz.UserID == userID {
			totals.TotalQuizzes++
			percentSum += quiz.Percentage()
			seen(quiz.CreatedAt)
		}
	}
	for _, note := range m.s.notes {
		if note.UserID == userID {
			totals.TotalNotes++
			seen(note.UpdatedAt)
		}
	}
	if totals.TotalQuizzes > 0 {
		totals.AverageQuizScore = percentSum / float64(totals.TotalQuizzes)
	}
	return totals, nil
}

func (m memStats) GetActivityTrends(ctx context.Context, tx *gorm.DB, userID string, buckets []repositories.TimeBucket) ([]repositories.ActivityTrendData, error) {
	in := func(b repositories.TimeBucket, at time.Time) bool {
		return !at.Before(b.Start) && at.Before(b.End)
	}

	out := make([]repositories.ActivityTrendData, 0, len(buckets))
	for _, b := range buckets {
		row := repositories.ActivityTrendData{Period: b.Label, Date: b.Start}
		for _, plan := range m.s.plans {
			if plan.UserID == userID && in(b, plan.CreatedAt) {
				row.Plans++
			}
		}
		for _, quiz := range m.s.quizzes {
			if quiz.UserID == userID && in(b, quiz.CreatedAt) {
				row.Quizzes++
			}
		}
		for _, note := range m.s.notes {
			if note.UserID == userID && in(b, note.UpdatedAt) {
				row.NotesEdited++
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneNote(n *models.Note) *models.Note {
	c := *n
	c.Tags = append(datatypes.JSONSlice[string]{}, n.Tags...)
	return &c
}

type memNotes struct{ s *memStore }

func (n memNotes) Create(ctx context.Context, tx *gorm.DB, note *models.Note) error {
	note.ID = uuid.NewString()
	note.CreatedAt = n.s.tick()
	note.UpdatedAt = note.CreatedAt
	n.s.notes[note.ID] = cloneNote(note)
	return nil
}

func (n memNotes) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID string) (*models.Note, error) {
	note, ok := n.s.notes[id]
	if !ok || note.UserID != userID {
		return nil, notFound("get note")
	}
	return cloneNote(note), nil
}

func (n memNotes) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.NoteFilters) ([]*models.Note, int64, error) {
	var out []*models.Note
	for _, note := range n.s.notes {
		if note.UserID != userID {
			continue
		}
		if filters.Pinned != nil && note.IsPinned != *filters.Pinned {
			continue
		}
		if filters.Starred != nil && note.IsStarred != *filters.Starred {
			continue
		}
		out = append(out, cloneNote(note))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (n memNotes) Update(ctx context.Context, tx *gorm.DB, note *models.Note) error {
	if n.s.failNoteUpdate != nil {
		return n.s.failNoteUpdate
	}
	if _, ok := n.s.notes[note.ID]; !ok {
		return notFound("update note")
	}
	note.UpdatedAt = n.s.tick()
	n.s.notes[note.ID] = cloneNote(note)
	return nil
}

func (n memNotes) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	delete(n.s.notes, id)
	for vid, version := range n.s.versions {
		if version.NoteID == id {
			delete(n.s.versions, vid)
		}
	}
	return nil
}

type memVersions struct{ s *memStore }

func (v memVersions) Create(ctx context.Context, tx *gorm.DB, version *models.NoteVersion) error {
	version.ID = uuid.NewString()
	version.CreatedAt = v.s.tick()
	c := *version
	c.Tags = append(datatypes.JSONSlice[string]{}, version.Tags...)
	v.s.versions[version.ID] = &c
	return nil
}

func (v memVersions) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.NoteVersion, error) {
	if version, ok := v.s.versions[id]; ok {
		c := *version
		return &c, nil
	}
	return nil, notFound("get note version")
}

func (v memVersions) ListByNote(ctx context.Context, tx *gorm.DB, noteID string) ([]*models.NoteVersion, error) {
	var out []*models.NoteVersion
	for _, version := range v.s.versions {
		if version.NoteID == noteID {
			c := *version
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ===== IDENTITY PROVIDER =====

type fakeIdentity struct {
	identities map[string]*repositories.Identity
	passwords  map[string]string
	deleted    []string
	refreshed  []string
	failCreate error
	failLookup error
	nextID     int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		identities: map[string]*repositories.Identity{},
		passwords:  map[string]string{},
	}
}

func (f *fakeIdentity) add(email, password, first, last string) *repositories.Identity {
	f.nextID++
	identity := &repositories.Identity{
		ExternalID: fmt.Sprintf("ext-%d", f.nextID),
		Email:      email,
		FirstName:  first,
		LastName:   last,
	}
	f.identities[identity.ExternalID] = identity
	f.passwords[identity.ExternalID] = password
	return identity
}

func (f *fakeIdentity) VerifyPassword(ctx context.Context, email, password string) (*repositories.Identity, error) {
	identity, err := f.GetIdentityByEmail(ctx, email)
	if err != nil {
		return nil, repositories.ErrInvalidCredentials
	}
	if f.passwords[identity.ExternalID] != password {
		return nil, repositories.ErrInvalidCredentials
	}
	return identity, nil
}

func (f *fakeIdentity) CreateIdentity(ctx context.Context, email string, attrs repositories.IdentityAttributes) (string, error) {
	if f.failCreate != nil {
		return "", f.failCreate
	}
	return f.add(email, attrs.Password, attrs.FirstName, attrs.LastName).ExternalID, nil
}

func (f *fakeIdentity) UpdateCredential(ctx context.Context, externalID, newPassword string) error {
	if _, ok := f.identities[externalID]; !ok {
		return repositories.ErrIdentityNotFound
	}
	f.passwords[externalID] = newPassword
	return nil
}

func (f *fakeIdentity) GetIdentity(ctx context.Context, externalID string) (*repositories.Identity, error) {
	if identity, ok := f.identities[externalID]; ok {
		c := *identity
		return &c, nil
	}
	return nil, repositories.ErrIdentityNotFound
}

func (f *fakeIdentity) GetIdentityByEmail(ctx context.Context, email string) (*repositories.Identity, error) {
	if f.failLookup != nil {
		return nil, f.failLookup
	}
	for _, identity := range f.identities {
		if strings.EqualFold(identity.Email, email) {
			c := *identity
			return &c, nil
		}
	}
	return nil, repositories.ErrIdentityNotFound
}

func (f *fakeIdentity) RefreshIdentity(ctx context.Context, externalID string) (*repositories.Identity, error) {
	f.refreshed = append(f.refreshed, externalID)
	if f.failLookup != nil {
		return nil, f.failLookup
	}
	return f.GetIdentity(ctx, externalID)
}

func (f *fakeIdentity) DeleteIdentity(ctx context.Context, externalID string) error {
	delete(f.identities, externalID)
	f.deleted = append(f.deleted, externalID)
	return nil
}

// ===== COMPLETION =====

type fakeGenerator struct {
	text    string
	err     error
	prompts []completion.Prompt
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt completion.Prompt) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

// ===== WIRING =====

type testEnv struct {
	store     *memStore
	identity  *fakeIdentity
	generator *fakeGenerator
	publisher *events.MockEventPublisher
	redis     *miniredis.Miniredis
	services  ServiceManager
}

type envOption func(*ServiceManagerConfig, *cache.CacheManager)

func withFaceLoginLimit(limit int) envOption {
	return func(c *ServiceManagerConfig, caches *cache.CacheManager) {
		c.FaceLoginLimiter = auth.NewRateLimiter(caches.RateLimit, limit, time.Minute)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	caches := cache.NewCacheManager(client)

	logger := testLogger()
	env := &testEnv{
		store:     newMemStore(),
		identity:  newFakeIdentity(),
		generator: &fakeGenerator{},
		publisher: events.NewMockEventPublisher(logger),
		redis:     mr,
	}

	config := ServiceManagerConfig{
		Sessions:         auth.NewSessionManager("test-session-secret", time.Hour, caches.Sessions),
		FaceLoginLimiter: auth.NewRateLimiter(caches.RateLimit, auth.DefaultFaceLoginLimit, time.Minute),
		Matcher:          facematch.NewMatcher(facematch.DefaultThreshold),
		Generator:        env.generator,
		Publisher:        env.publisher,
		StatsCache:       caches.Stats,
	}
	for _, opt := range opts {
		opt(&config, caches)
	}

	repo := &memRepository{store: env.store, identity: env.identity}
	env.services = NewServiceManager(repo, logger, validator.New(validator.WithEmbeddingDimensions(testDims)), config)
	require.NoError(t, env.services.Initialize(context.Background()))

	return env
}

// signUp registers a user through the auth service
func (e *testEnv) signUp(t *testing.T, email string) *SessionResponse {
	t.Helper()
	resp, err := e.services.Auth().SignUp(context.Background(), &validator.SignUpRequest{
		Email:     email,
		Password:  "correct-horse",
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) enroll(t *testing.T, userID string, embedding facematch.Embedding) {
	t.Helper()
	_, err := e.services.Face().Enroll(context.Background(), userID, &validator.FaceEmbeddingRequest{Embedding: embedding})
	require.NoError(t, err)
}

func (e *testEnv) eventsOn(topic string) []*events.Event {
	var out []*events.Event
	for _, published := range e.publisher.GetPublishedEvents() {
		if published.Topic == topic {
			out = append(out, published.Event)
		}
	}
	return out
}
