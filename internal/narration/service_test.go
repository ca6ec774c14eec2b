package narration

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammad-safakhou/narrator/config"
	"github.com/mohammad-safakhou/narrator/internal/cache"
	"github.com/mohammad-safakhou/narrator/internal/crew"
	"github.com/mohammad-safakhou/narrator/internal/sources"
	"github.com/mohammad-safakhou/narrator/internal/storage"
	"github.com/mohammad-safakhou/narrator/models"
	"github.com/mohammad-safakhou/narrator/provider"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failPut bool
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return b, nil
}

func (m *memStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errors.New("disk full")
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) Close() error { return nil }

type stubCollector struct {
	article models.ArticleContent
	err     error
	calls   atomic.Int32
	delay   time.Duration
}

func (s *stubCollector) FetchArticleContent(ctx context.Context, url string) (models.ArticleContent, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return models.ArticleContent{}, s.err
	}
	a := s.article
	a.URL = url
	return a, nil
}

func (s *stubCollector) FetchListing(ctx context.Context) (models.Listing, error) {
	return models.Listing{}, errors.New("not used")
}

type call struct{ system, instruction string }

// stubGenerator answers by task, recognised from the instruction text.
type stubGenerator struct {
	mu      sync.Mutex
	calls   []call
	failOn  string
	replies map[string]string
}

func newStubGenerator() *stubGenerator {
	return &stubGenerator{replies: map[string]string{
		TaskHistory:   "HISTORY: the river has flooded before, in 1952.",
		TaskSummary:   "SUMMARY: relief reached the village and 200 families were rehoused.",
		TaskNarration: "Gather round, for the waters came and the village held.",
	}}
}

func taskOf(instruction string) string {
	switch {
	case strings.Contains(instruction, "historical background"):
		return TaskHistory
	case strings.Contains(instruction, "Summarize"):
		return TaskSummary
	default:
		return TaskNarration
	}
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(ctx context.Context, system, instruction string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, call{system, instruction})
	g.mu.Unlock()
	task := taskOf(instruction)
	if task == g.failOn {
		return "", &provider.GenerationError{Provider: "stub", Err: errors.New("rate limited")}
	}
	return g.replies[task], nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

const articleText = "Flood relief reaches village X. 200 families rehoused."

func newFixture() (*Service, *stubCollector, *stubGenerator, *memStore) {
	st := newMemStore()
	col := &stubCollector{article: models.ArticleContent{Title: "Flood relief", Content: articleText}}
	gen := newStubGenerator()
	svc := NewService(col, cache.NewNarrationCache(st), gen, config.NarrationConfig{ContentChars: 6000})
	return svc, col, gen, st
}

func TestNarrateMissRunsPipelineAndStores(t *testing.T) {
	svc, col, gen, st := newFixture()
	url := "https://news.example.com/flood"

	res, err := svc.Narrate(context.Background(), Request{URL: url})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if res.Cached || res.Title != "Flood relief" || res.NarrationText != gen.replies[TaskNarration] {
		t.Fatalf("unexpected result: %+v", res)
	}
	if col.calls.Load() != 1 || gen.callCount() != 3 {
		t.Fatalf("expected 1 fetch and 3 generations, got %d and %d", col.calls.Load(), gen.callCount())
	}

	// narration prompt must carry both upstream outputs
	narr := gen.calls[2].system
	if !strings.Contains(narr, gen.replies[TaskHistory]) || !strings.Contains(narr, gen.replies[TaskSummary]) {
		t.Fatalf("narration context missing upstream outputs: %q", narr)
	}
	if !strings.Contains(gen.calls[0].instruction, articleText) {
		t.Fatalf("history task missing article content")
	}

	entryKey := "narration/" + cache.DeriveNarrationKey(url, articleText)
	if _, err := st.Get(context.Background(), entryKey); err != nil {
		t.Fatalf("expected stored entry at %s: %v", entryKey, err)
	}

	again, err := svc.Narrate(context.Background(), Request{URL: url})
	if err != nil {
		t.Fatalf("second Narrate: %v", err)
	}
	if !again.Cached || again.NarrationText != res.NarrationText {
		t.Fatalf("expected cached result, got %+v", again)
	}
	if gen.callCount() != 3 {
		t.Fatalf("expected no new generations on hit, got %d", gen.callCount())
	}
}

func TestNarrateFingerprintHitSkipsFetch(t *testing.T) {
	svc, col, gen, st := newFixture()
	url := "https://news.example.com/flood"
	nc := cache.NewNarrationCache(st)
	if err := nc.Store(context.Background(), nc.NewEntry(url, "listing summary", "Flood relief", "cached tale")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	res, err := svc.Narrate(context.Background(), Request{URL: url, Fingerprint: "listing summary"})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if !res.Cached || res.NarrationText != "cached tale" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if col.calls.Load() != 0 || gen.callCount() != 0 {
		t.Fatalf("expected no fetch and no generation on hit")
	}
}

func TestNarrateFetchFailureIsHardStop(t *testing.T) {
	svc, col, gen, _ := newFixture()
	col.err = &sources.FetchError{URL: "x", Reason: "unexpected status 500"}

	_, err := svc.Narrate(context.Background(), Request{URL: "https://news.example.com/broken"})
	var fe *sources.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("pipeline must not run without content")
	}
}

func TestNarrateStoreFailureStillReturns(t *testing.T) {
	svc, _, gen, st := newFixture()
	st.failPut = true

	res, err := svc.Narrate(context.Background(), Request{URL: "https://news.example.com/flood"})
	if err != nil {
		t.Fatalf("store failure must not surface: %v", err)
	}
	if res.NarrationText != gen.replies[TaskNarration] {
		t.Fatalf("unexpected narration %q", res.NarrationText)
	}
}

func TestNarratePipelineFailure(t *testing.T) {
	svc, _, gen, st := newFixture()
	gen.failOn = TaskSummary

	_, err := svc.Narrate(context.Background(), Request{URL: "https://news.example.com/flood"})
	var te *crew.TaskError
	if !errors.As(err, &te) || te.Name != TaskSummary {
		t.Fatalf("expected TaskError for summary, got %v", err)
	}
	var ge *provider.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected wrapped GenerationError, got %v", err)
	}
	if gen.callCount() != 2 {
		t.Fatalf("narration task must not start, got %d calls", gen.callCount())
	}
	keys, _ := st.Keys(context.Background(), "narration/")
	if len(keys) != 0 {
		t.Fatalf("no entry may be stored on failure, got %v", keys)
	}
}

func TestNarrateInvalidURL(t *testing.T) {
	svc, col, _, _ := newFixture()
	for _, u := range []string{"", "ftp://x/y", "/relative", "https://"} {
		if _, err := svc.Narrate(context.Background(), Request{URL: u}); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("%q: expected ErrInvalidURL, got %v", u, err)
		}
	}
	if col.calls.Load() != 0 {
		t.Fatalf("invalid urls must not be fetched")
	}
}

func TestNarrateCollapsesConcurrentRequests(t *testing.T) {
	svc, col, _, _ := newFixture()
	col.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Narrate(context.Background(), Request{URL: "https://news.example.com/flood"}); err != nil {
				t.Errorf("Narrate: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := col.calls.Load(); n != 1 {
		t.Fatalf("expected one shared fetch, got %d", n)
	}
}

func TestNarrateTruncatesContent(t *testing.T) {
	svc, col, gen, _ := newFixture()
	svc.contentChars = 10
	col.article.Content = strings.Repeat("a", 50)

	if _, err := svc.Narrate(context.Background(), Request{URL: "https://news.example.com/long"}); err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if strings.Contains(gen.calls[0].instruction, strings.Repeat("a", 11)) {
		t.Fatalf("content not truncated")
	}
}

func TestCleanupDelegates(t *testing.T) {
	st := newMemStore()
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	nc := cache.NewNarrationCache(st, cache.WithClock(func() time.Time { return old }))
	_ = nc.Store(context.Background(), nc.NewEntry("https://a.example/1", "c", "t", "n"))

	svc := NewService(&stubCollector{}, cache.NewNarrationCache(st), newStubGenerator(), config.NarrationConfig{})
	n, err := svc.Cleanup(context.Background(), 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 removed, got %d %v", n, err)
	}
}

// gatedCollector blocks in FetchArticleContent until released or its ctx ends.
type gatedCollector struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedCollector() *gatedCollector {
	return &gatedCollector{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedCollector) FetchArticleContent(ctx context.Context, url string) (models.ArticleContent, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-ctx.Done():
		return models.ArticleContent{}, ctx.Err()
	case <-g.release:
		return models.ArticleContent{URL: url, Title: "Flood relief", Content: articleText}, nil
	}
}

func (g *gatedCollector) FetchListing(ctx context.Context) (models.Listing, error) {
	return models.Listing{}, errors.New("not used")
}

func TestNarrateSurvivesFirstCallerCancel(t *testing.T) {
	st := newMemStore()
	col := newGatedCollector()
	gen := newStubGenerator()
	svc := NewService(col, cache.NewNarrationCache(st), gen, config.NarrationConfig{})
	req := Request{URL: "https://news.example.com/flood"}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.Narrate(leaderCtx, req)
		leaderErr <- err
	}()
	<-col.entered

	type outcome struct {
		res Result
		err error
	}
	joined := make(chan outcome, 1)
	go func() {
		res, err := svc.Narrate(context.Background(), req)
		joined <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller should stop waiting with context.Canceled, got %v", err)
	}
	close(col.release)

	got := <-joined
	if got.err != nil {
		t.Fatalf("caller with a live ctx must get the shared narration, got %v", got.err)
	}
	if got.res.NarrationText != gen.replies[TaskNarration] {
		t.Fatalf("unexpected narration %q", got.res.NarrationText)
	}
	keys, _ := st.Keys(context.Background(), "narration/")
	if len(keys) != 1 {
		t.Fatalf("shared run must store its entry, got %v", keys)
	}
}

func TestNarrateRunTimeout(t *testing.T) {
	col := newGatedCollector()
	svc := NewService(col, cache.NewNarrationCache(newMemStore()), newStubGenerator(), config.NarrationConfig{},
		WithRunTimeout(20*time.Millisecond))

	_, err := svc.Narrate(context.Background(), Request{URL: "https://news.example.com/flood"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected run deadline, got %v", err)
	}
}
