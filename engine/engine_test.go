package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/snapshot"
	"github.com/soleshop/solerec/store"
)

// fakeSource 是测试用的内存数据源。
type fakeSource struct {
	catalog      []core.Product
	interactions []core.InteractionRecord
	purchases    map[string][]string

	catalogErr  error
	purchaseErr error

	catalogCalls  atomic.Int32
	purchaseCalls atomic.Int32
}

func (f *fakeSource) FetchActiveCatalog(ctx context.Context) ([]core.Product, error) {
	f.catalogCalls.Add(1)
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalog, nil
}

func (f *fakeSource) FetchAllInteractions(ctx context.Context) ([]core.InteractionRecord, error) {
	return f.interactions, nil
}

func (f *fakeSource) FetchUserPurchases(ctx context.Context, userID string) (map[string]struct{}, error) {
	f.purchaseCalls.Add(1)
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	out := make(map[string]struct{})
	for _, pid := range f.purchases[userID] {
		out[pid] = struct{}{}
	}
	return out, nil
}

func shoeCatalog() []core.Product {
	return []core.Product{
		{ID: "p1", Name: "Road Runner", Price: 99, Brand: "Acme", Category: "running", Description: "lightweight road running shoe"},
		{ID: "p2", Name: "Trail Runner", Price: 120, Brand: "Acme", Category: "running", Description: "grippy trail running shoe"},
		{ID: "p3", Name: "Marathon Racer", Price: 180, Brand: "Acme", Category: "running", Description: "carbon plate racing shoe"},
		{ID: "p4", Name: "Leather Boot", Price: 150, Brand: "Timber", Category: "boots", Description: "waterproof leather boot"},
		{ID: "p5", Name: "Canvas Sneaker", Price: 60, Brand: "Urban", Category: "casual", Description: "classic canvas sneaker"},
	}
}

func newTestSource() *fakeSource {
	return &fakeSource{
		catalog: shoeCatalog(),
		interactions: []core.InteractionRecord{
			{UserID: "u1", ProductID: "p1"},
			{UserID: "u1", ProductID: "p2"},
			{UserID: "u2", ProductID: "p2"},
			{UserID: "u2", ProductID: "p3"},
			{UserID: "u3", ProductID: "p1"},
			{UserID: "u3", ProductID: "p3"},
		},
		purchases: map[string][]string{
			"u1": {"p1", "p2"},
			"u2": {"p2", "p3"},
			"u3": {"p1", "p3"},
		},
	}
}

func newTestEngine(t *testing.T, src core.DataSource, opts Options) *Engine {
	t.Helper()
	e, err := New(src, store.NewMemoryStore(), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func assertSortedDesc(t *testing.T, recs []core.Recommendation) {
	t.Helper()
	for i := 1; i < len(recs); i++ {
		if recs[i].Score > recs[i-1].Score {
			t.Errorf("results not sorted descending at %d: %.4f after %.4f", i, recs[i].Score, recs[i-1].Score)
		}
	}
}

func TestRecommendScenarioKnownUser(t *testing.T) {
	// 场景 A：u1 已购 p1/p2，推荐结果排除两者并按混合分降序
	src := newTestSource()
	e := newTestEngine(t, src, Options{})
	ctx := context.Background()

	recs, err := e.Recommend(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	for _, r := range recs {
		if r.ID == "p1" || r.ID == "p2" {
			t.Errorf("purchased product %s must be excluded", r.ID)
		}
		if r.Name == "" || r.Brand == "" {
			t.Errorf("result %s missing catalog fields", r.ID)
		}
	}
	assertSortedDesc(t, recs)
}

func TestRecommendColdStartAllZero(t *testing.T) {
	// 场景 B：从未购买的用户，CF 与内容分都为 0，
	// tie-break 为升序商品 ID（目录遍历顺序）
	src := newTestSource()
	e := newTestEngine(t, src, Options{})

	recs, err := e.Recommend(context.Background(), "stranger", 4)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("len = %d, want 4", len(recs))
	}
	want := []string{"p1", "p2", "p3", "p4"}
	for i, r := range recs {
		if r.Score != 0 {
			t.Errorf("cold-start score[%d] = %v, want 0", i, r.Score)
		}
		if r.ID != want[i] {
			t.Errorf("tie-break order[%d] = %s, want %s", i, r.ID, want[i])
		}
	}
}

func TestRecommendColdStartWithLivePurchases(t *testing.T) {
	// 训练后才产生购买的用户：不在交互矩阵中（无 CF 信号），
	// 但实时已购集合驱动内容分，且已购商品仍被排除
	src := newTestSource()
	src.purchases["u9"] = []string{"p1"}
	e := newTestEngine(t, src, Options{})

	recs, err := e.Recommend(context.Background(), "u9", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("len = %d, want 4 (p1 excluded)", len(recs))
	}
	for _, r := range recs {
		if r.ID == "p1" {
			t.Error("live-purchased p1 must be excluded")
		}
	}
	// p1 是跑鞋：与其它跑鞋的内容分应高于皮靴/帆布鞋
	assertSortedDesc(t, recs)
	if recs[0].Score <= 0 {
		t.Error("content score against purchased running shoe should be positive")
	}
}

func TestRecommendInsufficientData(t *testing.T) {
	// 场景 C：目录缩减到 1 个在售商品，历史订单指向下架商品，
	// 分解被跳过，已知用户照常得到纯内容打分
	src := newTestSource()
	src.catalog = src.catalog[:1] // 只剩 p1
	e := newTestEngine(t, src, Options{})
	ctx := context.Background()

	if err := e.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if e.Snapshot().HasFactorization() {
		t.Error("factorization should be skipped with <2 interacting products")
	}

	src.purchases["u1"] = nil // u1 实时无已购
	recs, err := e.Recommend(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "p1" {
		t.Fatalf("recs = %+v, want just p1", recs)
	}
}

func TestRecommendNeverExceedsN(t *testing.T) {
	src := newTestSource()
	e := newTestEngine(t, src, Options{})
	ctx := context.Background()

	for _, n := range []int{0, 1, 3, 5, 100} {
		recs, err := e.Recommend(ctx, "u1", n)
		if err != nil {
			t.Fatalf("Recommend(n=%d) error = %v", n, err)
		}
		if len(recs) > n {
			t.Errorf("len = %d > n = %d", len(recs), n)
		}
	}
}

func TestRecommendDeterministic(t *testing.T) {
	src := newTestSource()
	e := newTestEngine(t, src, Options{})
	ctx := context.Background()

	a, err := e.Recommend(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	b, err := e.Recommend(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("result %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestRecommendDegradesOnPurchaseLookupFailure(t *testing.T) {
	src := newTestSource()
	e := newTestEngine(t, src, Options{})
	ctx := context.Background()
	if err := e.Warmup(ctx); err != nil {
		t.Fatalf("Warmup() error = %v", err)
	}

	src.purchaseErr = errors.New("connection reset")
	recs, err := e.Recommend(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("Recommend() must degrade, got error %v", err)
	}
	// 降级为空排除集：全目录可见（包括已购商品）
	if len(recs) != 5 {
		t.Errorf("len = %d, want full catalog 5", len(recs))
	}
}

func TestTrainPropagatesDataSourceFailure(t *testing.T) {
	src := newTestSource()
	src.catalogErr = core.ErrDataSourceUnavailable
	e := newTestEngine(t, src, Options{})

	if err := e.Train(context.Background()); !core.IsUnavailable(err) {
		t.Errorf("Train() error = %v, want UNAVAILABLE", err)
	}
	if e.Snapshot() != nil {
		t.Error("failed training must not publish a snapshot")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	// train → save → 新实例 load：同一排除集下推荐结果一致
	src := newTestSource()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	first, err := New(src, fs, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := first.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	want, err := first.Recommend(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	second, err := New(src, fs, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := second.Recommend(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("Recommend() on fresh engine error = %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("lengths differ: %d vs %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("order differs at %d: %s vs %s", i, got[i].ID, want[i].ID)
		}
		if diff := got[i].Score - want[i].Score; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("score differs at %d: %v vs %v", i, got[i].Score, want[i].Score)
		}
	}
}

func TestMissingSnapshotTriggersSynchronousTrain(t *testing.T) {
	// 场景 D：快照在两个实例之间被删除，第二个实例首个请求前同步重训
	src := newTestSource()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	first, _ := New(src, fs, Options{})
	if err := first.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if err := fs.Delete(ctx, snapshot.DefaultKey); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	second, _ := New(src, fs, Options{})
	before := src.catalogCalls.Load()
	recs, err := second.Recommend(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) == 0 {
		t.Error("recommendations should be served after synchronous retrain")
	}
	if src.catalogCalls.Load() != before+1 {
		t.Errorf("expected exactly one training fetch, got %d", src.catalogCalls.Load()-before)
	}
}

func TestCorruptSnapshotTriggersRetrain(t *testing.T) {
	src := newTestSource()
	st := store.NewMemoryStore()
	ctx := context.Background()
	if err := st.Set(ctx, snapshot.DefaultKey, []byte("pickled junk")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	e, err := New(src, st, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	recs, err := e.Recommend(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) == 0 {
		t.Error("corrupt snapshot should fall back to retraining, not fail")
	}
}

func TestExcludeRule(t *testing.T) {
	src := newTestSource()
	e := newTestEngine(t, src, Options{ExcludeRule: `product.price > 150.0`})

	recs, err := e.Recommend(context.Background(), "stranger", 10)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	for _, r := range recs {
		if r.Price > 150 {
			t.Errorf("product %s price %.0f should be excluded by rule", r.ID, r.Price)
		}
	}
	if len(recs) != 4 { // p3 (180) 被规则排除
		t.Errorf("len = %d, want 4", len(recs))
	}
}

func TestInvalidExcludeRule(t *testing.T) {
	src := newTestSource()
	if _, err := New(src, store.NewMemoryStore(), Options{ExcludeRule: `product.price >`}); err == nil {
		t.Error("New() should reject an unparsable rule")
	}
}

func TestTrainConcurrentWithServing(t *testing.T) {
	src := newTestSource()
	e := newTestEngine(t, src, Options{})
	ctx := context.Background()
	if err := e.Warmup(ctx); err != nil {
		t.Fatalf("Warmup() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if _, err := e.Recommend(ctx, "u1", 3); err != nil {
				t.Errorf("Recommend() during retrain error = %v", err)
				return
			}
		}
	}()
	for i := 0; i < 5; i++ {
		if err := e.Train(ctx); err != nil {
			t.Fatalf("Train() error = %v", err)
		}
	}
	<-done
}
