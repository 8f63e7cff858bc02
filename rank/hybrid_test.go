package rank

import (
	"context"
	"testing"
	"time"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/dataset"
	"github.com/soleshop/solerec/model"
	"github.com/soleshop/solerec/snapshot"
)

func buildSnapshot(t *testing.T) *snapshot.Model {
	t.Helper()
	catalog := map[string]core.Product{
		"p1": {ID: "p1", Name: "Road Runner", Description: "lightweight road running shoe"},
		"p2": {ID: "p2", Name: "Trail Runner", Description: "grippy trail running shoe"},
		"p3": {ID: "p3", Name: "Leather Boot", Description: "waterproof leather boot"},
	}
	interactions := dataset.Build([]core.InteractionRecord{
		{UserID: "u1", ProductID: "p1"},
		{UserID: "u1", ProductID: "p2"},
		{UserID: "u2", ProductID: "p2"},
		{UserID: "u2", ProductID: "p3"},
	})
	fact, err := model.FitSVD(interactions)
	if err != nil {
		t.Fatalf("FitSVD() error = %v", err)
	}
	return &snapshot.Model{
		SchemaVersion: snapshot.SchemaVersion,
		TrainedAt:     time.Now().UTC(),
		Catalog:       catalog,
		Interactions:  interactions,
		Factorization: fact,
		Content:       model.BuildContentIndex(catalog, 0),
	}
}

func rankItems(ids ...string) []*core.Item {
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.NewItem(id))
	}
	return out
}

func TestHybridModeForKnownUser(t *testing.T) {
	snap := buildSnapshot(t)
	node := &HybridNode{Snapshot: snap}
	rctx := &core.RecommendContext{
		UserID:    "u1",
		Purchased: map[string]struct{}{"p1": {}},
	}

	out, err := node.Process(context.Background(), rctx, rankItems("p2", "p3"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	for _, it := range out {
		if got := it.Labels["rank_mode"].Value; got != "hybrid" {
			t.Errorf("rank_mode for %s = %q, want hybrid", it.ID, got)
		}
	}
	// u1 的行为与 p2 强相关（同购）、与 p3 无关；p2 又是同类跑鞋
	if out[0].ID != "p2" {
		t.Errorf("top = %s, want p2", out[0].ID)
	}
	if out[0].Score <= out[1].Score {
		t.Errorf("p2 score %v should exceed p3 score %v", out[0].Score, out[1].Score)
	}
}

func TestContentOnlyModeForColdUser(t *testing.T) {
	snap := buildSnapshot(t)
	node := &HybridNode{Snapshot: snap}
	rctx := &core.RecommendContext{
		UserID:    "stranger",
		Purchased: map[string]struct{}{"p1": {}},
	}

	out, err := node.Process(context.Background(), rctx, rankItems("p2", "p3"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	for _, it := range out {
		if got := it.Labels["rank_mode"].Value; got != "content_only" {
			t.Errorf("rank_mode = %q, want content_only", got)
		}
	}
	// 纯内容分：跑鞋 p2 与已购 p1 更相似
	if out[0].ID != "p2" {
		t.Errorf("top = %s, want p2", out[0].ID)
	}
}

func TestContentOnlyWithoutFactorization(t *testing.T) {
	snap := buildSnapshot(t)
	snap.Factorization = nil
	node := &HybridNode{Snapshot: snap}
	rctx := &core.RecommendContext{UserID: "u1", Purchased: map[string]struct{}{"p1": {}}}

	out, err := node.Process(context.Background(), rctx, rankItems("p2", "p3"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	// 已知用户也走纯内容
	if got := out[0].Labels["rank_mode"].Value; got != "content_only" {
		t.Errorf("rank_mode = %q, want content_only", got)
	}
}

func TestZeroScoresKeepInputOrder(t *testing.T) {
	snap := buildSnapshot(t)
	node := &HybridNode{Snapshot: snap}
	rctx := &core.RecommendContext{UserID: "stranger", Purchased: map[string]struct{}{}}

	out, err := node.Process(context.Background(), rctx, rankItems("p1", "p2", "p3"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []string{"p1", "p2", "p3"}
	for i, it := range out {
		if it.Score != 0 {
			t.Errorf("score[%d] = %v, want 0", i, it.Score)
		}
		if it.ID != want[i] {
			t.Errorf("order[%d] = %s, want %s (stable sort)", i, it.ID, want[i])
		}
	}
}

func TestBreakdownLabel(t *testing.T) {
	snap := buildSnapshot(t)
	node := &HybridNode{Snapshot: snap}
	rctx := &core.RecommendContext{UserID: "u1", Purchased: map[string]struct{}{"p1": {}}}

	out, err := node.Process(context.Background(), rctx, rankItems("p2"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out[0].Labels["rank_breakdown"].Value == "" {
		t.Error("rank_breakdown label missing")
	}
}
