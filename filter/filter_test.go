package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/pkg/dsl"
)

type errorFilter struct{}

func (errorFilter) Name() string { return "filter.broken" }
func (errorFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return true, errors.New("boom")
}

func items(ids ...string) []*core.Item {
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.NewItem(id))
	}
	return out
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestPurchasedFilter(t *testing.T) {
	rctx := &core.RecommendContext{
		UserID:    "u1",
		Purchased: map[string]struct{}{"p1": {}, "p3": {}},
	}
	node := &FilterNode{Filters: []Filter{&PurchasedFilter{}}}

	out, err := node.Process(context.Background(), rctx, items("p1", "p2", "p3", "p4"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	got := ids(out)
	if len(got) != 2 || got[0] != "p2" || got[1] != "p4" {
		t.Errorf("kept = %v, want [p2 p4]", got)
	}
}

func TestRuleFilter(t *testing.T) {
	rule, err := dsl.Compile(`product.price > 100.0`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	catalog := map[string]core.Product{
		"p1": {ID: "p1", Price: 99},
		"p2": {ID: "p2", Price: 150},
	}
	node := &FilterNode{Filters: []Filter{&RuleFilter{Rule: rule, Catalog: catalog}}}

	out, err := node.Process(context.Background(), &core.RecommendContext{UserID: "u1"}, items("p1", "p2"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := ids(out); len(got) != 1 || got[0] != "p1" {
		t.Errorf("kept = %v, want [p1]", got)
	}
}

func TestNilRulePassesEverything(t *testing.T) {
	node := &FilterNode{Filters: []Filter{&RuleFilter{Rule: nil}}}
	out, err := node.Process(context.Background(), nil, items("p1", "p2"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 2 {
		t.Errorf("kept %d, want 2", len(out))
	}
}

func TestFailingFilterIsSkipped(t *testing.T) {
	// 出错的过滤器只跳过自身，不中断链路也不过滤候选
	node := &FilterNode{Filters: []Filter{errorFilter{}}}
	out, err := node.Process(context.Background(), nil, items("p1", "p2"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 2 {
		t.Errorf("kept %d, want 2 (error filter skipped)", len(out))
	}
}

func TestFilterCombination(t *testing.T) {
	rule, err := dsl.Compile(`product.price > 100.0`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	catalog := map[string]core.Product{
		"p1": {ID: "p1", Price: 99},
		"p2": {ID: "p2", Price: 150},
		"p3": {ID: "p3", Price: 80},
	}
	rctx := &core.RecommendContext{
		UserID:    "u1",
		Purchased: map[string]struct{}{"p3": {}},
	}
	node := &FilterNode{Filters: []Filter{
		&PurchasedFilter{},
		&RuleFilter{Rule: rule, Catalog: catalog},
	}}

	out, err := node.Process(context.Background(), rctx, items("p1", "p2", "p3"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := ids(out); len(got) != 1 || got[0] != "p1" {
		t.Errorf("kept = %v, want [p1]", got)
	}
}
