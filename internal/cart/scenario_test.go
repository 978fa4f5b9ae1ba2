package cart

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// scenario はtestdata/scenarios/*.yamlの1ファイル分の操作列と期待値。
type scenario struct {
	Name  string `yaml:"name"`
	Steps []step `yaml:"steps"`
	Want  struct {
		Items []struct {
			ID       string  `yaml:"id"`
			Quantity int     `yaml:"quantity"`
			Price    float64 `yaml:"price"`
		} `yaml:"items"`
		Total     float64 `yaml:"total"`
		ItemCount int     `yaml:"item_count"`
	} `yaml:"want"`
}

type step struct {
	Op       string   `yaml:"op"`
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Price    *float64 `yaml:"price"`
	Quantity int      `yaml:"quantity"`
}

func loadScenarios(t *testing.T) map[string]scenario {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "シナリオファイルが見つからない")

	out := make(map[string]scenario, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)

		var sc scenario
		require.NoError(t, yaml.Unmarshal(data, &sc), "failed to parse %s", p)
		if sc.Name == "" {
			sc.Name = filepath.Base(p)
		}
		out[sc.Name] = sc
	}
	return out
}

func TestScenarios(t *testing.T) {
	for name, sc := range loadScenarios(t) {
		t.Run(name, func(t *testing.T) {
			s := NewStore()
			ctx := context.Background()

			var st State
			for i, stp := range sc.Steps {
				switch stp.Op {
				case "add":
					st = s.AddItem(ctx, Candidate{ID: stp.ID, Title: stp.Title, Price: stp.Price, Quantity: stp.Quantity})
				case "remove":
					st = s.RemoveItem(ctx, stp.ID)
				case "update":
					st = s.UpdateQuantity(ctx, stp.ID, stp.Quantity)
				case "clear":
					st = s.ClearCart(ctx)
				default:
					t.Fatalf("step %d: unknown op %q", i, stp.Op)
				}
				// 各操作の直後に集計値が一致していること
				assert.InDelta(t, Total(st.Items), st.Total, 1e-9, "step %d total", i)
				assert.Equal(t, ItemCount(st.Items), st.ItemCount, "step %d item count", i)
			}

			require.Len(t, st.Items, len(sc.Want.Items))
			for i, want := range sc.Want.Items {
				assert.Equal(t, want.ID, st.Items[i].ID, "item %d id", i)
				assert.Equal(t, want.Quantity, st.Items[i].Quantity, "item %d quantity", i)
				assert.InDelta(t, want.Price, st.Items[i].Price, 1e-9, "item %d price", i)
			}
			assert.InDelta(t, sc.Want.Total, st.Total, 1e-9)
			assert.Equal(t, sc.Want.ItemCount, st.ItemCount)
			assert.Equal(t, st, s.Snapshot())
		})
	}
}
