package menushare_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/kelnar/internal/domain"
	"github.com/vladislavdragonenkov/kelnar/internal/menushare"
)

func TestEncode(t *testing.T) {
	products := []domain.Product{
		{ID: "1", Name: "Burger", Price: 12.99, Description: "Classic beef burger"},
		{ID: "2", Name: "Water", Price: 1},
		{ID: "3", Name: "Hot Dog", Price: 8.5, Description: "with mustard"},
	}

	got := menushare.Encode(products)
	require.Equal(t, "[Burger;12.99;Classic beef burger|Water;1|Hot Dog;8.5;with mustard]", got)
}

func TestEncode_Empty(t *testing.T) {
	require.Equal(t, "[]", menushare.Encode(nil))

	state := menushare.Parse("[]")
	require.False(t, state.Visible)
	require.Empty(t, state.Items)
	require.Empty(t, state.Skipped)
}

func TestRoundTrip(t *testing.T) {
	products := domain.DefaultProducts()

	state := menushare.Parse(menushare.Encode(products))

	require.True(t, state.Visible)
	require.Empty(t, state.Skipped)
	require.Len(t, state.Items, len(products))
	for idx, p := range products {
		require.Equal(t, menushare.ImportItem{Name: p.Name, Price: p.Price, Description: p.Description}, state.Items[idx])
	}
}

func TestParse_SkipAndContinue(t *testing.T) {
	state := menushare.Parse("[A;10|B;bad|;5|D;7;desc]")

	require.True(t, state.Visible)
	require.Equal(t, []menushare.ImportItem{
		{Name: "A", Price: 10, Description: ""},
		{Name: "D", Price: 7, Description: "desc"},
	}, state.Items)

	require.Len(t, state.Skipped, 2)
	require.Equal(t, menushare.SkipInvalidPrice, state.Skipped[0].Reason)
	require.Equal(t, "B", state.Skipped[0].Name)
	require.Equal(t, "bad", state.Skipped[0].RawPrice)
	require.Equal(t, menushare.SkipEmptyName, state.Skipped[1].Reason)
	require.Equal(t, []string{`B (invalid price: "bad")`, "empty name"}, state.SkippedLabels())
}

func TestParse_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		reason  menushare.SkipReason
	}{
		{name: "single field", payload: "[JustName]", reason: menushare.SkipMalformed},
		{name: "zero price", payload: "[Tea;0]", reason: menushare.SkipInvalidPrice},
		{name: "negative price", payload: "[Tea;-2]", reason: menushare.SkipInvalidPrice},
		{name: "nan price", payload: "[Tea;NaN]", reason: menushare.SkipInvalidPrice},
		{name: "inf price", payload: "[Tea;Inf]", reason: menushare.SkipInvalidPrice},
		{name: "blank name", payload: "[   ;3]", reason: menushare.SkipEmptyName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := menushare.Parse(tc.payload)
			require.False(t, state.Visible, "all-invalid input must not show the prompt")
			require.Empty(t, state.Items)
			require.Len(t, state.Skipped, 1)
			require.Equal(t, tc.reason, state.Skipped[0].Reason)
		})
	}
}

func TestParse_TrimsFieldsAndToleratesMissingBrackets(t *testing.T) {
	state := menushare.Parse("  Soup ; 4.50 ;  hot  |Bread;1.2")

	require.Equal(t, []menushare.ImportItem{
		{Name: "Soup", Price: 4.5, Description: "hot"},
		{Name: "Bread", Price: 1.2},
	}, state.Items)
}

func TestParse_ExtraFieldsIgnored(t *testing.T) {
	state := menushare.Parse("[Cake;3;sweet;ignored]")
	require.Len(t, state.Items, 1)
	require.Equal(t, "sweet", state.Items[0].Description)
}

func TestUnsafeProducts(t *testing.T) {
	products := []domain.Product{
		{Name: "Fish|Chips", Price: 9},
		{Name: "Salad", Price: 5, Description: "tomato; cucumber"},
		{Name: "Tea", Price: 2},
	}

	require.Equal(t, []string{"Fish|Chips", "Salad"}, menushare.UnsafeProducts(products))
}
