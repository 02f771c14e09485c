package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranksOps/procura/internal/extract"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestGetMarketIntelligence(t *testing.T) {
	p := &fakeProvider{handle: answer("```json\n" + `{
		"product_category": "Personal protective equipment",
		"last_updated": "not a timestamp",
		"trends": [
			{"title": "Nitrile shift", "description": "Latex demand keeps falling.", "confidence": 0.85},
			{"title": "Reshoring", "description": "Domestic capacity grows.", "confidence": 0}
		],
		"supply_chain_status": "Stable",
		"price_forecast": "Flat through Q3",
		"key_manufacturers": ["Ansell", {"name": "Medline"}]
	}` + "\n```")}
	m := New(p, Options{Now: func() time.Time { return fixedNow }})

	q := IntelQuery{ProductName: "nitrile gloves", Category: "PPE"}
	rep, err := m.GetMarketIntelligence(context.Background(), q.Prompt())
	require.NoError(t, err)

	assert.Equal(t, "Personal protective equipment", rep.ProductCategory)
	assert.Equal(t, fixedNow, rep.LastUpdated)
	require.Len(t, rep.Trends, 2)
	assert.Equal(t, 0.85, rep.Trends[0].Confidence)
	assert.Equal(t, "Stable", rep.SupplyChainStatus)
	assert.Equal(t, "Flat through Q3", rep.PriceForecast)
	assert.Equal(t, []string{"Ansell", "Medline"}, rep.KeyManufacturers)

	reqs := p.calls(extract.OpIntel)
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Input, "Current manufacturer: unknown")
	assert.Contains(t, reqs[0].Input, "Current vendor: unknown")
	assert.Contains(t, reqs[0].Input, "category PPE")
}

func TestGetMarketIntelligence_OptionalFields(t *testing.T) {
	p := &fakeProvider{handle: answer(`{"trends": [], "supply_chain_status": "Tight", "price_forecast": "Up 5%"}`)}
	m := New(p, Options{})

	rep, err := m.GetMarketIntelligence(context.Background(), "Analyze market intelligence for gauze")
	require.NoError(t, err)
	assert.NotNil(t, rep.KeyManufacturers)
	assert.Empty(t, rep.KeyManufacturers)
	assert.Equal(t, Unknown, rep.ProductCategory)
	assert.NotNil(t, rep.Trends)
}

func TestGetMarketIntelligence_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		field  string
	}{
		{"missing trends", `{"supply_chain_status": "ok", "price_forecast": "flat"}`, "trends"},
		{"null supply chain", `{"trends": [], "supply_chain_status": null, "price_forecast": "flat"}`, "supply_chain_status"},
		{"missing forecast", `{"trends": [], "supply_chain_status": "ok"}`, "price_forecast"},
		{"confidence above one", `{"trends": [{"title": "t", "confidence": 1.2}], "supply_chain_status": "ok", "price_forecast": "flat"}`, "trends[0].confidence"},
		{"negative confidence", `{"trends": [{"title": "a", "confidence": 0.5}, {"title": "b", "confidence": -0.1}], "supply_chain_status": "ok", "price_forecast": "flat"}`, "trends[1].confidence"},
		{"missing confidence", `{"trends": [{"title": "t"}], "supply_chain_status": "ok", "price_forecast": "flat"}`, "trends[0].confidence"},
		{"not json", `The market is doing fine.`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(&fakeProvider{handle: answer(tt.answer)}, Options{})
			rep, err := m.GetMarketIntelligence(context.Background(), "Analyze market intelligence for gauze")
			assert.Nil(t, rep)

			var pe *IntelParsingError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestGetMarketIntelligence_ServiceFailure(t *testing.T) {
	m := New(&fakeProvider{handle: fail(extract.ErrServiceUnavailable)}, Options{})
	_, err := m.GetMarketIntelligence(context.Background(), "Analyze market intelligence for gauze")

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, extract.OpIntel, ee.Operation)
	assert.ErrorIs(t, err, extract.ErrServiceUnavailable)
}

func TestIntelQuery_Prompt(t *testing.T) {
	q := IntelQuery{ProductName: "gauze", Manufacturer: "  ", Price: "$3.20"}
	assert.Equal(t,
		"Analyze market intelligence for gauze in category unknown.\nCurrent manufacturer: unknown\nCurrent price: $3.20\nCurrent vendor: unknown",
		q.Prompt())
}
