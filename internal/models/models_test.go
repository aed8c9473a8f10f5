package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProduct(t *testing.T) {
	assert.Equal(t, ProductCaroco, ParseProduct("caroco").Kind)
	assert.Equal(t, ProductCaroco, ParseProduct(" CAROÇO ").Kind)
	assert.Equal(t, ProductPluma, ParseProduct("Pluma").Kind)

	other := ParseProduct("Reciclados")
	assert.False(t, other.IsCore())
	assert.Equal(t, "Reciclados", other.String())
	assert.True(t, other.Equal(ParseProduct("reciclados")))
	assert.False(t, other.Equal(ParseProduct("Cavaco")))
	assert.True(t, Product{}.IsZero())
}

func TestProduct_JSONRoundTripKeepsName(t *testing.T) {
	raw, err := json.Marshal(struct {
		P Product `json:"p"`
	}{P: Product{Kind: ProductCaroco}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"Caroço"}`, string(raw))

	var decoded struct {
		P Product `json:"p"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"p":"Cavaco"}`), &decoded))
	assert.Equal(t, ProductOther, decoded.P.Kind)
	assert.Equal(t, "Cavaco", decoded.P.Name)
}

func TestLoadingJob_Quantity(t *testing.T) {
	bales := 40
	weight := 27500.5

	pluma := LoadingJob{Product: Product{Kind: ProductPluma}, Bales: &bales, WeightKg: &weight}
	q := pluma.Quantity()
	assert.Equal(t, UnitBales, q.Unit)
	assert.Equal(t, 40.0, q.Value)

	caroco := LoadingJob{Product: Product{Kind: ProductCaroco}, Bales: &bales, WeightKg: &weight}
	assert.Equal(t, UnitWeightKg, caroco.Quantity().Unit)
	assert.Equal(t, weight, caroco.Quantity().Value)

	other := LoadingJob{Product: OtherProduct("Outros"), Bales: &bales}
	assert.Equal(t, UnitBales, other.Quantity().Unit)

	empty := LoadingJob{Product: Product{Kind: ProductBriquete}}
	assert.False(t, empty.Quantity().Set)
}

func TestLoadingJob_CloneDoesNotAlias(t *testing.T) {
	now := time.Now()
	bales := 10
	j := LoadingJob{EntryAt: &now, Bales: &bales}
	c := j.Clone()
	*c.Bales = 11
	*c.EntryAt = now.Add(time.Hour)
	assert.Equal(t, 10, *j.Bales)
	assert.Equal(t, now, *j.EntryAt)
}

func TestParseJobStatus(t *testing.T) {
	s, err := ParseJobStatus("carregando")
	require.NoError(t, err)
	assert.Equal(t, StatusLoading, s)

	s, err = ParseJobStatus("Concluído")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	_, err = ParseJobStatus("parked")
	assert.Error(t, err)
}

func TestNormalizePlateAndKeys(t *testing.T) {
	assert.Equal(t, "ABC1234", NormalizePlate("abc-1234"))
	assert.Equal(t, "ABC1D23", NormalizePlate(" abc 1d23 "))

	trip := VehicleTrip{EntryTime: "08:00"}
	assert.True(t, trip.IsOpen())
	trip.ExitTime = "08:30"
	assert.False(t, trip.IsOpen())

	d := TripTimeDetail{Plate: "abc-1234", Date: "2026-10-16", Time: "08:00"}
	assert.Equal(t, KeyOf("ABC1234", "2026-10-16", " 08:00"), d.Key())
}
