package core

import (
	"encoding/json"
	"reflect"
	"testing"
)

func testModel() *Model {
	return &Model{
		Rank: 2,
		UserFactors: map[int][]float64{
			0: {0.1, 0.2},
		},
		ItemFactors: map[int][]float64{
			0: {0.3, 0.4},
			1: {0.5, 0.6},
		},
		Users: BuildIndex([]string{"u1", "u2"}),
		Items: BuildIndex([]string{"i1", "i2", "i3"}),
	}
}

func TestModel_ComposedLookup(t *testing.T) {
	m := testModel()

	tests := []struct {
		name   string
		lookup func() ([]float64, bool)
		want   []float64
		wantOK bool
	}{
		{
			name:   "known user with factors",
			lookup: func() ([]float64, bool) { return m.UserVector("u1") },
			want:   []float64{0.1, 0.2},
			wantOK: true,
		},
		{
			name:   "known user without factors (cold start)",
			lookup: func() ([]float64, bool) { return m.UserVector("u2") },
			wantOK: false,
		},
		{
			name:   "unknown user",
			lookup: func() ([]float64, bool) { return m.UserVector("nobody") },
			wantOK: false,
		},
		{
			name:   "known item with factors",
			lookup: func() ([]float64, bool) { return m.ItemVector("i2") },
			want:   []float64{0.5, 0.6},
			wantOK: true,
		},
		{
			name:   "known item without factors (cold start)",
			lookup: func() ([]float64, bool) { return m.ItemVector("i3") },
			wantOK: false,
		},
		{
			name:   "unknown item",
			lookup: func() ([]float64, bool) { return m.ItemVector("nothing") },
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.lookup()
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantOK && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("vector = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModel_JSONRoundTrip(t *testing.T) {
	m := testModel()

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var back Model
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if back.Rank != m.Rank {
		t.Errorf("Rank = %d, want %d", back.Rank, m.Rank)
	}
	if !reflect.DeepEqual(back.UserFactors, m.UserFactors) {
		t.Errorf("UserFactors = %v, want %v", back.UserFactors, m.UserFactors)
	}
	if !reflect.DeepEqual(back.ItemFactors, m.ItemFactors) {
		t.Errorf("ItemFactors = %v, want %v", back.ItemFactors, m.ItemFactors)
	}
	if vec, ok := back.ItemVector("i2"); !ok || !reflect.DeepEqual(vec, []float64{0.5, 0.6}) {
		t.Errorf("ItemVector(i2) after round trip = %v (ok=%v)", vec, ok)
	}
}
