package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

func TestMarkerMapping_Encode(t *testing.T) {
	m := DefaultMarkerMapping()

	tests := []struct {
		name    string
		value   domain.Value
		present bool
		want    domain.Value
	}{
		{"absent", domain.Null(), false, domain.Text("?")},
		{"absent ignores value", domain.Int(1), false, domain.Text("?")},
		{"truthy", domain.Int(1), true, domain.Text("x")},
		{"zero", domain.Int(0), true, domain.Text("-")},
		{"empty cell on matched row", domain.Null(), true, domain.Text("-")},
		{"text one is not truthy", domain.Text("1"), true, domain.Text("-")},
		{"bool true is not truthy", domain.Bool(true), true, domain.Text("-")},
		{"float one is not truthy", domain.Float(1), true, domain.Text("-")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Encode(tt.value, tt.present))
		})
	}
}

func TestMarkerMapping_CustomTruthy(t *testing.T) {
	m := MarkerMapping{
		Truthy:   domain.Text("yes"),
		Present:  domain.Text("Y"),
		Negative: domain.Text("N"),
		Absent:   domain.Null(),
	}

	assert.Equal(t, domain.Text("Y"), m.Encode(domain.Text("yes"), true))
	assert.Equal(t, domain.Text("N"), m.Encode(domain.Int(1), true))
	assert.True(t, m.Encode(domain.Text("yes"), false).IsNull())
	assert.Equal(t, "marker", m.Name())
}

func TestSubstitutionList_Encode(t *testing.T) {
	s := NewSubstitutionList(
		Substitution{Find: domain.Int(1), Replace: domain.Text("X")},
		Substitution{Find: domain.Int(0), Replace: domain.Text("Y")},
	)

	assert.Equal(t, domain.Text("X"), s.Encode(domain.Int(1), true))
	assert.Equal(t, domain.Text("Y"), s.Encode(domain.Int(0), true))
	assert.Equal(t, domain.Int(2), s.Encode(domain.Int(2), true), "unmatched values pass through")
	assert.Equal(t, domain.Text("1"), s.Encode(domain.Text("1"), true), "equality is exact")
	assert.Equal(t, domain.Text("?"), s.Encode(domain.Int(1), false))
	assert.Equal(t, domain.Text("?"), s.Encode(domain.Null(), true), "empty result is filled")
	assert.Equal(t, "substitution", s.Name())
}

func TestSubstitutionList_FirstMatchWins(t *testing.T) {
	s := NewSubstitutionList(
		Substitution{Find: domain.Text("a"), Replace: domain.Text("first")},
		Substitution{Find: domain.Text("a"), Replace: domain.Text("second")},
		Substitution{Find: domain.Text("first"), Replace: domain.Text("chained")},
	)

	// 替换结果不会再被后面的规则处理
	assert.Equal(t, domain.Text("first"), s.Encode(domain.Text("a"), true))
}

func TestSubstitutionList_Empty(t *testing.T) {
	s := NewSubstitutionList()

	for _, v := range []domain.Value{domain.Int(1), domain.Text("a"), domain.Bool(false), domain.Float(2.5)} {
		assert.Equal(t, v, s.Encode(v, true))
	}
	assert.Equal(t, DefaultAbsent, s.Encode(domain.Int(1), false))
}

func TestSubstitutionList_ReplaceWithNull(t *testing.T) {
	s := NewSubstitutionList(Substitution{Find: domain.Int(0), Replace: domain.Null()})

	assert.Equal(t, DefaultAbsent, s.Encode(domain.Int(0), true))
}
