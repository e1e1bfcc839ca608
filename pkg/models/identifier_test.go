package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
)

const vehicleUUID = "8a6e0804-2bd0-4672-b79d-d97027f9071a"

func TestIdentifierOf(t *testing.T) {
	t.Run("uuid wins over id", func(t *testing.T) {
		id, err := IdentifierOf(map[string]any{"uuid": vehicleUUID, "id": json.Number("4")})
		require.NoError(t, err)
		assert.Equal(t, KindUUID, id.Kind())
		assert.Equal(t, vehicleUUID, id.String())
	})

	t.Run("id when uuid is absent", func(t *testing.T) {
		id, err := IdentifierOf(map[string]any{"id": json.Number("7"), "name": "x"})
		require.NoError(t, err)
		n, ok := id.Int()
		require.True(t, ok)
		assert.Equal(t, int64(7), n)
		assert.Equal(t, "id", id.Kind().Field())
	})

	t.Run("neither", func(t *testing.T) {
		_, err := IdentifierOf(map[string]any{"name": "x"})
		require.ErrorIs(t, err, constants.ErrValidation)
	})

	t.Run("bad uuid", func(t *testing.T) {
		_, err := IdentifierOf(map[string]any{"uuid": "nope"})
		require.ErrorIs(t, err, constants.ErrValidation)
	})
}

func TestIdentifierFromValue(t *testing.T) {
	u := uuid.Must(uuid.FromString(vehicleUUID))

	cases := []struct {
		in   any
		want string
		kind IdentifierKind
	}{
		{in: 7, want: "7", kind: KindNumeric},
		{in: int64(12), want: "12", kind: KindNumeric},
		{in: float64(3), want: "3", kind: KindNumeric},
		{in: "15", want: "15", kind: KindNumeric},
		{in: vehicleUUID, want: vehicleUUID, kind: KindUUID},
		{in: u, want: vehicleUUID, kind: KindUUID},
		{in: NumericIdentifier(9), want: "9", kind: KindNumeric},
	}
	for _, tc := range cases {
		id, err := IdentifierFromValue(tc.in)
		require.NoError(t, err, "%v", tc.in)
		assert.Equal(t, tc.want, id.String())
		assert.Equal(t, tc.kind, id.Kind())
	}

	for _, bad := range []any{0, -1, 1.5, "abc", uuid.Nil, Identifier{}, struct{}{}} {
		_, err := IdentifierFromValue(bad)
		assert.ErrorIs(t, err, constants.ErrValidation, "%v", bad)
	}
}

func TestIdentifierJSON(t *testing.T) {
	var ids []Identifier
	require.NoError(t, json.Unmarshal([]byte(`["`+vehicleUUID+`", 42]`), &ids))
	require.Len(t, ids, 2)
	assert.Equal(t, KindUUID, ids[0].Kind())
	assert.Equal(t, KindNumeric, ids[1].Kind())

	data, err := json.Marshal(ids)
	require.NoError(t, err)
	assert.JSONEq(t, `["`+vehicleUUID+`", 42]`, string(data))
}

func TestEntitiesExposeIdentifier(t *testing.T) {
	type vehicle struct {
		UUIDEntity
		Vin string `json:"vin"`
	}
	type category struct {
		NumericEntity
		Name string `json:"name"`
	}

	var e Entity = vehicle{UUIDEntity: UUIDEntity{UUID: uuid.Must(uuid.FromString(vehicleUUID))}}
	assert.Equal(t, vehicleUUID, e.Identifier().String())

	e = category{NumericEntity: NumericEntity{ID: 7}}
	assert.Equal(t, "7", e.Identifier().String())

	e = Record{"id": json.Number("5")}
	assert.Equal(t, "5", e.Identifier().String())
	assert.True(t, Record{}.Identifier().IsZero())
}

func TestChoiceValue(t *testing.T) {
	var choices []Choice
	require.NoError(t, json.Unmarshal([]byte(`[{"label":"Sedan","value":"sedan"},{"label":"Two","value":2}]`), &choices))
	require.Len(t, choices, 2)
	assert.False(t, choices[0].Value.IsNumber())
	assert.Equal(t, "sedan", choices[0].Value.String())
	assert.True(t, choices[1].Value.IsNumber())
	assert.Equal(t, "2", choices[1].Value.String())

	data, err := json.Marshal(choices[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"label":"Two","value":2}`, string(data))
}
