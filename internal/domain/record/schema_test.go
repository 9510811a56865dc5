package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_LogicalKey(t *testing.T) {
	tests := []struct {
		name       string
		collection Collection
		fields     map[string]any
		refs       map[string]int64
		clientID   string
		want       string
		wantErr    bool
	}{
		{name: "driver by normalized name", collection: CollectionDrivers, fields: map[string]any{"name": "  Ravi Kumar "}, want: "ravi kumar"},
		{name: "advance by driver date amount", collection: CollectionAdvances, fields: map[string]any{"date": "2024-05-01", "amount": 500.0}, refs: map[string]int64{"driverId": 7}, want: "7|2024-05-01|500"},
		{name: "distance by pickup and client", collection: CollectionPickupClientDistances, fields: map[string]any{"km": 12.5}, refs: map[string]int64{"pickupId": 2, "clientId": 4}, want: "2|4"},
		{name: "trip by client id", collection: CollectionTrips, clientID: "3f0c", want: "3f0c"},
		{name: "unresolved reference", collection: CollectionFuel, fields: map[string]any{"date": "2024-05-01", "amount": 10.0}, wantErr: true},
		{name: "missing field", collection: CollectionCompanies, fields: map[string]any{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := SchemaFor(tt.collection)
			require.NoError(t, err)

			got, err := schema.LogicalKey(tt.fields, tt.refs, tt.clientID)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonical(t *testing.T) {
	a, err := Canonical(json.RawMessage(`{"b": 1.0, "a": "x"}`))
	require.NoError(t, err)
	b, err := Canonical(json.RawMessage(`{"a":"x","b":1}`))
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))

	_, err = Canonical(json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestSameRefs(t *testing.T) {
	assert.True(t, SameRefs(nil, map[string]int64{}))
	assert.True(t, SameRefs(map[string]int64{"driverId": 0}, nil))
	assert.True(t, SameRefs(map[string]int64{"driverId": 7}, map[string]int64{"driverId": 7}))
	assert.False(t, SameRefs(map[string]int64{"driverId": 7}, map[string]int64{"driverId": 8}))
	assert.False(t, SameRefs(map[string]int64{"driverId": 7}, nil))
}

func TestCollectionsAreParentFirst(t *testing.T) {
	pos := map[Collection]int{}
	for i, c := range Collections() {
		pos[c] = i
	}
	assert.Len(t, pos, len(schemas))

	for c, schema := range schemas {
		for _, parent := range schema.Refs {
			assert.Less(t, pos[parent], pos[c], "%s must come after %s", c, parent)
		}
	}
}
