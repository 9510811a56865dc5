package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Schema описывает ключ коллекции и поля, ссылающиеся на другие коллекции.
type Schema struct {
	Collection Collection
	// KeyFields образуют логический ключ; поле из Refs дает локальный id родителя.
	KeyFields []string
	// Refs сопоставляет ссылочное поле с коллекцией родителя.
	Refs map[string]Collection
	// ClientKey делает логическим ключом id, созданный клиентом.
	ClientKey bool
	// Approval включает согласование рейсов.
	Approval bool
}

var schemas = map[Collection]Schema{
	CollectionDrivers:   {Collection: CollectionDrivers, KeyFields: []string{"name"}},
	CollectionCompanies: {Collection: CollectionCompanies, KeyFields: []string{"name"}},
	CollectionClients:   {Collection: CollectionClients, KeyFields: []string{"name"}},
	CollectionLocations: {Collection: CollectionLocations, KeyFields: []string{"name"}},
	CollectionRateSlabs: {
		Collection: CollectionRateSlabs,
		KeyFields:  []string{"companyId", "minKm", "maxKm"},
		Refs:       map[string]Collection{"companyId": CollectionCompanies},
	},
	CollectionPickupClientDistances: {
		Collection: CollectionPickupClientDistances,
		KeyFields:  []string{"pickupId", "clientId"},
		Refs: map[string]Collection{
			"pickupId": CollectionLocations,
			"clientId": CollectionClients,
		},
	},
	CollectionFuel: {
		Collection: CollectionFuel,
		KeyFields:  []string{"driverId", "date", "amount"},
		Refs:       map[string]Collection{"driverId": CollectionDrivers},
	},
	CollectionFuelRequests: {
		Collection: CollectionFuelRequests,
		KeyFields:  []string{"driverId", "date", "amount"},
		Refs:       map[string]Collection{"driverId": CollectionDrivers},
	},
	CollectionAdvances: {
		Collection: CollectionAdvances,
		KeyFields:  []string{"driverId", "date", "amount"},
		Refs:       map[string]Collection{"driverId": CollectionDrivers},
	},
	CollectionTrips: {
		Collection: CollectionTrips,
		ClientKey:  true,
		Approval:   true,
		Refs: map[string]Collection{
			"driverId":  CollectionDrivers,
			"companyId": CollectionCompanies,
			"pickupId":  CollectionLocations,
			"clientId":  CollectionClients,
		},
	},
	CollectionStats: {
		Collection: CollectionStats,
		KeyFields:  []string{"driverId", "month"},
		Refs:       map[string]Collection{"driverId": CollectionDrivers},
	},
}

// SchemaFor возвращает схему коллекции.
func SchemaFor(c Collection) (Schema, error) {
	s, ok := schemas[c]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	return s, nil
}

// RefNames возвращает имена ссылочных полей в стабильном порядке.
func (s Schema) RefNames() []string {
	names := make([]string, 0, len(s.Refs))
	for name := range s.Refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LogicalKey строит естественный ключ записи из полей и локальных ссылок.
func (s Schema) LogicalKey(fields map[string]any, refs map[string]int64, clientID string) (string, error) {
	if s.ClientKey {
		if clientID == "" {
			return "", fmt.Errorf("%w: client id is required for %s", ErrInvalidData, s.Collection)
		}
		return clientID, nil
	}

	parts := make([]string, 0, len(s.KeyFields))
	for _, field := range s.KeyFields {
		if _, isRef := s.Refs[field]; isRef {
			id, ok := refs[field]
			if !ok || id == 0 {
				return "", fmt.Errorf("%w: %s.%s is required", ErrInvalidData, s.Collection, field)
			}
			parts = append(parts, strconv.FormatInt(id, 10))
			continue
		}
		v, ok := fields[field]
		if !ok || v == nil {
			return "", fmt.Errorf("%w: %s.%s is required", ErrInvalidData, s.Collection, field)
		}
		parts = append(parts, keyPart(v))
	}
	return strings.Join(parts, "|"), nil
}

func keyPart(v any) string {
	switch val := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(val))
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

// Canonical перекодирует JSON объект с сортировкой ключей, чтобы равные документы совпадали побайтно.
func Canonical(raw json.RawMessage) (json.RawMessage, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	return EncodeFields(fields)
}

// EncodeFields кодирует map полей в каноническом виде.
func EncodeFields(fields map[string]any) (json.RawMessage, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return b, nil
}

func decodeFields(raw json.RawMessage) (map[string]any, error) {
	fields := map[string]any{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: data must be a JSON object: %v", ErrInvalidData, err)
	}
	return fields, nil
}

// SameRefs сравнивает ссылки, пропуская нулевые значения.
func SameRefs(a, b map[string]int64) bool {
	count := 0
	for k, v := range a {
		if v == 0 {
			continue
		}
		count++
		if b[k] != v {
			return false
		}
	}
	for _, v := range b {
		if v != 0 {
			count--
		}
	}
	return count == 0
}
