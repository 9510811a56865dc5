package record

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
)

// Collection - имя удаленной коллекции и одновременно тип локальной сущности.
type Collection string

const (
	CollectionDrivers               Collection = "drivers"
	CollectionCompanies             Collection = "companies"
	CollectionClients               Collection = "clients"
	CollectionLocations             Collection = "locations"
	CollectionRateSlabs             Collection = "rate_slabs"
	CollectionPickupClientDistances Collection = "pickup_client_distances"
	CollectionFuel                  Collection = "fuel"
	CollectionFuelRequests          Collection = "fuelRequests"
	CollectionAdvances              Collection = "advances"
	CollectionTrips                 Collection = "trips"
	CollectionStats                 Collection = "stats"
)

// Collections возвращает все коллекции, родителей раньше ссылающихся на них.
func Collections() []Collection {
	return []Collection{
		CollectionDrivers,
		CollectionCompanies,
		CollectionClients,
		CollectionLocations,
		CollectionRateSlabs,
		CollectionPickupClientDistances,
		CollectionFuel,
		CollectionFuelRequests,
		CollectionAdvances,
		CollectionTrips,
		CollectionStats,
	}
}

func (Collection) Schema(_ huma.Registry) *huma.Schema {
	enum := make([]any, 0, len(schemas))
	for _, c := range Collections() {
		enum = append(enum, string(c))
	}
	return &huma.Schema{
		Type:        "string",
		Enum:        enum,
		Description: "Коллекция (тип сущности)",
		Examples:    []any{CollectionTrips},
	}
}

// Validate реализует интерфейс huma.Validatable.
func (c Collection) Validate() error {
	if _, ok := schemas[c]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	return nil
}

func (c Collection) String() string {
	return string(c)
}

// Status - статус согласования рейса. У остальных коллекций он пустой.
type Status string

const (
	StatusNone     Status = ""
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal сообщает, что дальнейшие переходы запрещены.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}
