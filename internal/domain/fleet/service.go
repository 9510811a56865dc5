package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetcontrol/internal/domain/record"
)

const dateLayout = "2006-01-02"

var ErrNoRateSlab = errors.New("no rate slab covers the distance")

// Service - типизированная обертка над record.Service: createX для каждой сущности.
type Service struct {
	records record.Servicer
}

func NewService(records record.Servicer) *Service {
	return &Service{records: records}
}

// Create проверяет и сохраняет сущность, возвращает ее локальный id.
func (s *Service) Create(ctx context.Context, e Entity) (int64, error) {
	if err := validate(e); err != nil {
		return 0, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", record.ErrInvalidData, err)
	}
	refs := make(map[string]int64)
	for name, id := range e.References() {
		if id != 0 {
			refs[name] = id
		}
	}
	return s.records.Create(ctx, e.Collection(), record.CreateRequest{Data: data, Refs: refs})
}

func (s *Service) CreateDriver(ctx context.Context, d Driver) (int64, error) {
	return s.Create(ctx, d)
}

func (s *Service) CreateAdvance(ctx context.Context, a Advance) (int64, error) {
	return s.Create(ctx, a)
}

func (s *Service) CreateFuel(ctx context.Context, f Fuel) (int64, error) {
	return s.Create(ctx, f)
}

func (s *Service) CreateFuelRequest(ctx context.Context, f FuelRequest) (int64, error) {
	return s.Create(ctx, f)
}

// CreateTrip сохраняет рейс; нулевая ставка берется из тарифа компании по расстоянию.
func (s *Service) CreateTrip(ctx context.Context, t Trip) (int64, error) {
	if t.Rate == 0 && t.CompanyID != 0 && t.Km > 0 {
		slab, err := s.RateFor(ctx, t.CompanyID, t.Km)
		if err != nil {
			return 0, err
		}
		t.Rate, t.BillRate = slab.Rate, slab.BillRate
	}
	t.Earnings = 0
	return s.Create(ctx, t)
}

// RateFor ищет тариф компании, в диапазон [MinKm, MaxKm) которого попадает km.
func (s *Service) RateFor(ctx context.Context, companyID int64, km float64) (RateSlab, error) {
	list, err := s.records.List(ctx, record.CollectionRateSlabs)
	if err != nil {
		return RateSlab{}, err
	}
	for _, rec := range list.Records {
		slab, err := Decode[RateSlab](rec)
		if err != nil {
			continue
		}
		if slab.CompanyID == companyID && km >= slab.MinKm && km < slab.MaxKm {
			return slab, nil
		}
	}
	return RateSlab{}, fmt.Errorf("%w: company %d, %.1f km", ErrNoRateSlab, companyID, km)
}

func validate(e Entity) error {
	switch v := e.(type) {
	case Driver:
		return required("name", v.Name)
	case Company:
		return required("name", v.Name)
	case Client:
		return required("name", v.Name)
	case Location:
		return required("name", v.Name)
	case RateSlab:
		if v.MaxKm <= v.MinKm {
			return fmt.Errorf("%w: maxKm must be greater than minKm", record.ErrInvalidData)
		}
		return nonNegative("rate", v.Rate)
	case PickupClientDistance:
		return nonNegative("km", v.Km)
	case Fuel:
		return moneyOnDate(v.Date, v.Amount)
	case FuelRequest:
		return moneyOnDate(v.Date, v.Amount)
	case Advance:
		return moneyOnDate(v.Date, v.Amount)
	case Trip:
		if err := date(v.Date); err != nil {
			return err
		}
		if err := nonNegative("bags", v.Bags); err != nil {
			return err
		}
		if err := nonNegative("rate", v.Rate); err != nil {
			return err
		}
		return nonNegative("tolls", v.Tolls)
	}
	return nil
}

func required(field, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is required", record.ErrInvalidData, field)
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative", record.ErrInvalidData, field)
	}
	return nil
}

func moneyOnDate(d string, amount float64) error {
	if err := date(d); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", record.ErrInvalidData)
	}
	return nil
}

func date(d string) error {
	if _, err := time.Parse(dateLayout, d); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", record.ErrInvalidData, d)
	}
	return nil
}
