package stats

import (
	"context"
	"fmt"

	"fleetcontrol/internal/domain/fleet"
	"fleetcontrol/internal/domain/record"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Compute(ctx context.Context, f Filter) (Summary, error)
	Publish(ctx context.Context, driverID int64, month string) (int64, error)
}

// Aggregator считает все денежные показатели из исходных записей при чтении.
// Сохраненные сводки (коллекция stats, поле earnings рейса) не читаются.
type Aggregator struct {
	source  Source
	records record.Servicer
	log     *slog.Logger
}

// NewAggregator создает агрегатор над source; Publish пишет сводки через records.
func NewAggregator(source Source, records record.Servicer, log *slog.Logger) *Aggregator {
	return &Aggregator{
		source:  source,
		records: records,
		log:     log.With("component", "stats"),
	}
}

func (a *Aggregator) Compute(ctx context.Context, f Filter) (Summary, error) {
	if err := f.validate(); err != nil {
		return Summary{}, err
	}
	sum := Summary{Filter: f}

	trips, err := a.source.Load(ctx, record.CollectionTrips, f)
	if err != nil {
		return Summary{}, fmt.Errorf("load trips: %w", err)
	}
	for _, rec := range trips {
		if rec.Status != record.StatusApproved {
			sum.Excluded++
			continue
		}
		trip, err := fleet.Decode[fleet.Trip](rec)
		if err != nil {
			a.log.Warn("skipping undecodable trip", "local_id", rec.LocalID, "remote_id", rec.RemoteID, "error", err)
			continue
		}
		if !f.covers(trip.Date) {
			continue
		}
		sum.Trips++
		sum.Bags += trip.Bags
		sum.Earnings += trip.Bags * trip.Rate
		sum.Revenue += trip.Bags * trip.BillRate
		sum.Tolls += trip.Tolls
	}

	fuel, err := a.source.Load(ctx, record.CollectionFuel, f)
	if err != nil {
		return Summary{}, fmt.Errorf("load fuel: %w", err)
	}
	for _, rec := range fuel {
		entry, err := fleet.Decode[fleet.Fuel](rec)
		if err != nil || !f.covers(entry.Date) {
			continue
		}
		sum.Fuel += entry.Amount
	}

	advances, err := a.source.Load(ctx, record.CollectionAdvances, f)
	if err != nil {
		return Summary{}, fmt.Errorf("load advances: %w", err)
	}
	for _, rec := range advances {
		adv, err := fleet.Decode[fleet.Advance](rec)
		if err != nil || !f.covers(adv.Date) {
			continue
		}
		sum.Advances += adv.Amount
	}

	sum.Cost = sum.Earnings + sum.Fuel + sum.Tolls
	sum.Profit = sum.Revenue - sum.Cost
	sum.Payable = sum.Earnings - sum.Advances
	return sum, nil
}

// Publish сохраняет месячную сводку водителя как справочную запись stats
// или обновляет существующую. Возвращает ее локальный id.
func (a *Aggregator) Publish(ctx context.Context, driverID int64, month string) (int64, error) {
	if driverID == 0 {
		return 0, fmt.Errorf("%w: driver is required", ErrInvalidFilter)
	}
	f, err := MonthFilter(driverID, month)
	if err != nil {
		return 0, err
	}
	sum, err := a.Compute(ctx, f)
	if err != nil {
		return 0, err
	}

	stat := fleet.Stat{
		DriverID: driverID,
		Month:    month,
		Trips:    sum.Trips,
		Bags:     sum.Bags,
		Earnings: sum.Earnings,
		Revenue:  sum.Revenue,
		Cost:     sum.Cost,
		Profit:   sum.Profit,
		Payable:  sum.Payable,
	}

	existing, err := a.findStat(ctx, driverID, month)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		if _, err := a.records.Update(ctx, existing.LocalID, record.UpdateRequest{Data: record.MustJSON(stat)}); err != nil {
			return 0, err
		}
		return existing.LocalID, nil
	}
	return fleet.NewService(a.records).Create(ctx, stat)
}

func (a *Aggregator) findStat(ctx context.Context, driverID int64, month string) (*record.Record, error) {
	list, err := a.records.List(ctx, record.CollectionStats)
	if err != nil {
		return nil, err
	}
	for _, rec := range list.Records {
		stat, err := fleet.Decode[fleet.Stat](rec)
		if err != nil {
			continue
		}
		if stat.DriverID == driverID && stat.Month == month {
			return rec, nil
		}
	}
	return nil, nil
}
