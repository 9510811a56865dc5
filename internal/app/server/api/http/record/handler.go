package record

import (
	"context"

	"fleetcontrol/internal/app/server/api/http/apierr"
	"fleetcontrol/internal/domain/fleet"
	"fleetcontrol/internal/domain/record"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Fleet создает типизированные сущности.
type Fleet interface {
	CreateDriver(ctx context.Context, d fleet.Driver) (int64, error)
	CreateTrip(ctx context.Context, t fleet.Trip) (int64, error)
	CreateAdvance(ctx context.Context, a fleet.Advance) (int64, error)
	CreateFuel(ctx context.Context, f fleet.Fuel) (int64, error)
	CreateFuelRequest(ctx context.Context, f fleet.FuelRequest) (int64, error)
}

type Handler struct {
	service    record.Servicer
	fleet      Fleet
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service record.Servicer, fleet Fleet, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		fleet:      fleet,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	// Общие
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.updateOp(), h.update)

	// Создание типизированных сущностей
	huma.Register(api, h.createDriverOp(), h.createDriver)
	huma.Register(api, h.createTripOp(), h.createTrip)
	huma.Register(api, h.createAdvanceOp(), h.createAdvance)
	huma.Register(api, h.createFuelOp(), h.createFuel)
	huma.Register(api, h.createFuelRequestOp(), h.createFuelRequest)
}

func (h *Handler) list(ctx context.Context, input *collectionInput) (*listOutput, error) {
	records, err := h.service.List(ctx, record.Collection(input.Collection))
	if err != nil {
		return nil, apierr.From(err)
	}
	return &listOutput{Body: records}, nil
}

func (h *Handler) find(ctx context.Context, input *findInput) (*findOutput, error) {
	rec, err := h.service.Get(ctx, input.ID)
	if err != nil {
		return nil, apierr.From(err)
	}
	if string(rec.Collection) != input.Collection {
		return nil, huma.Error404NotFound("record not found in " + input.Collection)
	}
	return &findOutput{Body: rec}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*output, error) {
	id, err := h.service.Create(ctx, record.Collection(input.Collection), input.Body)
	return h.created(id, err)
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*output, error) {
	if _, err := h.find(ctx, &findInput{Collection: input.Collection, ID: input.ID}); err != nil {
		return nil, err
	}
	if _, err := h.service.Update(ctx, input.ID, input.Body); err != nil {
		return nil, apierr.From(err)
	}
	return &output{Body: response{ID: input.ID, Status: "Ok"}}, nil
}

func (h *Handler) createDriver(ctx context.Context, input *createDriverInput) (*output, error) {
	id, err := h.fleet.CreateDriver(ctx, fleet.Driver{
		Name:    input.Body.Name,
		Phone:   input.Body.Phone,
		License: input.Body.License,
	})
	return h.created(id, err)
}

func (h *Handler) createTrip(ctx context.Context, input *createTripInput) (*output, error) {
	b := input.Body
	id, err := h.fleet.CreateTrip(ctx, fleet.Trip{
		DriverID:  b.DriverID,
		CompanyID: b.CompanyID,
		PickupID:  b.PickupID,
		ClientID:  b.ClientID,
		Date:      b.Date,
		Bags:      b.Bags,
		Rate:      b.Rate,
		BillRate:  b.BillRate,
		Tolls:     b.Tolls,
		Km:        b.Km,
	})
	return h.created(id, err)
}

func (h *Handler) createAdvance(ctx context.Context, input *createAdvanceInput) (*output, error) {
	b := input.Body
	id, err := h.fleet.CreateAdvance(ctx, fleet.Advance{DriverID: b.DriverID, Date: b.Date, Amount: b.Amount, Note: b.Note})
	return h.created(id, err)
}

func (h *Handler) createFuel(ctx context.Context, input *createFuelInput) (*output, error) {
	b := input.Body
	id, err := h.fleet.CreateFuel(ctx, fleet.Fuel{DriverID: b.DriverID, Date: b.Date, Amount: b.Amount, Litres: b.Litres})
	return h.created(id, err)
}

func (h *Handler) createFuelRequest(ctx context.Context, input *createFuelRequestInput) (*output, error) {
	b := input.Body
	id, err := h.fleet.CreateFuelRequest(ctx, fleet.FuelRequest{DriverID: b.DriverID, Date: b.Date, Amount: b.Amount, Note: b.Note})
	return h.created(id, err)
}

func (h *Handler) created(id int64, err error) (*output, error) {
	if err != nil {
		h.log.Debug("create rejected", "error", err)
		return nil, apierr.From(err)
	}
	return &output{Body: response{ID: id, Status: "Ok"}}, nil
}
