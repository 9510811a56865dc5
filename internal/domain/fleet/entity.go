package fleet

import (
	"fmt"

	"fleetcontrol/internal/domain/record"
)

// Entity - типизированная бизнес-запись. Ссылочные поля хранятся в Record.Refs,
// поэтому в JSON данные не попадают.
type Entity interface {
	Collection() record.Collection
	References() map[string]int64
}

type refSetter interface {
	setReferences(refs map[string]int64)
}

type Driver struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	License string `json:"license,omitempty"`
}

func (Driver) Collection() record.Collection { return record.CollectionDrivers }
func (Driver) References() map[string]int64 { return nil }
func (*Driver) setReferences(map[string]int64) {}

type Company struct {
	Name string `json:"name"`
}

func (Company) Collection() record.Collection { return record.CollectionCompanies }
func (Company) References() map[string]int64 { return nil }
func (*Company) setReferences(map[string]int64) {}

type Client struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

func (Client) Collection() record.Collection { return record.CollectionClients }
func (Client) References() map[string]int64 { return nil }
func (*Client) setReferences(map[string]int64) {}

// Location - точка погрузки.
type Location struct {
	Name string `json:"name"`
}

func (Location) Collection() record.Collection { return record.CollectionLocations }
func (Location) References() map[string]int64 { return nil }
func (*Location) setReferences(map[string]int64) {}

// RateSlab задает ставку рейса компании по диапазону расстояний.
type RateSlab struct {
	CompanyID int64   `json:"-"`
	MinKm     float64 `json:"minKm"`
	MaxKm     float64 `json:"maxKm"`
	Rate      float64 `json:"rate"`
	BillRate  float64 `json:"billRate"`
}

func (RateSlab) Collection() record.Collection { return record.CollectionRateSlabs }
func (s RateSlab) References() map[string]int64 {
	return map[string]int64{"companyId": s.CompanyID}
}
func (s *RateSlab) setReferences(refs map[string]int64) { s.CompanyID = refs["companyId"] }

type PickupClientDistance struct {
	PickupID int64   `json:"-"`
	ClientID int64   `json:"-"`
	Km       float64 `json:"km"`
}

func (PickupClientDistance) Collection() record.Collection {
	return record.CollectionPickupClientDistances
}
func (d PickupClientDistance) References() map[string]int64 {
	return map[string]int64{"pickupId": d.PickupID, "clientId": d.ClientID}
}
func (d *PickupClientDistance) setReferences(refs map[string]int64) {
	d.PickupID, d.ClientID = refs["pickupId"], refs["clientId"]
}

type Fuel struct {
	DriverID int64   `json:"-"`
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Litres   float64 `json:"litres,omitempty"`
}

func (Fuel) Collection() record.Collection { return record.CollectionFuel }
func (f Fuel) References() map[string]int64 { return map[string]int64{"driverId": f.DriverID} }
func (f *Fuel) setReferences(refs map[string]int64) { f.DriverID = refs["driverId"] }

type FuelRequest struct {
	DriverID int64   `json:"-"`
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note,omitempty"`
}

func (FuelRequest) Collection() record.Collection { return record.CollectionFuelRequests }
func (f FuelRequest) References() map[string]int64 { return map[string]int64{"driverId": f.DriverID} }
func (f *FuelRequest) setReferences(refs map[string]int64) { f.DriverID = refs["driverId"] }

type Advance struct {
	DriverID int64   `json:"-"`
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note,omitempty"`
}

func (Advance) Collection() record.Collection { return record.CollectionAdvances }
func (a Advance) References() map[string]int64 { return map[string]int64{"driverId": a.DriverID} }
func (a *Advance) setReferences(refs map[string]int64) { a.DriverID = refs["driverId"] }

// Trip - один рейс. Earnings хранит то, что записал клиент; расчеты денег его не читают.
type Trip struct {
	DriverID  int64   `json:"-"`
	CompanyID int64   `json:"-"`
	PickupID  int64   `json:"-"`
	ClientID  int64   `json:"-"`
	Date      string  `json:"date"`
	Bags      float64 `json:"bags"`
	Rate      float64 `json:"rate"`
	BillRate  float64 `json:"billRate,omitempty"`
	Tolls     float64 `json:"tolls,omitempty"`
	Km        float64 `json:"km,omitempty"`
	Earnings  float64 `json:"earnings,omitempty"`
}

func (Trip) Collection() record.Collection { return record.CollectionTrips }
func (t Trip) References() map[string]int64 {
	return map[string]int64{
		"driverId":  t.DriverID,
		"companyId": t.CompanyID,
		"pickupId":  t.PickupID,
		"clientId":  t.ClientID,
	}
}
func (t *Trip) setReferences(refs map[string]int64) {
	t.DriverID, t.CompanyID = refs["driverId"], refs["companyId"]
	t.PickupID, t.ClientID = refs["pickupId"], refs["clientId"]
}

// Stat - справочная месячная сводка по водителю, только для отображения.
type Stat struct {
	DriverID int64   `json:"-"`
	Month    string  `json:"month"`
	Trips    int     `json:"trips"`
	Bags     float64 `json:"bags"`
	Earnings float64 `json:"earnings"`
	Revenue  float64 `json:"revenue"`
	Cost     float64 `json:"cost"`
	Profit   float64 `json:"profit"`
	Payable  float64 `json:"payable"`
}

func (Stat) Collection() record.Collection { return record.CollectionStats }
func (s Stat) References() map[string]int64 { return map[string]int64{"driverId": s.DriverID} }
func (s *Stat) setReferences(refs map[string]int64) { s.DriverID = refs["driverId"] }

// Decode превращает локальную запись в типизированную сущность вместе со ссылками.
func Decode[T any, P interface {
	*T
	Entity
	refSetter
}](rec *record.Record) (T, error) {
	var v T
	if rec.Collection != P(&v).Collection() {
		return v, fmt.Errorf("%w: %s record is not %s", record.ErrInvalidData, rec.Collection, P(&v).Collection())
	}
	if err := rec.Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %v", record.ErrInvalidData, err)
	}
	P(&v).setReferences(rec.Refs)
	return v, nil
}
