package record

import (
	"fleetcontrol/internal/domain/record"
)

type collectionInput struct {
	Collection string `path:"collection" example:"trips" doc:"Коллекция"`
}

type listOutput struct {
	Body record.ListResponse
}

type findInput struct {
	Collection string `path:"collection" example:"trips" doc:"Коллекция"`
	ID         int64  `path:"id" example:"1" doc:"Локальный id записи"`
}

type findOutput struct {
	Body *record.Record
}

type createInput struct {
	Collection string `path:"collection" example:"drivers" doc:"Коллекция"`
	Body       record.CreateRequest
}

type updateInput struct {
	Collection string `path:"collection" example:"trips" doc:"Коллекция"`
	ID         int64  `path:"id" example:"1" doc:"Локальный id записи"`
	Body       record.UpdateRequest
}

type output struct {
	Body response
}

type response struct {
	ID     int64  `json:"id" doc:"Локальный id записи"`
	Status string `json:"status"`
}

// ==================== Типизированные ====================

type createDriverInput struct {
	Body struct {
		Name    string `json:"name" minLength:"1" doc:"Имя водителя"`
		Phone   string `json:"phone,omitempty" doc:"Телефон"`
		License string `json:"license,omitempty" doc:"Номер удостоверения"`
	}
}

type createTripInput struct {
	Body struct {
		DriverID  int64   `json:"driver_id" minimum:"1" doc:"Локальный id водителя"`
		CompanyID int64   `json:"company_id,omitempty" doc:"Локальный id компании"`
		PickupID  int64   `json:"pickup_id,omitempty" doc:"Локальный id точки погрузки"`
		ClientID  int64   `json:"client_id,omitempty" doc:"Локальный id клиента"`
		Date      string  `json:"date" format:"date" doc:"Дата рейса YYYY-MM-DD"`
		Bags      float64 `json:"bags" minimum:"0" doc:"Количество мешков"`
		Rate      float64 `json:"rate,omitempty" minimum:"0" doc:"Ставка водителя за мешок; 0 - взять из тарифной сетки"`
		BillRate  float64 `json:"bill_rate,omitempty" minimum:"0" doc:"Ставка для клиента за мешок"`
		Tolls     float64 `json:"tolls,omitempty" minimum:"0" doc:"Платные дороги"`
		Km        float64 `json:"km,omitempty" minimum:"0" doc:"Расстояние, км"`
	}
}

type moneyBody struct {
	DriverID int64   `json:"driver_id" minimum:"1" doc:"Локальный id водителя"`
	Date     string  `json:"date" format:"date" doc:"Дата YYYY-MM-DD"`
	Amount   float64 `json:"amount" minimum:"0" doc:"Сумма"`
	Note     string  `json:"note,omitempty" doc:"Комментарий"`
}

type createAdvanceInput struct {
	Body moneyBody
}

type createFuelRequestInput struct {
	Body moneyBody
}

type createFuelInput struct {
	Body struct {
		DriverID int64   `json:"driver_id" minimum:"1" doc:"Локальный id водителя"`
		Date     string  `json:"date" format:"date" doc:"Дата заправки YYYY-MM-DD"`
		Amount   float64 `json:"amount" minimum:"0" doc:"Сумма"`
		Litres   float64 `json:"litres,omitempty" minimum:"0" doc:"Литры"`
	}
}
