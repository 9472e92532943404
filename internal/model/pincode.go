package model

// PincodeRecord описывает покрытие одного почтового индекса по данным курьера.
// Инвариант: CodAvailable не может быть true, если DeliveryAvailable равен false.
type PincodeRecord struct {
	Pincode           string `json:"pincode" db:"pincode" validate:"required,len=6,numeric"`
	State             string `json:"state" db:"state"`
	District          string `json:"district" db:"district"`
	DeliveryAvailable bool   `json:"delivery_available" db:"delivery_available"`
	CodAvailable      bool   `json:"cod_available" db:"cod_available"`
}

// RegionRate - тарифный шаблон региона. Статическая конфигурация,
// загружается один раз при старте и не изменяется в рантайме.
type RegionRate struct {
	RegionKey     string `json:"region" yaml:"key" validate:"required"`
	Charge        int    `json:"charge" yaml:"charge" validate:"gt=0"`
	EstimatedDays int    `json:"estimated_days" yaml:"estimated_days" validate:"gt=0"`
	CodAvailable  bool   `json:"cod_available" yaml:"cod_available"`
	Description   string `json:"description" yaml:"description"`
}

// SpecialCasePincode - явное переопределение тарифа для одного индекса
// (острова, высокогорье, индексы вне зоны обслуживания).
// При Serviceable=false тарифные поля не используются.
type SpecialCasePincode struct {
	Pincode       string `yaml:"pincode" validate:"required,len=6,numeric"`
	Serviceable   bool   `yaml:"serviceable"`
	Charge        int    `yaml:"charge"`
	EstimatedDays int    `yaml:"estimated_days"`
	CodAvailable  bool   `yaml:"cod_available"`
	Description   string `yaml:"description"`
}

// Источник, определивший итоговую котировку.
const (
	SourceExactMatch    = "exact-match"
	SourceSpecialCase   = "special-case"
	SourceRegionPrefix  = "region-prefix"
	SourceUnserviceable = "unserviceable"
)

// ShippingQuote - результат расчета доставки для одного индекса.
// Для Serviceable=false поля Charge/EstimatedDays равны нулю.
type ShippingQuote struct {
	Pincode       string `json:"pincode"`
	Serviceable   bool   `json:"serviceable"`
	Charge        int    `json:"charge,omitempty"`
	EstimatedDays int    `json:"estimated_days,omitempty"`
	CodAvailable  bool   `json:"cod_available"`
	Region        string `json:"region,omitempty"`
	Description   string `json:"description,omitempty"`
	Source        string `json:"source"`
}

// Unserviceable возвращает котировку "не обслуживается" для индекса.
func Unserviceable(pincode string) *ShippingQuote {
	return &ShippingQuote{
		Pincode:     pincode,
		Serviceable: false,
		Source:      SourceUnserviceable,
	}
}
