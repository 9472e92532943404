package generator

import (
	"fmt"
	"pincode_service/internal/model"

	"github.com/brianvoe/gofakeit/v6"
)

// Штаты для правдоподобных тестовых записей покрытия.
var states = []string{
	"Telangana", "Andhra Pradesh", "Karnataka", "Tamil Nadu", "Kerala",
	"Maharashtra", "Gujarat", "Rajasthan", "Delhi", "Uttar Pradesh",
	"West Bengal", "Odisha", "Assam", "Punjab", "Madhya Pradesh",
}

// NewPincodeRecord создает одну случайную запись покрытия.
// Эта функция инкапсулирует всю логику генерации тестовых данных.
func NewPincodeRecord() model.PincodeRecord {
	// Инициализируем gofakeit, если это еще не сделано (на всякий случай)
	gofakeit.Seed(0)

	// Индийские индексы начинаются с 1-8 (9 зарезервирована за армейской почтой)
	pincode := fmt.Sprintf("%d%05d", gofakeit.Number(1, 8), gofakeit.Number(0, 99999))

	// Примерно 9 из 10 индексов доставляемы; наложенный платеж
	// возможен только там, где есть доставка.
	deliveryAvailable := gofakeit.Number(1, 10) > 1
	codAvailable := deliveryAvailable && gofakeit.Bool()

	return model.PincodeRecord{
		Pincode:           pincode,
		State:             gofakeit.RandomString(states),
		District:          gofakeit.City(),
		DeliveryAvailable: deliveryAvailable,
		CodAvailable:      codAvailable,
	}
}
