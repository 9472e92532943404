package shipping

import (
	"context"
	"errors"
	"pincode_service/internal/database"
	db_mocks "pincode_service/internal/database/mocks"
	"pincode_service/internal/model"
	"pincode_service/internal/region"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

// helperTestClassifier - классификатор с тарифами из тестового сценария:
// префикс "11" -> north (90/3/COD), "50" -> telangana, "5" -> south,
// спец-индекс 682551 (острова, 300/7/без COD), спец-индекс 744304 не обслуживается.
func helperTestClassifier(t *testing.T) *region.Classifier {
	classifier, err := region.NewClassifier(&region.Config{
		Regions: []model.RegionRate{
			{RegionKey: "telangana", Charge: 40, EstimatedDays: 2, CodAvailable: true},
			{RegionKey: "south", Charge: 60, EstimatedDays: 3, CodAvailable: true},
			{RegionKey: "north", Charge: 90, EstimatedDays: 3, CodAvailable: true},
		},
		PrefixRules: []region.PrefixRule{
			{Prefix: "50", Region: "telangana"},
			{Prefix: "5", Region: "south"},
			{Prefix: "1", Region: "north"},
			{Prefix: "11", Region: "north"},
		},
		SpecialCases: []model.SpecialCasePincode{
			{Pincode: "682551", Serviceable: true, Charge: 300, EstimatedDays: 7, CodAvailable: false},
			{Pincode: "744304", Serviceable: false},
		},
	})
	if err != nil {
		t.Fatalf("не удалось построить тестовый классификатор: %v", err)
	}
	return classifier
}

// setupResolverAndMocks - хелпер для инициализации резолвера и моков
func setupResolverAndMocks(t *testing.T) (*gomock.Controller, *Resolver, *db_mocks.MockStorage) {
	ctrl := gomock.NewController(t)
	mockStorage := db_mocks.NewMockStorage(ctrl)
	resolver := NewResolver(mockStorage, helperTestClassifier(t), 3*time.Second)
	return ctrl, resolver, mockStorage
}

func TestResolver_InvalidInput(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	// Невалидный вход не должен доходить до хранилища
	mockStorage.EXPECT().FindByPincode(gomock.Any(), gomock.Any()).Times(0)

	cases := []string{"abc12", "12345", "", "1234567", "56OOO1", "-12345", "012345"}
	for _, input := range cases {
		quote, err := resolver.Resolve(context.Background(), input)
		assert.Nil(t, quote, "вход %q", input)
		assert.ErrorIs(t, err, ErrInvalidPincode, "вход %q", input)
	}
}

func TestResolver_TrimsWhitespace(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	mockStorage.EXPECT().FindByPincode(gomock.Any(), "110001").Return(nil, database.ErrPincodeNotFound)

	quote, err := resolver.Resolve(context.Background(), "  110001  ")
	assert.NoError(t, err)
	assert.Equal(t, "110001", quote.Pincode)
}

func TestResolver_ExactMatch_Serviceable(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	rec := &model.PincodeRecord{Pincode: "560001", State: "Karnataka", DeliveryAvailable: true, CodAvailable: true}
	mockStorage.EXPECT().FindByPincode(gomock.Any(), "560001").Return(rec, nil)

	quote, err := resolver.Resolve(context.Background(), "560001")
	assert.NoError(t, err)
	assert.True(t, quote.Serviceable)
	assert.True(t, quote.CodAvailable)
	assert.Equal(t, model.SourceExactMatch, quote.Source)
	// Тариф и срок берутся из регионального шаблона ("5" -> south)
	assert.Equal(t, 60, quote.Charge)
	assert.Equal(t, 3, quote.EstimatedDays)
}

func TestResolver_ExactMatch_RecordCodFlagOverridesRegionDefault(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	// Регион south дает COD по умолчанию, но запись его запрещает
	rec := &model.PincodeRecord{Pincode: "560001", DeliveryAvailable: true, CodAvailable: false}
	mockStorage.EXPECT().FindByPincode(gomock.Any(), "560001").Return(rec, nil)

	quote, err := resolver.Resolve(context.Background(), "560001")
	assert.NoError(t, err)
	assert.True(t, quote.Serviceable)
	assert.False(t, quote.CodAvailable, "флаг COD записи авторитетнее регионального default")
}

func TestResolver_ExactMatch_DeliveryUnavailable(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	rec := &model.PincodeRecord{Pincode: "560099", DeliveryAvailable: false, CodAvailable: false}
	mockStorage.EXPECT().FindByPincode(gomock.Any(), "560099").Return(rec, nil)

	quote, err := resolver.Resolve(context.Background(), "560099")
	assert.NoError(t, err, "'не обслуживается' - не ошибка, а легитимная котировка")
	assert.False(t, quote.Serviceable)
	assert.False(t, quote.CodAvailable)
	assert.Equal(t, 0, quote.Charge)
	assert.Equal(t, model.SourceUnserviceable, quote.Source)
}

func TestResolver_ExactMatch_NoRateTemplate(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	// Запись есть и доставляема, но ни одно правило не дает тариф -
	// цену не выдумываем
	rec := &model.PincodeRecord{Pincode: "900001", DeliveryAvailable: true, CodAvailable: true}
	mockStorage.EXPECT().FindByPincode(gomock.Any(), "900001").Return(rec, nil)

	quote, err := resolver.Resolve(context.Background(), "900001")
	assert.NoError(t, err)
	assert.False(t, quote.Serviceable)
}

func TestResolver_NotFound_SpecialCase(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	mockStorage.EXPECT().FindByPincode(gomock.Any(), "682551").Return(nil, database.ErrPincodeNotFound)

	quote, err := resolver.Resolve(context.Background(), "682551")
	assert.NoError(t, err)
	assert.True(t, quote.Serviceable)
	assert.Equal(t, 300, quote.Charge)
	assert.Equal(t, 7, quote.EstimatedDays)
	assert.False(t, quote.CodAvailable)
	assert.Equal(t, model.SourceSpecialCase, quote.Source)
}

func TestResolver_NotFound_PrefixFallback(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	mockStorage.EXPECT().FindByPincode(gomock.Any(), "110001").Return(nil, database.ErrPincodeNotFound)

	quote, err := resolver.Resolve(context.Background(), "110001")
	assert.NoError(t, err)
	assert.True(t, quote.Serviceable)
	assert.Equal(t, "north", quote.Region)
	assert.Equal(t, 90, quote.Charge)
	assert.Equal(t, 3, quote.EstimatedDays)
	assert.True(t, quote.CodAvailable)
	assert.Equal(t, model.SourceRegionPrefix, quote.Source)
}

func TestResolver_NotFound_UnknownPrefix(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	mockStorage.EXPECT().FindByPincode(gomock.Any(), "999999").Return(nil, database.ErrPincodeNotFound)

	quote, err := resolver.Resolve(context.Background(), "999999")
	assert.NoError(t, err)
	assert.False(t, quote.Serviceable)
	assert.Equal(t, model.SourceUnserviceable, quote.Source)
}

func TestResolver_NotFound_UnserviceableSpecialCase(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	mockStorage.EXPECT().FindByPincode(gomock.Any(), "744304").Return(nil, database.ErrPincodeNotFound)

	quote, err := resolver.Resolve(context.Background(), "744304")
	assert.NoError(t, err)
	assert.False(t, quote.Serviceable)
}

func TestResolver_TransientError_NotConflatedWithUnserviceable(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	// Таймаут похода в БД не должен превращаться ни в "не обслуживается",
	// ни в котировку по префиксу
	mockStorage.EXPECT().FindByPincode(gomock.Any(), "500067").Return(nil, context.DeadlineExceeded)

	quote, err := resolver.Resolve(context.Background(), "500067")
	assert.Nil(t, quote)
	assert.ErrorIs(t, err, ErrLookupUnavailable)
}

func TestResolver_StorageError(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	mockStorage.EXPECT().FindByPincode(gomock.Any(), "500067").Return(nil, errors.New("connection refused"))

	quote, err := resolver.Resolve(context.Background(), "500067")
	assert.Nil(t, quote)
	assert.ErrorIs(t, err, ErrLookupUnavailable)
}

func TestResolver_Idempotent(t *testing.T) {
	ctrl, resolver, mockStorage := setupResolverAndMocks(t)
	defer ctrl.Finish()

	mockStorage.EXPECT().FindByPincode(gomock.Any(), "110001").Return(nil, database.ErrPincodeNotFound).Times(2)

	first, err := resolver.Resolve(context.Background(), "110001")
	assert.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), "110001")
	assert.NoError(t, err)
	assert.Equal(t, first, second, "повторный вызов с тем же входом обязан дать идентичный результат")
}

func TestResolver_QuoteForRecord(t *testing.T) {
	ctrl, resolver, _ := setupResolverAndMocks(t)
	defer ctrl.Finish()

	// Прогрев кэша использует этот метод без похода в хранилище
	quote := resolver.QuoteForRecord(&model.PincodeRecord{Pincode: "500001", DeliveryAvailable: true, CodAvailable: true})
	assert.True(t, quote.Serviceable)
	assert.Equal(t, "telangana", quote.Region)
	assert.Equal(t, 40, quote.Charge)
	assert.Equal(t, model.SourceExactMatch, quote.Source)

	quote = resolver.QuoteForRecord(&model.PincodeRecord{Pincode: "500002", DeliveryAvailable: false})
	assert.False(t, quote.Serviceable)
}
