package cache

import (
	"context"
	db_mocks "pincode_service/internal/database/mocks"
	"pincode_service/internal/model"
	"pincode_service/internal/region"
	"pincode_service/internal/shipping"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestLRUCache_SetAndGet(t *testing.T) {
	cache := NewLRUCache(2)
	assertions := assert.New(t)
	ctx := context.Background()

	// 1. Добавить первый элемент
	cache.Set(ctx, "110001", "quote1")
	val, found := cache.Get(ctx, "110001")
	assertions.True(found)
	assertions.Equal("quote1", val)

	// 2. Добавить второй элемент
	cache.Set(ctx, "560001", "quote2")
	val, found = cache.Get(ctx, "560001")
	assertions.True(found)
	assertions.Equal("quote2", val)

	// 3. Проверить, что оба на месте
	val, found = cache.Get(ctx, "110001")
	assertions.True(found)
	assertions.Equal("quote1", val)
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache(2)
	assertions := assert.New(t)
	ctx := context.Background()

	cache.Set(ctx, "110001", "quote1")
	cache.Set(ctx, "560001", "quote2")

	// 4. Добавить третий элемент, "110001" (самый старый) должен вытесниться
	cache.Set(ctx, "500001", "quote3")

	// "110001" должен быть удален
	_, found := cache.Get(ctx, "110001")
	assertions.False(found, "110001 should be evicted")

	// "560001" и "500001" должны быть на месте
	val, found := cache.Get(ctx, "560001")
	assertions.True(found)
	assertions.Equal("quote2", val)

	val, found = cache.Get(ctx, "500001")
	assertions.True(found)
	assertions.Equal("quote3", val)
}

func TestLRUCache_UsageUpdatesOrder(t *testing.T) {
	cache := NewLRUCache(2)
	assertions := assert.New(t)
	ctx := context.Background()

	cache.Set(ctx, "110001", "quote1")
	cache.Set(ctx, "560001", "quote2") // "110001" - старый, "560001" - новый

	// 1. Используем "110001", он должен стать самым новым
	cache.Get(ctx, "110001")

	// 2. Добавляем "500001". Теперь "560001" (как самый старый) должен вытесниться
	cache.Set(ctx, "500001", "quote3")

	// "560001" должен быть удален
	_, found := cache.Get(ctx, "560001")
	assertions.False(found, "560001 should be evicted")

	// "110001" и "500001" на месте
	_, found = cache.Get(ctx, "110001")
	assertions.True(found)
	_, found = cache.Get(ctx, "500001")
	assertions.True(found)
}

func TestLRUCache_UpdateValue(t *testing.T) {
	cache := NewLRUCache(2)
	assertions := assert.New(t)
	ctx := context.Background()

	cache.Set(ctx, "110001", "quote1")
	val, found := cache.Get(ctx, "110001")
	assertions.True(found)
	assertions.Equal("quote1", val)

	// Обновляем значение
	cache.Set(ctx, "110001", "quote_new")
	val, found = cache.Get(ctx, "110001")
	assertions.True(found)
	assertions.Equal("quote_new", val)
}

func TestLRUCache_ZeroCapacity(t *testing.T) {
	// Кэш с 0 емкостью не должен ничего хранить
	cache := NewLRUCache(0)
	assertions := assert.New(t)
	ctx := context.Background()

	cache.Set(ctx, "110001", "quote1")
	_, found := cache.Get(ctx, "110001")
	assertions.False(found)
}

func TestWarmUp_PrecomputesQuotes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	classifier, err := region.NewClassifier(&region.Config{
		Regions: []model.RegionRate{
			{RegionKey: "north", Charge: 90, EstimatedDays: 3, CodAvailable: true},
		},
		PrefixRules: []region.PrefixRule{{Prefix: "1", Region: "north"}},
	})
	assert.NoError(t, err)

	mockStorage := db_mocks.NewMockStorage(ctrl)
	mockStorage.EXPECT().GetAllPincodes(gomock.Any()).Return([]model.PincodeRecord{
		{Pincode: "110001", DeliveryAvailable: true, CodAvailable: true},
		{Pincode: "110099", DeliveryAvailable: false},
	}, nil)

	resolver := shipping.NewResolver(mockStorage, classifier, time.Second)
	cache := NewLRUCache(10)

	err = WarmUp(ctx, mockStorage, resolver, cache)
	assert.NoError(t, err)

	val, found := cache.Get(ctx, "110001")
	assert.True(t, found)
	quote := val.(*model.ShippingQuote)
	assert.True(t, quote.Serviceable)
	assert.Equal(t, 90, quote.Charge)

	val, found = cache.Get(ctx, "110099")
	assert.True(t, found)
	quote = val.(*model.ShippingQuote)
	assert.False(t, quote.Serviceable)
}
