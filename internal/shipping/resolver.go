package shipping

import (
	"context"
	"errors"
	"fmt"
	"pincode_service/internal/database"
	"pincode_service/internal/metrics"
	"pincode_service/internal/model"
	"pincode_service/internal/region"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

//go:generate mockgen -source=resolver.go -destination=./mocks/resolver_mock.go -package=mocks RateResolver

// RateResolver - контракт расчета доставки для HTTP-слоя.
type RateResolver interface {
	Resolve(ctx context.Context, rawPincode string) (*model.ShippingQuote, error)
}

var (
	// ErrInvalidPincode - вход не является корректным 6-значным индексом.
	// Локальная ошибка пользователя, ретраить бессмысленно.
	ErrInvalidPincode = errors.New("некорректный формат индекса")

	// ErrLookupUnavailable - хранилище покрытия временно недоступно
	// (сеть, таймаут). Намеренно отличается от "не обслуживается":
	// по таймауту нельзя ни блокировать валидный индекс, ни угадывать тариф.
	ErrLookupUnavailable = errors.New("сервис проверки индекса временно недоступен")
)

// Resolver - единственная точка расчета доставки для чекаута.
// Без состояния: повторные вызовы с тем же входом и неизменными данными
// дают идентичный результат.
type Resolver struct {
	storage       database.Storage
	classifier    *region.Classifier
	lookupTimeout time.Duration
	tracer        trace.Tracer // Для трассировки
}

// NewResolver создает резолвер с заданным таймаутом обращения к хранилищу.
func NewResolver(storage database.Storage, classifier *region.Classifier, lookupTimeout time.Duration) *Resolver {
	return &Resolver{
		storage:       storage,
		classifier:    classifier,
		lookupTimeout: lookupTimeout,
		tracer:        otel.Tracer("shipping-resolver"),
	}
}

// normalize приводит сырой ввод к каноническому виду и проверяет формат:
// ровно 6 цифр, без ведущего нуля (индийские индексы начинаются с 1-9).
// Никакого "дотягивания" до валидного значения - только явный отказ.
func normalize(raw string) (string, error) {
	pincode := strings.TrimSpace(raw)
	if len(pincode) != 6 {
		return "", fmt.Errorf("%w: ожидается 6 цифр, получено %q", ErrInvalidPincode, raw)
	}
	for _, ch := range pincode {
		if ch < '0' || ch > '9' {
			return "", fmt.Errorf("%w: недопустимый символ в %q", ErrInvalidPincode, raw)
		}
	}
	if pincode[0] == '0' {
		return "", fmt.Errorf("%w: индекс не может начинаться с нуля", ErrInvalidPincode)
	}
	return pincode, nil
}

// Resolve вычисляет котировку доставки для сырого пользовательского ввода.
// Контракт:
//  1. невалидный вход -> ErrInvalidPincode;
//  2. точная запись покрытия авторитетна (включая флаг наложенного платежа);
//  3. отсутствие записи -> классификация по спец-индексам и префиксам;
//  4. транзиентная ошибка хранилища -> ErrLookupUnavailable, без догадок.
//
// "Не обслуживается" - не ошибка, а легитимная котировка с Serviceable=false.
func (r *Resolver) Resolve(ctx context.Context, rawPincode string) (*model.ShippingQuote, error) {
	ctx, span := r.tracer.Start(ctx, "Resolver.Resolve")
	defer span.End()

	pincode, err := normalize(rawPincode)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// Точный поиск под таймаутом: классификатор чистый и быстрый,
	// блокироваться может только поход в БД.
	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	rec, err := r.storage.FindByPincode(lookupCtx, pincode)
	switch {
	case err == nil:
		quote := r.QuoteForRecord(rec)
		metrics.ResolutionsTotal.WithLabelValues(quote.Source).Inc()
		return quote, nil
	case errors.Is(err, database.ErrPincodeNotFound):
		// Штатный промах: решаем по статической конфигурации.
		quote := r.quoteFromClassifier(pincode)
		metrics.ResolutionsTotal.WithLabelValues(quote.Source).Inc()
		return quote, nil
	default:
		metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrLookupUnavailable, err)
	}
}

// QuoteForRecord строит котировку по точной записи покрытия.
// Тариф и срок берутся из шаблона классификатора (запись их не хранит),
// но флаг наложенного платежа записи всегда перекрывает региональный default.
// Экспортирован для прогрева кэша.
func (r *Resolver) QuoteForRecord(rec *model.PincodeRecord) *model.ShippingQuote {
	if !rec.DeliveryAvailable {
		return model.Unserviceable(rec.Pincode)
	}

	res := r.classifier.Classify(rec.Pincode)
	if !res.Serviceable {
		// Доставка заявлена, но тарифного шаблона нет - цену не выдумываем.
		return model.Unserviceable(rec.Pincode)
	}

	return &model.ShippingQuote{
		Pincode:       rec.Pincode,
		Serviceable:   true,
		Charge:        res.Rate.Charge,
		EstimatedDays: res.Rate.EstimatedDays,
		CodAvailable:  rec.CodAvailable, // авторитетный флаг записи
		Region:        res.Rate.RegionKey,
		Description:   res.Rate.Description,
		Source:        model.SourceExactMatch,
	}
}

// quoteFromClassifier строит котировку, когда точной записи нет.
func (r *Resolver) quoteFromClassifier(pincode string) *model.ShippingQuote {
	res := r.classifier.Classify(pincode)
	if !res.Serviceable {
		return model.Unserviceable(pincode)
	}

	source := model.SourceRegionPrefix
	if res.Kind == region.MatchSpecialCase {
		source = model.SourceSpecialCase
	}

	return &model.ShippingQuote{
		Pincode:       pincode,
		Serviceable:   true,
		Charge:        res.Rate.Charge,
		EstimatedDays: res.Rate.EstimatedDays,
		CodAvailable:  res.Rate.CodAvailable,
		Region:        res.Rate.RegionKey,
		Description:   res.Rate.Description,
		Source:        source,
	}
}
