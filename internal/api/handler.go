package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"pincode_service/internal/cache"
	"pincode_service/internal/metrics"
	"pincode_service/internal/shipping"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// ShippingHandler обрабатывает HTTP-запросы расчета доставки.
type ShippingHandler struct {
	resolver shipping.RateResolver // Используем интерфейс
	cache    cache.Cache           // Используем интерфейс
}

// NewShippingHandler создает новый экземпляр ShippingHandler.
func NewShippingHandler(resolver shipping.RateResolver, cache cache.Cache) *ShippingHandler {
	return &ShippingHandler{resolver: resolver, cache: cache}
}

// GetRate считает котировку для индекса: сначала кэш, затем резолвер.
// Коды ответов: 400 - невалидный индекс, 503 - хранилище недоступно,
// 200 - котировка (в том числе с serviceable=false: это не ошибка,
// UI должен показать "не доставляем", а не "сервис сломан").
func (h *ShippingHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	// Метрики и трассировка
	handlerName := "GetRate"
	timer := prometheus.NewTimer(metrics.HttpRequestDuration.WithLabelValues(handlerName))
	defer timer.ObserveDuration() // Замеряем длительность запроса

	pincode := chi.URLParam(r, "pincode")
	if pincode == "" {
		respondWithError(w, http.StatusBadRequest, "Индекс не указан", handlerName)
		return
	}

	// Поиск в кэше. Передаем контекст (r.Context()) для трейсинга.
	if quote, found := h.cache.Get(r.Context(), pincode); found {
		log.Printf("КЭШ ХИТ: %s", pincode)
		metrics.CacheHits.Inc()
		metrics.HttpRequestsTotal.WithLabelValues(handlerName, "200").Inc()
		respondWithJSON(w, http.StatusOK, quote)
		return
	}

	log.Printf("КЭШ ПРОМАХ: %s. Запуск резолвера.", pincode)
	metrics.CacheMisses.Inc()

	// Передаем контекст (r.Context()) для трейсинга.
	quote, err := h.resolver.Resolve(r.Context(), pincode)
	if err != nil {
		switch {
		case errors.Is(err, shipping.ErrInvalidPincode):
			respondWithError(w, http.StatusBadRequest, "Некорректный формат индекса", handlerName)
		case errors.Is(err, shipping.ErrLookupUnavailable):
			// Транзиентная ошибка: не кэшируем, клиент может повторить запрос.
			log.Printf("Хранилище покрытия недоступно: %v", err)
			respondWithError(w, http.StatusServiceUnavailable, "Проверка индекса временно недоступна, попробуйте позже", handlerName)
		default:
			log.Printf("Ошибка расчета доставки: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Внутренняя ошибка сервиса", handlerName)
		}
		return
	}

	// Кэшируем только определившиеся котировки (ключ - канонический индекс).
	h.cache.Set(r.Context(), quote.Pincode, quote)
	log.Printf("Котировка для %s добавлена в кэш (source=%s).", quote.Pincode, quote.Source)

	metrics.HttpRequestsTotal.WithLabelValues(handlerName, "200").Inc()
	respondWithJSON(w, http.StatusOK, quote)
}

// respondWithJSON вспомогательная функция для отправки JSON-ответов.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string, handlerName string) {
	metrics.HttpRequestsTotal.WithLabelValues(handlerName, strconv.Itoa(code)).Inc()
	http.Error(w, message, code)
}
