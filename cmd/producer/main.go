package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"pincode_service/internal/generator"
	"pincode_service/internal/model"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Producer публикует записи покрытия курьера в Kafka:
// либо из CSV-файла выгрузки, либо сгенерированные для локальных прогонов.
type Producer struct {
	writer  *kafka.Writer
	records []model.PincodeRecord // Записи из CSV (пусто, если файла нет)
	batchID string                // Идентификатор партии загрузки
}

// NewProducer создает и настраивает новый экземпляр продюсера.
func NewProducer(brokers []string, topic, csvPath string) (*Producer, error) {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	p := &Producer{writer: writer, batchID: uuid.New().String()}

	records, err := loadCoverageCSV(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Файл %s не найден, будут генерироваться случайные записи.", csvPath)
			return p, nil
		}
		return nil, fmt.Errorf("ошибка чтения файла покрытия: %w", err)
	}

	p.records = records
	return p, nil
}

// loadCoverageCSV читает выгрузку курьера:
// pincode,state,district,delivery_available,cod_available.
// Документированная политика загрузчика: при дубликатах индекса
// в файле побеждает первая встреченная строка.
func loadCoverageCSV(path string) ([]model.PincodeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("не удалось разобрать CSV: %w", err)
	}

	seen := make(map[string]bool)
	var records []model.PincodeRecord
	for i, row := range rows {
		if i == 0 && strings.EqualFold(row[0], "pincode") {
			continue // Заголовок
		}
		if len(row) < 5 {
			log.Printf("Строка %d: ожидается 5 колонок, пропускаем.", i+1)
			continue
		}

		pincode := strings.TrimSpace(row[0])
		if seen[pincode] {
			log.Printf("Дубликат индекса %s в файле, используется первая строка.", pincode)
			continue
		}
		seen[pincode] = true

		records = append(records, model.PincodeRecord{
			Pincode:           pincode,
			State:             strings.TrimSpace(row[1]),
			District:          strings.TrimSpace(row[2]),
			DeliveryAvailable: parseFlag(row[3]),
			CodAvailable:      parseFlag(row[4]),
		})
	}

	log.Printf("Из файла загружено %d уникальных записей покрытия.", len(records))
	return records, nil
}

// parseFlag понимает флаги в том виде, в каком их присылает курьер.
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

// publish отправляет одну запись покрытия с заголовком партии.
func (p *Producer) publish(ctx context.Context, rec model.PincodeRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.Pincode),
		Value: value,
		Headers: []kafka.Header{
			{Key: "X-Batch-Id", Value: []byte(p.batchID)},
		},
	})
}

// Run публикует записи из файла и завершается; без файла - генерирует
// случайные записи по тикеру до остановки.
func (p *Producer) Run(ctx context.Context, interval time.Duration) {
	if len(p.records) > 0 {
		log.Printf("Публикация партии %s (%d записей)...", p.batchID, len(p.records))
		for _, rec := range p.records {
			if err := p.publish(ctx, rec); err != nil {
				log.Printf("Ошибка отправки записи %s: %v", rec.Pincode, err)
			}
		}
		log.Println("Партия опубликована.")
		return
	}

	log.Println("Продюсер запущен. Нажмите CTRL+C для остановки.")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Продюсер останавливается.")
			return
		case <-ticker.C:
			rec := generator.NewPincodeRecord()
			if err := p.publish(ctx, rec); err != nil {
				log.Printf("Ошибка отправки сообщения: %v", err)
			} else {
				fmt.Printf("Отправлена запись покрытия для индекса: %s\n", rec.Pincode)
			}
		}
	}
}

func (p *Producer) Close() {
	if err := p.writer.Close(); err != nil {
		log.Printf("Ошибка закрытия Kafka writer: %v", err)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	producer, err := NewProducer([]string{"localhost:9092"}, "pincode_coverage", "./data/coverage.csv")
	if err != nil {
		log.Fatalf("Не удалось создать продюсер: %v", err)
	}
	defer producer.Close()

	producer.Run(ctx, 2*time.Second)
}
