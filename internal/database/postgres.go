package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"pincode_service/internal/metrics"
	"pincode_service/internal/model"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

//go:generate mockgen -source=postgres.go -destination=./mocks/storage_mock.go -package=mocks Storage

// ErrPincodeNotFound означает, что индекса нет в таблице покрытия.
// Резолвер отличает его от транзиентных ошибок БД: на "не найдено" можно
// переходить к классификации по префиксу, на любую другую ошибку - нельзя.
var ErrPincodeNotFound = errors.New("индекс не найден в таблице покрытия")

// Storage определяет интерфейс хранилища покрытия индексов.
type Storage interface {
	FindByPincode(ctx context.Context, pincode string) (*model.PincodeRecord, error)
	UpsertPincode(ctx context.Context, rec *model.PincodeRecord) error
	ReplaceAll(ctx context.Context, recs []model.PincodeRecord) error
	GetAllPincodes(ctx context.Context) ([]model.PincodeRecord, error)
	Close() error
}

// postgresStorage обеспечивает взаимодействие с базой данных PostgreSQL.
// Это конкретная реализация интерфейса Storage.
type postgresStorage struct {
	db     *sqlx.DB
	tracer trace.Tracer // Для трассировки
}

// New создает подключение к БД, применяет миграции и возвращает
// экземпляр, реализующий интерфейс Storage.
func New(dbURL, migrationsPath string) (Storage, error) {
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	// Запуск миграций
	if err := runMigrations(dbURL, migrationsPath); err != nil {
		return nil, fmt.Errorf("ошибка применения миграций: %w", err)
	}

	return &postgresStorage{
		db:     db,
		tracer: otel.Tracer("postgres-storage"), // Инициализация трейсера
	}, nil
}

// runMigrations выполняет миграции БД до последней версии.
func runMigrations(dbURL, migrationsPath string) error {
	log.Println("Поиск и применение миграций...")

	// Важно: 'file://' префикс
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dbURL)
	if err != nil {
		return fmt.Errorf("не удалось создать экземпляр миграции: %w", err)
	}

	// Применяем миграции "вверх"
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("не удалось выполнить миграции: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("не удалось получить версию миграции: %w", err)
	}

	if dirty {
		log.Printf("БД в 'грязном' состоянии (dirty). Версия: %d. Рекомендуется проверка.", version)
	}

	log.Printf("Миграции успешно применены. Текущая версия БД: %d", version)
	return nil
}

// FindByPincode ищет точную запись покрытия по индексу.
// Возвращает ErrPincodeNotFound, если записи нет; формат индекса
// здесь не перепроверяется - это забота резолвера.
func (s *postgresStorage) FindByPincode(ctx context.Context, pincode string) (*model.PincodeRecord, error) {
	// Создаем span для трассировки
	ctx, span := s.tracer.Start(ctx, "DB.FindByPincode")
	defer span.End()

	var rec model.PincodeRecord
	query := `SELECT pincode, state, district, delivery_available, cod_available FROM pincodes WHERE pincode = $1`

	if err := s.db.GetContext(ctx, &rec, query, pincode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Пустая таблица или отсутствующий индекс - это штатный промах,
			// а не ошибка хранилища.
			return nil, ErrPincodeNotFound
		}
		metrics.DBErrors.WithLabelValues("find_pincode").Inc() // Метрика ошибки
		return nil, fmt.Errorf("не удалось получить запись покрытия: %w", err)
	}

	return &rec, nil
}

// UpsertPincode вставляет или обновляет одну запись покрытия (фид обновлений).
func (s *postgresStorage) UpsertPincode(ctx context.Context, rec *model.PincodeRecord) error {
	ctx, span := s.tracer.Start(ctx, "DB.UpsertPincode")
	defer span.End()

	query := `INSERT INTO pincodes (pincode, state, district, delivery_available, cod_available)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pincode) DO UPDATE SET
			state = EXCLUDED.state,
			district = EXCLUDED.district,
			delivery_available = EXCLUDED.delivery_available,
			cod_available = EXCLUDED.cod_available`

	if _, err := s.db.ExecContext(ctx, query, rec.Pincode, rec.State, rec.District, rec.DeliveryAvailable, rec.CodAvailable); err != nil {
		metrics.DBErrors.WithLabelValues("upsert_pincode").Inc() // Метрика ошибки
		return fmt.Errorf("ошибка сохранения записи покрытия: %w", err)
	}

	return nil
}

// ReplaceAll целиком заменяет таблицу покрытия в одной транзакции
// (периодическое обновление данных от курьера: delete-all + reinsert).
// Дубликаты индексов внутри батча игнорируются: побеждает первая запись.
func (s *postgresStorage) ReplaceAll(ctx context.Context, recs []model.PincodeRecord) (err error) {
	ctx, span := s.tracer.Start(ctx, "DB.ReplaceAll")
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}

	// Используем defer с функцией, чтобы корректно обработать panic и ошибки
	defer func() {
		if p := recover(); p != nil {
			// Если была паника, откатываем
			_ = tx.Rollback()
			panic(p) // Восстанавливаем панику
		} else if err != nil {
			// Если функция завершилась с ошибкой, откатываем
			// Логгируем ошибку отката, если она не sql.ErrTxDone
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Printf("Ошибка отката транзакции (после ошибки: %v): %v", err, rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM pincodes`); err != nil {
		metrics.DBErrors.WithLabelValues("replace_all").Inc()
		return fmt.Errorf("ошибка очистки таблицы покрытия: %w", err)
	}

	insertQuery := `INSERT INTO pincodes (pincode, state, district, delivery_available, cod_available)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pincode) DO NOTHING`

	for _, rec := range recs {
		if _, err = tx.ExecContext(ctx, insertQuery, rec.Pincode, rec.State, rec.District, rec.DeliveryAvailable, rec.CodAvailable); err != nil {
			metrics.DBErrors.WithLabelValues("replace_all").Inc()
			return fmt.Errorf("ошибка вставки записи покрытия %s: %w", rec.Pincode, err)
		}
	}

	// Если все успешно, коммитим. Ошибка (nil или реальная) будет возвращена.
	err = tx.Commit()
	return err
}

// GetAllPincodes извлекает все записи покрытия (для прогрева кэша).
func (s *postgresStorage) GetAllPincodes(ctx context.Context) ([]model.PincodeRecord, error) {
	// Создаем span для трассировки
	ctx, span := s.tracer.Start(ctx, "DB.GetAllPincodes")
	defer span.End()

	var recs []model.PincodeRecord
	query := `SELECT pincode, state, district, delivery_available, cod_available FROM pincodes ORDER BY pincode`

	if err := s.db.SelectContext(ctx, &recs, query); err != nil {
		metrics.DBErrors.WithLabelValues("get_all").Inc() // Метрика ошибки
		return nil, fmt.Errorf("ошибка получения всех записей покрытия: %w", err)
	}

	return recs, nil
}

// Close закрывает соединение с БД.
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
