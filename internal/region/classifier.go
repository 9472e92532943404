package region

import (
	"fmt"
	"log"
	"pincode_service/internal/model"
	"pincode_service/internal/validator"

	"github.com/ilyakaznacheev/cleanenv"
)

// PrefixRule связывает префикс индекса с ключом региона.
// Правила объявляются упорядоченным списком: при дубликатах префикса
// одинаковой длины побеждает первое объявленное правило, а более длинный
// префикс всегда приоритетнее более короткого.
type PrefixRule struct {
	Prefix string `yaml:"prefix" validate:"required,min=1,max=6,numeric"`
	Region string `yaml:"region" validate:"required"`
}

// Config - полная статическая конфигурация классификатора.
// Загружается один раз при старте; ошибки конфигурации фатальны,
// чтобы не обслуживать запросы по неверным тарифам.
type Config struct {
	Regions      []model.RegionRate         `yaml:"regions" validate:"required,min=1,dive"`
	PrefixRules  []PrefixRule               `yaml:"prefix_rules" validate:"required,min=1,dive"`
	SpecialCases []model.SpecialCasePincode `yaml:"special_cases" validate:"dive"`
}

// Classifier детерминированно сопоставляет индекс тарифному шаблону.
// Чистая структура без I/O: все данные неизменяемы после NewClassifier.
type Classifier struct {
	prefixes map[string]model.RegionRate
	specials map[string]model.SpecialCasePincode
}

// MatchKind - каким правилом классифицирован индекс.
type MatchKind int

const (
	MatchNone        MatchKind = iota // ни одно правило не подошло
	MatchSpecialCase                  // точное совпадение со спец-индексом
	MatchPrefix                       // совпадение по префиксу региона
)

// Result - результат классификации. Rate заполнен только при Serviceable=true.
type Result struct {
	Kind        MatchKind
	Serviceable bool
	Rate        model.RegionRate
}

// Load читает YAML-файл тарифов и строит классификатор.
func Load(path string) (*Classifier, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл тарифов %s: %w", path, err)
	}
	return NewClassifier(&cfg)
}

// NewClassifier валидирует конфигурацию и строит неизменяемые таблицы поиска.
func NewClassifier(cfg *Config) (*Classifier, error) {
	if err := validator.ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("невалидная конфигурация тарифов: %w", err)
	}

	regions := make(map[string]model.RegionRate, len(cfg.Regions))
	for _, r := range cfg.Regions {
		if _, exists := regions[r.RegionKey]; exists {
			return nil, fmt.Errorf("регион %q объявлен дважды", r.RegionKey)
		}
		regions[r.RegionKey] = r
	}

	prefixes := make(map[string]model.RegionRate, len(cfg.PrefixRules))
	for _, rule := range cfg.PrefixRules {
		rate, ok := regions[rule.Region]
		if !ok {
			return nil, fmt.Errorf("префикс %q ссылается на неизвестный регион %q", rule.Prefix, rule.Region)
		}
		if _, exists := prefixes[rule.Prefix]; exists {
			// Известный артефакт исходных данных: дубликаты префиксов.
			// Побеждает первое объявление, остальные только логируются.
			log.Printf("Предупреждение: дубликат префикса %q в тарифах, используется первое объявление.", rule.Prefix)
			continue
		}
		prefixes[rule.Prefix] = rate
	}

	specials := make(map[string]model.SpecialCasePincode, len(cfg.SpecialCases))
	for _, sc := range cfg.SpecialCases {
		if sc.Serviceable && (sc.Charge <= 0 || sc.EstimatedDays <= 0) {
			return nil, fmt.Errorf("спец-индекс %s обслуживается, но тариф не задан", sc.Pincode)
		}
		if _, exists := specials[sc.Pincode]; exists {
			log.Printf("Предупреждение: дубликат спец-индекса %s, используется первое объявление.", sc.Pincode)
			continue
		}
		specials[sc.Pincode] = sc
	}

	return &Classifier{prefixes: prefixes, specials: specials}, nil
}

// Classify сопоставляет синтаксически корректный 6-значный индекс тарифу.
// Порядок строго определен: сначала таблица спец-индексов, затем префиксы
// от самого длинного (весь индекс) к самому короткому (одна цифра).
// Если ничего не подошло - явный MatchNone, без тарифа "по умолчанию".
func (c *Classifier) Classify(pincode string) Result {
	if sc, ok := c.specials[pincode]; ok {
		if !sc.Serviceable {
			return Result{Kind: MatchSpecialCase, Serviceable: false}
		}
		return Result{
			Kind:        MatchSpecialCase,
			Serviceable: true,
			Rate: model.RegionRate{
				Charge:        sc.Charge,
				EstimatedDays: sc.EstimatedDays,
				CodAvailable:  sc.CodAvailable,
				Description:   sc.Description,
			},
		}
	}

	for l := len(pincode); l >= 1; l-- {
		if rate, ok := c.prefixes[pincode[:l]]; ok {
			return Result{Kind: MatchPrefix, Serviceable: true, Rate: rate}
		}
	}

	return Result{Kind: MatchNone}
}
