package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tdtp-bulk/pkg/adapters/mssql"
	"github.com/ruslano69/tdtp-bulk/pkg/bulk"
)

// Config описывает одну загрузку файла в таблицу SQL Server
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Load      LoadConfig      `yaml:"load"`
	Source    SourceConfig    `yaml:"source"`
	ResultLog ResultLogConfig `yaml:"result_log,omitempty"`
}

// DatabaseConfig содержит параметры подключения к SQL Server
type DatabaseConfig struct {
	DSN         string `yaml:"dsn,omitempty"`          // Готовая строка подключения (приоритет над остальными полями)
	Host        string `yaml:"host,omitempty"`         // Хост сервера
	Port        int    `yaml:"port,omitempty"`         // Порт (по умолчанию 1433)
	Instance    string `yaml:"instance,omitempty"`     // Именованный экземпляр, например SQLEXPRESS
	Database    string `yaml:"database,omitempty"`     // Имя базы данных
	User        string `yaml:"user,omitempty"`         // Пользователь
	Password    string `yaml:"password,omitempty"`     // Пароль
	Schema      string `yaml:"schema,omitempty"`       // Схема для имен без схемы (по умолчанию dbo)
	WindowsAuth bool   `yaml:"windows_auth,omitempty"` // Windows-аутентификация
	Encrypt     string `yaml:"encrypt,omitempty"`      // disable | false | true
	MaxConns    int    `yaml:"max_conns,omitempty"`    // Размер пула соединений

	MaxIdleConns    int `yaml:"max_idle_conns,omitempty"`    // Простаивающих соединений в пуле
	ConnMaxLifetime int `yaml:"conn_max_lifetime,omitempty"` // Время жизни соединения в секундах
}

// LoadConfig содержит параметры массовой вставки
type LoadConfig struct {
	Table             string   `yaml:"table"`                         // Целевая таблица, schema.table
	BatchSize         int      `yaml:"batch_size,omitempty"`          // Строк в пакете (по умолчанию 5000)
	KilobytesPerBatch int      `yaml:"kilobytes_per_batch,omitempty"` // Объем пакета в КБ
	CheckConstraints  bool     `yaml:"check_constraints,omitempty"`   // Проверять ограничения
	FireTriggers      bool     `yaml:"fire_triggers,omitempty"`       // Выполнять триггеры
	KeepNulls         bool     `yaml:"keep_nulls,omitempty"`          // Сохранять NULL вместо значений по умолчанию
	Tablock           bool     `yaml:"tablock,omitempty"`             // Блокировка таблицы на время загрузки
	Order             []string `yaml:"order,omitempty"`               // Колонки, по которым отсортирован файл
	Timeout           int      `yaml:"timeout,omitempty"`             // Таймаут в секундах (по умолчанию 300)
}

// SourceConfig описывает входной файл
type SourceConfig struct {
	Path      string `yaml:"path"`                // Путь к файлу (csv может быть сжат: .gz, .zst)
	Format    string `yaml:"format,omitempty"`    // csv | xlsx (по умолчанию по расширению)
	Sheet     string `yaml:"sheet,omitempty"`     // Лист xlsx (по умолчанию первый)
	Delimiter string `yaml:"delimiter,omitempty"` // Разделитель csv (по умолчанию ",")
	Null      string `yaml:"null,omitempty"`      // Значение, означающее NULL (пустая ячейка всегда NULL)
}

// ResultLogConfig определяет параметры публикации результата загрузки
// Позволяет оркестратору отслеживать состояния через Redis (GET/SUBSCRIBE)
type ResultLogConfig struct {
	Type     string `yaml:"type"`               // Тип: redis (пустое = отключено)
	Address  string `yaml:"address,omitempty"`  // Адрес Redis, например "127.0.0.1:6379"
	Name     string `yaml:"name,omitempty"`     // Имя результата (ключ/канал), например "ORDERS_DAILY"
	Password string `yaml:"password,omitempty"` // Пароль Redis (опционально)
	DB       int    `yaml:"db,omitempty"`       // Индекс базы данных Redis (по умолчанию 0)
	TTL      int    `yaml:"ttl,omitempty"`      // TTL ключа в секундах (по умолчанию 3600)
}

// Read читает и разбирает YAML файл без проверки.
// Вызывающий код, переопределяющий поля (флаги CLI), проверяет конфигурацию сам.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

// Load загружает конфигурацию из YAML файла, проверяет ее и заполняет значения по умолчанию
func Load(path string) (*Config, error) {
	config, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.SetDefaults()

	return config, nil
}

// Save сохраняет конфигурацию в YAML файл
func Save(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Sample возвращает шаблон конфигурации для -create-config
func Sample() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     1433,
			Database: "mydb",
			User:     "sa",
			Password: "YourPassword123",
			Encrypt:  "disable",
		},
		Load: LoadConfig{
			Table:     "dbo.Orders",
			BatchSize: bulk.DefaultBatchSize,
			Timeout:   300,
		},
		Source: SourceConfig{
			Path:      "orders.csv",
			Format:    "csv",
			Delimiter: ",",
		},
		ResultLog: ResultLogConfig{
			Type:    "",
			Address: "127.0.0.1:6379",
			Name:    "ORDERS_LOAD",
			TTL:     3600,
		},
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Load.Validate(); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.ResultLog.Validate(); err != nil {
		return fmt.Errorf("result_log: %w", err)
	}
	return nil
}

// Validate проверяет корректность DatabaseConfig
func (d *DatabaseConfig) Validate() error {
	if d.MaxIdleConns < 0 || d.ConnMaxLifetime < 0 {
		return fmt.Errorf("max_idle_conns and conn_max_lifetime must not be negative")
	}
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" {
		return fmt.Errorf("host or dsn is required")
	}
	if d.Database == "" {
		return fmt.Errorf("database is required")
	}
	if !d.WindowsAuth && d.User == "" {
		return fmt.Errorf("user is required unless windows_auth is set")
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("invalid port %d", d.Port)
	}
	switch d.Encrypt {
	case "", "disable", "false", "true":
	default:
		return fmt.Errorf("unsupported encrypt '%s', must be one of: disable, false, true", d.Encrypt)
	}
	return nil
}

// Validate проверяет корректность LoadConfig
func (l *LoadConfig) Validate() error {
	if l.Table == "" {
		return fmt.Errorf("table is required")
	}
	if _, table := mssql.SplitTableName(l.Table); table == "" {
		return fmt.Errorf("invalid table name '%s'", l.Table)
	}
	if l.BatchSize < 0 {
		return fmt.Errorf("batch_size must be positive, got %d", l.BatchSize)
	}
	if l.KilobytesPerBatch < 0 {
		return fmt.Errorf("kilobytes_per_batch must be positive, got %d", l.KilobytesPerBatch)
	}
	if l.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %d", l.Timeout)
	}
	return nil
}

// Validate проверяет корректность SourceConfig
func (s *SourceConfig) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("path is required")
	}
	format, err := s.ResolveFormat()
	if err != nil {
		return err
	}
	if format == "xlsx" && s.Compression() != "" {
		return fmt.Errorf("compressed %s files are not supported, only csv can be compressed", format)
	}
	if s.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(s.Delimiter)
		if size != len(s.Delimiter) || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
			return fmt.Errorf("invalid delimiter %q", s.Delimiter)
		}
	}
	return nil
}

// Validate проверяет корректность ResultLogConfig
func (r *ResultLogConfig) Validate() error {
	if r.Type == "" || r.Type == "none" {
		return nil
	}
	if r.Type != "redis" {
		return fmt.Errorf("unsupported type '%s', must be 'redis'", r.Type)
	}
	if r.Address == "" {
		return fmt.Errorf("address is required when type is 'redis'")
	}
	if r.Name == "" {
		return fmt.Errorf("name is required when type is 'redis'")
	}
	return nil
}

// SetDefaults устанавливает значения по умолчанию для необязательных полей
func (c *Config) SetDefaults() {
	if c.Database.DSN == "" && c.Database.Port == 0 && c.Database.Instance == "" {
		c.Database.Port = 1433
	}
	if c.Database.Schema == "" {
		c.Database.Schema = mssql.DefaultSchema
	}

	if c.Load.BatchSize == 0 {
		c.Load.BatchSize = bulk.DefaultBatchSize
	}
	if c.Load.Timeout == 0 {
		c.Load.Timeout = 300 // 5 минут
	}

	if c.Source.Format == "" {
		c.Source.Format, _ = c.Source.ResolveFormat()
	}
	if c.Source.Format == "csv" && c.Source.Delimiter == "" {
		c.Source.Delimiter = ","
	}

	if c.ResultLog.Type == "redis" && c.ResultLog.TTL == 0 {
		c.ResultLog.TTL = 3600 // 1 час
	}
}

// Compression возвращает сжатие файла по расширению: gzip, zstd или пустую строку.
func (s *SourceConfig) Compression() string {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".gz":
		return "gzip"
	case ".zst", ".zstd":
		return "zstd"
	}
	return ""
}

// ResolveFormat возвращает заданный формат или определяет его по расширению файла.
// Расширение сжатия не учитывается: orders.csv.gz имеет формат csv.
func (s *SourceConfig) ResolveFormat() (string, error) {
	format := strings.ToLower(s.Format)
	if format == "" {
		path := s.Path
		if s.Compression() != "" {
			path = strings.TrimSuffix(path, filepath.Ext(path))
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv", ".txt":
			format = "csv"
		case ".xlsx", ".xlsm":
			format = "xlsx"
		default:
			return "", fmt.Errorf("cannot detect format of '%s', set format: csv or xlsx", s.Path)
		}
	}
	if format != "csv" && format != "xlsx" {
		return "", fmt.Errorf("unsupported format '%s', must be one of: csv, xlsx", s.Format)
	}
	return format, nil
}

// BuildDSN формирует URL подключения go-mssqldb
func (d *DatabaseConfig) BuildDSN() string {
	if d.DSN != "" {
		return d.DSN
	}

	u := &url.URL{Scheme: "sqlserver", Host: d.Host}
	if d.Port > 0 {
		u.Host = d.Host + ":" + strconv.Itoa(d.Port)
	}
	if d.Instance != "" {
		u.Path = d.Instance
	}

	q := url.Values{}
	if d.Database != "" {
		q.Set("database", d.Database)
	}
	if d.Encrypt != "" {
		q.Set("encrypt", d.Encrypt)
	}
	if d.WindowsAuth {
		q.Set("integrated security", "SSPI")
	} else {
		u.User = url.UserPassword(d.User, d.Password)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// AdapterConfig преобразует секцию в mssql.Config
func (d *DatabaseConfig) AdapterConfig() mssql.Config {
	return mssql.Config{
		DSN:             d.BuildDSN(),
		Schema:          d.Schema,
		MaxConns:        d.MaxConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: time.Duration(d.ConnMaxLifetime) * time.Second,
	}
}

// TargetTable возвращает целевую таблицу со схемой по умолчанию.
func (c *Config) TargetTable() string {
	schema, table := mssql.SplitTableName(c.Load.Table)
	if schema == "" {
		schema = c.Database.Schema
	}
	return mssql.FullName(schema, table)
}

// TimeoutDuration возвращает таймаут загрузки, ноль означает без ограничения.
func (l *LoadConfig) TimeoutDuration() time.Duration {
	return time.Duration(l.Timeout) * time.Second
}

// Options преобразует секцию load в опции bulk.
func (l *LoadConfig) Options() []bulk.Option {
	var opts []bulk.Option
	if l.BatchSize > 0 {
		opts = append(opts, bulk.WithBatchSize(l.BatchSize))
	}
	if l.KilobytesPerBatch > 0 {
		opts = append(opts, bulk.WithKilobytesPerBatch(l.KilobytesPerBatch))
	}
	if l.CheckConstraints {
		opts = append(opts, bulk.WithCheckConstraints())
	}
	if l.FireTriggers {
		opts = append(opts, bulk.WithFireTriggers())
	}
	if l.KeepNulls {
		opts = append(opts, bulk.WithKeepNulls())
	}
	if l.Tablock {
		opts = append(opts, bulk.WithTablock())
	}
	if len(l.Order) > 0 {
		opts = append(opts, bulk.WithOrder(l.Order...))
	}
	return opts
}
