package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MariaGenerationRepo реализует GenerationRepo для базы данных MariaDB/MySQL.
// Использует таблицу world_generations, конфигурация и статистика хранятся как JSON.
type MariaGenerationRepo struct {
	db *sql.DB
}

// NewMariaGenerationRepo создает новый репозиторий поколений для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения (user:pass@tcp(host:port)/dbname?parseTime=true)
//
// parseTime=true обязателен: время создания читается в time.Time.
func NewMariaGenerationRepo(dsn string) (*MariaGenerationRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaGenerationRepo{db: db}

	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// createTable создает таблицу world_generations, если она не существует
func (r *MariaGenerationRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS world_generations (
			id          VARCHAR(36)   PRIMARY KEY,
			seed        INT UNSIGNED  NOT NULL,
			config      TEXT          NOT NULL,
			chunk_count INT           NOT NULL,
			stats       MEDIUMTEXT    NOT NULL,
			created_at  DATETIME(6)   NOT NULL,
			updated_at  DATETIME(6)   NOT NULL,
			INDEX idx_created_at (created_at)
		) ENGINE=InnoDB
	`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы world_generations: %w", err)
	}
	return nil
}

// Save сохраняет поколение.
// Использует INSERT ... ON DUPLICATE KEY UPDATE для обновления догруженных чанков.
func (r *MariaGenerationRepo) Save(ctx context.Context, rec GenerationRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	cfg, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("ошибка сериализации конфигурации: %w", err)
	}
	stats, err := json.Marshal(rec.Stats)
	if err != nil {
		return fmt.Errorf("ошибка сериализации статистики: %w", err)
	}

	query := `
		INSERT INTO world_generations (id, seed, config, chunk_count, stats, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			chunk_count = VALUES(chunk_count),
			stats       = VALUES(stats),
			updated_at  = VALUES(updated_at)
	`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Seed, string(cfg), rec.ChunkCount, string(stats), rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("ошибка сохранения поколения %s: %w", rec.ID, err)
	}
	return nil
}

// scanner общий интерфейс *sql.Row и *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (GenerationRecord, error) {
	var (
		rec   GenerationRecord
		cfg   string
		stats string
	)
	if err := s.Scan(&rec.ID, &rec.Seed, &cfg, &rec.ChunkCount, &stats, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return GenerationRecord{}, err
	}
	if err := json.Unmarshal([]byte(cfg), &rec.Config); err != nil {
		return GenerationRecord{}, fmt.Errorf("ошибка разбора конфигурации %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(stats), &rec.Stats); err != nil {
		return GenerationRecord{}, fmt.Errorf("ошибка разбора статистики %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Load загружает поколение по ID
func (r *MariaGenerationRepo) Load(ctx context.Context, id string) (GenerationRecord, bool, error) {
	query := `
		SELECT id, seed, config, chunk_count, stats, created_at, updated_at
		FROM world_generations
		WHERE id = ?
	`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return GenerationRecord{}, false, nil
	}
	if err != nil {
		return GenerationRecord{}, false, fmt.Errorf("ошибка загрузки поколения %s: %w", id, err)
	}
	return rec, true, nil
}

// List возвращает последние поколения
func (r *MariaGenerationRepo) List(ctx context.Context, limit int) ([]GenerationRecord, error) {
	query := `
		SELECT id, seed, config, chunk_count, stats, created_at, updated_at
		FROM world_generations
		ORDER BY created_at DESC, id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения списка поколений: %w", err)
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete удаляет поколение
func (r *MariaGenerationRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM world_generations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("ошибка удаления поколения %s: %w", id, err)
	}
	return nil
}

// Close закрывает соединение с базой данных
func (r *MariaGenerationRepo) Close() error {
	return r.db.Close()
}
