package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	schemaGlob     = "sql/schema/*.sql"
	schemaLockKey  = int64(10824702)
	schemaLockWait = 10 * time.Second
)

var (
	//go:embed sql/schema/*.sql
	schemaFS embed.FS

	schemaFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.sql$`)
)

type schemaStep struct {
	Version int64
	Name    string
	SQL     string
}

// EnsureSchema создаёт таблицы, которых ещё нет. Файлы схемы идемпотентны
// (CREATE ... IF NOT EXISTS) и применяются целиком при каждом старте;
// параллельные экземпляры сериализуются advisory-блокировкой.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errStoreNotInitialized
	}

	steps, err := loadSchemaFromFS(schemaFS)
	if err != nil {
		return err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Release()

	lockCtx, cancel := context.WithTimeout(ctx, schemaLockWait)
	defer cancel()
	if _, err := conn.Exec(lockCtx, "SELECT pg_advisory_lock($1)", schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", schemaLockKey)
	}()

	for _, step := range steps {
		if _, err := conn.Exec(ctx, step.SQL); err != nil {
			return fmt.Errorf("apply schema %d_%s: %w", step.Version, step.Name, err)
		}
	}

	return nil
}

func loadSchemaFromFS(fsys fs.FS) ([]schemaStep, error) {
	files, err := fs.Glob(fsys, schemaGlob)
	if err != nil {
		return nil, fmt.Errorf("list schema files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no schema files found")
	}

	seen := make(map[int64]string, len(files))
	steps := make([]schemaStep, 0, len(files))
	for _, file := range files {
		base := filepath.Base(file)
		matches := schemaFilePattern.FindStringSubmatch(base)
		if len(matches) != 3 {
			return nil, fmt.Errorf("invalid schema file name: %s", base)
		}

		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse schema version from %s: %w", base, err)
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate schema version %d: %s vs %s", version, prev, base)
		}
		seen[version] = base

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read schema file %s: %w", file, err)
		}
		sql := strings.TrimSpace(string(body))
		if sql == "" {
			return nil, fmt.Errorf("schema file is empty: %s", base)
		}
		if !strings.Contains(strings.ToUpper(sql), "IF NOT EXISTS") {
			return nil, fmt.Errorf("schema file must be idempotent (IF NOT EXISTS): %s", base)
		}

		steps = append(steps, schemaStep{Version: version, Name: matches[2], SQL: sql})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })
	return steps, nil
}
