package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/followup/internal/version"
)

// Schema files live at store/migration/{driver}/LATEST.sql for fresh databases and
// store/migration/{driver}/{major.minor}/NN__description.sql for upgrades.
// The applied schema version is kept in system_setting under schemaVersionKey.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit separates the patch number from the description, e.g. "01__add_index.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the full schema applied to fresh installations.
	LatestSchemaFileName = "LATEST.sql"

	schemaVersionKey     = "schema_version"
	defaultSchemaVersion = "0.0.0"
)

// Migrate creates the schema on a fresh database and applies pending upgrade scripts otherwise.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	target := version.GetCurrentVersion(s.profile.Mode)

	if !initialized {
		if err := s.applyLatest(ctx); err != nil {
			return errors.Wrap(err, "failed to initialize schema")
		}
		slog.Info("database initialized", slog.String("schemaVersion", target))
		return s.updateSchemaVersion(ctx, target)
	}

	current, err := s.getSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get schema version")
	}
	if version.IsVersionGreaterThan(current, target) {
		return errors.Errorf("cannot downgrade schema version from %s to %s", current, target)
	}
	if !version.IsVersionGreaterThan(target, current) {
		return nil
	}
	if err := s.applyMigrations(ctx, current, target); err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}
	return s.updateSchemaVersion(ctx, target)
}

func (s *Store) migrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

func (s *Store) applyLatest(ctx context.Context) error {
	filePath := s.migrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file %s", filePath)
	}
	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()
	if err := execute(ctx, tx, string(bytes)); err != nil {
		return errors.Wrapf(err, "failed to execute %s", filePath)
	}
	return tx.Commit()
}

// applyMigrations runs every upgrade script with current < version <= target in one transaction.
func (s *Store) applyMigrations(ctx context.Context, current, target string) error {
	filePaths, err := fs.Glob(migrationFS, s.migrationBasePath()+"*/*.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	applied := 0
	for _, filePath := range filePaths {
		fileVersion, err := schemaVersionOfScript(filePath)
		if err != nil {
			return err
		}
		if !shouldApplyMigration(fileVersion, current, target) {
			continue
		}
		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file %s", filePath)
		}
		slog.Info("applying migration", slog.String("file", filePath), slog.String("version", fileVersion))
		if err := execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filePath)
		}
		applied++
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}
	slog.Info("migration completed", slog.Int("migrationsApplied", applied), slog.String("targetSchemaVersion", target))
	return nil
}

func shouldApplyMigration(fileVersion, current, target string) bool {
	if current == "" {
		current = defaultSchemaVersion
	}
	return version.IsVersionGreaterThan(fileVersion, current) &&
		version.IsVersionGreaterOrEqualThan(target, fileVersion)
}

// schemaVersionOfScript maps "migration/sqlite/0.3/02__x.sql" to "0.3.2".
func schemaVersionOfScript(filePath string) (string, error) {
	dir, file := path.Split(filePath)
	minor := path.Base(strings.TrimSuffix(dir, "/"))
	parts := strings.SplitN(file, MigrateFileNameSplit, 2)
	if len(parts) != 2 {
		return "", errors.Errorf("invalid migration filename format: %s", file)
	}
	patch, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", errors.Wrapf(err, "migration filename must start with a number: %s", file)
	}
	return fmt.Sprintf("%s.%d", minor, patch), nil
}

func (s *Store) getSchemaVersion(ctx context.Context) (string, error) {
	var value string
	err := s.driver.GetDB().QueryRowContext(ctx,
		"SELECT value FROM system_setting WHERE name = '"+schemaVersionKey+"'").Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultSchemaVersion, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) updateSchemaVersion(ctx context.Context, schemaVersion string) error {
	if _, err := strconv.Atoi(strings.ReplaceAll(schemaVersion, ".", "")); err != nil {
		return errors.Errorf("invalid schema version %q", schemaVersion)
	}
	stmt := fmt.Sprintf(
		"INSERT INTO system_setting (name, value) VALUES ('%s', '%s') ON CONFLICT (name) DO UPDATE SET value = excluded.value",
		schemaVersionKey, schemaVersion)
	if _, err := s.driver.GetDB().ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to update schema version")
	}
	return nil
}

// execute runs each ';' terminated statement of script separately.
func execute(ctx context.Context, tx *sql.Tx, script string) error {
	for i, stmt := range splitSQL(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d", i+1)
		}
	}
	return nil
}

// splitSQL splits a schema script into statements, dropping "--" comment lines.
// Scripts must not contain ';' inside string literals.
func splitSQL(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
