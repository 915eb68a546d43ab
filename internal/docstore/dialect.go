package docstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// dialect captures the SQL differences between the supported databases.
type dialect struct {
	name      string
	sqlDriver string
	schema    string
	// extract renders an expression yielding the text value of a top-level field.
	extract func(field string) string
	// merge renders the SET expression merging a JSON patch parameter into data.
	merge     string
	dsn       func(string) (string, error)
	duplicate func(error) bool
	numbered  bool
}

var dialects = map[string]*dialect{
	DriverSQLite: {
		name:      DriverSQLite,
		sqlDriver: "sqlite3",
		schema: `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);`,
		extract: func(field string) string { return "json_extract(data, '$." + field + "')" },
		merge:   "json_patch(data, ?)",
		dsn: func(dsn string) (string, error) {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			return dsn + sep + "_journal_mode=WAL&_busy_timeout=5000", nil
		},
		duplicate: func(err error) bool {
			var se sqlite3.Error
			return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
		},
	},
	DriverMySQL: {
		name:      DriverMySQL,
		sqlDriver: "mysql",
		schema: `
CREATE TABLE IF NOT EXISTS documents (
	collection VARCHAR(128) NOT NULL,
	id         VARCHAR(191) NOT NULL,
	data       JSON NOT NULL,
	PRIMARY KEY (collection, id)
);`,
		extract: func(field string) string { return "data->>'$." + field + "'" },
		merge:   "JSON_MERGE_PATCH(data, ?)",
		dsn: func(dsn string) (string, error) {
			cfg, err := mysql.ParseDSN(dsn)
			if err != nil {
				return "", fmt.Errorf("docstore: parse mysql dsn: %w", err)
			}
			// Update must report matched rows, not changed rows.
			cfg.ClientFoundRows = true
			return cfg.FormatDSN(), nil
		},
		duplicate: func(err error) bool {
			var me *mysql.MySQLError
			return errors.As(err, &me) && me.Number == 1062
		},
	},
	DriverPostgres: {
		name:      DriverPostgres,
		sqlDriver: "pgx",
		schema: `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	PRIMARY KEY (collection, id)
);`,
		extract:   func(field string) string { return "data->>'" + field + "'" },
		merge:     "data || ?::jsonb",
		dsn:       func(dsn string) (string, error) { return dsn, nil },
		duplicate: func(err error) bool {
			var pe *pgconn.PgError
			return errors.As(err, &pe) && pe.Code == "23505"
		},
		numbered: true,
	},
}

func lookupDialect(driver string) (*dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("docstore: unsupported driver %q", driver)
	}
	return d, nil
}

// bind rewrites ? placeholders to $n for dialects that number them.
func (d *dialect) bind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *dialect) insertSQL() string {
	return d.bind(`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`)
}

func (d *dialect) getSQL() string {
	return d.bind(`SELECT data FROM documents WHERE collection = ? AND id = ?`)
}

func (d *dialect) updateSQL() string {
	return d.bind(`UPDATE documents SET data = ` + d.merge + ` WHERE collection = ? AND id = ?`)
}

func (d *dialect) deleteSQL() string {
	return d.bind(`DELETE FROM documents WHERE collection = ? AND id = ?`)
}

// querySQL builds the filtered, ordered select. Field names are validated
// before they reach this point.
func (d *dialect) querySQL(q Query) (string, []any) {
	var b strings.Builder
	args := []any{}
	b.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)
	if q.field != "" {
		b.WriteString(` AND ` + d.extract(q.field) + ` = ?`)
		args = append(args, q.value)
	}
	dir := "ASC"
	if q.dir == Desc {
		dir = "DESC"
	}
	if q.orderBy != "" {
		b.WriteString(` ORDER BY ` + d.extract(q.orderBy) + ` ` + dir + `, id ` + dir)
	} else {
		b.WriteString(` ORDER BY id ` + dir)
	}
	return d.bind(b.String()), args
}
