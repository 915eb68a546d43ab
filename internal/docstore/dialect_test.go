package docstore

import (
	"strings"
	"testing"
	"time"
)

func TestPostgresBindNumbersPlaceholders(t *testing.T) {
	d := dialects[DriverPostgres]
	got := d.updateSQL()
	want := `UPDATE documents SET data = data || $1::jsonb WHERE collection = $2 AND id = $3`
	if got != want {
		t.Errorf("updateSQL = %q\nwant %q", got, want)
	}
}

func TestQuerySQLPerDialect(t *testing.T) {
	q := Where("user_id", "u1").OrderBy("created_at", Desc)
	cases := map[string]string{
		DriverSQLite:   `json_extract(data, '$.user_id') = ? ORDER BY json_extract(data, '$.created_at') DESC, id DESC`,
		DriverMySQL:    `data->>'$.user_id' = ? ORDER BY data->>'$.created_at' DESC, id DESC`,
		DriverPostgres: `data->>'user_id' = $2 ORDER BY data->>'created_at' DESC, id DESC`,
	}
	for driver, fragment := range cases {
		query, args := dialects[driver].querySQL(q)
		if !strings.Contains(query, fragment) {
			t.Errorf("%s: query %q missing %q", driver, query, fragment)
		}
		if len(args) != 1 || args[0] != "u1" {
			t.Errorf("%s: args = %v", driver, args)
		}
	}
}

func TestMySQLDSNFoundRows(t *testing.T) {
	dsn, err := dialects[DriverMySQL].dsn("scribe:pw@tcp(localhost:3306)/scribe")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	if !strings.Contains(dsn, "clientFoundRows=true") {
		t.Errorf("dsn %q missing clientFoundRows", dsn)
	}
}

func TestSQLiteDSNAppendsPragmas(t *testing.T) {
	dsn, _ := dialects[DriverSQLite].dsn("file:scribe.db?cache=shared")
	if !strings.HasPrefix(dsn, "file:scribe.db?cache=shared&_journal_mode=WAL") {
		t.Errorf("dsn = %q", dsn)
	}
}

func TestEncodeTimesFixedWidth(t *testing.T) {
	a := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(250 * time.Millisecond)
	ea, _ := encode(Fields{"t": a})
	eb, _ := encode(Fields{"t": b})
	if len(ea) != len(eb) {
		t.Errorf("encoded lengths differ: %s vs %s", ea, eb)
	}
	if string(ea) >= string(eb) {
		t.Errorf("lexical order broken: %s >= %s", ea, eb)
	}
}
