package db

import (
	"embed"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParameterize(t *testing.T) {
	tpl := []byte(`
WITH args AS (
    SELECT
        '0501234567' AS Phone    /* @param */
        ,15 AS HereLimit         /* @param */
        ,date('2026-03-31') AS DateTo    /* @param */
)
SELECT * FROM customers c, args
WHERE c.phone = args.Phone;`)

	got, err := parameterize(tpl)
	if err != nil {
		t.Fatal(err)
	}
	wantParams := []string{"Phone", "HereLimit", "DateTo"}
	if diff := cmp.Diff(wantParams, got.Parameters); diff != "" {
		t.Errorf("parameter mismatch (-want +got):\n%s", diff)
	}
	for _, bind := range []string{":Phone AS Phone", ":HereLimit AS HereLimit", ":DateTo AS DateTo"} {
		if !strings.Contains(string(got.Body), bind) {
			t.Errorf("body missing bind %q:\n%s", bind, got.Body)
		}
	}
	if strings.Contains(string(got.Body), "@param") {
		t.Errorf("body retains @param markers:\n%s", got.Body)
	}
}

func TestParameterizeNoParams(t *testing.T) {
	tpl := []byte(`SELECT key, value FROM settings;`)
	got, err := parameterize(tpl)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Parameters) != 0 {
		t.Errorf("expected no parameters, got %v", got.Parameters)
	}
	if diff := cmp.Diff(string(tpl), string(got.Body)); diff != "" {
		t.Errorf("body should be unchanged (-want +got):\n%s", diff)
	}
}

//go:embed sql
var testSQLFS embed.FS

// TestParameterizeAllFiles checks that every registered statement file
// parses and that its extracted parameters are unique.
func TestParameterizeAllFiles(t *testing.T) {
	sqlFS, err := fs.Sub(testSQLFS, "sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, filePath := range statementFiles {
		query, err := ParameterizeFile(sqlFS, filePath)
		if err != nil {
			t.Errorf("%s: %v", filePath, err)
			continue
		}
		seen := map[string]bool{}
		for _, p := range query.Parameters {
			if seen[p] {
				t.Errorf("%s: duplicate parameter %q", filePath, p)
			}
			seen[p] = true
		}
	}
}
