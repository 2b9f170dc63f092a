package postgresql_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

var tables = []string{
	"payroll_audit_log",
	"payslip_amendments",
	"payslips",
	"payroll_runs",
	"salary_revisions",
	"salary_templates",
	"compensation_rules",
}

// newTestDB connects to TEST_DATABASE_URL, applies the schema and empties every
// table. Tests are skipped when the variable is not set.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolConfig{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "migrations", "000001_payroll_engine.up.sql"))
	require.NoError(t, err)
	_, err = db.Exec(ctx, string(schema))
	require.NoError(t, err)

	for _, table := range tables {
		_, err := db.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE")
		require.NoError(t, err)
	}
	return db
}
