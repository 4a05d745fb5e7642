package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/straye-as/quotebook-api/internal/config"
	"github.com/straye-as/quotebook-api/internal/database"
)

// newMockDB opens a gorm connection on sqlmock with ping monitoring on
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	mock.ExpectPing()
	db, err := database.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}))
	require.NoError(t, err)
	return db, mock
}

func TestHealthCheck(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectPing()
	require.NoError(t, database.HealthCheck(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection reset by peer"))
	err := database.HealthCheck(context.Background(), db)
	assert.EqualError(t, err, "connection reset by peer")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheckWithStats(t *testing.T) {
	db, mock := newMockDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(7)

	mock.ExpectPing()
	stats, err := database.HealthCheckWithStats(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.MaxOpenConns)
	assert.NotEmpty(t, stats.WaitDuration)

	mock.ExpectPing().WillReturnError(errors.New("database is shutting down"))
	stats, err = database.HealthCheckWithStats(context.Background(), db)
	assert.Error(t, err)
	assert.Nil(t, stats)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDialector(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"", "postgres"},
		{"postgres", "postgres"},
		{"sqlite", "sqlite"},
		{"mysql", "mysql"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.driver, func(t *testing.T) {
			dialector, err := database.Dialector(&config.DatabaseConfig{
				Driver: tt.driver,
				Host:   "localhost",
				Port:   5432,
				Name:   "quotebook",
				Path:   ":memory:",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, dialector.Name())
		})
	}

	_, err := database.Dialector(&config.DatabaseConfig{Driver: "sqlserver"})
	assert.Error(t, err)
}

func TestNewDatabase_SQLiteAutoMigrate(t *testing.T) {
	db, err := database.NewDatabase(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         "file::memory:",
		AutoMigrate:  true,
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections, "sqlite is limited to one connection")

	for _, table := range []string{"customers", "quotations", "invoices", "number_sequences", "settings", "activities"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
