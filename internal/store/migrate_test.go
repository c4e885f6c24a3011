// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package store

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatrent/flatrent/pkg/errutil"
)

// mockMigrate implements migrateIface for testing.
type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	forced         int
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Steps(_ int) error            { return m.stepsErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func (m *mockMigrate) Force(v int) error {
	m.forced = v
	return m.forceErr
}

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("badscheme://localhost:5432/testdb")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/flatrent":   "pgx5://u:p@db:5432/flatrent",
		"postgresql://u:p@db:5432/flatrent": "pgx5://u:p@db:5432/flatrent",
		"pgx5://u:p@db:5432/flatrent":       "pgx5://u:p@db:5432/flatrent",
	}
	for in, want := range tests {
		assert.Equal(t, want, migrateURL(in), in)
	}
}

func TestMigrator_ErrorMapping(t *testing.T) {
	dbErr := errors.New("database locked")

	tests := []struct {
		name string
		mock *mockMigrate
		run  func(m *Migrator) error
		code string
	}{
		{"up ok", &mockMigrate{}, (*Migrator).Up, ""},
		{"up no change", &mockMigrate{upErr: migrate.ErrNoChange}, (*Migrator).Up, ""},
		{"up failure", &mockMigrate{upErr: dbErr}, (*Migrator).Up, "MIGRATION_UP_FAILED"},
		{"down no change", &mockMigrate{downErr: migrate.ErrNoChange}, (*Migrator).Down, ""},
		{"down failure", &mockMigrate{downErr: dbErr}, (*Migrator).Down, "MIGRATION_DOWN_FAILED"},
		{"steps no change", &mockMigrate{stepsErr: migrate.ErrNoChange}, func(m *Migrator) error { return m.Steps(0) }, ""},
		{"steps failure", &mockMigrate{stepsErr: dbErr}, func(m *Migrator) error { return m.Steps(2) }, "MIGRATION_STEPS_FAILED"},
		{"force negative", &mockMigrate{}, func(m *Migrator) error { return m.Force(-1) }, "INVALID_VERSION"},
		{"force failure", &mockMigrate{forceErr: dbErr}, func(m *Migrator) error { return m.Force(2) }, "MIGRATION_FORCE_FAILED"},
		{"close both", &mockMigrate{closeSourceErr: dbErr, closeDbErr: dbErr}, (*Migrator).Close, "MIGRATION_CLOSE_FAILED"},
		{"close source", &mockMigrate{closeSourceErr: dbErr}, (*Migrator).Close, "MIGRATION_CLOSE_FAILED"},
		{"close ok", &mockMigrate{}, (*Migrator).Close, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(&Migrator{m: tt.mock})
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestMigrator_Force_PassesVersion(t *testing.T) {
	mm := &mockMigrate{}
	require.NoError(t, (&Migrator{m: mm}).Force(2))
	assert.Equal(t, 2, mm.forced)
}

func TestMigrator_Version(t *testing.T) {
	t.Run("nil version is zero", func(t *testing.T) {
		v, dirty, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Version()
		require.NoError(t, err)
		assert.Zero(t, v)
		assert.False(t, dirty)
	})

	t.Run("dirty", func(t *testing.T) {
		v, dirty, err := (&Migrator{m: &mockMigrate{versionVal: 2, dirty: true}}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), v)
		assert.True(t, dirty)
	})

	t.Run("failure", func(t *testing.T) {
		_, _, err := (&Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}).Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Status(t *testing.T) {
	t.Run("partially applied", func(t *testing.T) {
		status, err := (&Migrator{m: &mockMigrate{versionVal: 2}}).Status()
		require.NoError(t, err)
		assert.Equal(t, uint(2), status.Version)
		assert.Equal(t, "000002_create_refresh_tokens", status.Name)
		assert.Equal(t, []uint{1, 2}, status.Applied)
		assert.Equal(t, []uint{3}, status.Pending)
	})

	t.Run("empty database", func(t *testing.T) {
		status, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Status()
		require.NoError(t, err)
		assert.Empty(t, status.Name)
		assert.Empty(t, status.Applied)
		assert.Equal(t, []uint{1, 2, 3}, status.Pending)
	})

	t.Run("version failure", func(t *testing.T) {
		_, err := (&Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}).Status()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrationName(t *testing.T) {
	name, err := MigrationName(1)
	require.NoError(t, err)
	assert.Equal(t, "000001_create_users", name)

	name, err = MigrationName(999)
	require.NoError(t, err)
	assert.Empty(t, name)
}
