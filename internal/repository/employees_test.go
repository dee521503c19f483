package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func employeeColumns() []string {
	return []string{
		"employee_id", "name", "email", "department", "position",
		"is_active", "created_at", "updated_at",
	}
}

func TestGetEmployee_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewEmployeesRepository(db, zap.NewNop())

	now := time.Now()
	rows := sqlmock.NewRows(employeeColumns()).
		AddRow("emp-001", "Nimal Perera", "nimal@example.com", "Engineering", "Developer", true, now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs("emp-001").
		WillReturnRows(rows)

	emp, err := repo.GetEmployee(context.Background(), "emp-001")

	require.NoError(t, err)
	assert.Equal(t, "emp-001", emp.EmployeeID)
	assert.Equal(t, "Nimal Perera", emp.Name)
	assert.Equal(t, "Engineering", emp.Department)
	assert.True(t, emp.IsActive)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEmployee_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewEmployeesRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT`).
		WithArgs("emp-missing").
		WillReturnError(sql.ErrNoRows)

	emp, err := repo.GetEmployee(context.Background(), "emp-missing")

	assert.Nil(t, emp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmployeeNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEmployee_EmptyID(t *testing.T) {
	db, _ := setupMockDB(t)
	defer db.Close()
	repo := NewEmployeesRepository(db, zap.NewNop())

	emp, err := repo.GetEmployee(context.Background(), "")

	assert.Nil(t, emp)
	assert.Error(t, err)
}

func TestListActiveEmployees_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewEmployeesRepository(db, zap.NewNop())

	now := time.Now()
	rows := sqlmock.NewRows(employeeColumns()).
		AddRow("emp-001", "Nimal Perera", "nimal@example.com", "Engineering", "Developer", true, now, now).
		AddRow("emp-002", "Kamala Silva", "kamala@example.com", "HR", "Manager", true, now, now)

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(rows)

	employees, err := repo.ListActiveEmployees(context.Background())

	require.NoError(t, err)
	assert.Len(t, employees, 2)
	assert.Equal(t, "emp-001", employees[0].EmployeeID)
	assert.Equal(t, "emp-002", employees[1].EmployeeID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveEmployees_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewEmployeesRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(sqlmock.NewRows(employeeColumns()))

	employees, err := repo.ListActiveEmployees(context.Background())

	require.NoError(t, err)
	assert.Len(t, employees, 0)

	assert.NoError(t, mock.ExpectationsWereMet())
}
