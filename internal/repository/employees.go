package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"workpulse-insight/internal/models"

	"go.uber.org/zap"
)

// ErrEmployeeNotFound 员工不存在
var ErrEmployeeNotFound = errors.New("employee not found")

// EmployeesRepository 员工档案仓库
type EmployeesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeesRepository 创建员工档案仓库
func NewEmployeesRepository(db *sql.DB, logger *zap.Logger) *EmployeesRepository {
	return &EmployeesRepository{
		db:     db,
		logger: logger,
	}
}

// GetEmployee 根据 employee_id 获取员工
func (r *EmployeesRepository) GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("employee_id is required")
	}

	query := `
		SELECT
			employee_id,
			name,
			email,
			department,
			position,
			is_active,
			created_at,
			updated_at
		FROM employees
		WHERE employee_id = $1
	`

	var emp models.Employee
	err := r.db.QueryRowContext(ctx, query, employeeID).Scan(
		&emp.EmployeeID,
		&emp.Name,
		&emp.Email,
		&emp.Department,
		&emp.Position,
		&emp.IsActive,
		&emp.CreatedAt,
		&emp.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: employee_id=%s", ErrEmployeeNotFound, employeeID)
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return &emp, nil
}

// ListActiveEmployees 列出所有在职员工（批处理按此枚举）
func (r *EmployeesRepository) ListActiveEmployees(ctx context.Context) ([]*models.Employee, error) {
	query := `
		SELECT
			employee_id,
			name,
			email,
			department,
			position,
			is_active,
			created_at,
			updated_at
		FROM employees
		WHERE is_active = TRUE
		ORDER BY employee_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active employees: %w", err)
	}
	defer rows.Close()

	employees := []*models.Employee{}
	for rows.Next() {
		var emp models.Employee
		err := rows.Scan(
			&emp.EmployeeID,
			&emp.Name,
			&emp.Email,
			&emp.Department,
			&emp.Position,
			&emp.IsActive,
			&emp.CreatedAt,
			&emp.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, &emp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return employees, nil
}
