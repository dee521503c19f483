package models

import (
	"time"
)

// Employee 员工档案（对应 employees 表）
type Employee struct {
	EmployeeID string    `json:"employee_id" db:"employee_id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Department string    `json:"department" db:"department"`
	Position   string    `json:"position" db:"position"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
