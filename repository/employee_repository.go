package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// List returns every employee ordered by name; failures yield an empty list.
func (r *EmployeeRepository) List(ctx context.Context) []models.Employee {
	var employees []models.Employee
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&employees).Error; err != nil {
		utils.ErrorLogger.Errorf("list employees: %v", err)
		return []models.Employee{}
	}
	return employees
}

func (r *EmployeeRepository) Get(ctx context.Context, id string) (models.Employee, error) {
	var e models.Employee
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return e, fmt.Errorf("employee %s: %w", id, utils.ErrNotFound)
	}
	return e, err
}

// Save creates e when it has no id and updates it otherwise.
func (r *EmployeeRepository) Save(ctx context.Context, e *models.Employee) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Name = strings.TrimSpace(e.Name)
	e.Registration = strings.TrimSpace(e.Registration)
	e.Role = strings.TrimSpace(e.Role)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(e).Error
	if err != nil {
		return fmt.Errorf("save employee %s: %w", e.ID, err)
	}
	return nil
}

func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Employee{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete employee %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("employee %s: %w", id, utils.ErrNotFound)
	}
	return nil
}

// ExistingRoles merges the default job titles with those in use, sorted
// and without duplicates.
func (r *EmployeeRepository) ExistingRoles(ctx context.Context) []string {
	var used []string
	if err := r.db.WithContext(ctx).Model(&models.Employee{}).Distinct().Pluck("role", &used).Error; err != nil {
		utils.ErrorLogger.Errorf("list employee roles: %v", err)
	}

	seen := make(map[string]struct{})
	roles := make([]string, 0, len(models.DefaultJobRoles)+len(used))
	for _, role := range append(append([]string{}, models.DefaultJobRoles...), used...) {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
