package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// List returns every profile ordered by name; failures yield an empty list.
func (r *UserRepository) List(ctx context.Context) []models.User {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		utils.ErrorLogger.Errorf("list users: %v", err)
		return []models.User{}
	}
	return users
}

func (r *UserRepository) Get(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return u, fmt.Errorf("user %s: %w", id, utils.ErrNotFound)
	}
	return u, err
}

// GetByLogin finds a user by registration number or login email.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (models.User, error) {
	login = strings.TrimSpace(login)
	var u models.User
	err := r.db.WithContext(ctx).
		Where("registration = ? OR email = ?", login, models.LoginEmail(login)).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return u, fmt.Errorf("user %s: %w", login, utils.ErrNotFound)
	}
	return u, err
}

// Create stores a new user with a bcrypt hash of password. The login email
// defaults to the registration at the company domain.
func (r *UserRepository) Create(ctx context.Context, u *models.User, password string) error {
	if !u.Role.Valid() {
		return utils.NewValidationError("role", fmt.Sprintf("perfil inválido: %q", u.Role))
	}
	if strings.TrimSpace(u.Registration) == "" || strings.TrimSpace(u.Name) == "" {
		return utils.NewValidationError("registration", "nome e matrícula são obrigatórios")
	}
	if len(password) < 6 {
		return utils.NewValidationError("password", "a senha deve ter pelo menos 6 caracteres")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Registration = strings.TrimSpace(u.Registration)
	if u.Email == "" {
		u.Email = models.LoginEmail(u.Registration)
	}
	u.Password = string(hashed)

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user %s: %w", u.Registration, err)
	}
	return nil
}

// Update changes the profile fields only: name, role and team.
func (r *UserRepository) Update(ctx context.Context, u models.User) error {
	if !u.Role.Valid() {
		return utils.NewValidationError("role", fmt.Sprintf("perfil inválido: %q", u.Role))
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"name": u.Name,
			"role": string(u.Role),
			"team": u.Team,
		})
	if res.Error != nil {
		return fmt.Errorf("update user %s: %w", u.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", u.ID, utils.ErrNotFound)
	}
	return nil
}

// Delete removes the account and its profile.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, utils.ErrNotFound)
	}
	return nil
}

// Authenticate checks a login and password pair.
func (r *UserRepository) Authenticate(ctx context.Context, login, password string) (models.User, error) {
	u, err := r.GetByLogin(ctx, login)
	if err != nil {
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}
	return u, nil
}

// EnsureAdmin creates the seed CCO account when it is missing. It reports
// whether an account was created; an existing one is left untouched.
func (r *UserRepository) EnsureAdmin(ctx context.Context, name, password string) (bool, error) {
	_, err := r.GetByLogin(ctx, models.ReservedAdminRegistration)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return false, err
	}
	u := &models.User{
		Name:         name,
		Registration: models.ReservedAdminRegistration,
		Role:         models.RoleCCO,
	}
	if err := r.Create(ctx, u, password); err != nil {
		return false, err
	}
	return true, nil
}
