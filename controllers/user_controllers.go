package controllers

import (
	"errors"
	"net/http"

	"github.com/ciclus/rd-dashboard/middlewares"
	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/repository"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
)

type UserController struct {
	Users *repository.UserRepository
	// AdminFunctionsEnabled turns on the privileged account deletion.
	AdminFunctionsEnabled bool
}

func NewUserController(users *repository.UserRepository, adminFunctions bool) *UserController {
	return &UserController{Users: users, AdminFunctionsEnabled: adminFunctions}
}

// Login accepts a registration number or an email and returns a JWT.
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Login    string `json:"login" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := uc.Users.Authenticate(c.Request.Context(), input.Login, input.Password)
	if err != nil {
		utils.InfoLogger.Warnf("failed login for %q from %s", input.Login, c.ClientIP())
		utils.RespondError(c, http.StatusUnauthorized, errors.New("matrícula ou senha inválidas"))
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Name, string(user.Role))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Infof("Login successful for %s (role=%s)", user.Registration, user.Role)
	utils.RespondJSON(c, http.StatusOK, "Login realizado", gin.H{
		"token": token,
		"user":  user,
		"views": services.NavigableViews(user.Role),
	})
}

// Logout revokes the token of the request.
func (uc *UserController) Logout(c *gin.Context) {
	utils.BlacklistToken(c.GetString(middlewares.CtxToken))
	utils.RespondJSON(c, http.StatusOK, "Sessão encerrada", nil)
}

func (uc *UserController) GetProfile(c *gin.Context) {
	user, err := uc.Users.Get(c.Request.Context(), c.GetString(middlewares.CtxUserID))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Perfil", user)
}

func (uc *UserController) GetAllUsers(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Usuários", uc.Users.List(c.Request.Context()))
}

type userRequest struct {
	Name         string          `json:"name" binding:"required"`
	Registration string          `json:"registration"`
	Email        string          `json:"email"`
	Password     string          `json:"password"`
	Role         models.UserRole `json:"role" binding:"required"`
	Team         string          `json:"team"`
}

func (uc *UserController) CreateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user := models.User{
		Name:         req.Name,
		Registration: req.Registration,
		Email:        req.Email,
		Role:         req.Role,
		Team:         req.Team,
	}
	if err := uc.Users.Create(c.Request.Context(), &user, req.Password); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Infof("user %s created by %s", user.Registration, c.GetString(middlewares.CtxUserID))
	utils.RespondJSON(c, http.StatusCreated, "Usuário criado", user)
}

func (uc *UserController) UpdateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user := models.User{ID: c.Param("id"), Name: req.Name, Role: req.Role, Team: req.Team}
	if err := uc.Users.Update(c.Request.Context(), user); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	updated, err := uc.Users.Get(c.Request.Context(), user.ID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Usuário atualizado", updated)
}

// DeleteUser removes an account. Without the privileged admin functions the
// request fails with 501 and code privileged_not_configured.
func (uc *UserController) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	target, err := uc.Users.Get(ctx, c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	if err := services.CheckUserDeletion(middlewares.CurrentActor(c), target, uc.AdminFunctionsEnabled); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if err := uc.Users.Delete(ctx, target.ID); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Infof("user %s deleted by %s", target.Registration, c.GetString(middlewares.CtxUserID))
	utils.RespondJSON(c, http.StatusOK, "Usuário excluído", nil)
}
