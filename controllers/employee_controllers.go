package controllers

import (
	"net/http"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/repository"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
)

type EmployeeController struct {
	Employees *repository.EmployeeRepository
}

func NewEmployeeController(employees *repository.EmployeeRepository) *EmployeeController {
	return &EmployeeController{Employees: employees}
}

func (ec *EmployeeController) GetAllEmployees(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Funcionários", ec.Employees.List(c.Request.Context()))
}

// GetRoles lists the job titles offered in the employee form.
func (ec *EmployeeController) GetRoles(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Funções", ec.Employees.ExistingRoles(c.Request.Context()))
}

type employeeRequest struct {
	Name         string `json:"name" binding:"required"`
	Registration string `json:"registration" binding:"required"`
	Role         string `json:"role" binding:"required"`
	SupervisorID string `json:"supervisorId"`
	ForemanID    string `json:"foremanId"`
	Team         string `json:"team"`
}

func (r employeeRequest) employee(id string) models.Employee {
	return models.Employee{
		ID:           id,
		Name:         r.Name,
		Registration: r.Registration,
		Role:         r.Role,
		SupervisorID: r.SupervisorID,
		ForemanID:    r.ForemanID,
		Team:         r.Team,
	}
}

func (ec *EmployeeController) CreateEmployee(c *gin.Context) {
	var req employeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	e := req.employee("")
	if err := ec.Employees.Save(c.Request.Context(), &e); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Funcionário cadastrado", e)
}

func (ec *EmployeeController) UpdateEmployee(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := ec.Employees.Get(ctx, c.Param("id")); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var req employeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	e := req.employee(c.Param("id"))
	if err := ec.Employees.Save(ctx, &e); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Funcionário atualizado", e)
}

func (ec *EmployeeController) DeleteEmployee(c *gin.Context) {
	if err := ec.Employees.Delete(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Funcionário removido", nil)
}
