package services

import (
	"fmt"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/utils"
)

// CheckUserDeletion applies the rules for removing an account. Deletion
// needs the privileged admin functions to be configured; without them the
// request fails with utils.ErrPrivilegedNotConfigured, which callers report
// instead of treating as a fault.
func CheckUserDeletion(actor models.Actor, target models.User, privilegedEnabled bool) error {
	if actor.Role != models.RoleCCO {
		return fmt.Errorf("delete user: %w", utils.ErrForbidden)
	}
	if target.ID == actor.ID {
		return utils.NewValidationError("id", "Você não pode excluir a própria conta.")
	}
	if target.Registration == models.ReservedAdminRegistration {
		return utils.NewValidationError("id", "A conta de administrador padrão não pode ser excluída.")
	}
	if !privilegedEnabled {
		return utils.ErrPrivilegedNotConfigured
	}
	return nil
}
