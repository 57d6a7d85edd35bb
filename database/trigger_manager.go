package database

import (
	"fmt"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/utils"
	"gorm.io/gorm"
)

// WatchedTables are the tables whose writes feed db_changes.
var WatchedTables = []string{"rds", "employees", "profiles"}

type triggerSpec struct {
	name   string
	table  string
	action string
	row    string
}

func triggersFor(table string) []triggerSpec {
	return []triggerSpec{
		{name: table + "_after_insert", table: table, action: models.ActionInsert, row: "NEW"},
		{name: table + "_after_update", table: table, action: models.ActionUpdate, row: "NEW"},
		{name: table + "_after_delete", table: table, action: models.ActionDelete, row: "OLD"},
	}
}

func (t triggerSpec) createSQL(driver string) string {
	insert := fmt.Sprintf(
		"INSERT INTO db_changes (table_name, record_id, action_type, changed_at, processed) VALUES ('%s', %s.id, '%s', CURRENT_TIMESTAMP, 0)",
		t.table, t.row, t.action)

	if driver == DriverMySQL {
		return fmt.Sprintf("CREATE TRIGGER %s AFTER %s ON %s FOR EACH ROW %s",
			t.name, t.action, t.table, insert)
	}
	return fmt.Sprintf("CREATE TRIGGER %s AFTER %s ON %s FOR EACH ROW BEGIN %s; END",
		t.name, t.action, t.table, insert)
}

// ExecuteTriggers (re)creates the change-feed triggers on every watched
// table. Statements that fail are logged and the rest still run; the first
// error is returned.
func ExecuteTriggers(db *gorm.DB, driver string) error {
	var first error
	for _, table := range WatchedTables {
		for _, t := range triggersFor(table) {
			stmts := []string{
				fmt.Sprintf("DROP TRIGGER IF EXISTS %s", t.name),
				t.createSQL(driver),
			}
			for _, stmt := range stmts {
				if err := db.Exec(stmt).Error; err != nil {
					utils.ErrorLogger.Errorf("Error executing trigger: %v\nStatement: %s", err, stmt)
					if first == nil {
						first = fmt.Errorf("trigger %s: %w", t.name, err)
					}
				}
			}
		}
	}
	if first == nil {
		utils.InfoLogger.Infof("change-feed triggers installed on %v", WatchedTables)
	}
	return first
}
