package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/realtime"
	"github.com/ciclus/rd-dashboard/utils"
	"gorm.io/gorm"
)

// DefaultPollInterval is how often the change feed is read.
const DefaultPollInterval = 500 * time.Millisecond

const changeBatchSize = 100

// ChangeMonitor reads the db_changes feed written by the table triggers and
// publishes one notice per entry.
type ChangeMonitor struct {
	DB        *gorm.DB
	Publisher realtime.Publisher
	Interval  time.Duration

	started  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewChangeMonitor(db *gorm.DB, publisher realtime.Publisher, interval time.Duration) *ChangeMonitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ChangeMonitor{
		DB:        db,
		Publisher: publisher,
		Interval:  interval,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the polling loop. Later calls are no-ops.
func (cm *ChangeMonitor) Start() {
	if !cm.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(cm.done)
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.CheckChanges()
			case <-cm.stopChan:
				return
			}
		}
	}()
}

// Stop ends the polling loop and waits for the running pass to finish.
func (cm *ChangeMonitor) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopChan) })
	if cm.started.Load() {
		<-cm.done
	}
}

// CheckChanges processes one batch of pending entries and returns how many
// were published. Entries are marked processed in the same transaction.
func (cm *ChangeMonitor) CheckChanges() int {
	var changes []models.DBChange

	tx := cm.DB.Begin()
	if tx.Error != nil {
		utils.ErrorLogger.Errorf("Error starting change transaction: %v", tx.Error)
		return 0
	}

	if err := tx.Where("processed = ?", false).
		Order("id ASC").
		Limit(changeBatchSize).
		Find(&changes).Error; err != nil {
		tx.Rollback()
		utils.ErrorLogger.Errorf("Error fetching changes: %v", err)
		return 0
	}
	if len(changes) == 0 {
		tx.Rollback()
		return 0
	}

	ids := make([]uint, 0, len(changes))
	for _, change := range changes {
		ids = append(ids, change.ID)
	}
	if err := tx.Model(&models.DBChange{}).
		Where("id IN ?", ids).
		Update("processed", true).Error; err != nil {
		tx.Rollback()
		utils.ErrorLogger.Errorf("Error marking changes as processed: %v", err)
		return 0
	}
	if err := tx.Commit().Error; err != nil {
		utils.ErrorLogger.Errorf("Error committing changes: %v", err)
		return 0
	}

	for _, change := range changes {
		utils.InfoLogger.Debugf("change: table=%s action=%s record=%s",
			change.TableName, change.ActionType, change.RecordID)
		cm.Publisher.PublishChange(realtime.ChangeNotice{
			Table:    change.TableName,
			Action:   change.ActionType,
			RecordID: change.RecordID,
		})
	}
	return len(changes)
}

// Purge removes processed entries older than age.
func (cm *ChangeMonitor) Purge(age time.Duration) (int64, error) {
	res := cm.DB.Where("processed = ? AND changed_at < ?", true, time.Now().Add(-age)).
		Delete(&models.DBChange{})
	return res.RowsAffected, res.Error
}
