package indices

import (
	"context"
	"fmt"
	"procflow/bizerror"
	"procflow/domain"
	"procflow/es"
	"procflow/event"
	"procflow/session"
	"sync"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	ApprovalIndexEventHandlerName = "approvalIndexer"
	indexRobot                    = &session.Session{
		Identity: session.Identity{ID: 10, Name: "index-robot", Role: domain.RoleDirector},
		Context:  context.Background(),
	}

	lock    sync.Mutex
	running bool

	// wired to the engine at assembly time
	DetailApprovalFunc     func(instanceID types.ID, sec *session.Session) (*domain.ApprovalDetail, error)
	InstanceIDOfActionFunc func(actionID types.ID, sec *session.Session) (types.ID, error)
	LoadApprovalsFunc      func(page, size int, sec *session.Session) ([]domain.ApprovalDetail, error)

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

func ScheduleNewSyncRun(sec *session.Session) (bool, error) {
	if sec.Identity.Role != domain.RoleDirector {
		return false, bizerror.ErrForbidden
	}

	lock.Lock()
	if running {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	waitRunning := sync.WaitGroup{}
	waitRunning.Add(1)
	go func() {
		waitRunning.Done()
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		IndicesFullSyncFunc()
	}()
	waitRunning.Wait()
	return true, nil
}

var (
	SyncBatchSize = 500
)

func IndicesFullSync() (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
	}()

	page := 1
	for {
		details, err := LoadApprovalsFunc(page, SyncBatchSize, indexRobot)
		if err != nil {
			logrus.Warnf("indices fully sync: error on retrive approvals(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
			page++
			continue
		}

		if len(details) == 0 {
			logrus.Infof("indices fully sync: there are no more approvals to index")
			return nil // loop exit
		}

		if err := IndexApprovals(details); err != nil {
			logrus.Warnf("indices fully sync: error on index approvals(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
		}
		page++
	}
}

// IndexApprovalEventHandle keep the search index in step with the store.
// Every engine event names either an instance or one of its actions.
func IndexApprovalEventHandle(e *event.EventRecord) *event.EventHandleResult {
	if e.SourceType != "approval_instance" && e.SourceType != "approval_action" {
		return nil
	}

	if e.EventCategory == event.CategoryInstanceReset {
		if err := es.DeleteDocumentByIdFunc(ApprovalIndexName, e.Event.SourceId); err != nil {
			return &event.EventHandleResult{
				Message:           fmt.Sprintf("delete approval index %d, %v", e.Event.SourceId, err),
				HandlerIdentifier: ApprovalIndexEventHandlerName,
			}
		}
		return &event.EventHandleResult{Success: true, HandlerIdentifier: ApprovalIndexEventHandlerName}
	}

	instanceID := e.Event.SourceId
	if e.SourceType == "approval_action" {
		id, err := InstanceIDOfActionFunc(e.Event.SourceId, indexRobot)
		if err != nil {
			return &event.EventHandleResult{
				Message:           fmt.Sprintf("resolve instance of action %d, %v", e.Event.SourceId, err),
				HandlerIdentifier: ApprovalIndexEventHandlerName,
			}
		}
		instanceID = id
	}

	detail, err := DetailApprovalFunc(instanceID, indexRobot)
	if err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("detail approval when index approval %d, %v", instanceID, err),
			HandlerIdentifier: ApprovalIndexEventHandlerName,
		}
	}
	if err := IndexApprovals([]domain.ApprovalDetail{*detail}); err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("index approval %d, %v", instanceID, err),
			HandlerIdentifier: ApprovalIndexEventHandlerName,
		}
	}
	return &event.EventHandleResult{Success: true, HandlerIdentifier: ApprovalIndexEventHandlerName}
}
