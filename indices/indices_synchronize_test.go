package indices

import (
	"errors"
	"procflow/bizerror"
	"procflow/domain"
	"procflow/es"
	"procflow/event"
	"procflow/session"
	"procflow/testinfra"
	"testing"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func TestScheduleNewSyncRun(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should be forbidden for non-director roles", func(t *testing.T) {
		ok, err := ScheduleNewSyncRun(testinfra.BuildSession(100, "bob", domain.RoleOfficer))
		Expect(ok).To(BeFalse())
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should run the full sync once", func(t *testing.T) {
		invoked := make(chan bool, 1)
		IndicesFullSyncFunc = func() error {
			invoked <- true
			return nil
		}
		defer func() { IndicesFullSyncFunc = IndicesFullSync }()

		ok, err := ScheduleNewSyncRun(testinfra.BuildSession(100, "diana", domain.RoleDirector))
		Expect(err).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(<-invoked).To(BeTrue())
	})
}

func TestIndicesFullSync(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should page until the store is exhausted", func(t *testing.T) {
		var pages []int
		LoadApprovalsFunc = func(page, size int, sec *session.Session) ([]domain.ApprovalDetail, error) {
			pages = append(pages, page)
			if page > 2 {
				return nil, nil
			}
			return []domain.ApprovalDetail{{ApprovalInstance: domain.ApprovalInstance{ID: types.ID(page)}}}, nil
		}
		var indexed []types.ID
		es.IndexFunc = func(index string, id types.ID, doc interface{}) error {
			indexed = append(indexed, id)
			return nil
		}
		defer func() { es.IndexFunc = es.Index }()

		Expect(IndicesFullSync()).To(BeNil())
		Expect(pages).To(Equal([]int{1, 2, 3}))
		Expect(indexed).To(Equal([]types.ID{1, 2}))
	})
}

func TestIndexApprovalEventHandle(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should ignore foreign source types", func(t *testing.T) {
		record := &event.EventRecord{Event: event.Event{SourceType: "user", SourceId: types.ID(1)}}
		Expect(IndexApprovalEventHandle(record)).To(BeNil())
	})

	t.Run("should index the instance of an instance event", func(t *testing.T) {
		DetailApprovalFunc = func(instanceID types.ID, sec *session.Session) (*domain.ApprovalDetail, error) {
			return &domain.ApprovalDetail{ApprovalInstance: domain.ApprovalInstance{ID: instanceID}}, nil
		}
		var indexed []types.ID
		es.IndexFunc = func(index string, id types.ID, doc interface{}) error {
			Expect(index).To(Equal(ApprovalIndexName))
			indexed = append(indexed, id)
			return nil
		}
		defer func() { es.IndexFunc = es.Index }()

		record := &event.EventRecord{Event: event.Event{
			SourceType: "approval_instance", SourceId: types.ID(20),
			EventCategory: event.CategoryInstanceStarted,
		}}
		result := IndexApprovalEventHandle(record)
		Expect(result.Success).To(BeTrue())
		Expect(indexed).To(Equal([]types.ID{20}))
	})

	t.Run("should resolve the owning instance of an action event", func(t *testing.T) {
		InstanceIDOfActionFunc = func(actionID types.ID, sec *session.Session) (types.ID, error) {
			Expect(actionID).To(Equal(types.ID(31)))
			return types.ID(20), nil
		}
		DetailApprovalFunc = func(instanceID types.ID, sec *session.Session) (*domain.ApprovalDetail, error) {
			return &domain.ApprovalDetail{ApprovalInstance: domain.ApprovalInstance{ID: instanceID}}, nil
		}
		var indexed []types.ID
		es.IndexFunc = func(index string, id types.ID, doc interface{}) error {
			indexed = append(indexed, id)
			return nil
		}
		defer func() { es.IndexFunc = es.Index }()

		record := &event.EventRecord{Event: event.Event{
			SourceType: "approval_action", SourceId: types.ID(31),
			EventCategory: event.CategoryDecisionRecorded,
		}}
		result := IndexApprovalEventHandle(record)
		Expect(result.Success).To(BeTrue())
		Expect(indexed).To(Equal([]types.ID{20}))
	})

	t.Run("should drop the document of a reset instance", func(t *testing.T) {
		var deleted []types.ID
		es.DeleteDocumentByIdFunc = func(index string, id types.ID) error {
			deleted = append(deleted, id)
			return nil
		}
		defer func() { es.DeleteDocumentByIdFunc = es.DeleteDocumentById }()

		record := &event.EventRecord{Event: event.Event{
			SourceType: "approval_instance", SourceId: types.ID(20),
			EventCategory: event.CategoryInstanceReset,
		}}
		result := IndexApprovalEventHandle(record)
		Expect(result.Success).To(BeTrue())
		Expect(deleted).To(Equal([]types.ID{20}))
	})

	t.Run("should report detail failures without panicking", func(t *testing.T) {
		DetailApprovalFunc = func(instanceID types.ID, sec *session.Session) (*domain.ApprovalDetail, error) {
			return nil, errors.New("store unavailable")
		}
		record := &event.EventRecord{Event: event.Event{
			SourceType: "approval_instance", SourceId: types.ID(20),
			EventCategory: event.CategoryInstanceStarted,
		}}
		result := IndexApprovalEventHandle(record)
		Expect(result.Success).To(BeFalse())
		Expect(result.Message).To(ContainSubstring("store unavailable"))
	})
}
