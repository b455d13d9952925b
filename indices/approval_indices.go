package indices

import (
	"fmt"
	"procflow/domain"
	"procflow/es"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	ApprovalIndexName = "approvals"
)

// ApprovalDocument is the search projection of one approval instance with
// its full action history embedded.
type ApprovalDocument struct {
	domain.ApprovalDetail
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

func IndexApprovals(details []domain.ApprovalDetail) error {
	docs := make([]ApprovalDocument, 0, len(details))
	for _, detail := range details {
		docs = append(docs, ApprovalDocument{ApprovalDetail: detail})
	}

	if err := saveApprovalDocuments(docs); err != nil {
		return err
	}
	return nil
}

func saveApprovalDocuments(docs []ApprovalDocument) BatchActionError {
	errs := BatchActionError{}

	for _, doc := range docs {
		if err := es.IndexFunc(ApprovalIndexName, doc.ID, doc); err != nil {
			errs[doc.ID] = err
			logrus.Warnf("index approval %d %s\n", doc.ID, err)
		} else {
			logrus.Infof("index approval %d successfully\n", doc.ID)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
