package servehttp

import (
	"net/http"
	"procflow/bizerror"
	"procflow/domain/approval"
	"procflow/misc"
	"procflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	PathApprovals        = "/v1/approvals"
	PathApprovalActions  = "/v1/approval-actions"
	PathPendingApprovals = "/v1/pending-approvals"
)

type DecisionBody struct {
	Comments      string `json:"comments"`
	SignatureData string `json:"signatureData"`
}

type EscalationCreation struct {
	Reason string `json:"reason" binding:"required"`
}

type entityQuery struct {
	EntityType string   `form:"entityType" validate:"required"`
	EntityID   types.ID `form:"entityId" validate:"required,min=1"`
}

func RegisterApprovalsRestAPI(r *gin.Engine, engine approval.EngineTraits, middleWares ...gin.HandlerFunc) {
	handler := &approvalsHandler{engine: engine, validator: validator.New()}

	g := r.Group(PathApprovals, middleWares...)
	g.POST("", handler.handleStartWorkflow)
	g.GET("", handler.handleQueryByEntity)
	g.GET(":id", handler.handleDetailApproval)
	g.GET(":id/progress", handler.handleApprovalProgress)
	g.DELETE(":id", handler.handleResetWorkflow)
	g.POST(":id/actions/:actionId/approve", handler.handleApproveStep)
	g.POST(":id/actions/:actionId/reject", handler.handleRejectStep)

	a := r.Group(PathApprovalActions, middleWares...)
	a.POST(":actionId/escalations", handler.handleEscalateStep)

	p := r.Group(PathPendingApprovals, middleWares...)
	p.GET("", handler.handlePendingApprovals)
}

type approvalsHandler struct {
	engine    approval.EngineTraits
	validator *validator.Validate
}

func (h *approvalsHandler) handleStartWorkflow(c *gin.Context) {
	creation := approval.ApprovalCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := h.engine.StartWorkflow(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *approvalsHandler) handleQueryByEntity(c *gin.Context) {
	query := entityQuery{}
	_ = c.MustBindWith(&query, binding.Query)
	if err := h.validator.Struct(query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := h.engine.GetWorkflowStatusByEntity(query.EntityType, query.EntityID,
		session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *approvalsHandler) handleDetailApproval(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	detail, err := h.engine.GetWorkflowStatus(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *approvalsHandler) handleApprovalProgress(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	report, err := h.engine.GetApprovalProgress(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *approvalsHandler) handleResetWorkflow(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	if err := h.engine.ResetWorkflow(id, session.ExtractSessionFromGinContext(c)); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func (h *approvalsHandler) handleApproveStep(c *gin.Context) {
	actionID, err := types.ParseID(c.Param("actionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("actionId") + "'"})
		return
	}

	body := DecisionBody{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
	}

	action, err := h.engine.ApproveStep(actionID, body.Comments, body.SignatureData,
		session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, action)
}

func (h *approvalsHandler) handleRejectStep(c *gin.Context) {
	actionID, err := types.ParseID(c.Param("actionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("actionId") + "'"})
		return
	}

	body := DecisionBody{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
	}

	action, err := h.engine.RejectStep(actionID, body.Comments, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, action)
}

func (h *approvalsHandler) handleEscalateStep(c *gin.Context) {
	actionID, err := types.ParseID(c.Param("actionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("actionId") + "'"})
		return
	}

	creation := EscalationCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	result, err := h.engine.EscalateStep(actionID, creation.Reason, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *approvalsHandler) handlePendingApprovals(c *gin.Context) {
	sec := session.ExtractSessionFromGinContext(c)
	actions, err := h.engine.GetPendingApprovals(sec.Identity.ID, sec)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, actions)
}
