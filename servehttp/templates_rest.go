package servehttp

import (
	"net/http"
	"procflow/bizerror"
	"procflow/domain/flow"
	"procflow/misc"
	"procflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var PathWorkflowTemplates = "/v1/workflow-templates"

func RegisterTemplatesRestAPI(r *gin.Engine, manager flow.TemplateManagerTraits, middleWares ...gin.HandlerFunc) {
	handler := &templatesHandler{manager: manager, validator: validator.New()}

	g := r.Group(PathWorkflowTemplates, middleWares...)
	g.POST("", handler.handleCreateTemplate)
	g.GET("", handler.handleQueryTemplates)
	g.GET(":id", handler.handleDetailTemplate)
	g.POST(":id/deactivations", handler.handleDeactivateTemplate)
	g.DELETE(":id", handler.handleDeleteTemplate)
}

type templatesHandler struct {
	manager   flow.TemplateManagerTraits
	validator *validator.Validate
}

func (h *templatesHandler) handleCreateTemplate(c *gin.Context) {
	creation := flow.TemplateCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := h.manager.CreateWorkflowTemplate(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *templatesHandler) handleQueryTemplates(c *gin.Context) {
	query := flow.TemplateQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	templates, err := h.manager.QueryWorkflowTemplates(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *templatesHandler) handleDetailTemplate(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	detail, err := h.manager.DetailWorkflowTemplate(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *templatesHandler) handleDeactivateTemplate(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	if err := h.manager.DeactivateWorkflowTemplate(id, session.ExtractSessionFromGinContext(c)); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func (h *templatesHandler) handleDeleteTemplate(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	if err := h.manager.DeleteWorkflowTemplate(id, session.ExtractSessionFromGinContext(c)); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}
