package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"procflow/bizerror"
	"procflow/directory"
	"procflow/domain"
	"procflow/domain/approval"
	"procflow/domain/flow"
	"procflow/event"
	"procflow/indices"
	"procflow/infra/tracing"
	"procflow/notify"
	"procflow/persistence"
	"procflow/servehttp"
	"procflow/session"
	"procflow/sla"

	"github.com/gin-gonic/gin"
)

const serviceName = "procflow"

func main() {
	log.Println("service start")

	tracingCloser, err := tracing.InitTracer(serviceName)
	if err != nil {
		log.Printf("tracer init failed %v\n", err)
	} else {
		defer tracingCloser.Close()
	}

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		log.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			log.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		log.Fatalf("database connection failed %v\n", err)
	}
	defer ds.Stop()

	// database migration (race condition)
	err = ds.GormDB(context.Background()).AutoMigrate(
		&domain.WorkflowTemplate{}, &domain.StepDefinition{}, &domain.TemplateCondition{},
		&domain.ApprovalInstance{}, &domain.ApprovalAction{}, &event.EventRecord{}).Error
	if err != nil {
		log.Fatalf("database migration failed %v\n", err)
	}

	templates := flow.NewTemplateManager(ds)
	bootstrap := &session.Session{
		Identity: session.Identity{ID: 1, Name: "bootstrap", Role: domain.RoleDirector},
		Context:  context.Background(),
	}
	if err := templates.EnsureDefaultTemplates(bootstrap); err != nil {
		log.Fatalf("failed to seed default templates %v\n", err)
	}

	actors := &directory.HttpDirectory{BaseURL: os.Getenv("DIRECTORY_URL")}
	var notifier notify.NotifierPort = &notify.LogNotifier{}
	if webhookURL := os.Getenv("NOTIFY_WEBHOOK_URL"); webhookURL != "" {
		notifier = &notify.WebhookNotifier{BaseURL: webhookURL}
	}

	approvalEngine := approval.NewEngine(ds, templates, actors, notifier)

	// search index sync
	indices.DetailApprovalFunc = approvalEngine.GetWorkflowStatus
	indices.InstanceIDOfActionFunc = approvalEngine.InstanceIDOfAction
	indices.LoadApprovalsFunc = approvalEngine.LoadApprovals
	event.EventHandlers = append(event.EventHandlers, indices.IndexApprovalEventHandle)
	indices.StartCron()

	// deadline enforcement
	sla.FindBreachedActionsFunc = approvalEngine.FindBreachedActions
	sla.EscalateStepFunc = approvalEngine.EscalateStep
	sla.StartCron()

	engine := gin.Default()
	engine.Use(bizerror.ErrorHandling(), tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, serviceName)
	})

	servehttp.RegisterTemplatesRestAPI(engine, templates, session.SimpleAuthFilter())
	servehttp.RegisterApprovalsRestAPI(engine, approvalEngine, session.SimpleAuthFilter())
	indices.RegisterIndicesRestAPI(engine, session.SimpleAuthFilter())

	if err := engine.Run(":80"); err != nil {
		panic(err)
	}
}
