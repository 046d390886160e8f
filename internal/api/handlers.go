// Package api exposes the crawl service over HTTP.
package api

import (
	"fmt"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/commentscope/commentscope/internal/temporal/workflows"
	"github.com/commentscope/commentscope/pkg/comment"
	"github.com/commentscope/commentscope/pkg/logging"
)

// datePattern is the strict crawl-window date format.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// accountPattern rejects account names that could not exist on either
// platform.
var accountPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Handlers contains the HTTP handlers for the API
type Handlers struct {
	temporal  client.Client
	taskQueue string
}

// NewHandlers creates a new handlers instance
func NewHandlers(temporal client.Client, taskQueue string) *Handlers {
	return &Handlers{
		temporal:  temporal,
		taskQueue: taskQueue,
	}
}

// Health returns the service health status
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"service":   "commentscope",
		"version":   "0.1.0",
		"timestamp": time.Now().UTC(),
	})
}

// StartCrawlRequest represents a crawl request
type StartCrawlRequest struct {
	Account   string `json:"account" validate:"required"`
	Platform  string `json:"platform" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// StartCrawlResponse represents the response for a started crawl
type StartCrawlResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// StartCrawl validates the request and starts a crawl workflow.
func (h *Handlers) StartCrawl(c *fiber.Ctx) error {
	logger := logging.GetLogger("api")

	var req StartCrawlRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}
	if err := validateCrawlRequest(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	workflowID := fmt.Sprintf("crawl-%s", uuid.New().String())
	we, err := h.temporal.ExecuteWorkflow(c.Context(), client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: h.taskQueue,
	}, workflows.CrawlWorkflow, workflows.CrawlInput{
		Account:   req.Account,
		Platform:  req.Platform,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		logger.Error().Err(err).Str("workflow_id", workflowID).Msg("Failed to start crawl workflow")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to start crawl",
			"details": err.Error(),
		})
	}

	logger.Info().
		Str("workflow_id", we.GetID()).
		Str("platform", req.Platform).
		Str("account", req.Account).
		Msg("Started crawl workflow")

	return c.Status(fiber.StatusAccepted).JSON(StartCrawlResponse{
		WorkflowID: we.GetID(),
		RunID:      we.GetRunID(),
	})
}

// WorkflowStatusResponse represents workflow execution status
type WorkflowStatusResponse struct {
	WorkflowID string     `json:"workflow_id"`
	Status     string     `json:"status"`
	StartTime  time.Time  `json:"start_time"`
	CloseTime  *time.Time `json:"close_time,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// GetWorkflowStatus reports the status of a crawl workflow.
func (h *Handlers) GetWorkflowStatus(c *fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Workflow ID is required",
		})
	}

	resp, err := h.temporal.DescribeWorkflowExecution(c.Context(), workflowID, "")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":       "Workflow not found",
			"workflow_id": workflowID,
		})
	}

	info := resp.WorkflowExecutionInfo
	response := WorkflowStatusResponse{
		WorkflowID: workflowID,
		Status:     info.Status.String(),
		StartTime:  info.StartTime.AsTime(),
	}
	if info.CloseTime != nil {
		closeTime := info.CloseTime.AsTime()
		response.CloseTime = &closeTime
	}
	if info.Status.String() == "Failed" {
		response.Error = "Workflow failed - check Temporal UI for details"
	}
	return c.JSON(response)
}

func validateCrawlRequest(req *StartCrawlRequest) error {
	if !accountPattern.MatchString(req.Account) {
		return fmt.Errorf("invalid account name")
	}
	if _, err := comment.ParsePlatform(req.Platform); err != nil {
		return err
	}
	if !datePattern.MatchString(req.StartDate) {
		return fmt.Errorf("start_date must be YYYY-MM-DD")
	}
	if !datePattern.MatchString(req.EndDate) {
		return fmt.Errorf("end_date must be YYYY-MM-DD")
	}
	return nil
}
