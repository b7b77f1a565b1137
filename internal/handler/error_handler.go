package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/faultline/internal/domain"
	"github.com/kursadbilgin/faultline/internal/observability"
	"github.com/kursadbilgin/faultline/internal/service"
)

// RecordReader reads persisted error records back.
type RecordReader interface {
	GetByID(ctx context.Context, id string) (*domain.ErrorRecord, error)
}

type ErrorHandler struct {
	reporter service.Reporter
	records  RecordReader
}

func NewErrorHandler(reporter service.Reporter, records RecordReader) (*ErrorHandler, error) {
	if reporter == nil {
		return nil, fmt.Errorf("reporter is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record reader is required")
	}
	return &ErrorHandler{reporter: reporter, records: records}, nil
}

func RegisterErrorRoutes(router fiber.Router, reporter service.Reporter, records RecordReader) error {
	h, err := NewErrorHandler(reporter, records)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/errors", h.ReportError)
	v1.Post("/errors/queue", h.EnqueueError)
	v1.Get("/errors/:id", h.GetError)

	return nil
}

type reportErrorRequest struct {
	CorrelationID    string `json:"correlationId"`
	RequestType      string `json:"requestType"`
	Description      string `json:"description"`
	OriginSystem     string `json:"originSystem"`
	SubSystem        string `json:"subSystem"`
	QuoteID          string `json:"quoteId"`
	ScenarioID       string `json:"scenarioId"`
	UserID           string `json:"userId"`
	Status           string `json:"status"`
	InputData        string `json:"inputData"`
	OutputData       string `json:"outputData"`
	ErrorDescription string `json:"errorDescription"`
	ErrorStack       string `json:"errorStack"`
	Cause            string `json:"cause"`
	IssueStatus      string `json:"issueStatus"`
	IsMailRequested  bool   `json:"isMailRequested"`
	MailAddress      string `json:"mailAddress"`
}

type reportErrorResponse struct {
	ID       string `json:"id,omitempty"`
	State    string `json:"state"`
	Enqueued bool   `json:"enqueued"`
	Error    string `json:"error,omitempty"`
}

type enqueueErrorResponse struct {
	Queued bool `json:"queued"`
}

type errorRecordResponse struct {
	ID                     string    `json:"id"`
	RequestType            string    `json:"requestType"`
	Description            string    `json:"description"`
	OriginSystem           string    `json:"originSystem"`
	SubSystem              string    `json:"subSystem"`
	QuoteID                string    `json:"quoteId"`
	ScenarioID             string    `json:"scenarioId"`
	UserID                 string    `json:"userId"`
	Status                 string    `json:"status"`
	InputData              string    `json:"inputData"`
	OutputData             string    `json:"outputData"`
	ErrorDescription       string    `json:"errorDescription"`
	ErrorStack             string    `json:"errorStack"`
	IssueStatus            string    `json:"issueStatus"`
	IsMailRequested        bool      `json:"isMailRequested"`
	NotificationTemplateID string    `json:"notificationTemplateId"`
	AssignedUser           string    `json:"assignedUser"`
	MailAddress            string    `json:"mailAddress"`
	CreatedAt              time.Time `json:"createdAt,omitempty"`
}

func (h *ErrorHandler) ReportError(c *fiber.Ctx) error {
	record, ctx, err := h.parseRecord(c)
	if err != nil {
		return toHTTPError(err)
	}

	out := h.reporter.ReportError(ctx, record)

	resp := reportErrorResponse{
		ID:       out.RecordID,
		State:    out.State.String(),
		Enqueued: out.Enqueued,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

func (h *ErrorHandler) EnqueueError(c *fiber.Ctx) error {
	record, ctx, err := h.parseRecord(c)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(enqueueErrorResponse{
		Queued: h.reporter.PublishToQueue(ctx, record),
	})
}

func (h *ErrorHandler) GetError(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return toHTTPError(fmt.Errorf("%w: id is required", domain.ErrValidation))
	}

	record, err := h.records.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toErrorRecordResponse(record))
}

func (h *ErrorHandler) parseRecord(c *fiber.Ctx) (domain.ErrorRecord, context.Context, error) {
	var req reportErrorRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrorRecord{}, nil, fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}

	record, err := requestToDomainRecord(req)
	if err != nil {
		return domain.ErrorRecord{}, nil, err
	}

	correlationID := strings.TrimSpace(req.CorrelationID)
	if correlationID == "" {
		correlationID = requestCorrelationID(c)
	}

	ctx := context.Context(c.Context())
	if correlationID != "" {
		ctx = observability.WithCorrelationID(ctx, correlationID)
	}
	return record, ctx, nil
}

// requestToDomainRecord maps the request body. The issue status is owned by
// the pipeline, so a supplied value is only checked for validity.
func requestToDomainRecord(req reportErrorRequest) (domain.ErrorRecord, error) {
	if raw := strings.TrimSpace(req.IssueStatus); raw != "" {
		if _, err := domain.ParseIssueStatus(raw); err != nil {
			return domain.ErrorRecord{}, err
		}
	}

	record := domain.ErrorRecord{
		RequestType:      req.RequestType,
		Description:      req.Description,
		OriginSystem:     req.OriginSystem,
		SubSystem:        req.SubSystem,
		QuoteID:          req.QuoteID,
		ScenarioID:       req.ScenarioID,
		UserID:           req.UserID,
		Status:           req.Status,
		InputData:        req.InputData,
		OutputData:       req.OutputData,
		ErrorDescription: req.ErrorDescription,
		ErrorStack:       req.ErrorStack,
		IsMailRequested:  req.IsMailRequested,
		MailAddress:      req.MailAddress,
	}
	if cause := strings.TrimSpace(req.Cause); cause != "" {
		record.Cause = errors.New(cause)
	}
	return record, nil
}

func toErrorRecordResponse(r *domain.ErrorRecord) errorRecordResponse {
	if r == nil {
		return errorRecordResponse{}
	}

	return errorRecordResponse{
		ID:                     r.ID,
		RequestType:            r.RequestType,
		Description:            r.Description,
		OriginSystem:           r.OriginSystem,
		SubSystem:              r.SubSystem,
		QuoteID:                r.QuoteID,
		ScenarioID:             r.ScenarioID,
		UserID:                 r.UserID,
		Status:                 r.Status,
		InputData:              r.InputData,
		OutputData:             r.OutputData,
		ErrorDescription:       r.ErrorDescription,
		ErrorStack:             r.ErrorStack,
		IssueStatus:            r.IssueStatus.String(),
		IsMailRequested:        r.IsMailRequested,
		NotificationTemplateID: r.NotificationTemplateID,
		AssignedUser:           r.AssignedUser,
		MailAddress:            r.MailAddress,
		CreatedAt:              r.CreatedAt,
	}
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
