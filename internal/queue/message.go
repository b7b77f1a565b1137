package queue

import (
	"time"

	"github.com/kursadbilgin/faultline/internal/domain"
)

// RecordMessage is the broker payload for one error record.
type RecordMessage struct {
	ID                     string    `json:"id,omitempty"`
	CorrelationID          string    `json:"correlationId,omitempty"`
	RequestType            string    `json:"requestType"`
	Description            string    `json:"description"`
	OriginSystem           string    `json:"originSystem"`
	SubSystem              string    `json:"subSystem"`
	QuoteID                string    `json:"quoteId"`
	ScenarioID             string    `json:"scenarioId"`
	UserID                 string    `json:"userId"`
	Status                 string    `json:"status"`
	InputData              string    `json:"inputData,omitempty"`
	OutputData             string    `json:"outputData,omitempty"`
	ErrorDescription       string    `json:"errorDescription"`
	ErrorStack             string    `json:"errorStack,omitempty"`
	IssueStatus            string    `json:"issueStatus,omitempty"`
	IsMailRequested        bool      `json:"isMailRequested"`
	NotificationTemplateID string    `json:"notificationTemplateId,omitempty"`
	MailAddress            string    `json:"mailAddress,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
}

func NewRecordMessage(r domain.ErrorRecord, correlationID string) RecordMessage {
	return RecordMessage{
		ID:                     r.ID,
		CorrelationID:          correlationID,
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
		MailAddress:            r.MailAddress,
		CreatedAt:              r.CreatedAt,
	}
}

// ToDomain returns the record carried by the message. Creation-owned fields
// are left for normalization to overwrite.
func (m RecordMessage) ToDomain() domain.ErrorRecord {
	return domain.ErrorRecord{
		ID:                     m.ID,
		RequestType:            m.RequestType,
		Description:            m.Description,
		OriginSystem:           m.OriginSystem,
		SubSystem:              m.SubSystem,
		QuoteID:                m.QuoteID,
		ScenarioID:             m.ScenarioID,
		UserID:                 m.UserID,
		Status:                 m.Status,
		InputData:              m.InputData,
		OutputData:             m.OutputData,
		ErrorDescription:       m.ErrorDescription,
		ErrorStack:             m.ErrorStack,
		IssueStatus:            domain.IssueStatus(m.IssueStatus),
		IsMailRequested:        m.IsMailRequested,
		NotificationTemplateID: m.NotificationTemplateID,
		MailAddress:            m.MailAddress,
		CreatedAt:              m.CreatedAt,
	}
}
