package repository

import (
	"strings"
	"time"

	"github.com/kursadbilgin/faultline/internal/domain"
)

const (
	mailRequestedYes = "Y"
	mailRequestedNo  = "N"
)

// ErrorRecordModel is the persistence model for the error_queue table.
type ErrorRecordModel struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	MessageType     string    `gorm:"column:message_type;type:varchar(100);not null"`
	Description     string    `gorm:"type:varchar(500);not null"`
	OrigSystem      string    `gorm:"column:orig_system;type:varchar(100);not null"`
	SubSystem       string    `gorm:"column:sub_system;type:varchar(100);not null"`
	QuoteID         string    `gorm:"column:quote_id;type:varchar(50);not null"`
	ScenID          string    `gorm:"column:scen_id;type:varchar(50);not null"`
	UserID          string    `gorm:"column:user_id;type:varchar(50);not null"`
	Status          string    `gorm:"type:varchar(50);not null"`
	InputData       string    `gorm:"type:text"`
	OutputData      string    `gorm:"type:text"`
	ErrorDesc       string    `gorm:"column:error_desc;type:varchar(2000);not null"`
	ErrorStack      string    `gorm:"type:text"`
	IssueStatus     string    `gorm:"type:varchar(20);not null"`
	IsMailReq       string    `gorm:"column:is_mail_req;type:varchar(1);not null"`
	EmailTemplateID string    `gorm:"column:email_template_id;type:varchar(50);not null"`
	WorkedOnUser    string    `gorm:"column:worked_on_user;type:varchar(50);not null"`
	MailAddress     string    `gorm:"type:varchar(255);not null"`
	CreatedAt       time.Time
}

func (ErrorRecordModel) TableName() string {
	return "error_queue"
}

// TemplateModel is the persistence model for email_templates.
type TemplateModel struct {
	TemplateID string `gorm:"column:template_id;type:varchar(50);primaryKey"`
	Template   string `gorm:"column:template;type:text;not null"`
	UpdatedAt  time.Time
}

func (TemplateModel) TableName() string {
	return "email_templates"
}

// ParamModel is the persistence model for app_params.
type ParamModel struct {
	ParamName  string `gorm:"column:param_name;type:varchar(100);primaryKey"`
	ParamValue string `gorm:"column:param_value;type:text"`
}

func (ParamModel) TableName() string {
	return "app_params"
}

// NotificationLogModel is the persistence model for error_notifications.
type NotificationLogModel struct {
	ID         string  `gorm:"type:uuid;primaryKey"`
	RecordID   string  `gorm:"type:uuid;not null"`
	State      string  `gorm:"type:varchar(20);not null"`
	Recipient  string  `gorm:"type:varchar(255);not null"`
	TemplateID string  `gorm:"type:varchar(50);not null"`
	Error      *string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (NotificationLogModel) TableName() string {
	return "error_notifications"
}

func errorRecordModelFromDomain(r *domain.ErrorRecord) *ErrorRecordModel {
	if r == nil {
		return nil
	}

	isMailReq := mailRequestedNo
	if r.IsMailRequested {
		isMailReq = mailRequestedYes
	}

	return &ErrorRecordModel{
		ID:              r.ID,
		MessageType:     r.RequestType,
		Description:     r.Description,
		OrigSystem:      r.OriginSystem,
		SubSystem:       r.SubSystem,
		QuoteID:         r.QuoteID,
		ScenID:          r.ScenarioID,
		UserID:          r.UserID,
		Status:          r.Status,
		InputData:       r.InputData,
		OutputData:      r.OutputData,
		ErrorDesc:       r.ErrorDescription,
		ErrorStack:      r.ErrorStack,
		IssueStatus:     r.IssueStatus.String(),
		IsMailReq:       isMailReq,
		EmailTemplateID: r.NotificationTemplateID,
		WorkedOnUser:    r.AssignedUser,
		MailAddress:     r.MailAddress,
		CreatedAt:       r.CreatedAt,
	}
}

func errorRecordModelToDomain(m *ErrorRecordModel) *domain.ErrorRecord {
	if m == nil {
		return nil
	}

	return &domain.ErrorRecord{
		ID:                     m.ID,
		RequestType:            m.MessageType,
		Description:            m.Description,
		OriginSystem:           m.OrigSystem,
		SubSystem:              m.SubSystem,
		QuoteID:                m.QuoteID,
		ScenarioID:             m.ScenID,
		UserID:                 m.UserID,
		Status:                 m.Status,
		InputData:              m.InputData,
		OutputData:             m.OutputData,
		ErrorDescription:       m.ErrorDesc,
		ErrorStack:             m.ErrorStack,
		IssueStatus:            domain.IssueStatus(m.IssueStatus),
		IsMailRequested:        strings.EqualFold(m.IsMailReq, mailRequestedYes),
		NotificationTemplateID: m.EmailTemplateID,
		AssignedUser:           m.WorkedOnUser,
		MailAddress:            m.MailAddress,
		CreatedAt:              m.CreatedAt,
	}
}

func notificationLogModelFromDomain(l *domain.NotificationLog) *NotificationLogModel {
	if l == nil {
		return nil
	}

	return &NotificationLogModel{
		ID:         l.ID,
		RecordID:   l.RecordID,
		State:      l.State.String(),
		Recipient:  l.Recipient,
		TemplateID: l.TemplateID,
		Error:      l.Error,
		CreatedAt:  l.CreatedAt,
	}
}
