package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/kursadbilgin/faultline/internal/domain"
)

// TimestampLayout formats DATE_TIME values and mail subjects.
const TimestampLayout = "January 2, 2006 3:04:05 PM MST"

const (
	DefaultAppName       = "Pricing Engine"
	DefaultSubjectPrefix = "Pricing Engine Exception Report"
)

// Placeholder tokens recognized in stored templates.
const (
	TokenDateTime = "DATE_TIME"
	TokenAppName  = "APP_NAME"
	TokenEnvAddr  = "ENV_ADDR"
	TokenOrigSys  = "ORIG_SYS"
	TokenSubSys   = "SUB_SYS"
	TokenQuoteID  = "QUOTE_ID"
	TokenScenID   = "SCEN_ID"
	TokenUserID   = "USER_ID"
	TokenStatus   = "APP_STATUS"
	TokenDesc     = "APP_DESC"
	TokenInput    = "ORIG_INPUT"
	TokenErrDesc  = "ERR_DESC"
	TokenErrStack = "ERR_STACK"
)

const layoutSource = `<html><body><table border="1" cellpadding="4" cellspacing="0">
{{- range . }}
<tr><td{{ if .Wide }} valign="top"{{ end }}><b>{{ .Name }}</b></td><td>{{ if .Wide }}<pre>{{ .Value }}</pre>{{ else }}{{ .Value }}{{ end }}</td></tr>
{{- end }}
</table></body></html>`

// RenderError reports a rendering failure. It matches domain.ErrRender.
type RenderError struct {
	Strategy string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render %s notification: %v", e.Strategy, e.Err)
}

func (e *RenderError) Unwrap() []error {
	return []error{domain.ErrRender, e.Err}
}

// Field is one label/value pair of the structural layout.
type Field struct {
	Name  string
	Value string
	Wide  bool
}

type Options struct {
	AppName       string
	EnvAddr       string
	SubjectPrefix string
}

// Renderer turns an ErrorRecord into a mail subject and body.
type Renderer struct {
	appName       string
	envAddr       string
	subjectPrefix string
	layout        *template.Template
}

func NewRenderer(opts Options) (*Renderer, error) {
	layout, err := template.New("layout").Parse(layoutSource)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification layout: %w", err)
	}

	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	prefix := strings.TrimSpace(opts.SubjectPrefix)
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &Renderer{
		appName:       appName,
		envAddr:       domain.OrSentinel(strings.TrimSpace(opts.EnvAddr)),
		subjectPrefix: prefix,
		layout:        layout,
	}, nil
}

func Timestamp(at time.Time) string {
	return at.Format(TimestampLayout)
}

func (r *Renderer) Subject(at time.Time) string {
	return r.subjectPrefix + " " + Timestamp(at)
}

// RenderTemplate substitutes every token in body in a single pass. Values are
// HTML-escaped and never re-scanned for tokens.
func (r *Renderer) RenderTemplate(body string, record domain.ErrorRecord, at time.Time) (out string, err error) {
	defer recoverRender("template", &err)

	if domain.IsSentinel(body) {
		return "", &RenderError{Strategy: "template", Err: errors.New("template body is empty")}
	}

	pairs := []string{
		TokenDateTime, Timestamp(at),
		TokenAppName, r.appName,
		TokenEnvAddr, r.envAddr,
		TokenOrigSys, domain.OrSentinel(record.OriginSystem),
		TokenSubSys, domain.OrSentinel(record.SubSystem),
		TokenQuoteID, domain.OrSentinel(record.QuoteID),
		TokenScenID, domain.OrSentinel(record.ScenarioID),
		TokenUserID, domain.OrSentinel(record.UserID),
		TokenStatus, domain.OrSentinel(record.Status),
		TokenDesc, domain.OrSentinel(record.Description),
		TokenInput, domain.OrSentinel(record.InputData),
		TokenErrDesc, domain.OrSentinel(record.ErrorDescription),
		TokenErrStack, domain.OrSentinel(record.ErrorStack),
	}
	// Templates are HTML; values get the same escaping as the layout.
	for i := 1; i < len(pairs); i += 2 {
		pairs[i] = template.HTMLEscapeString(pairs[i])
	}
	replacer := strings.NewReplacer(pairs...)

	return replacer.Replace(body), nil
}

// Fields returns the fourteen label/value pairs of the structural layout.
// Input and output data are always blanked.
func (r *Renderer) Fields(record domain.ErrorRecord, at time.Time) []Field {
	return []Field{
		{Name: "Date Time", Value: Timestamp(at)},
		{Name: "Application", Value: r.appName},
		{Name: "Env", Value: r.envAddr},
		{Name: "Original System", Value: domain.OrSentinel(record.OriginSystem)},
		{Name: "Sub-System", Value: domain.OrSentinel(record.SubSystem)},
		{Name: "Quote ID", Value: domain.OrSentinel(record.QuoteID)},
		{Name: "Scenario ID", Value: domain.OrSentinel(record.ScenarioID)},
		{Name: "User ID", Value: domain.OrSentinel(record.UserID)},
		{Name: "Status", Value: domain.OrSentinel(record.Status)},
		{Name: "Description", Value: domain.OrSentinel(record.Description), Wide: true},
		{Name: "Original Input Data", Value: domain.Sentinel, Wide: true},
		{Name: "Output Data", Value: domain.Sentinel, Wide: true},
		{Name: "Error Description", Value: domain.OrSentinel(record.ErrorDescription), Wide: true},
		{Name: "Error Stack", Value: domain.OrSentinel(record.ErrorStack), Wide: true},
	}
}

// RenderLayout renders the structural layout used when no template is available.
func (r *Renderer) RenderLayout(record domain.ErrorRecord, at time.Time) (out string, err error) {
	defer recoverRender("layout", &err)

	var buf bytes.Buffer
	if err := r.layout.Execute(&buf, r.Fields(record, at)); err != nil {
		return "", &RenderError{Strategy: "layout", Err: err}
	}
	return buf.String(), nil
}

func recoverRender(strategy string, err *error) {
	if p := recover(); p != nil {
		*err = &RenderError{Strategy: strategy, Err: fmt.Errorf("panic: %v", p)}
	}
}
