package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	texttemplate "text/template"
	"time"

	"safirnotify/internal/types"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Subject lines are fixed per transition.
const (
	SubjectAlarm = "ALARM: Safir Cloud Platform instance alarm"
	SubjectOK    = "OK: Safir Cloud Platform instance back to normal"
)

// RenderedEmail holds the pre-rendered email content ready for transmission.
type RenderedEmail struct {
	Subject  string
	BodyHTML string
	BodyText string
	// Transition is the variant that produced the message.
	Transition types.Transition
}

// variant binds a transition to its template files and subject.
type variant struct {
	name    string
	subject string
}

// variants is keyed solely by transition. TransitionNone is deliberately absent.
var variants = map[types.Transition]variant{
	types.TransitionEnterAlarm: {name: "alarm", subject: SubjectAlarm},
	types.TransitionEnterOK:    {name: "ok", subject: SubjectOK},
}

// templateData is the field set passed into the templates.
type templateData struct {
	Subject            string
	InstanceName       string
	MonitorPanelURL    string
	ResourceType       string
	ComparisonOperator string
	Threshold          string
	PeriodSeconds      int64
	EvaluationPeriods  int
	Reason             string
	Email              string
}

// Composer renders an enriched notification into an email.
type Composer interface {
	Compose(n *types.EnrichedNotification, panelURL string) (*RenderedEmail, error)
}

// Renderer performs email template rendering using html/template and
// text/template over embedded template files. It implements Composer.
// Templates are parsed once; Compose only reads them and is safe for
// concurrent use.
type Renderer struct {
	htmlTemplates map[types.Transition]*template.Template
	textTemplates map[types.Transition]*texttemplate.Template
}

// NewRenderer parses the embedded templates and returns a Renderer.
// Returns an error if any template fails to parse.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		htmlTemplates: make(map[types.Transition]*template.Template, len(variants)),
		textTemplates: make(map[types.Transition]*texttemplate.Template, len(variants)),
	}

	baseHTML, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to read base.html: %w", err)
	}

	for transition, v := range variants {
		// HTML: base layout + variant "content" block.
		htmlContent, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.html", v.name))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s.html: %w", v.name, err)
		}
		htmlTmpl, err := template.New("base").Parse(string(baseHTML))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse base.html: %w", err)
		}
		if _, err := htmlTmpl.Parse(string(htmlContent)); err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s.html: %w", v.name, err)
		}
		r.htmlTemplates[transition] = htmlTmpl

		txtContent, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.txt", v.name))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s.txt: %w", v.name, err)
		}
		txtTmpl, err := texttemplate.New(v.name).Parse(string(txtContent))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s.txt: %w", v.name, err)
		}
		r.textTemplates[transition] = txtTmpl
	}

	return r, nil
}

// Compose selects the template variant for n.Transition and renders the
// subject, plain-text body and HTML body. A missing instance name renders as
// a generic phrase; only an unknown transition or a template execution error
// fails.
func (r *Renderer) Compose(n *types.EnrichedNotification, panelURL string) (*RenderedEmail, error) {
	if n == nil {
		return nil, types.NewAppError(types.ErrCodeInternalTemplate, "notification is nil", nil)
	}

	v, ok := variants[n.Transition]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeInternalTemplate,
			fmt.Sprintf("no template for transition %q", n.Transition), nil)
	}

	data := buildTemplateData(v.subject, n, panelURL)

	var htmlBuf bytes.Buffer
	if err := r.htmlTemplates[n.Transition].Execute(&htmlBuf, data); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalTemplate,
			fmt.Sprintf("failed to render %s.html", v.name), err)
	}

	var txtBuf bytes.Buffer
	if err := r.textTemplates[n.Transition].Execute(&txtBuf, data); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalTemplate,
			fmt.Sprintf("failed to render %s.txt", v.name), err)
	}

	return &RenderedEmail{
		Subject:    v.subject,
		BodyHTML:   htmlBuf.String(),
		BodyText:   txtBuf.String(),
		Transition: n.Transition,
	}, nil
}

func buildTemplateData(subject string, n *types.EnrichedNotification, panelURL string) templateData {
	return templateData{
		Subject:            subject,
		InstanceName:       n.InstanceNameOrEmpty(),
		MonitorPanelURL:    panelURL,
		ResourceType:       n.ResourceType,
		ComparisonOperator: n.ComparisonLabel,
		Threshold:          strconv.FormatFloat(n.Threshold, 'f', -1, 64),
		PeriodSeconds:      int64(n.Period / time.Second),
		EvaluationPeriods:  n.EvaluationPeriods,
		Reason:             n.Reason,
		Email:              n.Email,
	}
}

// Compile-time assertion that Renderer implements Composer.
var _ Composer = (*Renderer)(nil)
