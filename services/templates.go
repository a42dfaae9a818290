package services

import (
	"bytes"
	_ "embed"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed templates/emails.yaml
var defaultTemplates []byte

type emailTemplate struct {
	Subject string `yaml:"subject"`
	Text    string `yaml:"text"`
	HTML    string `yaml:"html"`
}

type compiledTemplate struct {
	subject *template.Template
	text    *template.Template
	html    *htmltemplate.Template
}

// TemplateData is what every email template can reference.
type TemplateData struct {
	Email   string
	SiteURL string
	Year    int
	Vars    map[string]string
}

type RenderedEmail struct {
	Subject string
	Text    string
	HTML    string
}

// TemplateCatalog holds the parsed email templates keyed by template key.
type TemplateCatalog struct {
	templates map[string]compiledTemplate
	siteURL   string
}

func LoadDefaultTemplates(siteURL string) (*TemplateCatalog, error) {
	return ParseTemplates(defaultTemplates, siteURL)
}

func ParseTemplates(raw []byte, siteURL string) (*TemplateCatalog, error) {
	var defs map[string]emailTemplate
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	cat := &TemplateCatalog{templates: make(map[string]compiledTemplate, len(defs)), siteURL: siteURL}
	for key, def := range defs {
		if def.Subject == "" || def.Text == "" {
			return nil, fmt.Errorf("template %q: subject and text are required", key)
		}
		var ct compiledTemplate
		var err error
		if ct.subject, err = template.New(key + ".subject").Option("missingkey=zero").Parse(def.Subject); err != nil {
			return nil, fmt.Errorf("template %q subject: %w", key, err)
		}
		if ct.text, err = template.New(key + ".text").Option("missingkey=zero").Parse(def.Text); err != nil {
			return nil, fmt.Errorf("template %q text: %w", key, err)
		}
		if def.HTML != "" {
			if ct.html, err = htmltemplate.New(key + ".html").Option("missingkey=zero").Parse(def.HTML); err != nil {
				return nil, fmt.Errorf("template %q html: %w", key, err)
			}
		}
		cat.templates[key] = ct
	}
	return cat, nil
}

func (c *TemplateCatalog) Has(key string) bool {
	_, ok := c.templates[key]
	return ok
}

func (c *TemplateCatalog) Keys() []string {
	keys := make([]string, 0, len(c.templates))
	for k := range c.templates {
		keys = append(keys, k)
	}
	return keys
}

func (c *TemplateCatalog) Render(key, email string, vars map[string]string) (RenderedEmail, error) {
	ct, ok := c.templates[key]
	if !ok {
		return RenderedEmail{}, fmt.Errorf("unknown email template %q", key)
	}
	if vars == nil {
		vars = map[string]string{}
	}
	data := TemplateData{Email: email, SiteURL: c.siteURL, Year: time.Now().Year(), Vars: vars}

	var out RenderedEmail
	var buf bytes.Buffer
	if err := ct.subject.Execute(&buf, data); err != nil {
		return out, fmt.Errorf("render %q subject: %w", key, err)
	}
	out.Subject = buf.String()

	buf.Reset()
	if err := ct.text.Execute(&buf, data); err != nil {
		return out, fmt.Errorf("render %q text: %w", key, err)
	}
	out.Text = buf.String()

	if ct.html != nil {
		buf.Reset()
		if err := ct.html.Execute(&buf, data); err != nil {
			return out, fmt.Errorf("render %q html: %w", key, err)
		}
		out.HTML = buf.String()
	}
	return out, nil
}
