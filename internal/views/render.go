package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"

	"example.com/octofit/internal/domain"
	"example.com/octofit/internal/editor"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names understood by Render.
const (
	PageHome        = "home"
	PageUsers       = "users"
	PageTeams       = "teams"
	PageActivities  = "activities"
	PageLeaderboard = "leaderboard"
	PageWorkouts    = "workouts"
	PageEdit        = "edit"
)

var pageNames = []string{PageHome, PageUsers, PageTeams, PageActivities, PageLeaderboard, PageWorkouts, PageEdit}

// Page is the data handed to every template. Err set means the resource
// failed to load and Data is ignored.
type Page struct {
	Title  string
	Active string
	Err    string
	Notice string
	Data   any
}

// EditForm is the data behind the edit page.
type EditForm struct {
	Session       editor.Snapshot
	FitnessLevels []domain.FitnessLevel
}

// NewEditForm wraps a session snapshot for rendering.
func NewEditForm(snap editor.Snapshot) EditForm {
	return EditForm{
		Session:       snap,
		FitnessLevels: []domain.FitnessLevel{domain.FitnessBeginner, domain.FitnessIntermediate, domain.FitnessAdvanced},
	}
}

var markdownRenderer = goldmark.New()

// Markdown renders free text such as workout descriptions. Raw HTML in the
// source is dropped; on a conversion error the text is escaped as is.
func Markdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page against the shared layout.
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"fitness":  func(level domain.FitnessLevel) Badge { return FitnessBadge(level) },
		"markdown": Markdown,
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render writes a full page. Output is buffered so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w io.Writer, name string, page Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	if page.Active == "" {
		page.Active = name
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
