package server

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"sync"

	"github.com/abiosoft/mold"
	"github.com/russross/blackfriday/v2"
)

var (
	//go:embed templates/*
	templateFS embed.FS

	templateManager *TemplateManager

	// templateFuncs are available in every page template.
	templateFuncs = template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"markdown": func(text string) template.HTML {
			return template.HTML(blackfriday.Run([]byte(text)))
		},
	}
)

func init() {
	var err error
	templateManager, err = NewTemplateManager(templateFS, templateFuncs)
	if err != nil {
		panic(err)
	}
}

// TemplateManager holds the parsed page templates, using mold for
// layout inheritance: pages render inside the layout automatically.
type TemplateManager struct {
	mold mold.Engine
	mu   sync.RWMutex
}

// NewTemplateManager parses all layout and page templates from fs and
// registers the given function map.
func NewTemplateManager(fs embed.FS, funcs template.FuncMap) (*TemplateManager, error) {
	engine, err := mold.New(fs,
		mold.WithRoot("templates"),
		mold.WithLayout("layouts/base_layout.html"),
		mold.WithFuncMap(funcs),
	)
	if err != nil {
		return nil, fmt.Errorf("while parsing templates: %w", err)
	}

	return &TemplateManager{mold: engine}, nil
}

// Render renders a page template into w.
func (tm *TemplateManager) Render(w io.Writer, pageName string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.mold.Render(w, pageName, data)
}

func renderPage(w io.Writer, pageName string, data map[string]any) error {
	return templateManager.Render(w, "pages/"+pageName, data)
}
