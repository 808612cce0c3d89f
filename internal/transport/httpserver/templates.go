package httpserver

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed web/templates
var templateFiles embed.FS

// newViews builds the html engine over the embedded dashboard templates.
func newViews(debug bool) (*html.Engine, error) {
	root, err := fs.Sub(templateFiles, "web/templates")
	if err != nil {
		return nil, err
	}

	engine := html.NewFileSystem(http.FS(root), ".html")
	engine.AddFunc("inc", func(i int) int { return i + 1 })
	if debug {
		engine.Debug(true)
	}

	return engine, nil
}
