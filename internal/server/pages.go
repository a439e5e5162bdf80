package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/abiosoft/mold"
	"github.com/russross/blackfriday/v2"
	"go.uber.org/zap"
)

//go:embed templates
var templatesFS embed.FS

// views renders markdown-backed pages inside the shared layout.
var views = func() mold.Engine {
	layout, err := mold.New(templatesFS,
		mold.WithRoot("templates"),
		mold.WithLayout("layout.html"),
		mold.WithFuncMap(template.FuncMap{
			"markdown": func(text string) template.HTML {
				return template.HTML(blackfriday.Run([]byte(text)))
			},
		}))
	if err != nil {
		panic(err)
	}
	return layout
}()

// handleIndex renders the operator status page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var md strings.Builder
	fmt.Fprintf(&md, "# triador\n")
	fmt.Fprintf(&md, "> Triage a folder of images into categories with a continuously-adapting classifier.\n\n")

	folders, err := s.engine.ListFolders(r.Context())
	if err == nil {
		fmt.Fprintf(&md, "## Categories\n\n")
		if len(folders) == 0 {
			fmt.Fprintf(&md, "_No category folders yet._\n\n")
		}
		for _, f := range folders {
			state := "has images"
			if f.IsEmpty {
				state = "empty"
			}
			fmt.Fprintf(&md, "- **%s** (%s, %d pending)\n", f.Name, state, f.PendingCount)
		}
	}
	pending := s.engine.Pending(r.Context())
	fmt.Fprintf(&md, "\n## Pending actions: %d\n", len(pending))
	for _, a := range pending {
		fmt.Fprintf(&md, "- `%s` → **%s**\n", a.ImageName, a.TargetFolder)
	}
	if count, err := s.ledger.Count(r.Context()); err == nil {
		fmt.Fprintf(&md, "\n## Trained images: %d\n", count)
	}
	fmt.Fprintf(&md, "\n[API help](/help)\n")

	s.renderPage(w, "page.html", "triador", md.String())
}

// handleHelp renders the operation surface reference.
func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	md := strings.TrimSpace(`
# [<](/) API help

All operations except session acquisition require the session token in an
` + "`Authorization: Bearer`" + ` header. Only one session is live at a time.

## Session

- ` + "`POST /session`" + ` — acquire the working token (409 while another session is live)
- ` + "`POST /session/heartbeat`" + ` — keep the session alive

## Triage

- ` + "`GET /image`" + ` — the current unsorted image (base64)
- ` + "`POST /classify`" + ` — per-category confidences for the current image
- ` + "`POST /actions`" + ` — queue a move of an image to a category
- ` + "`GET /actions`" + ` — pending actions, oldest first
- ` + "`POST /undo`" + ` — discard the most recent pending action
- ` + "`POST /commit`" + ` — apply all pending actions and retrain incrementally

## Folders

- ` + "`GET /folders`" + ` — category folders with derived state
- ` + "`POST /folders`" + ` — create a category folder
- ` + "`DELETE /folders/{name}`" + ` — delete an empty, unreferenced folder

## Model

- ` + "`POST /initialize`" + ` — train from the already-sorted folders (idempotent)
`)
	s.renderPage(w, "page.html", "API help", md)
}

func (s *Server) renderPage(w http.ResponseWriter, view, title, markdownContent string) {
	data := map[string]any{"Title": title, "Content": markdownContent}
	if err := views.Render(w, view, data); err != nil {
		s.logger.Error("while rendering page", zap.String("view", view), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
