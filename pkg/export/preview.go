// This file implements a local preview server for the rendered graph.
// Every request re-reads the snapshot, so a fresh fetch shows up on reload.

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"slices"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gliv-dev/gliv/pkg/analysis"
	"github.com/gliv-dev/gliv/pkg/filter"
	"github.com/gliv-dev/gliv/pkg/graph"
)

// SnapshotSource loads the snapshot to render.
type SnapshotSource func(ctx context.Context) (*graph.Snapshot, error)

// CriteriaFunc returns the selection used when a request names none.
type CriteriaFunc func(*graph.Snapshot) (filter.Criteria, error)

// PreviewServer serves the graph of the current snapshot.
type PreviewServer struct {
	source   SnapshotSource
	defaults CriteriaFunc
	zoom     float64
	port     int
	logger   *zap.Logger
	server   *http.Server
}

// NewPreviewServer creates a new preview server.
func NewPreviewServer(source SnapshotSource, defaults CriteriaFunc, port int, zoom float64, logger *zap.Logger) *PreviewServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults == nil {
		defaults = func(s *graph.Snapshot) (filter.Criteria, error) { return s.DefaultCriteria(), nil }
	}
	p := &PreviewServer{
		source:   source,
		defaults: defaults,
		zoom:     clampZoom(zoom),
		port:     port,
		logger:   logger,
	}
	p.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           p.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return p
}

// Handler returns the server's routes.
func (p *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", p.pageHandler)
	mux.HandleFunc("/graph.svg", p.graphHandler("svg"))
	mux.HandleFunc("/graph.png", p.graphHandler("png"))
	mux.HandleFunc("/__preview__/status", p.statusHandler)
	return noCacheMiddleware(mux)
}

// Start starts the preview server and blocks until stopped.
func (p *PreviewServer) Start() error {
	p.logger.Info("preview server running", zap.String("url", p.URL()))
	return p.server.ListenAndServe()
}

// StartWithGracefulShutdown starts the server and stops it on SIGINT,
// SIGTERM or when ctx is done.
func (p *PreviewServer) StartWithGracefulShutdown(ctx context.Context, openBrowser bool) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errChan := make(chan error, 1)
	go func() {
		if err := p.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	if openBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := OpenInBrowser(p.URL()); err != nil {
				p.logger.Warn("could not open browser", zap.String("url", p.URL()), zap.Error(err))
			}
		}()
	}

	select {
	case <-stop:
	case <-ctx.Done():
	case err := <-errChan:
		return err
	}
	p.logger.Info("shutting down preview server")
	return p.Stop()
}

// Stop gracefully stops the preview server.
func (p *PreviewServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.server.Shutdown(ctx)
}

// Port returns the port the server is running on.
func (p *PreviewServer) Port() int {
	return p.port
}

// URL returns the full URL of the preview server.
func (p *PreviewServer) URL() string {
	return fmt.Sprintf("http://localhost:%d", p.port)
}

// selection resolves the criteria and zoom of a request. A submitted form
// replaces the defaults entirely, so unchecked boxes mean "off".
func (p *PreviewServer) selection(s *graph.Snapshot, q url.Values) (filter.Criteria, float64, error) {
	c, err := p.defaults(s)
	if err != nil {
		return filter.Criteria{}, 0, err
	}

	if q.Get("form") == "1" {
		var projects []int
		for _, v := range q["project"] {
			id, err := strconv.Atoi(v)
			if err != nil {
				return filter.Criteria{}, 0, fmt.Errorf("bad project %q", v)
			}
			projects = append(projects, id)
		}
		c = filter.NewCriteria(projects, q["label"], q.Get("unlabeled") == "on", c.Closed)
	}
	if v := q.Get("closed"); v != "" {
		mode, err := filter.ParseClosedDisplay(v)
		if err != nil {
			return filter.Criteria{}, 0, err
		}
		c.Closed = mode
	}

	zoom := p.zoom
	if v := q.Get("zoom"); v != "" {
		z, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter.Criteria{}, 0, fmt.Errorf("bad zoom %q", v)
		}
		zoom = clampZoom(z)
	}
	return c, zoom, nil
}

func (p *PreviewServer) graphHandler(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := p.source(r.Context())
		if err != nil {
			p.fail(w, http.StatusServiceUnavailable, err)
			return
		}
		c, zoom, err := p.selection(snap, r.URL.Query())
		if err != nil {
			p.fail(w, http.StatusBadRequest, err)
			return
		}

		view := graph.Assemble(snap, c)
		var buf bytes.Buffer
		if format == "png" {
			w.Header().Set("Content-Type", "image/png")
			err = WritePNG(&buf, view, zoom)
		} else {
			w.Header().Set("Content-Type", "image/svg+xml")
			err = WriteSVG(&buf, view, zoom)
		}
		if err != nil {
			p.fail(w, http.StatusInternalServerError, err)
			return
		}
		w.Write(buf.Bytes())
	}
}

type pageOption struct {
	Value   string
	Label   string
	Checked bool
}

type pageEpic struct {
	Title       string
	Closed      int
	Total       int
	Percent     int
	Description string
}

type pageData struct {
	Summary   string
	GraphURL  template.URL
	MaxWidth  int
	Projects  []pageOption
	Labels    []pageOption
	Unlabeled bool
	Closed    []pageOption
	Zooms     []pageOption
	Epics     []pageEpic
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>gliv</title>
<style>
body { font-family: sans-serif; display: flex; margin: 0; }
form { width: 16rem; padding: 1rem; background: #f4f4f4; min-height: 100vh; }
main { flex: 1; padding: 1rem; overflow: auto; }
fieldset { border: none; padding: 0; margin-bottom: 1rem; }
legend { font-weight: bold; }
progress { width: 8rem; }
</style>
</head>
<body>
<form method="get" action="/">
<input type="hidden" name="form" value="1">
<fieldset><legend>Projects</legend>
{{range .Projects}}<label><input type="checkbox" name="project" value="{{.Value}}"{{if .Checked}} checked{{end}}> {{.Label}}</label><br>
{{end}}</fieldset>
<fieldset><legend>Labels</legend>
{{range .Labels}}<label><input type="checkbox" name="label" value="{{.Value}}"{{if .Checked}} checked{{end}}> {{.Label}}</label><br>
{{end}}<label><input type="checkbox" name="unlabeled"{{if .Unlabeled}} checked{{end}}> Show unlabeled</label></fieldset>
<fieldset><legend>Closed issues</legend>
<select name="closed">{{range .Closed}}<option value="{{.Value}}"{{if .Checked}} selected{{end}}>{{.Label}}</option>{{end}}</select></fieldset>
<fieldset><legend>Zoom</legend>
<select name="zoom">{{range .Zooms}}<option value="{{.Value}}"{{if .Checked}} selected{{end}}>{{.Label}}</option>{{end}}</select></fieldset>
<button type="submit">Apply</button>
</form>
<main>
<p>{{.Summary}}</p>
<object data="{{.GraphURL}}" type="image/svg+xml" style="max-width: {{.MaxWidth}}%"></object>
{{if .Epics}}<h3>Epics</h3>
<table>
{{range .Epics}}<tr><td>{{.Title}}</td><td><progress max="100" value="{{.Percent}}"></progress></td><td>{{.Closed}}/{{.Total}}</td><td>{{.Description}}</td></tr>
{{end}}</table>{{end}}
</main>
</body>
</html>
`))

func (p *PreviewServer) pageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	snap, err := p.source(r.Context())
	if err != nil {
		p.fail(w, http.StatusServiceUnavailable, err)
		return
	}
	c, zoom, err := p.selection(snap, r.URL.Query())
	if err != nil {
		p.fail(w, http.StatusBadRequest, err)
		return
	}
	view := graph.Assemble(snap, c)

	graphQuery := url.Values{"form": {"1"}, "closed": {string(c.Closed)}, "zoom": {strconv.FormatFloat(zoom, 'f', -1, 64)}}
	for _, id := range c.SelectedProjects() {
		graphQuery.Add("project", strconv.Itoa(id))
	}
	for _, l := range c.SelectedLabels() {
		graphQuery.Add("label", l)
	}
	if c.ShowUnlabeled {
		graphQuery.Set("unlabeled", "on")
	}

	data := pageData{
		Summary:   view.Summary(),
		GraphURL:  template.URL("/graph.svg?" + graphQuery.Encode()),
		MaxWidth:  int(100 * zoom),
		Unlabeled: c.ShowUnlabeled,
	}
	for _, id := range snap.ProjectIDs() {
		data.Projects = append(data.Projects, pageOption{Value: strconv.Itoa(id), Label: snap.Projects[id], Checked: c.Projects[id]})
	}
	labels := analysis.ExtractLabels(snap.Issues, snap.Blocking)
	for _, l := range labels.Labels {
		data.Labels = append(data.Labels, pageOption{Value: l, Label: fmt.Sprintf("%s (%d)", l, labels.Stats[l].TotalCount), Checked: c.Labels[l]})
	}
	for _, m := range filter.ClosedDisplayModes {
		data.Closed = append(data.Closed, pageOption{Value: string(m), Label: string(m), Checked: m == c.Closed})
	}
	data.Zooms = zoomOptions(zoom)
	for _, e := range graph.SortedEpics(view.Epics) {
		data.Epics = append(data.Epics, pageEpic{
			Title:       e.Title,
			Closed:      e.ClosedCount,
			Total:       e.TotalCount,
			Percent:     int(e.Progress() * 100),
			Description: e.Description,
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		p.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// statusHandler returns the preview server status as JSON.
func (p *PreviewServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := map[string]any{"status": "running", "port": p.port}
	snap, err := p.source(r.Context())
	if err != nil {
		status["status"] = "no_snapshot"
		status["error"] = err.Error()
	} else {
		status["issues"] = len(snap.Issues)
		status["projects"] = len(snap.Projects)
		status["epics"] = len(snap.Epics)
		status["created_at"] = snap.CreatedAt
	}
	json.NewEncoder(w).Encode(status)
}

func (p *PreviewServer) fail(w http.ResponseWriter, code int, err error) {
	p.logger.Warn("preview request failed", zap.Int("status", code), zap.Error(err))
	http.Error(w, err.Error(), code)
}

// noCacheMiddleware adds headers to prevent browser caching.
func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// OpenInBrowser opens url with the platform's default handler.
func OpenInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// FindAvailablePort finds an available port in the given range.
func FindAvailablePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d", start, end)
}

// PreviewPortRange defines the range of ports to try when none is given.
const (
	PreviewPortRangeStart = 9000
	PreviewPortRangeEnd   = 9100
)

// PreviewConfig configures the preview server.
type PreviewConfig struct {
	// Port is the port to serve on (0 for auto-select)
	Port int

	Zoom float64

	// OpenBrowser determines whether to auto-open a browser
	OpenBrowser bool
}

// DefaultPreviewConfig returns sensible defaults for preview configuration.
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Port:        0, // Auto-select
		Zoom:        MinZoom,
		OpenBrowser: true,
	}
}

// StartPreviewWithConfig starts a preview server and blocks until it stops.
func StartPreviewWithConfig(ctx context.Context, source SnapshotSource, defaults CriteriaFunc, config PreviewConfig, logger *zap.Logger) error {
	port := config.Port
	if port == 0 {
		var err error
		port, err = FindAvailablePort(PreviewPortRangeStart, PreviewPortRangeEnd)
		if err != nil {
			return fmt.Errorf("could not find available port: %w", err)
		}
	}

	server := NewPreviewServer(source, defaults, port, config.Zoom, logger)
	return server.StartWithGracefulShutdown(ctx, config.OpenBrowser)
}

// zoomOptions lists the half steps between MinZoom and MaxZoom with current
// selected. A current zoom between steps gets its own option.
func zoomOptions(current float64) []pageOption {
	var steps []float64
	for z := MinZoom; z <= MaxZoom; z += 0.5 {
		steps = append(steps, z)
	}
	if !slices.Contains(steps, current) {
		steps = append(steps, current)
		slices.Sort(steps)
	}
	opts := make([]pageOption, len(steps))
	for i, z := range steps {
		v := strconv.FormatFloat(z, 'f', -1, 64)
		opts[i] = pageOption{Value: v, Label: v + "x", Checked: z == current}
	}
	return opts
}
