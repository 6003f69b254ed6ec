// Package dashboard serves a local status page with live session events.
// It never sees or shows the stream credential.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"deskstream/internal/constants"
	"deskstream/internal/events"
	"deskstream/internal/security"
	"deskstream/internal/types"
	"deskstream/internal/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// StatsProvider is the read side of the streaming server.
type StatsProvider interface {
	Stats() types.Stats
	Sessions() []types.SessionInfo
	URL() string
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

type Dashboard struct {
	mu        sync.RWMutex
	events    []events.Event
	maxEvents int

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader
	tmpl     *template.Template
	stats    StatsProvider
	logPath  string

	addr     string
	server   *http.Server
	listener net.Listener
}

func New(addr string, stats StatsProvider, logPath string) (*Dashboard, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard templates: %w", err)
	}

	d := &Dashboard{
		maxEvents: constants.DashboardMaxEvents,
		clients:   make(map[*wsClient]struct{}),
		tmpl:      tmpl,
		stats:     stats,
		logPath:   logPath,
		addr:      addr,
	}
	d.upgrader = websocket.Upgrader{
		CheckOrigin:     sameOrigin,
		ReadBufferSize:  constants.DashboardWSBuffer,
		WriteBufferSize: constants.DashboardWSBuffer,
	}
	return d, nil
}

// sameOrigin accepts non-browser clients and pages served by the dashboard
// itself.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", d.handleIndex)
	mux.HandleFunc("/ws", d.handleWebSocket)
	mux.HandleFunc("/api/stats", d.handleStats)
	mux.HandleFunc("/api/sessions", d.handleSessions)
	mux.HandleFunc("/api/events", d.handleEvents)

	var handler http.Handler = mux
	handler = RecoveryMiddleware(handler)
	handler = security.SecurityHeaders(handler)
	handler = GzipMiddleware(handler)
	return h2c.NewHandler(handler, &http2.Server{})
}

func (d *Dashboard) Start() error {
	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return fmt.Errorf("dashboard listen on %s: %w", d.addr, err)
	}
	d.listener = ln
	d.server = &http.Server{
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Dashboard server error: %v", err)
		}
	}()
	return nil
}

func (d *Dashboard) Stop() error {
	if d.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.DashboardShutdown)
	defer cancel()
	err := d.server.Shutdown(ctx)

	d.clientsMu.Lock()
	for c := range d.clients {
		c.conn.Close()
	}
	d.clientsMu.Unlock()
	return err
}

// URL is the address the dashboard is reachable on once started.
func (d *Dashboard) URL() string {
	if d.listener == nil {
		return ""
	}
	return "http://" + d.listener.Addr().String()
}

// Deliver records an event and pushes it to every connected browser. Slow
// browsers miss events rather than stall the bus.
func (d *Dashboard) Deliver(_ context.Context, ev events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, ev)
	if len(d.events) > d.maxEvents {
		d.events = d.events[len(d.events)-d.maxEvents:]
	}
	d.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	d.clientsMu.RLock()
	defer d.clientsMu.RUnlock()
	for c := range d.clients {
		select {
		case c.send <- data:
		default:
		}
	}
	return nil
}

func (d *Dashboard) recentEvents() []events.Event {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]events.Event, len(d.events))
	copy(out, d.events)
	return out
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := map[string]string{
		"Title":    constants.AppName + " dashboard",
		"ShareURL": utils.RedactURL(d.stats.URL()),
	}
	if err := d.tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		log.Printf("Error rendering dashboard: %v", err)
	}
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, d.maxEvents)}
	for _, ev := range d.recentEvents() {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}

	d.clientsMu.Lock()
	d.clients[c] = struct{}{}
	d.clientsMu.Unlock()

	done := make(chan struct{})
	go d.writePump(c, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	d.clientsMu.Lock()
	delete(d.clients, c)
	d.clientsMu.Unlock()
	close(done)
	conn.Close()
}

func (d *Dashboard) writePump(c *wsClient, done <-chan struct{}) {
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.DashboardWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}

type statsResponse struct {
	types.Stats
	ShareURL         string `json:"share_url,omitempty"`
	DashboardClients int    `json:"dashboard_clients"`
	LogPath          string `json:"log_path,omitempty"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	d.clientsMu.RLock()
	clientsCount := len(d.clients)
	d.clientsMu.RUnlock()

	writeJSON(w, statsResponse{
		Stats:            d.stats.Stats(),
		ShareURL:         utils.RedactURL(d.stats.URL()),
		DashboardClients: clientsCount,
		LogPath:          d.logPath,
	})
}

func (d *Dashboard) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, d.stats.Sessions())
}

func (d *Dashboard) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, d.recentEvents())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding dashboard response: %v", err)
	}
}
