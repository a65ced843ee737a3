package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shaunagostinho/audible-altimeter/internal/altitude"
	"github.com/shaunagostinho/audible-altimeter/internal/gps"
	"github.com/shaunagostinho/audible-altimeter/internal/logger"
)

// BroadcastInterval is how often frames are pushed to dashboard clients.
const BroadcastInterval = 500 * time.Millisecond

// Server exposes the altimeter over HTTP and pushes frames to WebSocket
// clients.
type Server struct {
	cfg    *Config
	state  *altitude.State
	webFS  fs.FS
	logger *logger.Logger

	// Called after a zero reference or delay change so it takes effect
	// right away. Nil when speech is off.
	trigger func()

	gpsMu   sync.RWMutex
	lastGPS *gps.Data

	annMu        sync.RWMutex
	lastAnnounce *Announcement

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Frame is the JSON structure sent to all WebSocket clients.
type Frame struct {
	Altitude  *altitude.Snapshot `json:"altitude,omitempty"`
	GPS       *gps.Data          `json:"gps,omitempty"`
	Settings  *SettingsFrame     `json:"settings,omitempty"`
	Announced *Announcement      `json:"announced,omitempty"`
	Stamp     int64              `json:"stamp"` // Unix ms
}

// SettingsFrame carries the active settings plus the choices the
// dashboard offers for each.
type SettingsFrame struct {
	altitude.Settings
	Precisions []int     `json:"precisions"`
	Delays     []float64 `json:"delays"`
}

// Announcement is the last text handed to the speech engine.
type Announcement struct {
	Text  string `json:"text"`
	Stamp int64  `json:"stamp"` // Unix ms
}

// zeroRequest is the body of POST /api/zero.
type zeroRequest struct {
	Reference altitude.Zero `json:"reference"`
}

// New creates a new Server.
func New(cfg *Config, state *altitude.State, webFS fs.FS) *Server {
	return &Server{
		cfg:     cfg,
		state:   state,
		webFS:   webFS,
		logger:  logger.New(cfg.Logging),
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetTrigger registers the function that requests an immediate
// announcement.
func (s *Server) SetTrigger(fn func()) { s.trigger = fn }

// UpdateGPS stores the latest fix for the next frame. It has the shape of
// gps.FixHandler.
func (s *Server) UpdateGPS(d *gps.Data) {
	cp := *d
	s.gpsMu.Lock()
	s.lastGPS = &cp
	s.gpsMu.Unlock()
}

// Announced records a spoken announcement and pushes it to clients. It
// has the shape of the scheduler's announce hook.
func (s *Server) Announced(text string) {
	a := &Announcement{Text: text, Stamp: time.Now().UnixMilli()}
	s.annMu.Lock()
	s.lastAnnounce = a
	s.annMu.Unlock()

	s.logger.Announce(s.state.Snapshot(), text)
	s.broadcast(Frame{Announced: a, Stamp: a.Stamp})
}

// LastAnnouncement returns the most recent announcement, if any.
func (s *Server) LastAnnouncement() (Announcement, bool) {
	s.annMu.RLock()
	defer s.annMu.RUnlock()
	if s.lastAnnounce == nil {
		return Announcement{}, false
	}
	return *s.lastAnnounce, true
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Serve embedded web files
	if s.webFS != nil {
		mux.Handle("/", http.FileServer(http.FS(s.webFS)))
	}

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWS)

	// Settings API
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/zero", s.handleZero)
	return mux
}

// Run starts the HTTP server and the broadcast loop. It returns once both
// have stopped and the flight recorder file is closed.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		stop()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.broadcastLoop(ctx)
	}()

	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[server] listening on %s", s.cfg.Server.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()

	log.Printf("[ws] client connected (%d total)", n)

	// Initial frame carries the settings so the controls render at once.
	if data, err := json.Marshal(s.fullFrame()); err == nil {
		client.send <- data
	}

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (handle incoming messages / keep-alive)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			close(client.send)
			n := len(s.clients)
			s.clientsMu.Unlock()
			log.Printf("[ws] client disconnected (%d total)", n)
		}()
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.settingsFrame())

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
		if err != nil {
			http.Error(w, "bad request", 400)
			return
		}
		var patch altitude.SettingsPatch
		if err := json.Unmarshal(body, &patch); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if err := s.state.Apply(patch); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		log.Printf("[server] settings updated: %+v", s.state.Settings())
		// A new delay takes effect now rather than after the pending wait.
		if patch.Zero != nil || patch.DelaySeconds != nil {
			s.TriggerAnnouncement()
		}
		s.broadcast(Frame{Settings: s.settingsFrame(), Stamp: time.Now().UnixMilli()})
		writeJSON(w, s.settingsFrame())

	default:
		http.Error(w, "method not allowed", 405)
	}
}

func (s *Server) handleZero(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", 405)
		return
	}
	req := zeroRequest{Reference: altitude.Current}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		http.Error(w, "bad request", 400)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
	}
	if err := s.state.SetZero(req.Reference); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	log.Printf("[server] zero reference set to %s", req.Reference)
	s.TriggerAnnouncement()
	s.broadcast(Frame{Settings: s.settingsFrame(), Stamp: time.Now().UnixMilli()})
	writeJSON(w, s.settingsFrame())
}

// TriggerAnnouncement asks the scheduler to speak now. No-op without
// speech.
func (s *Server) TriggerAnnouncement() {
	if s.trigger != nil {
		s.trigger()
	}
}

// broadcastLoop pushes the altitude and latest fix to clients and feeds
// the flight recorder.
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Close()
			return
		case <-ticker.C:
			snap := s.state.Snapshot()

			s.gpsMu.RLock()
			gpsSnap := s.lastGPS
			s.gpsMu.RUnlock()

			s.broadcast(Frame{
				Altitude: &snap,
				GPS:      gpsSnap,
				Stamp:    time.Now().UnixMilli(),
			})

			// Record to CSV log
			s.logger.Record(snap, gpsSnap)
		}
	}
}

func (s *Server) settingsFrame() *SettingsFrame {
	return &SettingsFrame{
		Settings:   s.state.Settings(),
		Precisions: altitude.Precisions,
		Delays:     altitude.Delays,
	}
}

func (s *Server) fullFrame() Frame {
	snap := s.state.Snapshot()
	f := Frame{
		Altitude: &snap,
		Settings: s.settingsFrame(),
		Stamp:    time.Now().UnixMilli(),
	}
	s.gpsMu.RLock()
	f.GPS = s.lastGPS
	s.gpsMu.RUnlock()
	if a, ok := s.LastAnnouncement(); ok {
		f.Announced = &a
	}
	return f
}

func (s *Server) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
