package server

import (
	"encoding/json"
	"expvar"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wfunc/roomserver/logger"
)

// Router wires the socket endpoint with the operational HTTP views.
func (s *GameServer) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.monitor.Handler()).Methods(http.MethodGet)
	r.Handle("/debug/vars", expvar.Handler()).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/rooms", s.handleListRooms).Methods(http.MethodGet)
	admin.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods(http.MethodGet)
	admin.HandleFunc("/rooms/{code}/scenes/{scene}", s.handleSceneView).Methods(http.MethodGet)
	admin.HandleFunc("/connections", s.handleListConnections).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnw("write admin response", "error", err)
	}
}

func (s *GameServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.Serving() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stopped"})
		return
	}
	rooms, players := s.roomManager.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"rooms":       rooms,
		"players":     players,
		"connections": s.sessionManager.Count(),
	})
}

func (s *GameServer) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.roomManager.Rooms())
}

func (s *GameServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	detail, ok := s.roomManager.GetRoom(code)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *GameServer) handleSceneView(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	players, ok := s.roomManager.PlayersInScene(vars["code"], vars["scene"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *GameServer) handleListConnections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionManager.List())
}
