package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"boxscore-service/config"
	"boxscore-service/services"
)

type Server struct {
	config     *config.Config
	db         *sql.DB
	wsHub      *Hub
	rawStore   *services.RawGameStore
	ingestor   *services.GameIngestor
	populator  *services.GamePopulator
	verifier   *services.GameVerifier
	temporal   *services.TemporalTracker
	checker    *services.IntegrityChecker
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func NewServer(
	cfg *config.Config,
	db *sql.DB,
	hub *Hub,
	rawStore *services.RawGameStore,
	ingestor *services.GameIngestor,
	populator *services.GamePopulator,
	verifier *services.GameVerifier,
	temporal *services.TemporalTracker,
) *Server {
	return &Server{
		config:    cfg,
		db:        db,
		wsHub:     hub,
		rawStore:  rawStore,
		ingestor:  ingestor,
		populator: populator,
		verifier:  verifier,
		temporal:  temporal,
		checker:   services.NewIntegrityChecker(db),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源(生产环境需要限制)
			},
		},
	}
}

func (s *Server) Start() error {
	router := mux.NewRouter()

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	// 抓取与入库
	api.HandleFunc("/ingest", s.handleIngest).Methods("POST")
	api.HandleFunc("/populate", s.handlePopulateBatch).Methods("POST")
	api.HandleFunc("/populate/{game_id}", s.handlePopulateGame).Methods("POST")
	api.HandleFunc("/rebuild", s.handleRebuild).Methods("POST")
	api.HandleFunc("/reset", s.handleReset).Methods("POST")

	// 校验
	api.HandleFunc("/verify", s.handleVerifyBatch).Methods("POST")
	api.HandleFunc("/verify/{game_id}", s.handleVerifyGame).Methods("POST")

	// 时间字段校正
	api.HandleFunc("/reconcile", s.handleReconcile).Methods("POST")

	// 一致性检查
	api.HandleFunc("/integrity", s.handleIntegrity).Methods("GET")

	// 查询
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{game_id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{game_id}/raw", s.handleGetRawGame).Methods("GET")

	// WebSocket路由 (进度广播)
	router.HandleFunc("/ws", s.handleWebSocket)

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleWebSocket WebSocket连接处理
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:     s.wsHub,
		conn:    conn,
		send:    make(chan []byte, 256),
		types:   make(map[string]bool),
		gameIDs: make(map[string]bool),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
