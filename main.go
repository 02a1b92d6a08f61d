package main

import (
	"bufio"
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"chatd/config"
	"chatd/db"
	"chatd/presence"
	"chatd/server"
	"chatd/service"
)

func main() {
	cfg := config.Load()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// The presence store starts empty on every boot: presence is volatile
	// by design and re-established by client pings.
	directory := presence.NewDirectory(presence.NewStore())
	svc := service.New(database, directory)

	srv := server.New(svc, &server.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		WriteTimeout:   time.Duration(cfg.WriteTimeout) * time.Second,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}

	go startControlSocket(cfg.ControlSocket, svc, httpServer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		shutdown(httpServer)
		os.Remove(cfg.ControlSocket)
		os.Exit(0)
	}()

	log.Printf("chatd listening on %s", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func shutdown(httpServer *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}

func startControlSocket(path string, svc *service.Service, httpServer *http.Server) {
	os.Remove(path)

	listener, err := net.Listen("unix", path)
	if err != nil {
		log.Printf("Failed to create control socket: %v", err)
		return
	}
	defer listener.Close()
	defer os.Remove(path)

	log.Printf("Control socket listening on %s", path)

	for {
		conn, err := listener.Accept()
		if err != nil {
			continue
		}

		go handleControlCommand(svc, httpServer, path, conn)
	}
}

func handleControlCommand(svc *service.Service, httpServer *http.Server, socketPath string, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	switch strings.TrimSpace(line) {
	case "stats":
		online := svc.GetOnlineUsers().OnlineUsers
		stats := "online=" + strconv.Itoa(len(online)) + ",users=" + strings.Join(online, ";")
		conn.Write([]byte("OK|" + stats + "\n"))

	case "shutdown":
		conn.Write([]byte("OK|Shutting down\n"))
		conn.Close()

		time.Sleep(100 * time.Millisecond)

		log.Printf("Shutdown requested via control socket")
		shutdown(httpServer)
		os.Remove(socketPath)
		os.Exit(0)

	default:
		conn.Write([]byte("ERROR|Unknown command\n"))
	}
}
