package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/talktagger/server/internal/config"
	"github.com/talktagger/server/internal/content"
	"github.com/talktagger/server/internal/game"
	"github.com/talktagger/server/internal/pipeline"
	"github.com/talktagger/server/internal/ws"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`TalkTagger - Can you guess who said that?

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                    Port to listen on (default: 8080)
  PUBLIC_URL              Externally reachable base URL, used for join QR codes
  GAME_DATA_PATH          Pipeline output file (default: ./data/game_data.json)
  ROUND_SECONDS           Round duration in seconds (default: 15)
  SWEEP_INTERVAL_SECONDS  Orphaned-session sweep interval (default: 300)
  HOST_GRACE_SECONDS      Host reconnect grace window (default: 300)
  EXPORT_ENABLED          Export final results to file (default: true)
  EXPORT_FILE             Path to export results (default: ./talktagger-results.txt)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("TalkTagger %s\n", version)
		return
	}

	_ = godotenv.Load()

	cfg := config.FromEnv()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Question pool from the offline pipeline; the server still starts
	// without it, session creation just reports no data.
	pool, err := content.Load(cfg.GameDataPath)
	if err != nil {
		zerologlog.Warn().Err(err).Str("path", cfg.GameDataPath).Msg("no game data loaded")
		pool = &content.Pool{}
	} else {
		zerologlog.Info().Int("real", len(pool.Real)).Int("generated", len(pool.Generated)).Msg("game data loaded")
	}

	tracker := pipeline.NewTracker()
	sock := ws.New(tracker)
	tracker.OnUpdate(sock.Broadcast)

	sched := game.NewRoundScheduler()
	exportFile := ""
	if cfg.ExportEnabled {
		exportFile = cfg.ExportFile
	}
	reg := game.NewRegistry(sock, sched, game.RegistryConfig{
		RoundDuration: cfg.RoundDuration,
		ExportFile:    exportFile,
	})
	sock.SetRegistry(reg)
	sock.SetPool(pool)
	io := sock.Mount(r)
	defer io.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go game.NewSweeper(reg, cfg.SweepInterval, cfg.GraceWindow).Run(ctx)

	// Pipeline status passthrough: the offline pipeline pushes updates here,
	// every connected client gets them verbatim.
	r.GET("/pipeline-status", func(c *gin.Context) {
		c.JSON(http.StatusOK, tracker.Get())
	})
	r.POST("/api/pipeline/status", func(c *gin.Context) {
		var status map[string]any
		if err := c.BindJSON(&status); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
			return
		}
		tracker.Set(status)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.GET("/game-data", func(c *gin.Context) {
		if pool.Empty() {
			c.JSON(http.StatusNotFound, gin.H{"error": "No game data available"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"real_rounds":      pool.Real,
			"generated_rounds": pool.Generated,
			"superlatives":     pool.Superlatives,
		})
	})

	// Join QR for a live session, scannable from the host display.
	r.GET("/api/session/:code/qr", func(c *gin.Context) {
		sess, err := reg.Get(c.Param("code"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		url := strings.TrimRight(cfg.PublicURL, "/") + "/join/" + sess.Code
		png, err := qrcode.Encode(url, qrcode.Medium, 320)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	log.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
