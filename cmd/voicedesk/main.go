package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/voicedesk/voicedesk/internal/capture"
	"github.com/voicedesk/voicedesk/internal/config"
	"github.com/voicedesk/voicedesk/internal/logging"
	"github.com/voicedesk/voicedesk/internal/permissions"
	"github.com/voicedesk/voicedesk/internal/playback"
	"github.com/voicedesk/voicedesk/internal/protocol"
	"github.com/voicedesk/voicedesk/internal/session"
	"github.com/voicedesk/voicedesk/internal/transcript"
	"github.com/voicedesk/voicedesk/internal/transport"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logging.NewWithLevel(cfg.LogLevel)
	log.Info().Str("version", Version).Str("commit", Commit).Msg("voicedesk starting")

	// macOS requires explicit microphone approval before capture works
	if err := permissions.EnsurePermissions(); err != nil {
		log.Fatal().Err(err).Msg("Required permissions not granted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mic, err := capture.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio")
	}
	defer mic.Close()

	sink := playback.NewDeviceSink(log)
	defer sink.Close()
	player := playback.NewScheduler(sink, sink, log)

	transcripts := transcript.NewStore(printLine)
	status := &consoleStatus{}

	sess := session.New(session.Config{
		Player:      player,
		Transcripts: transcripts,
		Status:      status,
		Logger:      log,
		Init: protocol.InitOptions{
			VoiceName:             cfg.Voice.Name,
			SystemInstruction:     cfg.Voice.SystemInstruction,
			EnableAffectiveDialog: cfg.Voice.AffectiveDialog,
			EnableProactiveAudio:  cfg.Voice.ProactiveAudio,
		},
	})

	dialCtx, dialCancel := context.WithTimeout(ctx, 15*time.Second)
	tr, err := transport.Dial(dialCtx, cfg.ServerURL, sess, log)
	dialCancel()
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.ServerURL).Msg("Failed to connect")
	}

	driver := capture.NewDriver(mic, tr, cfg.Audio.InputDeviceID, cfg.Audio.FrameSize, log)
	sess.Attach(tr, driver)

	if err := sess.Hello(); err != nil {
		log.Fatal().Err(err).Msg("Handshake failed")
	}
	status.SetConnected()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		sess.Shutdown()
		os.Exit(0)
	}()

	fmt.Println("Commands: /talk, /stop, /devices, /quit. Anything else is sent as text.")
	runInput(ctx, sess, mic)
	sess.Shutdown()
}

// runInput reads stdin until EOF or /quit.
func runInput(ctx context.Context, sess *session.Session, mic capture.Device) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/talk":
			if err := sess.StartTalking(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "could not start capture: %v\n", err)
			}
		case "/stop":
			sess.StopTalking()
		case "/devices":
			devices, err := mic.ListDevices()
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not list devices: %v\n", err)
				continue
			}
			for _, d := range devices {
				marker := " "
				if d.Default {
					marker = "*"
				}
				fmt.Printf(" %s %s\n", marker, d.Name)
			}
		default:
			if err := sess.SendText(line); err != nil {
				fmt.Fprintf(os.Stderr, "could not send: %v\n", err)
			}
		}
	}
}

func printLine(l transcript.Line) {
	if !l.Final {
		return
	}
	fmt.Printf("[%s] %s\n", l.Speaker, l.Text)
}

// consoleStatus is the minimal status display; a richer UI would replace it.
type consoleStatus struct{}

func (consoleStatus) SetConnected() { fmt.Fprintln(os.Stderr, "● connected") }
func (consoleStatus) SetListening() { fmt.Fprintln(os.Stderr, "● listening") }
func (consoleStatus) SetIdle()      { fmt.Fprintln(os.Stderr, "○ disconnected") }
func (consoleStatus) SetError(msg string) {
	fmt.Fprintf(os.Stderr, "✖ %s\n", msg)
}
