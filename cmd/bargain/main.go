// cmd/bargain/main.go
//
// This is the entry point for the bargain participant client.
//
// Flow:
// 1. Parse flags and load .bargain/config.yaml from the project directory
// 2. Build the board controller, the session journal and the HTTP transport
// 3. Start the event bridge so the orchestrator can push phases and messages
// 4. Run the TUI until the participant quits

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/kingrea/bargain/internal/board"
	"github.com/kingrea/bargain/internal/config"
	"github.com/kingrea/bargain/internal/eventbridge"
	"github.com/kingrea/bargain/internal/logbook"
	"github.com/kingrea/bargain/internal/logging"
	"github.com/kingrea/bargain/internal/session"
	"github.com/kingrea/bargain/internal/transport"
	"github.com/kingrea/bargain/internal/tui"
)

const shutdownTimeout = 3 * time.Second

type options struct {
	projectDir   string
	participant  string
	orchestrator string
	bridgePort   int
	noBridge     bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	flagSet := pflag.NewFlagSet("bargain", pflag.ContinueOnError)
	flagSet.StringVar(&opts.projectDir, "project", "", "directory holding .bargain/ (default: current directory)")
	flagSet.StringVar(&opts.participant, "participant", "", "participant id assigned by the study")
	flagSet.StringVar(&opts.orchestrator, "orchestrator", "", "orchestrator base URL")
	flagSet.IntVar(&opts.bridgePort, "bridge-port", 0, "port for inbound orchestrator events")
	flagSet.BoolVar(&opts.noBridge, "no-bridge", false, "do not listen for orchestrator events")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.ProjectDir)
	if err != nil {
		return err
	}
	defer logger.Close()

	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("open session journal: %w", err)
	}

	participantID := cfg.ParticipantID()
	controller := board.New(participantID,
		board.WithMinWords(cfg.Project.Rules.MinWords),
		board.WithMessageFloor(cfg.Project.Rules.MessageFloor),
	)
	sess := session.New(controller, journal)

	client, err := transport.New(cfg.OrchestratorURL(),
		transport.WithTimeout(cfg.SendTimeout()),
		transport.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appOpts := []tui.AppOption{
		tui.WithSender(client),
		tui.WithContext(ctx),
		tui.WithSendTimeout(cfg.SendTimeout()),
	}

	settings := eventbridge.SettingsFromConfig(cfg)
	if opts.bridgePort > 0 {
		settings.Port = opts.bridgePort
	}
	if opts.noBridge {
		settings.Enabled = false
	}
	if settings.Enabled {
		router := eventbridge.NewRouter(eventbridge.RouterWithLogger(logger))
		server := eventbridge.NewServer(settings,
			eventbridge.WithProcessor(router),
			eventbridge.WithLogger(logger),
		)
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Printf("bargain: bridge shutdown: %v", err)
			}
		}()
		sub := router.Subscribe(participantID)
		defer sub.Close()
		appOpts = append(appOpts, tui.WithEvents(sub.Events))
		logger.Printf("bargain: %s accepting events at %s/events", participantID, server.BaseURL())
	} else {
		logger.Printf("bargain: event bridge disabled")
	}

	program := tea.NewProgram(tui.NewApp(sess, appOpts...), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// loadConfig initializes .bargain/ and layers flags over the file and
// environment.
func loadConfig(opts options) (*config.Config, error) {
	projectDir := opts.projectDir
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		projectDir = cwd
	}
	if err := config.InitBargainDir(projectDir); err != nil {
		return nil, fmt.Errorf("initialize .bargain directory: %w", err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	if opts.participant != "" {
		cfg.SetParticipantID(opts.participant)
	}
	if opts.orchestrator != "" {
		if err := cfg.SetOrchestratorURL(opts.orchestrator); err != nil {
			return nil, err
		}
	}
	if cfg.ParticipantID() == "" {
		return nil, errors.New("participant id required: pass --participant, set BARGAIN_PARTICIPANT_ID or participant.id in .bargain/config.yaml")
	}
	return cfg, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `bargain: participant client for the negotiation study.

Shows the board for one participant, sends each submission to the
orchestrator and listens for the phases and messages it pushes back.

Usage:
  bargain [flags]

Flags:
`)
	flagSet.PrintDefaults()
}
