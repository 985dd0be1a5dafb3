package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/byteshield/lynx/cmd/bot/config"
	"github.com/byteshield/lynx/cmd/bot/monitoring"
	"github.com/byteshield/lynx/pkg/dataaccess"
	"github.com/byteshield/lynx/pkg/logging"
	"github.com/byteshield/lynx/pkg/request"
	"github.com/byteshield/lynx/pkg/tickets"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IApp is the interface for the application.
type IApp interface {
	// Session returns the discord session.
	Session() *discordgo.Session

	// Log returns the logger.
	Log() *slog.Logger

	// GuildDal returns the guild data access layer.
	GuildDal() dataaccess.GuildDal

	// Tickets returns the ticket lifecycle manager.
	Tickets() *tickets.Manager

	// OpenLimiter returns the rate limiter for the open-ticket button.
	OpenLimiter() *userLimiter
}

type App struct {
	// is the logger.
	*slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// gd is the guild data access layer.
	gd dataaccess.GuildDal

	// manager is the ticket lifecycle manager.
	manager *tickets.Manager

	// openLimiter throttles the open-ticket button per user.
	openLimiter *userLimiter

	// eventNotifier is the channel for notifying of events.
	eventNotifier chan any
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router) *App {
	return &App{
		Logger: l,
		r:      r,
	}
}

func (a *App) Run() error {
	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))

		if err := s.UpdateGameStatus(0, "support tickets"); err != nil {
			a.Warn("Error setting presence", slog.String(logging.KeyError, err.Error()))
		}
	})

	if err := a.setupTicketing(); err != nil {
		return fmt.Errorf("error setting up ticketing: %w", err)
	}

	// Register slash commands.
	if err := a.registerSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Start event listener.
	go a.eventListener()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	a.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Process shutdown signal.
	for sig := range c {
		a.Info("Received shutdown signal", slog.String(logging.KeySignal, sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	// Unregister slash commands.
	if err := a.unregisterSlashCommands(); err != nil {
		return fmt.Errorf("error unregistering slash commands: %w", err)
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + config.BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAll)

	if a.eventNotifier == nil {
		// Create event notifier. This is used to observe gateway events. It is buffered to prevent blocking.
		a.eventNotifier = make(chan any, 100)
	}

	dg.SetEventNotifier(a.eventNotifier)

	a.s = dg
	return nil
}

// setupTicketing builds the ticket lifecycle manager: data access layers,
// the registry rehydrated from the store, and the admission window.
func (a *App) setupTicketing() error {
	a.gd = dataaccess.NewGuildDal(a.Log())
	a.openLimiter = newUserLimiter()

	registry := tickets.NewRegistry(a.Log(), dataaccess.NewTicketDal(a.Log()))
	if err := registry.Load(context.Background()); err != nil {
		return fmt.Errorf("error loading ticket registry: %w", err)
	}

	window, err := tickets.NewWindow(config.TicketTimezone)
	if err != nil {
		return fmt.Errorf("error building admission window: %w", err)
	}

	// The bot's user ID matches the application ID, and is needed before the
	// gateway session is open to grant the bot access to ticket channels.
	a.manager = tickets.NewManager(a.Log(), a.s, a.gd, registry, window, config.ApplicationId)
	return nil
}

func (a *App) runServer() {
	go func() {
		a.Info("Starting monitoring server")
		if err := a.svr.ListenAndServe(); err != nil {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	// PathMetrics is the path for metrics.
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// PathHealth is the path for health check.
	a.r.HandleFunc(PathHealth, middlewareHttp(a, a.healthCheck())).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.Log())

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Log())
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + config.MonitoringPort,
		Handler: a.r,
	}
}

func (a *App) GetJoinedGuilds() ([]*discordgo.UserGuild, error) {
	guilds, err := a.s.UserGuilds(0, "", "")
	if err != nil {
		return nil, fmt.Errorf("error getting guilds: %w", err)
	}
	return guilds, nil
}

func (a *App) RegisterDiscordHandlers() error {
	// Bot joined guild.
	a.s.AddHandler(guildJoinedHandler(a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a,
		// Slash Controllers
		map[string]commandController{
			setTicketsCmdName:  setTicketsController,
			closeTicketCmdName: closeTicketController,
		},
		// Button Controllers
		map[string]commandProcessor{
			OpenTicketButtonID:    openTicketProcessor,
			tickets.CloseButtonID: closeButtonProcessor,
		}))
	return nil
}

func (a *App) eventListener() {
	for e := range a.eventNotifier {
		switch t := e.(type) {
		case *discordgo.Event:
			if t.Type != "" {
				monitoring.TotalDiscordEvents.WithLabelValues(t.Type).Inc()
			} else {
				// If there is no type, then use the operation name.
				monitoring.TotalDiscordEvents.WithLabelValues(strings.ToUpper(t.Operation.String())).Inc()
			}
		default:
			a.Error("Unknown event type", slog.String("type", fmt.Sprintf("%T", e)))
			monitoring.TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
		}
	}
}

func (a *App) registerSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Register slash commands for each guild.
	for _, g := range guilds {
		// Register the setup command.
		if _, err := a.Session().ApplicationCommandCreate(config.ApplicationId, g.ID, setTicketsCmd); err != nil {
			return fmt.Errorf("error creating %s command for guild %s: %w", setTicketsCmdName, g.ID, err)
		}

		// Register the close command.
		if _, err := a.Session().ApplicationCommandCreate(config.ApplicationId, g.ID, closeTicketCmd); err != nil {
			return fmt.Errorf("error creating %s command for guild %s: %w", closeTicketCmdName, g.ID, err)
		}
	}
	return nil
}

func (a *App) unregisterSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Delete slash commands for each guild.
	for _, guild := range guilds {
		// Delete the setup command.
		if err := a.s.ApplicationCommandDelete(config.ApplicationId, guild.ID, setTicketsCmd.ID); err != nil {
			return fmt.Errorf("error deleting %s command for guild %s: %w", setTicketsCmdName, guild.ID, err)
		}

		// Delete the close command.
		if err := a.s.ApplicationCommandDelete(config.ApplicationId, guild.ID, closeTicketCmd.ID); err != nil {
			return fmt.Errorf("error deleting %s command for guild %s: %w", closeTicketCmdName, guild.ID, err)
		}
	}
	return nil
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) Log() *slog.Logger {
	return a.Logger
}

func (a *App) GuildDal() dataaccess.GuildDal {
	return a.gd
}

func (a *App) Tickets() *tickets.Manager {
	return a.manager
}

func (a *App) OpenLimiter() *userLimiter {
	return a.openLimiter
}
