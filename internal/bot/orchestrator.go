package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/intent"
	"github.com/user/mana-voicebot/internal/metrics"
	"github.com/user/mana-voicebot/internal/reasoner"
	"github.com/user/mana-voicebot/internal/session"
	"github.com/user/mana-voicebot/internal/skills"
	"github.com/user/mana-voicebot/internal/tts"
)

// ErrEmptyTurn is returned for blank input. Nothing is logged or persisted.
var ErrEmptyTurn = errors.New("empty turn")

// FallbackIntent tags turns answered with the apology because no interpretation
// was available.
const FallbackIntent = "fallback"

// SessionStore persists the turn log and snapshots.
type SessionStore interface {
	LoadLastSnapshot() (map[string]any, error)
	StartSession(st *session.State) (string, error)
	LogTurn(role, text, domain, intent string) error
	SaveSnapshot(st *session.State) error
	ReadHistory(limit int) ([]session.Record, error)
}

// ClientBook remembers names of returning clients.
type ClientBook interface {
	Add(name string) (bool, error)
	All() []string
	FindIn(text string) string
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCapturing
	PhaseTranscribing
	PhaseRouting
	PhaseMutating
	PhasePersisting
	PhaseRendering
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCapturing:
		return "capturing"
	case PhaseTranscribing:
		return "transcribing"
	case PhaseRouting:
		return "routing"
	case PhaseMutating:
		return "mutating"
	case PhasePersisting:
		return "persisting"
	case PhaseRendering:
		return "rendering"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type OrchestratorOptions struct {
	HistoryLimit         int
	ResumeHistory        bool
	ScreenTestUtterances bool
}

// Orchestrator runs one turn at a time against a single session state. It is
// not safe for concurrent use.
type Orchestrator struct {
	store    SessionStore
	clients  ClientBook
	reasoner reasoner.Reasoner
	registry *skills.Registry
	renderer tts.Renderer
	opts     OrchestratorOptions

	state       *session.State
	sessionName string
	phase       Phase
}

// NewOrchestrator wires the collaborators. renderer may be nil when the caller
// renders replies itself.
func NewOrchestrator(
	store SessionStore,
	clients ClientBook,
	r reasoner.Reasoner,
	registry *skills.Registry,
	renderer tts.Renderer,
	opts OrchestratorOptions,
) *Orchestrator {
	return &Orchestrator{
		store:    store,
		clients:  clients,
		reasoner: r,
		registry: registry,
		renderer: renderer,
		opts:     opts,
		state:    session.New(opts.HistoryLimit),
	}
}

// Start seeds the state from the previous snapshot and opens a new session.
func (o *Orchestrator) Start() error {
	last, err := o.store.LoadLastSnapshot()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load previous snapshot, starting fresh")
	}
	o.state.Seed(last)

	if o.opts.ResumeHistory {
		records, err := o.store.ReadHistory(o.state.HistoryLimit())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to resume history from session log")
		}
		for _, r := range records {
			o.state.Append(r.Role, r.Text)
		}
		log.Info().Int("records", len(records)).Msg("Resumed conversation history")
	}

	name, err := o.store.StartSession(o.state)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	o.sessionName = name
	o.setPhase(PhaseIdle)
	return nil
}

func (o *Orchestrator) State() *session.State { return o.state }
func (o *Orchestrator) SessionName() string   { return o.sessionName }
func (o *Orchestrator) Phase() Phase          { return o.phase }

func (o *Orchestrator) setPhase(p Phase) {
	o.phase = p
	log.Debug().Str("session", o.sessionName).Stringer("phase", p).Msg("Turn phase")
}

// HandleTurn routes one utterance, mutates the state, persists it and renders
// the reply. Collaborator failures are logged and recovered; only blank input
// and cancellation are returned as errors.
func (o *Orchestrator) HandleTurn(ctx context.Context, text string) (skills.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return skills.Result{}, ErrEmptyTurn
	}
	defer o.setPhase(PhaseIdle)
	started := time.Now()

	o.state.Append(session.RoleUser, text)
	if err := o.store.LogTurn(session.RoleUser, text, "", ""); err != nil {
		log.Warn().Err(err).Msg("Failed to log user turn")
	}

	o.setPhase(PhaseRouting)
	result, err := o.route(ctx, text)
	if err != nil {
		return skills.Result{}, err
	}

	o.setPhase(PhaseMutating)
	o.state.Append(session.RoleAssistant, result.Reply)
	if err := o.store.LogTurn(session.RoleAssistant, result.Reply, result.Domain, result.Intent); err != nil {
		log.Warn().Err(err).Msg("Failed to log assistant turn")
	}
	o.rememberClient(result)

	o.setPhase(PhasePersisting)
	if err := o.store.SaveSnapshot(o.state); err != nil {
		log.Warn().Err(err).Msg("Failed to save snapshot")
	}

	metrics.Turns.WithLabelValues(result.Domain).Inc()
	metrics.TurnDuration.Observe(time.Since(started).Seconds())

	log.Info().
		Str("session", o.sessionName).
		Str("domain", result.Domain).
		Str("intent", result.Intent).
		Msg("Handled turn")

	if o.renderer != nil {
		o.setPhase(PhaseRendering)
		if err := o.renderer.Speak(ctx, result.Reply); err != nil {
			metrics.Fallbacks.WithLabelValues("render").Inc()
			log.Warn().Err(err).Msg("Failed to render reply")
		}
	}

	return result, nil
}

func (o *Orchestrator) route(ctx context.Context, text string) (skills.Result, error) {
	var decision intent.Decision
	if o.opts.ScreenTestUtterances && intent.IsTestUtterance(text) {
		log.Debug().Str("text", text).Msg("Screened test utterance")
		decision = intent.TestDecision()
	} else {
		in, err := o.reasoner.Infer(ctx, o.request(text))
		if err != nil {
			if ctx.Err() != nil {
				return skills.Result{}, ctx.Err()
			}
			metrics.Fallbacks.WithLabelValues("reasoning").Inc()
			log.Warn().
				Err(err).
				Bool("malformed", reasoner.IsMalformed(err)).
				Msg("Reasoning failed, replying with apology")
			return fallbackResult(), nil
		}
		decision = intent.Route(in)
		if clamped, ok := intent.ClampNoise(decision); ok {
			decision = clamped
		}
	}

	return o.registry.Dispatch(text, o.state, decision), nil
}

func (o *Orchestrator) request(text string) reasoner.Request {
	return reasoner.Request{
		Text:            text,
		HistoryText:     o.state.HistoryText(),
		Snapshot:        o.state.Snapshot(o.sessionName),
		KnownClients:    o.clients.All(),
		ReturningClient: o.clients.FindIn(text),
		SessionName:     o.sessionName,
	}
}

func (o *Orchestrator) rememberClient(result skills.Result) {
	if result.Domain != intent.DomainReservation {
		return
	}
	name, _ := result.Payload["name"].(string)
	if strings.TrimSpace(name) == "" {
		return
	}
	if _, err := o.clients.Add(name); err != nil {
		log.Warn().Err(err).Str("name", name).Msg("Failed to remember client")
	}
}

func fallbackResult() skills.Result {
	return skills.Result{
		Reply:   reasoner.FallbackReply,
		Domain:  intent.DomainSmalltalk,
		Intent:  FallbackIntent,
		Payload: map[string]any{},
	}
}
