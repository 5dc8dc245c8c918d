package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/qmuntal/stateless"

	"github.com/comigor/resume-chat/internal/config"
	"github.com/comigor/resume-chat/internal/history"
	"github.com/comigor/resume-chat/internal/llm"
	"github.com/comigor/resume-chat/internal/logger"
	"github.com/comigor/resume-chat/internal/resume"
)

// DefaultHistoryLimit is the number of turns returned when the caller gives none.
const DefaultHistoryLimit = 20

var (
	// ErrNotConfigured is returned by Chat when no completion credential is set.
	ErrNotConfigured = errors.New("OpenRouter API key not configured")
	// ErrEmptyMessage is returned by Chat for a blank inbound message.
	ErrEmptyMessage = errors.New("message must not be empty")
)

// Store is the turn log the agent records the conversation in.
type Store interface {
	Append(ctx context.Context, role history.Role, content string) (history.Turn, error)
	ListRecent(ctx context.Context, limit int) ([]history.Turn, error)
	Clear(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

type chatState string

type chatTrigger string

const (
	stateIdle              chatState = "Idle"
	stateRecordingQuestion chatState = "RecordingQuestion"
	stateAwaitingAnswer    chatState = "AwaitingAnswer"
	stateRecordingAnswer   chatState = "RecordingAnswer"
	stateDone              chatState = "Done"  // Terminal: answer available
	stateError             chatState = "Error" // Terminal: completion failed

	triggerMessageReceived chatTrigger = "MessageReceived"
	triggerQuestionLogged  chatTrigger = "QuestionLogged"
	triggerAnswerReceived  chatTrigger = "AnswerReceived"
	triggerAnswerLogged    chatTrigger = "AnswerLogged"
	triggerErrorOccurred   chatTrigger = "ErrorOccurred"
)

const systemPromptPreamble = `You are an AI assistant representing Juily Bagate, a Computer Science Engineering student graduating in 2026.

ANSWER GUIDELINES:
1. Answer questions ONLY based on the resume context below
2. If information is not in the resume, politely say "I don't have that information in my resume"
3. Keep responses concise (2-4 sentences) unless detailed explanation is requested
4. Maintain a professional, friendly tone
5. For technical questions, reference specific projects or skills from the resume
6. If asked about availability/contact, direct to: bagatejuily15@gmail.com or +91 9082123060

RESUME CONTEXT:
`

// Agent answers questions about the resume and keeps the turn log.
type Agent struct {
	completer  llm.Completer
	store      Store
	resume     resume.Provider
	configured bool
}

// New creates a new agent. cfg only decides whether a credential is present;
// the completer already carries the request parameters.
func New(completer llm.Completer, store Store, provider resume.Provider, cfg config.LLMConfig) *Agent {
	return &Agent{
		completer:  completer,
		store:      store,
		resume:     provider,
		configured: cfg.APIKey != "",
	}
}

// SystemPrompt returns the instruction template followed by the resume.
func (a *Agent) SystemPrompt() string {
	var b strings.Builder
	b.WriteString(systemPromptPreamble)
	b.WriteString(a.resume.Context())
	b.WriteString("\n")
	return b.String()
}

// Chat records message, asks the completer, records the answer and returns it.
// Turn writes are best effort; completion failures end the request.
func (a *Agent) Chat(ctx context.Context, message string) (string, error) {
	if !a.configured {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	var (
		answer  string
		lastErr error
	)

	fsm := stateless.NewStateMachineWithMode(stateIdle, stateless.FiringQueued)

	fsm.Configure(stateIdle).
		Permit(triggerMessageReceived, stateRecordingQuestion)

	fsm.Configure(stateRecordingQuestion).
		OnEntry(func(ctx context.Context, args ...any) error {
			a.record(ctx, history.RoleUser, message)
			return fsm.FireCtx(ctx, triggerQuestionLogged)
		}).
		Permit(triggerQuestionLogged, stateAwaitingAnswer)

	fsm.Configure(stateAwaitingAnswer).
		OnEntry(func(ctx context.Context, args ...any) error {
			out, err := a.completer.Complete(ctx, a.SystemPrompt(), message)
			if err != nil {
				lastErr = err
				return fsm.FireCtx(ctx, triggerErrorOccurred)
			}
			answer = out
			return fsm.FireCtx(ctx, triggerAnswerReceived)
		}).
		Permit(triggerAnswerReceived, stateRecordingAnswer).
		Permit(triggerErrorOccurred, stateError)

	fsm.Configure(stateRecordingAnswer).
		OnEntry(func(ctx context.Context, args ...any) error {
			a.record(ctx, history.RoleAssistant, answer)
			return fsm.FireCtx(ctx, triggerAnswerLogged)
		}).
		Permit(triggerAnswerLogged, stateDone)

	fsm.Configure(stateDone)
	fsm.Configure(stateError)

	if err := fsm.FireCtx(ctx, triggerMessageReceived); err != nil {
		logger.L.Error("chat state machine failed", "error", err, "state", fsm.MustState())
		return "", err
	}

	switch fsm.MustState() {
	case stateDone:
		return answer, nil
	case stateError:
		return "", lastErr
	default:
		return "", errors.New("chat ended in unexpected state")
	}
}

// record appends a turn and swallows store failures: the answer matters
// more than the log.
func (a *Agent) record(ctx context.Context, role history.Role, content string) {
	if _, err := a.store.Append(ctx, role, content); err != nil {
		logger.L.Error("failed to store turn", "role", role, "error", err)
	}
}

// History returns up to limit recent turns oldest-first. Store failures
// degrade to an empty list.
func (a *Agent) History(ctx context.Context, limit int) []history.Turn {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	turns, err := a.store.ListRecent(ctx, limit)
	if err != nil {
		logger.L.Error("failed to fetch history", "error", err)
		return []history.Turn{}
	}
	return turns
}

// Clear removes every turn. Unlike chat logging, failures are surfaced.
func (a *Agent) Clear(ctx context.Context) (int64, error) {
	n, err := a.store.Clear(ctx)
	if err != nil {
		logger.L.Error("failed to clear history", "error", err)
		return 0, err
	}
	logger.L.Info("history cleared", "turns", n)
	return n, nil
}

// Health describes the dependencies a request needs.
type Health struct {
	DatabaseConnected bool
	APIKeyConfigured  bool
}

// Health pings the store and reports whether a credential is configured.
func (a *Agent) Health(ctx context.Context) Health {
	h := Health{APIKeyConfigured: a.configured}
	if err := a.store.Ping(ctx); err != nil {
		logger.L.Warn("history store ping failed", "error", err)
	} else {
		h.DatabaseConnected = true
	}
	return h
}
