package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/agentx/chatwidget/internal/models"
	"github.com/agentx/chatwidget/internal/providers"
	"github.com/agentx/chatwidget/internal/render"
	"github.com/agentx/chatwidget/internal/repository"
)

// Confirmer asks the user to approve a destructive action. It is called
// with the controller lock held and must not call back into the controller.
type Confirmer interface {
	Confirm(ctx context.Context, title, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, title, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, title, prompt string) bool {
	return f(ctx, title, prompt)
}

// AlwaysConfirm approves every action. Hosts that confirm on their side use it.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string, string) bool { return true })

// ControllerConfig holds the per-instance settings of a controller
type ControllerConfig struct {
	InstanceID string
	UserID     string
	AppID      string
	ModelID    string
	Apps       []models.App
}

// Dependencies are the collaborators a controller drives
type Dependencies struct {
	Store     repository.SessionRepository
	Client    providers.Client
	Models    *providers.Registry
	Renderer  render.Renderer
	Confirmer Confirmer
	Events    EventSink
	Logger    *logrus.Entry
	Now       func() time.Time
}

// SessionSummary is one row of the session list
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	AppID        string    `json:"appId,omitempty"`
	MessageCount int       `json:"messageCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Streaming describes the reply currently being generated
type Streaming struct {
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`
	Markup    string `json:"markup"`
}

// Snapshot is everything a host needs to draw the widget
type Snapshot struct {
	InstanceID string           `json:"instanceId"`
	UserID     string           `json:"userId"`
	AppID      string           `json:"appId,omitempty"`
	ModelID    string           `json:"modelId"`
	Loading    bool             `json:"loading"`
	Sessions   []SessionSummary `json:"sessions"`
	Current    *models.Session  `json:"current"`
	Streaming  *Streaming       `json:"streaming,omitempty"`
}

// generation is the state of one in-flight reply. It stays bound to the
// session it started in even if the user switches away.
type generation struct {
	session       *models.Session
	placeholderID string
	stream        *providers.Stream
	markup        string
	sawToken      bool
}

// Controller owns the conversation state of one widget instance. Every
// operation runs under one lock, so an instance behaves as a single logical
// thread; stream callbacks re-enter through the same lock.
type Controller struct {
	mu sync.Mutex

	id        string
	store     repository.SessionRepository
	client    providers.Client
	registry  *providers.Registry
	renderer  render.Renderer
	confirmer Confirmer
	events    EventSink
	log       *logrus.Entry
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	userID   string
	apps     []models.App
	app      *models.App
	modelID  string
	sessions []*models.Session
	current  *models.Session
	gen      *generation
	closed   bool

	// retired streams are cancelled by unlock, after c.mu is released
	retired []*providers.Stream
}

// NewController creates a controller. Call Init before using it.
func NewController(cfg ControllerConfig, deps Dependencies) (*Controller, error) {
	if deps.Store == nil || deps.Client == nil || deps.Models == nil {
		return nil, errors.New("controller requires a store, a completion client and a model registry")
	}

	c := &Controller{
		id:        cfg.InstanceID,
		store:     deps.Store,
		client:    deps.Client,
		registry:  deps.Models,
		renderer:  deps.Renderer,
		confirmer: deps.Confirmer,
		events:    deps.Events,
		log:       deps.Logger,
		now:       deps.Now,
		userID:    cfg.UserID,
		apps:      append([]models.App(nil), cfg.Apps...),
		modelID:   cfg.ModelID,
	}
	if c.id == "" {
		c.id = uuid.New().String()
	}
	if c.renderer == nil {
		c.renderer = render.Plain{}
	}
	if c.confirmer == nil {
		c.confirmer = AlwaysConfirm
	}
	if c.events == nil {
		c.events = discardSink{}
	}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	c.log = c.log.WithField("instance_id", c.id)
	if c.now == nil {
		c.now = time.Now
	}

	if c.modelID == "" {
		m, ok := c.registry.Default()
		if !ok {
			return nil, models.ErrUnknownModel
		}
		c.modelID = m.ID
	} else if !c.registry.Has(c.modelID) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownModel, c.modelID)
	}

	if cfg.AppID != "" {
		app, ok := c.findApp(cfg.AppID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", models.ErrUnknownApp, cfg.AppID)
		}
		c.app = app
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// ID returns the instance id.
func (c *Controller) ID() string {
	return c.id
}

// Init loads the user's history and selects the session to show: the newest
// session of the active app, the newest overall without an app, or a new one.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrClosed
	}

	sessions, err := c.store.ListByUser(ctx, c.userID)
	if err != nil {
		c.log.WithError(err).Error("Failed to load sessions")
		c.notice(NoticeError, models.KindStorage, "Failed to load sessions: "+err.Error())
		c.sessions = nil
		c.newSessionLocked()
		c.renderLocked(true)
		return nil
	}

	c.sessions = sessions
	candidates := c.visibleLocked()
	if len(candidates) > 0 {
		c.current = candidates[0]
	} else {
		c.newSessionLocked()
	}

	c.log.WithField("sessions", len(sessions)).Info("Widget initialised")
	c.renderLocked(true)
	return nil
}

// Teardown cancels any running generation and releases the instance.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return
	}
	c.retireLocked()
	c.cancel()
	c.closed = true
	c.log.Debug("Widget torn down")
}

// Snapshot returns a copy of the visible state.
func (c *Controller) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Loading reports whether a reply is being generated.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != nil
}

// CreateNewSession starts an unsaved session for the active app, or for
// appID when it is given. The session is stored with its first message.
func (c *Controller) CreateNewSession(appID string) (*models.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, models.ErrClosed
	}

	if appID != "" {
		app, ok := c.findApp(appID)
		if !ok {
			return nil, c.reject("create session", fmt.Errorf("%w: %s", models.ErrUnknownApp, appID), NoticeWarning)
		}
		c.app = app
	}

	s := c.newSessionLocked()
	c.renderLocked(false)
	return s.Clone(), nil
}

// SelectSession makes an existing session current.
func (c *Controller) SelectSession(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrClosed
	}

	s := c.findSession(id)
	if s == nil {
		return c.reject("select session", models.ErrSessionNotFound, NoticeWarning)
	}
	c.current = s
	c.renderLocked(false)
	return nil
}

// SendUserMessage appends a prompt to the current session, stores it and
// starts generating the reply.
func (c *Controller) SendUserMessage(ctx context.Context, text string, attachments []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrClosed
	}

	text = strings.TrimSpace(text)
	attachments = nonEmpty(attachments)
	if text == "" && len(attachments) == 0 {
		return c.reject("send message", models.ErrEmptyMessage, NoticeWarning)
	}
	if c.gen != nil {
		return c.reject("send message", models.ErrBusy, NoticeInfo)
	}

	s := c.current
	prevTitle, prevUpdated, prevLen := s.Title, s.UpdatedAt, len(s.Messages)
	firstPrompt := countNonSystem(s.Messages) == 0

	now := c.now()
	s.Messages = append(s.Messages, models.Message{
		ID:      models.NewMessageID(),
		Role:    models.RoleUser,
		Content: ComposeContent(text, attachments),
		Time:    now,
	})
	if firstPrompt && text != "" {
		s.Title = DeriveTitle(text, c.appName(s))
	}
	s.UpdatedAt = now

	if err := c.persistLocked(ctx, s); err != nil {
		s.Messages = s.Messages[:prevLen]
		s.Title, s.UpdatedAt = prevTitle, prevUpdated
		c.renderLocked(false)
		return c.storageFailed("Failed to save message", err)
	}

	return c.startGenerationLocked(s, s.Messages)
}

// EditMessage replaces the content of a message. Empty text leaves the
// message untouched.
func (c *Controller) EditMessage(ctx context.Context, id, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrClosed
	}

	s := c.current
	idx := s.IndexOf(id)
	if idx < 0 {
		return c.reject("edit message", models.ErrMessageNotFound, NoticeWarning)
	}
	msg := &s.Messages[idx]
	switch {
	case msg.IsPlaceholder():
		return c.reject("edit message", models.ErrPlaceholder, NoticeWarning)
	case msg.Role == models.RoleSystem:
		return c.reject("edit message", models.ErrSystemMessage, NoticeWarning)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.renderLocked(false)
		return nil
	}

	prev, prevUpdated := *msg, s.UpdatedAt
	now := c.now()
	msg.Content = text
	if msg.Role == models.RoleAssistant {
		msg.HTMLContent = c.renderer.Render(text)
	}
	msg.Time = now
	s.UpdatedAt = now

	if err := c.persistLocked(ctx, s); err != nil {
		s.Messages[idx] = prev
		s.UpdatedAt = prevUpdated
		c.renderLocked(false)
		return c.storageFailed("Failed to save edit", err)
	}

	c.renderLocked(false)
	return nil
}

// DeleteMessage removes a message after confirmation. Deleting the first
// reply after a prompt removes the whole reply turn.
func (c *Controller) DeleteMessage(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrClosed
	}

	s := c.current
	idx := s.IndexOf(id)
	if idx < 0 {
		return c.reject("delete message", models.ErrMessageNotFound, NoticeWarning)
	}
	switch {
	case s.Messages[idx].IsPlaceholder():
		return c.reject("delete message", models.ErrPlaceholder, NoticeWarning)
	case s.Messages[idx].Role == models.RoleSystem:
		return c.reject("delete message", models.ErrSystemMessage, NoticeWarning)
	case c.gen != nil:
		return c.reject("delete message", models.ErrBusy, NoticeInfo)
	}

	if !c.confirmer.Confirm(ctx, "Delete message", "Delete this message? This cannot be undone.") {
		return nil
	}

	prev, prevUpdated := s.Messages, s.UpdatedAt
	s.Messages = CascadeDelete(s.Messages, idx)
	s.UpdatedAt = c.now()

	if err := c.persistLocked(ctx, s); err != nil {
		s.Messages, s.UpdatedAt = prev, prevUpdated
		c.renderLocked(true)
		return c.storageFailed("Failed to delete message", err)
	}

	c.notice(NoticeSuccess, "", "Message deleted")
	c.renderLocked(true)
	return nil
}

// Regenerate discards an assistant reply and everything after it, then
// generates a new reply to the nearest preceding prompt.
func (c *Controller) Regenerate(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrClosed
	}

	if c.gen != nil {
		return c.reject("regenerate", models.ErrBusy, NoticeInfo)
	}

	s := c.current
	idx := s.IndexOf(id)
	if idx < 0 {
		return c.reject("regenerate", models.ErrMessageNotFound, NoticeWarning)
	}
	if s.Messages[idx].Role != models.RoleAssistant {
		return c.reject("regenerate", models.ErrNotAssistant, NoticeWarning)
	}

	userIdx := precedingUser(s.Messages, idx)
	if userIdx < 0 {
		return c.reject("regenerate", models.ErrNoPrompt, NoticeWarning)
	}

	prev, prevUpdated := s.Messages, s.UpdatedAt
	s.Messages = append([]models.Message(nil), s.Messages[:idx]...)
	s.UpdatedAt = c.now()

	if err := c.persistLocked(ctx, s); err != nil {
		s.Messages, s.UpdatedAt = prev, prevUpdated
		c.renderLocked(false)
		return c.storageFailed("Failed to save session", err)
	}

	return c.startGenerationLocked(s, s.Messages[:userIdx+1])
}

// CancelGeneration abandons the reply being generated.
func (c *Controller) CancelGeneration() error {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return models.ErrClosed
	}

	gen := c.retireLocked()
	if gen == nil {
		return nil
	}
	removeMessage(gen.session, gen.placeholderID)

	c.log.WithField("session_id", gen.session.ID).Info("Generation cancelled")
	c.notice(NoticeInfo, "", "Generation stopped")
	c.renderLocked(false)
	return nil
}

// SwitchApp makes appID the active app and shows its most recent session,
// creating one when the app has none. An empty id clears the app.
func (c *Controller) SwitchApp(appID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrClosed
	}

	if appID == "" {
		c.app = nil
	} else {
		app, ok := c.findApp(appID)
		if !ok {
			return c.reject("switch app", fmt.Errorf("%w: %s", models.ErrUnknownApp, appID), NoticeWarning)
		}
		c.app = app
	}

	candidates := c.visibleLocked()
	if len(candidates) > 0 {
		c.current = candidates[0]
	} else {
		c.newSessionLocked()
	}
	c.renderLocked(false)
	return nil
}

// SwitchModel selects the model used for the next replies and records it on
// the current session.
func (c *Controller) SwitchModel(ctx context.Context, modelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrClosed
	}

	m, ok := c.registry.Get(modelID)
	if !ok {
		return c.reject("switch model", fmt.Errorf("%w: %s", models.ErrUnknownModel, modelID), NoticeWarning)
	}
	s := c.current
	prevModel, prevSessionModel := c.modelID, s.Model
	c.modelID = m.ID
	s.Model = m.ID
	if err := c.persistLocked(ctx, s); err != nil {
		c.modelID, s.Model = prevModel, prevSessionModel
		c.renderLocked(false)
		return c.storageFailed("Failed to update model", err)
	}

	c.notice(NoticeInfo, "", "Switched model: "+m.ModelName)
	c.renderLocked(false)
	return nil
}

// RenameSession changes a session title. A blank title keeps the old one.
func (c *Controller) RenameSession(ctx context.Context, id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return models.ErrClosed
	}

	s := c.findSession(id)
	if s == nil {
		return c.reject("rename session", models.ErrSessionNotFound, NoticeWarning)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		c.renderLocked(false)
		return nil
	}

	prevTitle, prevUpdated := s.Title, s.UpdatedAt
	s.Title = title
	s.UpdatedAt = c.now()

	if err := c.persistLocked(ctx, s); err != nil {
		s.Title, s.UpdatedAt = prevTitle, prevUpdated
		c.renderLocked(false)
		return c.storageFailed("Failed to update title", err)
	}

	c.notice(NoticeSuccess, "", "Title updated")
	c.renderLocked(false)
	return nil
}

// DeleteSession removes a session after confirmation. When it was current,
// the newest remaining session of the active app is shown instead.
func (c *Controller) DeleteSession(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.unlock()
	if c.closed {
		return models.ErrClosed
	}

	s := c.findSession(id)
	if s == nil {
		return c.reject("delete session", models.ErrSessionNotFound, NoticeWarning)
	}
	if !c.confirmer.Confirm(ctx, "Delete session", "Delete this session? This cannot be undone.") {
		return nil
	}

	if err := c.store.Delete(ctx, id); err != nil {
		return c.storageFailed("Failed to delete session", err)
	}

	if c.gen != nil && c.gen.session == s {
		c.retireLocked()
	}

	kept := c.sessions[:0]
	for _, other := range c.sessions {
		if other != s {
			kept = append(kept, other)
		}
	}
	c.sessions = kept

	if c.current == s {
		candidates := c.visibleLocked()
		if len(candidates) > 0 {
			c.current = candidates[0]
		} else {
			c.newSessionLocked()
		}
	}

	c.notice(NoticeSuccess, "", "Session deleted")
	c.renderLocked(false)
	return nil
}

// CopyMessage returns the raw content of a message of the current session.
func (c *Controller) CopyMessage(id string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", models.ErrClosed
	}

	s := c.current
	idx := s.IndexOf(id)
	if idx < 0 {
		return "", c.reject("copy message", models.ErrMessageNotFound, NoticeWarning)
	}
	if s.Messages[idx].IsPlaceholder() {
		return "", c.reject("copy message", models.ErrPlaceholder, NoticeWarning)
	}
	return s.Messages[idx].Content, nil
}

// Wait blocks until the running generation, if any, has delivered its
// final event or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()
		if gen == nil {
			return nil
		}

		select {
		case <-gen.stream.Done():
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		same := c.gen == gen
		c.mu.Unlock()
		if same {
			// the stream goroutine returned without a terminal event
			return nil
		}
	}
}

func (c *Controller) startGenerationLocked(s *models.Session, history []models.Message) error {
	req, err := c.registry.Request(c.modelID, BuildContext(history, c.appPrompt(s)))
	if err != nil {
		c.renderLocked(false)
		return c.reject("start generation", err, NoticeError)
	}

	gen := &generation{session: s, placeholderID: models.NewPlaceholderID()}
	s.Messages = append(s.Messages, models.Message{
		ID:      gen.placeholderID,
		Role:    models.RoleAssistant,
		Content: models.LoadingMarker,
		Time:    c.now(),
	})
	c.gen = gen

	c.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"model":      req.Model,
		"messages":   len(req.Messages),
	}).Debug("Starting generation")

	gen.stream = c.client.StreamComplete(c.ctx, req, providers.Handler{
		OnToken:    func(markup string) { c.onToken(gen, markup) },
		OnComplete: func(markup, text string) { c.onComplete(gen, markup, text) },
		OnError:    func(err error) { c.onError(gen, err) },
	})

	c.renderLocked(false)
	return nil
}

func (c *Controller) onToken(gen *generation, markup string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}

	first := !gen.sawToken
	gen.sawToken = true
	gen.markup = markup

	c.events.Publish(Event{
		Type:       EventToken,
		InstanceID: c.id,
		SessionID:  gen.session.ID,
		MessageID:  gen.placeholderID,
		Markup:     markup,
		First:      first,
	})
}

func (c *Controller) onComplete(gen *generation, markup, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.gen = nil

	s := gen.session
	now := c.now()
	removeMessage(s, gen.placeholderID)
	s.Messages = append(s.Messages, models.Message{
		ID:          models.NewMessageID(),
		Role:        models.RoleAssistant,
		Content:     text,
		HTMLContent: markup,
		Time:        now,
	})
	s.UpdatedAt = now

	if err := c.persistLocked(c.ctx, s); err != nil {
		c.storageFailed("Failed to save session", err)
	}
	c.renderLocked(true)
}

func (c *Controller) onError(gen *generation, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.gen = nil

	removeMessage(gen.session, gen.placeholderID)
	c.log.WithError(err).WithField("session_id", gen.session.ID).Warn("Generation failed")
	c.notice(NoticeError, models.KindOf(err), "Request failed: "+err.Error())
	c.renderLocked(false)
}

// retireLocked detaches the running generation, if any, and queues its
// stream for cancellation. Cancel waits for a callback in flight and
// callbacks take c.mu, so the stream is only cancelled by unlock.
func (c *Controller) retireLocked() *generation {
	gen := c.gen
	if gen == nil {
		return nil
	}
	c.gen = nil
	c.retired = append(c.retired, gen.stream)
	return gen
}

// unlock releases c.mu and then cancels the retired streams.
func (c *Controller) unlock() {
	retired := c.retired
	c.retired = nil
	c.mu.Unlock()
	for _, stream := range retired {
		stream.Cancel()
	}
}

func (c *Controller) newSessionLocked() *models.Session {
	now := c.now()
	s := &models.Session{
		ID:        uuid.New().String(),
		UserID:    c.userID,
		Title:     DefaultTitle(""),
		Messages:  []models.Message{},
		Model:     c.modelID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.app != nil {
		s.AppID = c.app.ID
		s.Title = DefaultTitle(c.app.Name)
		if c.app.Prompt != "" {
			s.Messages = append(s.Messages, models.Message{
				ID:      models.NewMessageID(),
				Role:    models.RoleSystem,
				Content: c.app.Prompt,
				Time:    now,
			})
		}
	}

	c.sessions = append([]*models.Session{s}, c.sessions...)
	c.current = s
	return s
}

// visibleLocked returns the sessions of the active app, newest first.
func (c *Controller) visibleLocked() []*models.Session {
	out := make([]*models.Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		if c.app == nil || s.AppID == c.app.ID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (c *Controller) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		InstanceID: c.id,
		UserID:     c.userID,
		ModelID:    c.modelID,
		Loading:    c.gen != nil,
		Sessions:   []SessionSummary{},
		Current:    c.current.Clone(),
	}
	if c.app != nil {
		snap.AppID = c.app.ID
	}
	// user messages are stored raw; their markup is only for display
	if snap.Current != nil {
		for i := range snap.Current.Messages {
			m := &snap.Current.Messages[i]
			if m.Role == models.RoleUser && m.HTMLContent == "" {
				m.HTMLContent = c.renderer.Render(render.UserContent(m.Content))
			}
		}
	}
	for _, s := range c.visibleLocked() {
		snap.Sessions = append(snap.Sessions, SessionSummary{
			ID:           s.ID,
			Title:        s.Title,
			AppID:        s.AppID,
			MessageCount: countNonSystem(s.Messages),
			UpdatedAt:    s.UpdatedAt,
		})
	}
	if c.gen != nil {
		snap.Streaming = &Streaming{
			SessionID: c.gen.session.ID,
			MessageID: c.gen.placeholderID,
			Markup:    c.gen.markup,
		}
	}
	return snap
}

func (c *Controller) renderLocked(preserveScroll bool) {
	c.events.Publish(Event{
		Type:           EventRender,
		InstanceID:     c.id,
		Snapshot:       c.snapshotLocked(),
		PreserveScroll: preserveScroll,
	})
}

func (c *Controller) notice(level NoticeLevel, kind models.ErrorKind, message string) {
	c.events.Publish(Event{
		Type:       EventNotice,
		InstanceID: c.id,
		Level:      level,
		Kind:       kind,
		Message:    message,
	})
}

// reject surfaces a refused action and returns it as a validation error.
func (c *Controller) reject(op string, err error, level NoticeLevel) error {
	c.notice(level, models.KindValidation, capitalize(err.Error()))
	return models.ValidationError(op, err)
}

func (c *Controller) storageFailed(message string, err error) error {
	c.log.WithError(err).Error(message)
	c.notice(NoticeError, models.KindStorage, message+": "+err.Error())
	if models.KindOf(err) == "" {
		return models.StorageError(message, err)
	}
	return err
}

func (c *Controller) persistLocked(ctx context.Context, s *models.Session) error {
	_, err := c.store.Put(ctx, s.Persistable())
	return err
}

func (c *Controller) findSession(id string) *models.Session {
	for _, s := range c.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (c *Controller) findApp(id string) (*models.App, bool) {
	for i := range c.apps {
		if c.apps[i].ID == id {
			return &c.apps[i], true
		}
	}
	return nil, false
}

// appPrompt returns the prompt of the app that owns s, falling back to the
// active app for sessions without one.
func (c *Controller) appPrompt(s *models.Session) string {
	if s.AppID != "" {
		if app, ok := c.findApp(s.AppID); ok {
			return app.Prompt
		}
	}
	if c.app != nil {
		return c.app.Prompt
	}
	return ""
}

func (c *Controller) appName(s *models.Session) string {
	if s.AppID != "" {
		if app, ok := c.findApp(s.AppID); ok {
			return app.Name
		}
	}
	if c.app != nil {
		return c.app.Name
	}
	return ""
}

func removeMessage(s *models.Session, id string) {
	if idx := s.IndexOf(id); idx >= 0 {
		s.Messages = append(s.Messages[:idx:idx], s.Messages[idx+1:]...)
	}
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
