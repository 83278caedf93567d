package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/dto"
	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/notification"
	"github.com/sgpti/sgpti-api/internal/observability"
	"github.com/sgpti/sgpti-api/internal/repository"
)

const notificationBufferSize = 16

// Event is a workflow occurrence to render and deliver.
type Event struct {
	Code        notification.EventCode
	ProjectID   *uint
	ProjectUUID string
	Values      map[string]string
	Data        map[string]interface{}
}

// Notifier fans workflow events out to their audience. Delivery problems
// are logged and never returned to the workflow operation.
type Notifier interface {
	Notify(ctx context.Context, recipientID uint, event Event) (*models.Notification, error)
	NotifyAuthors(ctx context.Context, projectID uint, event Event) []models.Notification
	NotifyActiveReviewers(ctx context.Context, projectID uint, event Event) []models.Notification
	NotifyAllExcept(ctx context.Context, projectID, exceptUserID uint, event Event) []models.Notification
}

// NotificationService persists, streams and emails notifications and
// serves the inbox.
type NotificationService interface {
	Notifier
	List(ctx context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error)
	RunHousekeeping(ctx context.Context, interval, retention time.Duration)
	Start(ctx context.Context)
}

// NotificationDependencies wires a NotificationService.
type NotificationDependencies struct {
	Notifications repository.NotificationRepository
	Users         repository.UserRepository
	Projects      repository.ProjectRepository
	Reviewers     repository.ReviewerRepository
	Catalog       *notification.Catalog
	Outbox        EmailQueue
	Redis         *redis.Client
	NATS          *nats.Conn
	ChannelBase   string
	BaseURL       string
	Logger        zerolog.Logger
}

type notificationService struct {
	repo         repository.NotificationRepository
	users        repository.UserRepository
	projects     repository.ProjectRepository
	reviewers    repository.ReviewerRepository
	catalog      *notification.Catalog
	outbox       EmailQueue
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	baseURL      string
	logger       zerolog.Logger
	tracer       trace.Tracer
	broker       *notificationBroker
	nodeID       string
	now          func() time.Time
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service.
func NewNotificationService(deps NotificationDependencies) NotificationService {
	channel := ""
	subject := ""
	if deps.ChannelBase != "" {
		channel = deps.ChannelBase + ":notifications"
		subject = strings.ReplaceAll(deps.ChannelBase, ":", ".") + ".notifications"
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = notification.DefaultCatalog()
	}

	return &notificationService{
		repo:         deps.Notifications,
		users:        deps.Users,
		projects:     deps.Projects,
		reviewers:    deps.Reviewers,
		catalog:      catalog,
		outbox:       deps.Outbox,
		redis:        deps.Redis,
		redisChannel: channel,
		nats:         deps.NATS,
		natsSubject:  subject,
		baseURL:      strings.TrimRight(deps.BaseURL, "/"),
		logger:       deps.Logger.With().Str("component", "notification_service").Logger(),
		tracer:       otel.Tracer("github.com/sgpti/sgpti-api/internal/service/notification"),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
		now:    time.Now,
	}
}

func (s *notificationService) Start(ctx context.Context) {
	switch {
	case s.relaysOverRedis():
		go s.consumeRedis(ctx)
	case s.relaysOverNATS():
		go s.consumeNATS(ctx)
	}
}

// Redis wins when both relays are configured so each event crosses nodes once.
func (s *notificationService) relaysOverRedis() bool {
	return s.redis != nil && s.redisChannel != ""
}

func (s *notificationService) relaysOverNATS() bool {
	return !s.relaysOverRedis() && s.nats != nil && s.natsSubject != ""
}

// Notify renders the event for one recipient, persists it, pushes it to live
// streams and queues the email. A missing recipient yields nil, nil.
func (s *notificationService) Notify(ctx context.Context, recipientID uint, event Event) (*models.Notification, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.notify", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(recipientID)),
		attribute.String("notification.code", string(event.Code)),
	))
	defer span.End()

	recipient, err := s.users.FindByID(spanCtx, recipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Uint("user_id", recipientID).Str("code", string(event.Code)).Msg("notification recipient not found")
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}

	values := make(map[string]string, len(event.Values)+2)
	for key, value := range event.Values {
		values[key] = value
	}
	values[notification.TokenUserName] = recipient.FullName()
	if s.baseURL != "" && event.ProjectUUID != "" {
		values[notification.TokenProjectURL] = s.baseURL + "/projects/" + event.ProjectUUID
	}

	rendered, ok := s.catalog.Render(event.Code, values)
	if !ok {
		return nil, ErrUnknownEvent
	}

	data := datatypes.JSONMap{"code": string(event.Code)}
	if event.ProjectUUID != "" {
		data["project_uuid"] = event.ProjectUUID
	}
	for key, value := range event.Data {
		data[key] = value
	}

	model := models.Notification{
		UUID:      uuid.NewString(),
		UserID:    recipient.ID,
		TypeID:    rendered.TypeID,
		ProjectID: event.ProjectID,
		Title:     rendered.Title,
		Message:   rendered.Message,
		Data:      data,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return nil, err
	}
	model.Type = models.NotificationType{ID: rendered.TypeID, Code: string(rendered.Code)}
	observability.NotificationsCreated().WithLabelValues(string(event.Code)).Inc()

	response := dto.NewNotificationResponse(model)
	s.broadcast(response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to broker")
	}

	if s.outbox != nil && recipient.Email != "" {
		job := EmailJob{
			NotificationID: model.ID,
			To:             recipient.Email,
			Subject:        rendered.Title,
			HTML:           rendered.HTML,
			Text:           rendered.Message,
		}
		if err := s.outbox.Enqueue(spanCtx, job); err != nil {
			s.logger.Warn().Err(err).Uint("notification_id", model.ID).Msg("failed to queue notification email")
		}
	}

	return &model, nil
}

func (s *notificationService) NotifyAuthors(ctx context.Context, projectID uint, event Event) []models.Notification {
	authors, err := s.projects.Authors(ctx, projectID)
	if err != nil {
		s.logger.Error().Err(err).Uint("project_id", projectID).Msg("failed to load project authors for notification")
		return nil
	}

	recipients := make([]uint, 0, len(authors))
	for _, author := range authors {
		recipients = append(recipients, author.UserID)
	}
	return s.fanOut(ctx, recipients, event)
}

func (s *notificationService) NotifyActiveReviewers(ctx context.Context, projectID uint, event Event) []models.Notification {
	reviewers, err := s.reviewers.ListActive(ctx, projectID)
	if err != nil {
		s.logger.Error().Err(err).Uint("project_id", projectID).Msg("failed to load project reviewers for notification")
		return nil
	}

	recipients := make([]uint, 0, len(reviewers))
	for _, reviewer := range reviewers {
		recipients = append(recipients, reviewer.ReviewerID)
	}
	return s.fanOut(ctx, recipients, event)
}

// NotifyAllExcept reaches authors and active reviewers once each, skipping exceptUserID.
func (s *notificationService) NotifyAllExcept(ctx context.Context, projectID, exceptUserID uint, event Event) []models.Notification {
	authors, err := s.projects.Authors(ctx, projectID)
	if err != nil {
		s.logger.Error().Err(err).Uint("project_id", projectID).Msg("failed to load project authors for notification")
		return nil
	}
	reviewers, err := s.reviewers.ListActive(ctx, projectID)
	if err != nil {
		s.logger.Error().Err(err).Uint("project_id", projectID).Msg("failed to load project reviewers for notification")
		return nil
	}

	seen := map[uint]struct{}{exceptUserID: {}}
	recipients := make([]uint, 0, len(authors)+len(reviewers))
	add := func(id uint) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	for _, author := range authors {
		add(author.UserID)
	}
	for _, reviewer := range reviewers {
		add(reviewer.ReviewerID)
	}

	return s.fanOut(ctx, recipients, event)
}

func (s *notificationService) fanOut(ctx context.Context, recipients []uint, event Event) []models.Notification {
	created := make([]models.Notification, 0, len(recipients))
	for _, recipientID := range recipients {
		item, err := s.Notify(ctx, recipientID, event)
		if err != nil {
			s.logger.Error().Err(err).Uint("user_id", recipientID).Str("code", string(event.Code)).Msg("failed to create notification")
			continue
		}
		if item != nil {
			created = append(created, *item)
		}
	}
	return created
}

func (s *notificationService) List(ctx context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error) {
	items, total, err := s.repo.ListByUser(ctx, userID, repository.NotificationFilter{
		UnreadOnly: query.UnreadOnly,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	return dto.NotificationListResponse{
		Items:  dto.NewNotificationResponseSlice(items),
		Total:  total,
		Unread: unread,
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(userID)),
	))
	defer span.End()

	item, err := s.repo.MarkRead(spanCtx, id, userID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(item), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

func (s *notificationService) PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}
	return s.repo.DeleteReadBefore(ctx, s.now().Add(-olderThan))
}

// RunHousekeeping purges read notifications older than retention every
// interval until ctx is done.
func (s *notificationService) RunHousekeeping(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 || retention <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := s.PurgeRead(ctx, retention)
			if err != nil {
				s.logger.Warn().Err(err).Msg("notification housekeeping failed")
				continue
			}
			if purged > 0 {
				s.logger.Info().Int64("purged", purged).Msg("purged read notifications")
			}
		}
	}
}

func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(userID, channel)
	observability.NotificationListeners().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(userID, channel)
			observability.NotificationListeners().Dec()
		})
	}

	return channel, cleanup
}

func (s *notificationService) broadcast(item dto.NotificationResponse) {
	s.broker.broadcast(item.UserID, item)
}

func (s *notificationService) publish(ctx context.Context, item dto.NotificationResponse) error {
	if !s.relaysOverRedis() && !s.relaysOverNATS() {
		return nil
	}

	payload, err := json.Marshal(notificationEvent{
		Source:       s.nodeID,
		Notification: item,
		SentAt:       s.now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.relaysOverRedis() {
		return s.redis.Publish(ctx, s.redisChannel, payload).Err()
	}
	return s.nats.Publish(s.natsSubject, payload)
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	// Every node must see every event, so this is a plain subscription rather than a queue group.
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.broadcast(event.Notification)
}

func (b *notificationBroker) subscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *notificationBroker) broadcast(userID uint, item dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- item:
		default:
		}
	}
}
