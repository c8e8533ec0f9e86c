package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"calTrackAPI/internal/challenge"
	"calTrackAPI/internal/notification"
)

// NotificationService persists notifications and hands them to the
// in-memory dispatcher for push delivery. Reward notifications are
// best effort: a failed push never affects the grant or the progress
// update that caused it.
type NotificationService struct {
	db         *pgxpool.Pool
	dispatcher *NotificationDispatcher
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	service := &NotificationService{db: db}
	service.dispatcher = NewNotificationDispatcher(service)
	return service
}

// SetPushProvider injects the FCM provider from main.go.
func (s *NotificationService) SetPushProvider(provider PushNotificationProvider) {
	s.dispatcher.SetPushProvider(provider)
}

// Stop drains the push dispatcher. Called on shutdown.
func (s *NotificationService) Stop() {
	s.dispatcher.Stop()
}

func (s *NotificationService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}

func (s *NotificationService) create(ctx context.Context, userID uuid.UUID, typ notification.Type, title, body string, data map[string]any) (*notification.Notification, error) {
	dataJSON, _ := json.Marshal(data)

	query := `
	INSERT INTO notifications (id, user_id, type, status, title, body, data, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	RETURNING id, user_id, type, status, title, body, created_at
	`

	notif := &notification.Notification{Data: data}
	err := s.db.QueryRow(
		ctx, query,
		uuid.New(), userID, typ, notification.StatusPending, title, body, dataJSON,
	).Scan(
		&notif.ID, &notif.UserID, &notif.Type, &notif.Status,
		&notif.Title, &notif.Body, &notif.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	tokens, err := s.deviceTokens(ctx, userID)
	if err != nil {
		log.Printf("failed to load device tokens for user %s: %v", userID, err)
		tokens = nil
	}

	s.dispatcher.Dispatch(notif, tokens)

	return notif, nil
}

// NotifyBadgeUnlocked announces a fresh badge grant. Errors are logged
// only; the caller has already committed the grant.
func (s *NotificationService) NotifyBadgeUnlocked(ctx context.Context, userID uuid.UUID, badgeID uuid.UUID) {
	var name string
	err := s.db.QueryRow(ctx, `SELECT name FROM badges WHERE id = $1`, badgeID).Scan(&name)
	if err != nil {
		log.Printf("badge unlock notification skipped, badge %s: %v", badgeID, err)
		return
	}

	_, err = s.create(ctx, userID, notification.TypeBadgeUnlocked,
		"Badge unlocked!",
		fmt.Sprintf("You earned the %s badge.", name),
		map[string]any{"badge_id": badgeID.String()},
	)
	if err != nil {
		log.Printf("failed to create badge notification for user %s: %v", userID, err)
	}
}

// NotifyChallengeCompleted announces a challenge completion.
func (s *NotificationService) NotifyChallengeCompleted(ctx context.Context, userID uuid.UUID, ch *challenge.Challenge) {
	_, err := s.create(ctx, userID, notification.TypeChallengeCompleted,
		"Challenge completed!",
		fmt.Sprintf("You finished the %s challenge.", ch.Name),
		map[string]any{"challenge_id": ch.ID.String()},
	)
	if err != nil {
		log.Printf("failed to create challenge notification for user %s: %v", userID, err)
	}
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// RegisterDevice stores a push token for the user. Re-registering the
// same token moves it to the current user.
func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO device_tokens (user_id, token, platform, registered_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token)
	DO UPDATE SET user_id = $1, platform = $3, registered_at = NOW()
	`

	if _, err := s.db.Exec(ctx, query, userID, req.Token, req.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}

	return nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string, unreadOnly bool) ([]*notification.Notification, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT id, user_id, type, status, title, body, data, read_at, sent_at, created_at
	FROM notifications
	WHERE user_id = $1
	`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		notif := &notification.Notification{}
		var dataJSON []byte
		err := rows.Scan(
			&notif.ID, &notif.UserID, &notif.Type, &notif.Status,
			&notif.Title, &notif.Body, &dataJSON,
			&notif.ReadAt, &notif.SentAt, &notif.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		json.Unmarshal(dataJSON, &notif.Data)
		notifications = append(notifications, notif)
	}

	return notifications, rows.Err()
}

func (s *NotificationService) MarkAsRead(ctx context.Context, clerkID string, notificationID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) markAsSent(ctx context.Context, notificationID uuid.UUID) {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET status = $2, sent_at = NOW() WHERE id = $1`,
		notificationID, notification.StatusSent,
	)
	if err != nil {
		log.Printf("failed to mark notification %s sent: %v", notificationID, err)
	}
}

func (s *NotificationService) markAsFailed(ctx context.Context, notificationID uuid.UUID, cause error) {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET status = $2 WHERE id = $1`,
		notificationID, notification.StatusFailed,
	)
	if err != nil {
		log.Printf("failed to mark notification %s failed (cause: %v): %v", notificationID, cause, err)
	}
}

// delivery deadline for a single push
const dispatchTimeout = 10 * time.Second
