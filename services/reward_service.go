package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"calTrackAPI/internal/badge"
)

// RewardService is the badge issuer. A badge is granted to a user at
// most once; the duplicate check and the insert are a single statement
// so concurrent triggers (a completion racing a manual award) cannot
// double-grant. Points and rank move together with the grant in one
// transaction.
type RewardService struct {
	db           *pgxpool.Pool
	notifService *NotificationService
}

func NewRewardService(db *pgxpool.Pool, notifService *NotificationService) *RewardService {
	return &RewardService{
		db:           db,
		notifService: notifService,
	}
}

func (s *RewardService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
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

// GrantBadge is the manual/administrative award path. Same idempotency
// contract as the challenge-completion path: a repeated grant is a
// successful no-op.
func (s *RewardService) GrantBadge(ctx context.Context, userID uuid.UUID, badgeID uuid.UUID) (*badge.UserBadge, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	granted, err := s.grantInTx(ctx, tx, userID, badgeID)
	if err != nil {
		return nil, err
	}

	grant := &badge.UserBadge{}
	err = tx.QueryRow(ctx, `
		SELECT user_id, badge_id, earned_at
		FROM user_badges
		WHERE user_id = $1 AND badge_id = $2`,
		userID, badgeID,
	).Scan(&grant.UserID, &grant.BadgeID, &grant.EarnedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read badge grant: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if granted && s.notifService != nil {
		go s.notifService.NotifyBadgeUnlocked(context.Background(), userID, badgeID)
	}

	return grant, nil
}

// grantInTx performs the at-most-once grant inside the caller's
// transaction. ON CONFLICT DO NOTHING makes the has-badge check and
// the append one atomic step; points and rank are only touched when a
// row was actually inserted. Returns whether a new grant happened.
func (s *RewardService) grantInTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, badgeID uuid.UUID) (bool, error) {
	var b badge.Badge
	err := tx.QueryRow(ctx, `SELECT id, name, points FROM badges WHERE id = $1`, badgeID).Scan(&b.ID, &b.Name, &b.Points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrBadgeNotFound
		}
		return false, fmt.Errorf("failed to look up badge: %w", err)
	}

	points := b.Points
	if points <= 0 {
		points = badge.DefaultPoints
	}

	result, err := tx.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, badge_id) DO NOTHING`,
		userID, badgeID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to grant badge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return false, nil
	}

	var totalPoints int
	err = tx.QueryRow(ctx, `
		UPDATE users
		SET total_points = total_points + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING total_points`,
		userID, points,
	).Scan(&totalPoints)
	if err != nil {
		return false, fmt.Errorf("failed to add badge points: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE users SET rank = $2 WHERE id = $1`, userID, badge.RankFor(totalPoints))
	if err != nil {
		return false, fmt.Errorf("failed to update rank: %w", err)
	}

	badgesGranted.Inc()

	return true, nil
}

// GetBadges lists the whole catalog with the user's earned state.
func (s *RewardService) GetBadges(ctx context.Context, clerkID string) ([]*badge.BadgeWithStatus, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT
		b.id,
		b.name,
		b.description,
		b.icon,
		b.points,
		b.rarity,
		b.created_at,
		CASE WHEN ub.badge_id IS NOT NULL THEN true ELSE false END AS earned,
		ub.earned_at
	FROM badges b
	LEFT JOIN user_badges ub ON b.id = ub.badge_id AND ub.user_id = $1
	ORDER BY earned DESC, b.points ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch badges: %w", err)
	}
	defer rows.Close()

	var badges []*badge.BadgeWithStatus
	for rows.Next() {
		b := &badge.BadgeWithStatus{}
		err := rows.Scan(
			&b.ID,
			&b.Name,
			&b.Description,
			&b.Icon,
			&b.Points,
			&b.Rarity,
			&b.CreatedAt,
			&b.Earned,
			&b.EarnedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}

	return badges, rows.Err()
}

// GetBadge resolves one catalog entry.
func (s *RewardService) GetBadge(ctx context.Context, badgeID uuid.UUID) (*badge.Badge, error) {
	b := &badge.Badge{}
	err := s.db.QueryRow(ctx, `
		SELECT id, name, description, icon, points, rarity, created_at
		FROM badges
		WHERE id = $1`,
		badgeID,
	).Scan(&b.ID, &b.Name, &b.Description, &b.Icon, &b.Points, &b.Rarity, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBadgeNotFound
		}
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}
	return b, nil
}
