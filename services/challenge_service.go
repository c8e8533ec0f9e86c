package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"calTrackAPI/internal/challenge"
	"calTrackAPI/internal/leaderboard"
	"calTrackAPI/internal/progress"
	"calTrackAPI/internal/workout"
)

// ChallengeService owns the progress ledger: participant state for
// every (challenge, user) pair, the incremental update path and the
// full recalculation path. All participant mutations happen through
// conditional SQL updates or under row locks, so concurrent workers
// cannot lose increments or double-fire a completion.
type ChallengeService struct {
	db           *pgxpool.Pool
	rewards      *RewardService
	notifService *NotificationService
}

func NewChallengeService(db *pgxpool.Pool, rewards *RewardService, notifService *NotificationService) *ChallengeService {
	return &ChallengeService{
		db:           db,
		rewards:      rewards,
		notifService: notifService,
	}
}

func (s *ChallengeService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
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

const challengeColumns = `id, name, description, type, unit, target_value, start_date, end_date, badge_id, is_active, created_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	ch := &challenge.Challenge{}
	err := row.Scan(
		&ch.ID,
		&ch.Name,
		&ch.Description,
		&ch.Type,
		&ch.Unit,
		&ch.TargetValue,
		&ch.StartDate,
		&ch.EndDate,
		&ch.BadgeID,
		&ch.IsActive,
		&ch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, req *challenge.CreateChallengeRequest) (*challenge.Challenge, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid challenge: %w", err)
	}

	query := `
	INSERT INTO challenges (id, name, description, type, unit, target_value, start_date, end_date, badge_id, is_active, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, NOW())
	RETURNING ` + challengeColumns

	ch, err := scanChallenge(s.db.QueryRow(
		ctx,
		query,
		uuid.New(),
		req.Name,
		req.Description,
		req.Type,
		req.Unit,
		req.TargetValue,
		req.StartDate,
		req.EndDate,
		req.BadgeID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	return ch, nil
}

func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID uuid.UUID) (*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	ch, err := scanChallenge(s.db.QueryRow(ctx, query, challengeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	return ch, nil
}

func (s *ChallengeService) ListChallenges(ctx context.Context, clerkID string) ([]*challenge.ChallengeWithProgress, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT
		c.id, c.name, c.description, c.type, c.unit, c.target_value,
		c.start_date, c.end_date, c.badge_id, c.is_active, c.created_at,
		CASE WHEN cp.user_id IS NOT NULL THEN true ELSE false END AS joined,
		COALESCE(cp.progress, 0),
		COALESCE(cp.completed, false),
		cp.completed_at
	FROM challenges c
	LEFT JOIN challenge_participants cp ON cp.challenge_id = c.id AND cp.user_id = $1
	WHERE c.is_active = TRUE
	ORDER BY c.start_date DESC, c.created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*challenge.ChallengeWithProgress
	for rows.Next() {
		cwp := &challenge.ChallengeWithProgress{}
		err := rows.Scan(
			&cwp.ID,
			&cwp.Name,
			&cwp.Description,
			&cwp.Type,
			&cwp.Unit,
			&cwp.TargetValue,
			&cwp.StartDate,
			&cwp.EndDate,
			&cwp.BadgeID,
			&cwp.IsActive,
			&cwp.CreatedAt,
			&cwp.Joined,
			&cwp.Progress,
			&cwp.Completed,
			&cwp.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, cwp)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return challenges, nil
}

// JoinChallenge creates the user's participant record with zero
// progress. A user joins a challenge at most once.
func (s *ChallengeService) JoinChallenge(ctx context.Context, clerkID string, challengeID uuid.UUID) (*challenge.Participant, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if _, err := s.GetChallenge(ctx, challengeID); err != nil {
		return nil, err
	}

	query := `
	INSERT INTO challenge_participants (challenge_id, user_id, progress, completed, joined_at)
	VALUES ($1, $2, 0, FALSE, NOW())
	ON CONFLICT (challenge_id, user_id) DO NOTHING
	RETURNING challenge_id, user_id, progress, completed, completed_at, joined_at
	`

	p := &challenge.Participant{}
	err = s.db.QueryRow(ctx, query, challengeID, userID).Scan(
		&p.ChallengeID,
		&p.UserID,
		&p.Progress,
		&p.Completed,
		&p.CompletedAt,
		&p.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyJoined
		}
		return nil, fmt.Errorf("failed to join challenge: %w", err)
	}

	return p, nil
}

// ApplyEvent is the fast path invoked when a workout is created. It
// selects the user's active, not yet completed challenges whose window
// contains the event date, computes the per-challenge increment and
// applies it as an atomic conditional update. It never rescans
// history; that is what Recalculate is for.
func (s *ChallengeService) ApplyEvent(ctx context.Context, userID uuid.UUID, ev workout.Event) ([]*challenge.Challenge, error) {
	query := `
	SELECT c.id, c.name, c.description, c.type, c.unit, c.target_value,
	       c.start_date, c.end_date, c.badge_id, c.is_active, c.created_at
	FROM challenges c
	JOIN challenge_participants cp ON cp.challenge_id = c.id AND cp.user_id = $1
	WHERE c.is_active = TRUE
	  AND cp.completed = FALSE
	  AND $2::date BETWEEN c.start_date AND c.end_date
	`

	rows, err := s.db.Query(ctx, query, userID, ev.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch joined challenges: %w", err)
	}

	var candidates []*challenge.Challenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		candidates = append(candidates, ch)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	var updated []*challenge.Challenge
	for _, ch := range candidates {
		delta, err := progress.Increment(ch, ev)
		if errors.Is(err, progress.ErrInvalidConfiguration) {
			log.Printf("challenge %s: unit %q is invalid for type %q, event ignored", ch.ID, ch.Unit, ch.Type)
		}
		if delta <= 0 {
			continue
		}

		completed, err := s.applyDelta(ctx, ch, userID, delta)
		if err != nil {
			return nil, err
		}
		if completed {
			s.notifyCompletion(userID, ch)
		}
		updated = append(updated, ch)
	}

	return updated, nil
}

// applyDelta adds one increment and, when the target is crossed, flips
// completion and grants the reward inside the same transaction. The
// increment itself is a conditional update guarded by completed =
// FALSE, so a participant completed by a concurrent worker between the
// candidate query and this statement is simply skipped.
func (s *ChallengeService) applyDelta(ctx context.Context, ch *challenge.Challenge, userID uuid.UUID, delta float64) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var newProgress float64
	err = tx.QueryRow(ctx, `
		UPDATE challenge_participants
		SET progress = progress + $3
		WHERE challenge_id = $1 AND user_id = $2 AND completed = FALSE
		RETURNING progress`,
		ch.ID, userID, delta,
	).Scan(&newProgress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update progress: %w", err)
	}

	completed := false
	if challenge.TargetMet(newProgress, ch.TargetValue) {
		completed, err = s.finishIfComplete(ctx, tx, ch, userID, time.Now())
		if err != nil {
			return false, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return completed, nil
}

// finishIfComplete is the completion dispatcher. Both the incremental
// and recalculation paths end in this one step: the guarded update
// flips completed and stamps completed_at at most once per participant,
// and badge issuance runs as part of the caller's transaction. A target
// of zero has nothing to cross, so the flip is skipped outright.
//
// The grant fires whenever the participant ends up completed, fresh or
// not. It is idempotent, so re-issuing it for an already completed
// participant is a no-op that doubles as repair for a missed reward. A
// badge that does not resolve in the catalog is logged and skipped,
// never failing the progress write that triggered it.
func (s *ChallengeService) finishIfComplete(ctx context.Context, tx pgx.Tx, ch *challenge.Challenge, userID uuid.UUID, now time.Time) (bool, error) {
	fresh := false
	if ch.TargetValue > 0 {
		result, err := tx.Exec(ctx, `
			UPDATE challenge_participants
			SET completed = TRUE, completed_at = $3
			WHERE challenge_id = $1 AND user_id = $2 AND completed = FALSE AND progress >= $4`,
			ch.ID, userID, now, ch.TargetValue,
		)
		if err != nil {
			return false, fmt.Errorf("failed to mark challenge completed: %w", err)
		}
		fresh = result.RowsAffected() > 0
	}

	if fresh {
		challengeCompletions.Inc()
	}

	var completed bool
	err := tx.QueryRow(ctx, `
		SELECT completed FROM challenge_participants
		WHERE challenge_id = $1 AND user_id = $2`,
		ch.ID, userID,
	).Scan(&completed)
	if err != nil {
		return false, fmt.Errorf("failed to read completion state: %w", err)
	}

	if completed && ch.BadgeID != nil {
		_, err := s.rewards.grantInTx(ctx, tx, userID, *ch.BadgeID)
		if err != nil {
			if errors.Is(err, ErrBadgeNotFound) {
				log.Printf("challenge %s rewards unknown badge %s, grant skipped", ch.ID, *ch.BadgeID)
			} else {
				return false, err
			}
		}
	}

	return fresh, nil
}

// Recalculate rebuilds the user's participant state from the complete
// workout history, for one challenge or all active joined challenges.
// It is the slow path behind workout edits, deletions and completion
// toggles, and doubles as a self-healing consistency pass: running it
// twice with no new activity yields the same state both times.
func (s *ChallengeService) Recalculate(ctx context.Context, userID uuid.UUID, challengeID *uuid.UUID) ([]*challenge.Challenge, error) {
	query := `
	SELECT c.id, c.name, c.description, c.type, c.unit, c.target_value,
	       c.start_date, c.end_date, c.badge_id, c.is_active, c.created_at
	FROM challenges c
	JOIN challenge_participants cp ON cp.challenge_id = c.id AND cp.user_id = $1
	WHERE c.is_active = TRUE
	`
	args := []any{userID}
	if challengeID != nil {
		query += ` AND c.id = $2`
		args = append(args, *challengeID)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch joined challenges: %w", err)
	}

	var challenges []*challenge.Challenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, ch)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if challengeID != nil && len(challenges) == 0 {
		return nil, ErrChallengeNotFound
	}

	for _, ch := range challenges {
		freshlyCompleted, err := s.recalculateOne(ctx, ch, userID)
		if err != nil {
			return nil, err
		}
		if freshlyCompleted {
			s.notifyCompletion(userID, ch)
		}
	}

	recalculations.Inc()

	return challenges, nil
}

// recalculateOne rebuilds a single participant inside one transaction.
// The FOR UPDATE lock on the participant row is the serialization
// unit: a concurrent incremental update for the same pair blocks on it
// and then finds either completed = TRUE or the recomputed progress.
//
// The rebuild writes the recomputed total, resets a completion the
// total no longer supports, and then runs the same finishIfComplete
// step as the incremental path. A participant who was completed and
// still meets the target is untouched by the guarded flip, so the
// original completed_at survives.
func (s *ChallengeService) recalculateOne(ctx context.Context, ch *challenge.Challenge, userID uuid.UUID) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var wasCompleted bool
	err = tx.QueryRow(ctx, `
		SELECT completed FROM challenge_participants
		WHERE challenge_id = $1 AND user_id = $2
		FOR UPDATE`,
		ch.ID, userID,
	).Scan(&wasCompleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrChallengeNotFound
		}
		return false, fmt.Errorf("failed to lock participant: %w", err)
	}

	events, err := s.eventsInWindow(ctx, tx, userID, ch)
	if err != nil {
		return false, err
	}

	total, confErr := progress.Total(ch, events)
	if confErr != nil {
		log.Printf("challenge %s: unit %q is invalid for type %q, events ignored", ch.ID, ch.Unit, ch.Type)
	}

	_, err = tx.Exec(ctx, `
		UPDATE challenge_participants
		SET progress = $3
		WHERE challenge_id = $1 AND user_id = $2`,
		ch.ID, userID, total,
	)
	if err != nil {
		return false, fmt.Errorf("failed to write recalculated progress: %w", err)
	}

	if !challenge.TargetMet(total, ch.TargetValue) {
		_, err = tx.Exec(ctx, `
			UPDATE challenge_participants
			SET completed = FALSE, completed_at = NULL
			WHERE challenge_id = $1 AND user_id = $2 AND completed = TRUE`,
			ch.ID, userID,
		)
		if err != nil {
			return false, fmt.Errorf("failed to reset completion: %w", err)
		}
	}

	freshlyCompleted, err := s.finishIfComplete(ctx, tx, ch, userID, time.Now())
	if err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return freshlyCompleted, nil
}

func (s *ChallengeService) eventsInWindow(ctx context.Context, tx pgx.Tx, userID uuid.UUID, ch *challenge.Challenge) ([]workout.Event, error) {
	rows, err := tx.Query(ctx, `
		SELECT type, calories, duration_min, distance_miles, workout_date
		FROM workouts
		WHERE user_id = $1 AND workout_date BETWEEN $2 AND $3`,
		userID, ch.StartDate, ch.EndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workout history: %w", err)
	}
	defer rows.Close()

	var events []workout.Event
	for rows.Next() {
		var ev workout.Event
		if err := rows.Scan(&ev.Type, &ev.Calories, &ev.DurationMin, &ev.DistanceMiles, &ev.Date); err != nil {
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ChallengeLeaderboard ranks a challenge's participants by progress.
// Read-only aggregation, no engine state is touched.
func (s *ChallengeService) ChallengeLeaderboard(ctx context.Context, challengeID uuid.UUID) ([]*leaderboard.ChallengeEntry, error) {
	query := `
	SELECT
		u.id,
		u.username,
		u.image_url,
		cp.progress,
		cp.completed,
		RANK() OVER (ORDER BY cp.progress DESC) AS position
	FROM challenge_participants cp
	JOIN users u ON u.id = cp.user_id
	WHERE cp.challenge_id = $1
	ORDER BY cp.progress DESC
	LIMIT 100
	`

	rows, err := s.db.Query(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenge leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.ChallengeEntry
	for rows.Next() {
		entry := &leaderboard.ChallengeEntry{}
		var imageURL *string
		err := rows.Scan(&entry.UserID, &entry.Username, &imageURL, &entry.Progress, &entry.Completed, &entry.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entry.ImageURL = imageURL
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (s *ChallengeService) notifyCompletion(userID uuid.UUID, ch *challenge.Challenge) {
	if s.notifService == nil {
		return
	}
	go s.notifService.NotifyChallengeCompleted(context.Background(), userID, ch)
}
