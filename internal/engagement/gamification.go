package engagement

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Point awards.
const (
	PointsPerDocument = 10
	PointsPerFinding  = 2
	PointsImproved    = 5
)

// Achievement identifiers.
const (
	AchievementFirstUpload = "first_upload"
	AchievementTenUploads  = "ten_uploads"
	AchievementLabExplorer = "lab_explorer"
	AchievementStreak7     = "streak_7"
	AchievementImprover    = "improver"
)

const dayLayout = "2006-01-02"

// Award is what one processed document earns.
type Award struct {
	Points   int64
	Day      time.Time
	Lab      bool
	Improved bool
}

// Progress is a user's accumulated gamification state.
type Progress struct {
	Score        int64    `json:"score"`
	Uploads      int64    `json:"uploads"`
	Streak       int      `json:"streak"`
	LastDay      string   `json:"last_day"`
	Achievements []string `json:"achievements"`
}

// ProgressStore applies an Award atomically and returns the new Progress.
type ProgressStore interface {
	Record(ctx context.Context, userID string, a Award) (Progress, error)
}

type gamification struct {
	store ProgressStore
}

// NewGamification returns the effect awarding points, streaks and achievements.
func NewGamification(store ProgressStore) Effect {
	return &gamification{store: store}
}

func (g *gamification) Name() string { return "gamification" }

func (g *gamification) Apply(ctx context.Context, ev Event) error {
	_, err := g.store.Record(ctx, ev.UserID, AwardFor(ev, time.Now().UTC()))
	return err
}

// AwardFor computes the award for ev on the given day.
func AwardFor(ev Event, now time.Time) Award {
	points := int64(PointsPerDocument + PointsPerFinding*len(ev.Findings))
	improved := ev.Improved()
	if improved {
		points += PointsImproved
	}
	return Award{
		Points:   points,
		Day:      now,
		Lab:      ev.DocumentType.IsLab(),
		Improved: improved,
	}
}

// NextStreak returns the streak after activity on day, given the previous
// streak and the last active day in dayLayout form.
func NextStreak(prev int, lastDay string, day time.Time) int {
	today := day.UTC().Format(dayLayout)
	switch lastDay {
	case today:
		return max(prev, 1)
	case day.UTC().AddDate(0, 0, -1).Format(dayLayout):
		return prev + 1
	default:
		return 1
	}
}

// Achievements returns the achievements earned by p after award a.
func Achievements(p Progress, a Award) []string {
	var out []string
	if p.Uploads >= 1 {
		out = append(out, AchievementFirstUpload)
	}
	if p.Uploads >= 10 {
		out = append(out, AchievementTenUploads)
	}
	if a.Lab {
		out = append(out, AchievementLabExplorer)
	}
	if p.Streak >= 7 {
		out = append(out, AchievementStreak7)
	}
	if a.Improved {
		out = append(out, AchievementImprover)
	}
	return out
}

const recordAttempts = 3

// RedisProgress keeps progress in a hash and achievements in a set per user.
type RedisProgress struct {
	client *goredis.Client
	prefix string
}

// NewRedisProgress returns a ProgressStore on client. Keys are namespaced by prefix.
func NewRedisProgress(client *goredis.Client, prefix string) *RedisProgress {
	return &RedisProgress{client: client, prefix: prefix}
}

func (r *RedisProgress) progressKey(userID string) string {
	return fmt.Sprintf("%s:progress:%s", r.prefix, userID)
}

func (r *RedisProgress) achievementsKey(userID string) string {
	return fmt.Sprintf("%s:achievements:%s", r.prefix, userID)
}

// Record applies a under an optimistic WATCH on the user's progress hash.
func (r *RedisProgress) Record(ctx context.Context, userID string, a Award) (Progress, error) {
	key := r.progressKey(userID)

	var p Progress
	txf := func(tx *goredis.Tx) error {
		vals, err := tx.HMGet(ctx, key, "score", "uploads", "streak", "last_day").Result()
		if err != nil {
			return err
		}

		p = Progress{
			Score:   parseInt(vals[0]) + a.Points,
			Uploads: parseInt(vals[1]) + 1,
			LastDay: a.Day.UTC().Format(dayLayout),
		}
		p.Streak = NextStreak(int(parseInt(vals[2])), stringValue(vals[3]), a.Day)

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"score", p.Score,
				"uploads", p.Uploads,
				"streak", p.Streak,
				"last_day", p.LastDay,
			)
			return nil
		})
		return err
	}

	var err error
	for range recordAttempts {
		if err = r.client.Watch(ctx, txf, key); !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return Progress{}, fmt.Errorf("record progress: %w", err)
	}

	setKey := r.achievementsKey(userID)
	if earned := Achievements(p, a); len(earned) > 0 {
		members := make([]any, len(earned))
		for i, e := range earned {
			members[i] = e
		}
		if err := r.client.SAdd(ctx, setKey, members...).Err(); err != nil {
			return Progress{}, fmt.Errorf("record achievements: %w", err)
		}
	}

	all, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return Progress{}, fmt.Errorf("read achievements: %w", err)
	}
	slices.Sort(all)
	p.Achievements = all

	return p, nil
}

func parseInt(v any) int64 {
	n, _ := strconv.ParseInt(stringValue(v), 10, 64)
	return n
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
