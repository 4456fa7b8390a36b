// Package users reads the profile data that personalizes analysis.
// Profiles are owned by the account service; this package never writes them.
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/vitalis/pkg/repository"
)

// DefaultLanguage is used when a profile is missing or carries no language.
const DefaultLanguage = "en"

// Context is the read-only profile passed to analyzers and the extractor.
type Context struct {
	UserID     string   `json:"-"`
	Language   string   `json:"language"`
	Allergies  []string `json:"allergies"`
	BloodGroup string   `json:"blood_group,omitempty"`
	BodyType   string   `json:"body_type,omitempty"`
	SkinTone   string   `json:"skin_tone,omitempty"`
	Profession string   `json:"profession,omitempty"`
}

// Lang returns the base language tag, lowercased, without region.
func (c Context) Lang() string {
	lang := strings.ToLower(strings.TrimSpace(c.Language))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}

// Source loads a user's Context. Implementations read the source of truth on
// every call and never cache.
type Source interface {
	Context(ctx context.Context, userID string) (Context, error)
}

type sqlSource struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSource returns a Source over the user_profiles table.
func NewSource(db *sql.DB, logger *slog.Logger) Source {
	return &sqlSource{db: db, logger: logger.With("system", "users")}
}

const selectProfile = `
	SELECT language, allergies, blood_group, body_type, skin_tone, profession
	FROM user_profiles
	WHERE user_id = $1`

// Context returns the stored profile, or a default profile when the user has
// not filled one in.
func (s *sqlSource) Context(ctx context.Context, userID string) (Context, error) {
	uc, err := repository.QueryOne(ctx, s.db, selectProfile, []any{userID}, scanContext)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.DebugContext(ctx, "no profile, using defaults", "user_id", userID)
		return Context{UserID: userID, Language: DefaultLanguage, Allergies: []string{}}, nil
	}
	if err != nil {
		return Context{}, fmt.Errorf("query profile: %w", err)
	}

	uc.UserID = userID
	return uc, nil
}

func scanContext(s repository.Scanner) (Context, error) {
	var (
		c         Context
		allergies []byte
		blood     sql.NullString
		body      sql.NullString
		skin      sql.NullString
		job       sql.NullString
	)

	if err := s.Scan(&c.Language, &allergies, &blood, &body, &skin, &job); err != nil {
		return Context{}, err
	}

	c.Allergies = []string{}
	if len(allergies) > 0 {
		if err := json.Unmarshal(allergies, &c.Allergies); err != nil {
			return Context{}, fmt.Errorf("decode allergies: %w", err)
		}
	}

	c.BloodGroup = blood.String
	c.BodyType = body.String
	c.SkinTone = skin.String
	c.Profession = job.String

	if c.Language == "" {
		c.Language = DefaultLanguage
	}

	return c, nil
}
