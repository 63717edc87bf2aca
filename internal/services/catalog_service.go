package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"arena/internal/db"
	"arena/internal/store"
	"arena/internal/timekey"

	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultTotalSeats = 100
	gameFilterPrefix  = "selection_"
)

type MatchCatalog interface {
	Create(ctx context.Context, tx store.Getter, input store.MatchInput) (store.Match, error)
	GetWithSeats(ctx context.Context, matchID int64) (store.MatchWithSeats, error)
	GetForUpdate(ctx context.Context, tx store.Getter, matchID int64) (store.Match, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]store.MatchWithSeats, error)
	ListAll(ctx context.Context, limit, offset int) ([]store.MatchWithSeats, error)
	ListGameNames(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, tx store.Execer, matchID int64) (int64, error)
}

// ReferenceCounter counts ledger rows pointing at a match.
type ReferenceCounter interface {
	CountByMatch(ctx context.Context, q store.Getter, matchID int64) (int, error)
}

type AuditLogger interface {
	Log(ctx context.Context, tx store.Execer, input store.AuditInput) error
}

type CatalogService struct {
	txRunner  db.TxRunner
	matches   MatchCatalog
	entries   ReferenceCounter
	purchases ReferenceCounter
	audit     AuditLogger
	location  *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

func NewCatalogService(txRunner db.TxRunner, matches MatchCatalog, entries, purchases ReferenceCounter, audit AuditLogger, location *time.Location, now func() time.Time, logger *zap.Logger) *CatalogService {
	if now == nil {
		now = time.Now
	}
	return &CatalogService{
		txRunner:  txRunner,
		matches:   matches,
		entries:   entries,
		purchases: purchases,
		audit:     audit,
		location:  location,
		now:       now,
		logger:    logger,
	}
}

type MatchView struct {
	store.Match
	OccupiedSeats  int
	AvailableSeats int
}

func viewOf(row store.MatchWithSeats) MatchView {
	return MatchView{
		Match:          row.Match,
		OccupiedSeats:  row.Occupied,
		AvailableSeats: max(row.TotalSeats-row.Occupied, 0),
	}
}

type GameCategory struct {
	Name string
	Slug string
}

type CreateMatchRequest struct {
	ActorID      string
	GameName     string
	MatchName    string
	EntryFee     decimal.Decimal
	PerKillPoint decimal.Decimal
	FirstPrize   decimal.Decimal
	SecondPrize  decimal.Decimal
	ThirdPrize   decimal.Decimal
	TotalSeats   int
	TimeKey      string
}

func (s *CatalogService) Get(ctx context.Context, matchID int64) (MatchView, error) {
	row, err := s.matches.GetWithSeats(ctx, matchID)
	if err != nil {
		return MatchView{}, notFound(err, ErrMatchNotFound)
	}
	return viewOf(row), nil
}

// ListToday returns matches scheduled on the current local day, ordered by
// game then time. The optional filter may carry a "selection_" prefix and
// matches a game name case-insensitively or by slug.
func (s *CatalogService) ListToday(ctx context.Context, gameFilter string) ([]MatchView, error) {
	from, to := timekey.Day(s.now(), s.location)
	rows, err := s.matches.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	filter := strings.TrimPrefix(strings.TrimSpace(gameFilter), gameFilterPrefix)
	views := make([]MatchView, 0, len(rows))
	for _, row := range rows {
		if filter != "" && !sameGame(row.GameName, filter) {
			continue
		}
		views = append(views, viewOf(row))
	}
	return views, nil
}

func sameGame(name, filter string) bool {
	return strings.EqualFold(name, filter) || slug.Make(name) == slug.Make(filter)
}

func (s *CatalogService) ListAll(ctx context.Context, limit, offset int) ([]MatchView, error) {
	rows, err := s.matches.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	views := make([]MatchView, 0, len(rows))
	for _, row := range rows {
		views = append(views, viewOf(row))
	}
	return views, nil
}

func (s *CatalogService) Games(ctx context.Context) ([]GameCategory, error) {
	names, err := s.matches.ListGameNames(ctx)
	if err != nil {
		return nil, err
	}
	games := make([]GameCategory, 0, len(names))
	for _, name := range names {
		games = append(games, GameCategory{Name: name, Slug: slug.Make(name)})
	}
	return games, nil
}

func (s *CatalogService) Create(ctx context.Context, req CreateMatchRequest) (store.Match, error) {
	input, err := s.validate(req)
	if err != nil {
		return store.Match{}, err
	}
	var created store.Match
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		match, err := s.matches.Create(ctx, tx, input)
		if err != nil {
			return err
		}
		created = match
		return s.audit.Log(ctx, tx, store.AuditInput{
			ActorID:    req.ActorID,
			Action:     "create_match",
			EntityType: "match",
			EntityID:   strconv.FormatInt(match.ID, 10),
			Data: map[string]any{
				"game_name":   match.GameName,
				"match_name":  match.MatchName,
				"time_key":    match.TimeKey,
				"total_seats": match.TotalSeats,
			},
		})
	})
	if err != nil {
		return store.Match{}, transient(err)
	}
	s.logger.Info("match created", zap.Int64("match_id", created.ID), zap.String("time_key", created.TimeKey))
	return created, nil
}

func (s *CatalogService) validate(req CreateMatchRequest) (store.MatchInput, error) {
	gameName := strings.TrimSpace(req.GameName)
	matchName := strings.TrimSpace(req.MatchName)
	if gameName == "" {
		return store.MatchInput{}, fmt.Errorf("%w: game name is required", ErrInvalidMatch)
	}
	if matchName == "" {
		return store.MatchInput{}, fmt.Errorf("%w: match name is required", ErrInvalidMatch)
	}
	for label, amount := range map[string]decimal.Decimal{
		"entry fee":      req.EntryFee,
		"per kill point": req.PerKillPoint,
		"first prize":    req.FirstPrize,
		"second prize":   req.SecondPrize,
		"third prize":    req.ThirdPrize,
	} {
		if amount.IsNegative() {
			return store.MatchInput{}, fmt.Errorf("%w: %s must not be negative", ErrInvalidMatch, label)
		}
	}
	seats := req.TotalSeats
	if seats == 0 {
		seats = defaultTotalSeats
	}
	if seats < 0 {
		return store.MatchInput{}, fmt.Errorf("%w: total seats must be positive", ErrInvalidMatch)
	}
	scheduledAt, err := timekey.Parse(req.TimeKey, s.location)
	if err != nil {
		return store.MatchInput{}, fmt.Errorf("%w: %v", ErrInvalidMatch, err)
	}
	return store.MatchInput{
		GameName:     gameName,
		MatchName:    matchName,
		EntryFee:     req.EntryFee,
		PerKillPoint: req.PerKillPoint,
		FirstPrize:   req.FirstPrize,
		SecondPrize:  req.SecondPrize,
		ThirdPrize:   req.ThirdPrize,
		TotalSeats:   seats,
		TimeKey:      req.TimeKey,
		ScheduledAt:  scheduledAt,
	}, nil
}

// Delete removes a match only when no entry or legacy purchase references
// it. The match row stays locked while the references are counted.
func (s *CatalogService) Delete(ctx context.Context, actorID string, matchID int64) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		match, err := s.matches.GetForUpdate(ctx, tx, matchID)
		if err != nil {
			return notFound(err, ErrMatchNotFound)
		}
		entries, err := s.entries.CountByMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		purchases, err := s.purchases.CountByMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if entries+purchases > 0 {
			return ErrMatchHasEntries
		}
		if _, err := s.matches.Delete(ctx, tx, matchID); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, store.AuditInput{
			ActorID:    actorID,
			Action:     "delete_match",
			EntityType: "match",
			EntityID:   strconv.FormatInt(matchID, 10),
			Data:       map[string]string{"game_name": match.GameName, "match_name": match.MatchName},
		})
	})
	if err != nil {
		return transient(err)
	}
	s.logger.Info("match deleted", zap.Int64("match_id", matchID))
	return nil
}
