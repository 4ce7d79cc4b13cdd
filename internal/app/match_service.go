package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/metrics"
	"quiz-duel-service/internal/rating"
)

// SessionRepository abstracts where live sessions are tracked (in-memory, Redis, etc).
type SessionRepository interface {
	Register(s *Session) error
	Get(matchID string) (*Session, bool)
	Remove(matchID string)
}

// MatchRepository persists match documents.
type MatchRepository interface {
	Create(ctx context.Context, m domain.Match) error
	Get(ctx context.Context, matchID string) (domain.Match, error)
	Save(ctx context.Context, m domain.Match) error
	ListOngoing(ctx context.Context) ([]domain.Match, error)
}

// UserRepository persists ratings and match history.
type UserRepository interface {
	Get(ctx context.Context, userID string) (domain.User, error)
	// ApplyMatchResult stores the new rating and appends entry to the history, bumping the
	// played and won counters. Applying the same match twice for a user is a no-op.
	ApplyMatchResult(ctx context.Context, userID string, newRating int, entry domain.HistoryEntry) error
}

// QuestionProvider loads question snapshots for new matches.
type QuestionProvider interface {
	FetchBoundQuestions(ctx context.Context, ids []string) ([]domain.Question, error)
	GenerateRandomQuestions(ctx context.Context, count int) ([]domain.Question, error)
}

const (
	settleTimeout    = 30 * time.Second
	settleRetryDelay = 5 * time.Second
)

// Settings are the rules every match is played under.
type Settings struct {
	Duration          time.Duration
	TotalQuestions    int
	BroadcastInterval time.Duration
	TimeoutGrace      time.Duration
	KFactor           int
	RatingFloor       int
	DefaultRating     int
}

func DefaultSettings() Settings {
	return Settings{
		Duration:          120 * time.Second,
		TotalQuestions:    10,
		BroadcastInterval: 5 * time.Second,
		TimeoutGrace:      2 * time.Second,
		KFactor:           rating.DefaultK,
		RatingFloor:       rating.DefaultFloor,
		DefaultRating:     rating.DefaultRating,
	}
}

type Config struct {
	Sessions  SessionRepository
	Matches   MatchRepository
	Users     UserRepository
	Questions QuestionProvider
	Notifier  Notifier
	Clock     Clock
	Logger    logrus.FieldLogger
	Metrics   *metrics.Metrics
	Settings  Settings
	// NewID generates match ids; defaults to UUIDv7.
	NewID func() (string, error)
}

// MatchService is the authority over match state: it validates and applies player actions,
// runs the match timers and settles matches.
type MatchService struct {
	sessions  SessionRepository
	matches   MatchRepository
	users     UserRepository
	questions QuestionProvider
	notifier  Notifier
	clock     Clock
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
	settings  Settings
	calc      rating.Calculator
	newID     func() (string, error)

	dispatch map[CommandKind]handlerFunc
}

func NewMatchService(c Config) *MatchService {
	s := &MatchService{
		sessions:  c.Sessions,
		matches:   c.Matches,
		users:     c.Users,
		questions: c.Questions,
		notifier:  c.Notifier,
		clock:     c.Clock,
		log:       c.Logger,
		metrics:   c.Metrics,
		settings:  c.Settings,
		newID:     c.NewID,
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.settings == (Settings{}) {
		s.settings = DefaultSettings()
	}
	if s.newID == nil {
		s.newID = func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		}
	}
	s.calc = rating.Calculator{K: s.settings.KFactor, Floor: s.settings.RatingFloor}
	s.dispatch = s.handlers()
	return s
}

// CreateMatchRequest describes a new duel.
type CreateMatchRequest struct {
	// MatchID is optional; one is generated when empty.
	MatchID   string
	PlayerIDs []string
	// QuestionIDs selects an explicit question set; random questions are drawn when empty
	// or when none of them can be loaded.
	QuestionIDs []string
}

// CreateMatch binds a question set, persists the match, registers its session and starts
// the deadline and broadcast timers.
func (s *MatchService) CreateMatch(ctx context.Context, req CreateMatchRequest) (*domain.Match, error) {
	if len(req.PlayerIDs) != 2 || req.PlayerIDs[0] == "" || req.PlayerIDs[1] == "" || req.PlayerIDs[0] == req.PlayerIDs[1] {
		return nil, domain.New(domain.CodeInvalidRequest, domain.WithMessagef("a match needs exactly two distinct players"))
	}

	questions, err := s.bindQuestions(ctx, req.QuestionIDs)
	if err != nil {
		return nil, err
	}

	id := req.MatchID
	if id == "" {
		if id, err = s.newID(); err != nil {
			return nil, fmt.Errorf("generate match id: %w", err)
		}
	}

	now := s.clock.Now()
	m := domain.Match{
		ID:             id,
		Questions:      questions,
		TotalQuestions: len(questions),
		Status:         domain.MatchOngoing,
		Result:         domain.ResultPending,
		StartedAt:      now,
	}
	for _, playerID := range req.PlayerIDs {
		m.Players = append(m.Players, domain.PlayerEntry{
			PlayerID:     playerID,
			Score:        decimal.Zero,
			Answers:      []domain.Answer{},
			RatingBefore: s.currentRating(ctx, playerID),
		})
	}

	sess := NewSession(m.ID, m.Questions, now, s.settings.Duration)
	if err := s.sessions.Register(sess); err != nil {
		return nil, fmt.Errorf("register session %s: %w", m.ID, err)
	}
	if err := s.matches.Create(ctx, m); err != nil {
		s.sessions.Remove(m.ID)
		return nil, fmt.Errorf("create match %s: %w", m.ID, err)
	}

	s.startTimers(sess)
	s.metrics.MatchCreated()
	s.metrics.SessionOpened()

	s.log.WithFields(logrus.Fields{
		"match_id":  m.ID,
		"players":   req.PlayerIDs,
		"questions": m.TotalQuestions,
	}).Info("match started")

	return &m, nil
}

func (s *MatchService) bindQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	var questions []domain.Question
	if len(ids) > 0 {
		qs, err := s.questions.FetchBoundQuestions(ctx, ids)
		if err != nil {
			s.log.WithError(err).Warn("fetch bound questions failed, falling back to random selection")
		}
		questions = qs
	}

	if len(questions) == 0 {
		qs, err := s.questions.GenerateRandomQuestions(ctx, s.settings.TotalQuestions)
		if err != nil {
			return nil, fmt.Errorf("generate questions: %w", err)
		}
		questions = qs
	}

	if len(questions) > s.settings.TotalQuestions {
		questions = questions[:s.settings.TotalQuestions]
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return questions, nil
}

func (s *MatchService) currentRating(ctx context.Context, userID string) int {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return s.settings.DefaultRating
	}
	return u.Rating
}

func (s *MatchService) startTimers(sess *Session) {
	matchID := sess.MatchID()
	deadline := s.clock.AfterFunc(sess.Remaining(s.clock.Now()), func() {
		s.onDeadline(matchID)
	})

	var ticker Timer
	if s.settings.BroadcastInterval > 0 {
		ticker = s.clock.Every(s.settings.BroadcastInterval, func() {
			s.onTick(matchID)
		})
	}
	sess.startTimers(deadline, ticker)
}

func (s *MatchService) onDeadline(matchID string) {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()

	if err := s.settle(ctx, matchID, TriggerDeadline); err != nil {
		s.log.WithError(err).WithField("match_id", matchID).Error("deadline settlement failed")
	}
}

func (s *MatchService) onTick(matchID string) {
	sess, ok := s.sessions.Get(matchID)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.Settling() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()

	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		s.log.WithError(err).WithField("match_id", matchID).Warn("tick: load match failed")
		return
	}
	if m.Status != domain.MatchOngoing {
		return
	}
	s.broadcast(ctx, &m, domain.LiveUpdate{
		MatchID:         m.ID,
		Players:         m.Stats(),
		TimeRemainingMs: sess.Remaining(s.clock.Now()).Milliseconds(),
	})
}

// SubmitAnswerRequest is a player's answer to one question.
type SubmitAnswerRequest struct {
	MatchID       string
	PlayerID      string
	QuestionIndex int
	Option        int
}

// SubmitAnswer records an answer, broadcasts the live state, sends the result to the
// submitter and settles the match once both players are done.
func (s *MatchService) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*domain.AnswerResult, error) {
	option := req.Option
	ev, err := s.process(ctx, req.MatchID, req.PlayerID, req.QuestionIndex, &option)
	if err != nil {
		return nil, err
	}
	res := ev.(domain.AnswerResult)
	return &res, nil
}

// SkipQuestionRequest marks a question as skipped.
type SkipQuestionRequest struct {
	MatchID       string
	PlayerID      string
	QuestionIndex int
}

// SkipQuestion processes a question without scoring it.
func (s *MatchService) SkipQuestion(ctx context.Context, req SkipQuestionRequest) (*domain.QuestionSkipped, error) {
	ev, err := s.process(ctx, req.MatchID, req.PlayerID, req.QuestionIndex, nil)
	if err != nil {
		return nil, err
	}
	res := ev.(domain.QuestionSkipped)
	return &res, nil
}

// process runs one submit (option != nil) or skip under the match lock. Preconditions are
// checked in a fixed order so each rejection maps to exactly one reason.
func (s *MatchService) process(ctx context.Context, matchID, playerID string, index int, option *int) (domain.Event, error) {
	sess, live := s.sessions.Get(matchID)
	if live {
		sess.mu.Lock()
		defer sess.mu.Unlock()
	}

	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.MatchOngoing {
		return nil, domain.ErrMatchNotOngoing
	}
	if !live || sess.Settling() {
		return nil, domain.ErrSessionInactive
	}
	now := s.clock.Now()
	if sess.Expired(now) {
		return nil, domain.ErrTimeExpired
	}

	player, answer, err := applyAction(&m, sess.questions, playerID, index, option, now)
	if err != nil {
		return nil, err
	}
	if err := s.matches.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save match %s: %w", m.ID, err)
	}

	processed := index
	s.broadcast(ctx, &m, domain.LiveUpdate{
		MatchID:         m.ID,
		Players:         m.Stats(),
		QuestionIndex:   &processed,
		TimeRemainingMs: sess.Remaining(now).Milliseconds(),
	})

	var reply domain.Event
	if answer.Skipped {
		reply = domain.QuestionSkipped{
			MatchID:       m.ID,
			QuestionIndex: index,
			Score:         player.Score.InexactFloat64(),
		}
	} else {
		q := sess.questions[index]
		reply = domain.AnswerResult{
			MatchID:       m.ID,
			QuestionIndex: index,
			Correct:       answer.Correct,
			CorrectOption: q.CorrectOption(),
			Explanation:   q.Explanation,
			Score:         player.Score.InexactFloat64(),
		}
	}
	s.send(ctx, playerID, reply)

	if m.AllComplete() {
		if err := s.settleLocked(context.WithoutCancel(ctx), sess, TriggerCompleted); err != nil {
			s.log.WithError(err).WithField("match_id", m.ID).Error("completion settlement failed")
		}
	}

	return reply, nil
}

// Join returns the current state of a match to one of its participants.
func (s *MatchService) Join(ctx context.Context, matchID, playerID string) (domain.MatchState, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return domain.MatchState{}, err
	}
	if _, ok := m.Player(playerID); !ok {
		return domain.MatchState{}, domain.ErrNotParticipant
	}
	return s.view(&m, playerID), nil
}

// State returns the public state of a match.
func (s *MatchService) State(ctx context.Context, matchID string) (domain.MatchState, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return domain.MatchState{}, err
	}
	return s.view(&m, ""), nil
}

func (s *MatchService) view(m *domain.Match, playerID string) domain.MatchState {
	st := domain.MatchState{
		MatchID:        m.ID,
		Status:         m.Status,
		Result:         m.Result,
		WinnerID:       m.WinnerID,
		TotalQuestions: m.TotalQuestions,
		Questions:      make([]domain.QuestionView, 0, len(m.Questions)),
		Players:        m.Stats(),
		StartedAt:      m.StartedAt,
	}
	for i, q := range m.Questions {
		opts := make([]string, 0, len(q.Options))
		for _, o := range q.Options {
			opts = append(opts, o.Text)
		}
		st.Questions = append(st.Questions, domain.QuestionView{Index: i, Prompt: q.Prompt, Options: opts})
	}
	if p, ok := m.Player(playerID); ok {
		for _, a := range p.Answers {
			st.Processed = append(st.Processed, a.QuestionIndex)
		}
	}
	if sess, ok := s.sessions.Get(m.ID); ok && m.Status == domain.MatchOngoing {
		st.TimeRemainingMs = sess.Remaining(s.clock.Now()).Milliseconds()
	}
	return st
}

// TimeoutNotice handles a client reporting that the match time ran out. The server clock is
// authoritative: the notice settles the match only once the deadline is within the grace
// window, and is a no-op when the match already settled.
func (s *MatchService) TimeoutNotice(ctx context.Context, matchID, playerID string) error {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return err
	}
	if _, ok := m.Player(playerID); !ok {
		return domain.ErrNotParticipant
	}
	if m.Status != domain.MatchOngoing {
		return nil
	}

	sess, ok := s.sessions.Get(matchID)
	if !ok {
		return nil
	}
	if left := sess.Remaining(s.clock.Now()); left > s.settings.TimeoutGrace {
		s.log.WithFields(logrus.Fields{
			"match_id":  matchID,
			"player_id": playerID,
			"remaining": left.String(),
		}).Debug("early timeout notice ignored")
		return nil
	}
	return s.settle(context.WithoutCancel(ctx), matchID, TriggerClientTimeout)
}

// Leave is informational; the match keeps running.
func (s *MatchService) Leave(_ context.Context, matchID, playerID string) {
	s.log.WithFields(logrus.Fields{
		"match_id":  matchID,
		"player_id": playerID,
	}).Info("player left match")
}

// SweepOrphans settles every persisted ongoing match that has no live session, which is the
// state a restart leaves behind. It returns the number of matches settled.
func (s *MatchService) SweepOrphans(ctx context.Context) (int, error) {
	ongoing, err := s.matches.ListOngoing(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ongoing matches: %w", err)
	}

	settled := 0
	for _, m := range ongoing {
		if _, live := s.sessions.Get(m.ID); live {
			continue
		}
		sess := NewSession(m.ID, m.Questions, m.StartedAt, s.settings.Duration)
		if err := s.sessions.Register(sess); err != nil {
			s.log.WithError(err).WithField("match_id", m.ID).Warn("sweep: match owned elsewhere")
			continue
		}
		s.metrics.SessionOpened()

		sess.mu.Lock()
		err := s.settleLocked(ctx, sess, TriggerSweep)
		sess.mu.Unlock()
		if err != nil {
			s.log.WithError(err).WithField("match_id", m.ID).Error("sweep: settlement failed")
			continue
		}
		settled++
	}
	return settled, nil
}
