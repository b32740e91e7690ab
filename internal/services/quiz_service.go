package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// QuizService owns quiz definitions: authoring, reads with the derived phase,
// and enrollment.
type QuizService interface {
	Create(ctx context.Context, actor Actor, req *CreateQuizRequest, policy TimeLimitPolicy) (*QuizResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *UpdateQuizRequest, policy TimeLimitPolicy) (*QuizResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	GetByID(ctx context.Context, actor Actor, id string) (*QuizResponse, error)
	List(ctx context.Context, actor Actor, req *ListQuizzesRequest) (*QuizListResponse, error)
	Enroll(ctx context.Context, actor Actor, id string) (*EnrollmentResponse, error)
}

type quizService struct {
	quizzes   repositories.QuizRepository
	attempts  repositories.AttemptRepository
	validator *validator.Validator
	clock     Clock
	notifier  NotificationEventService
	rankings  RankingInvalidator
	logger    *slog.Logger
	ops       *ServiceLogger
}

func NewQuizService(
	quizzes repositories.QuizRepository,
	attempts repositories.AttemptRepository,
	validator *validator.Validator,
	clock Clock,
	notifier NotificationEventService,
	rankings RankingInvalidator,
	logger *slog.Logger,
) QuizService {
	return &quizService{
		quizzes:   quizzes,
		attempts:  attempts,
		validator: validator,
		clock:     clock,
		notifier:  notifier,
		rankings:  rankings,
		logger:    logger,
		ops:       NewServiceLogger(logger, "quiz"),
	}
}

// ===== AUTHORING =====

func (s *quizService) Create(ctx context.Context, actor Actor, req *CreateQuizRequest, policy TimeLimitPolicy) (resp *QuizResponse, err error) {
	op := s.ops.WithOperation(ctx, "create_quiz", actor.UserID)
	defer func() {
		id := ""
		if resp != nil {
			id = resp.ID
		}
		op.LogResult(id, "quiz", err)
	}()

	if !actor.CanAuthor() {
		return nil, NewPermissionError(actor.UserID, "", "quiz", "create", "only teachers and admins can create quizzes")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	questions, errs := s.buildQuestions(req.Questions, policy)

	startDate, err := validator.ParseQuizDate(req.StartDate)
	if err != nil {
		errs = errs.Add("startDate", "must be a date in YYYY-MM-DD or RFC3339 format", req.StartDate)
	}
	endDate, err := validator.ParseQuizDate(req.EndDate)
	if err != nil {
		errs = errs.Add("endDate", "must be a date in YYYY-MM-DD or RFC3339 format", req.EndDate)
	}

	dist := req.PrizeDistribution.toModel()
	errs = append(errs, s.validator.Quiz().ValidatePrizeConfig(dist, req.PlatformCommission)...)

	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	start, end, scheduleErrs := s.validator.Quiz().ValidateSchedule(validator.ScheduleInput{
		StartDate: startDate,
		EndDate:   endDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}, now, true)
	if len(scheduleErrs) > 0 {
		return nil, scheduleErrs
	}

	totalMarks := float64(models.DefaultTotalMarks)
	if req.TotalMarks != nil {
		totalMarks = *req.TotalMarks
	}
	marksPerQuestion := defaultMarksPerQuestion(totalMarks, len(questions))
	if req.MarksPerQuestion != nil {
		marksPerQuestion = *req.MarksPerQuestion
	}
	totalDuration := models.DurationMinutes(start, end)
	if req.TotalDuration != nil {
		totalDuration = *req.TotalDuration
	}

	quiz := &models.Quiz{
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		StartDate:          startDate,
		EndDate:            endDate,
		StartTime:          strings.TrimSpace(req.StartTime),
		EndTime:            strings.TrimSpace(req.EndTime),
		TotalDuration:      totalDuration,
		Status:             models.QuizStatusScheduled,
		TotalMarks:         totalMarks,
		MarksPerQuestion:   marksPerQuestion,
		Price:              req.Price,
		IsPaid:             req.IsPaid,
		PrizePool:          req.PrizePool,
		PrizeDistribution:  dist,
		PlatformCommission: req.PlatformCommission,
		MaxParticipants:    req.MaxParticipants,
		CreatedBy:          actor.UserID,
		Questions:          questions,
	}

	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	if err := s.notifier.NotifyQuizCreated(ctx, quiz); err != nil {
		s.logger.Warn("Failed to publish quiz created event", "quiz_id", quiz.ID, "error", err)
	}

	s.logger.Info("Quiz created successfully",
		"quiz_id", quiz.ID,
		"created_by", actor.UserID,
		"questions", len(questions),
		"starts_at", start,
		"ends_at", end)

	return toQuizResponse(quiz, now, true), nil
}

func (s *quizService) Update(ctx context.Context, actor Actor, id string, req *UpdateQuizRequest, policy TimeLimitPolicy) (resp *QuizResponse, err error) {
	op := s.ops.WithOperation(ctx, "update_quiz", actor.UserID)
	defer func() { op.LogResult(id, "quiz", err) }()

	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(quiz) {
		return nil, NewPermissionError(actor.UserID, id, "quiz", "update", "not the quiz owner")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var errs ValidationErrors

	replaceQuestions := req.Questions != nil
	if replaceQuestions {
		if len(req.Questions) == 0 {
			errs = errs.Add("questions", "must contain at least one question", nil)
		} else {
			questions, qErrs := s.buildQuestions(req.Questions, policy)
			errs = append(errs, qErrs...)
			quiz.Questions = questions
		}
	}

	if req.touchesTiming() {
		in := validator.ScheduleInput{
			StartDate: quiz.StartDate,
			EndDate:   quiz.EndDate,
			StartTime: quiz.StartTime,
			EndTime:   quiz.EndTime,
		}
		if req.StartDate != nil {
			d, err := validator.ParseQuizDate(*req.StartDate)
			if err != nil {
				errs = errs.Add("startDate", "must be a date in YYYY-MM-DD or RFC3339 format", *req.StartDate)
			}
			in.StartDate = d
		}
		if req.EndDate != nil {
			d, err := validator.ParseQuizDate(*req.EndDate)
			if err != nil {
				errs = errs.Add("endDate", "must be a date in YYYY-MM-DD or RFC3339 format", *req.EndDate)
			}
			in.EndDate = d
		}
		if req.StartTime != nil {
			in.StartTime = strings.TrimSpace(*req.StartTime)
		}
		if req.EndTime != nil {
			in.EndTime = strings.TrimSpace(*req.EndTime)
		}

		if len(errs) == 0 {
			start, end, scheduleErrs := s.validator.Quiz().ValidateSchedule(in, now, req.touchesStart())
			errs = append(errs, scheduleErrs...)
			if len(scheduleErrs) == 0 {
				quiz.StartDate, quiz.EndDate = in.StartDate, in.EndDate
				quiz.StartTime, quiz.EndTime = in.StartTime, in.EndTime
				if req.TotalDuration == nil {
					quiz.TotalDuration = models.DurationMinutes(start, end)
				}
			}
		}
	}

	if req.PrizeDistribution != nil || req.PlatformCommission != nil {
		dist := quiz.PrizeDistribution
		if req.PrizeDistribution != nil {
			dist = req.PrizeDistribution.toModel()
		}
		commission := quiz.PlatformCommission
		if req.PlatformCommission != nil {
			commission = *req.PlatformCommission
		}
		errs = append(errs, s.validator.Quiz().ValidatePrizeConfig(dist, commission)...)
		quiz.PrizeDistribution = dist
		quiz.PlatformCommission = commission
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	if req.Title != nil {
		quiz.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.TotalDuration != nil {
		quiz.TotalDuration = *req.TotalDuration
	}
	if req.TotalMarks != nil {
		quiz.TotalMarks = *req.TotalMarks
	}
	switch {
	case req.MarksPerQuestion != nil:
		quiz.MarksPerQuestion = *req.MarksPerQuestion
	case replaceQuestions || req.TotalMarks != nil:
		quiz.MarksPerQuestion = defaultMarksPerQuestion(quiz.TotalMarks, quiz.QuestionCount())
	}
	if req.Price != nil {
		quiz.Price = *req.Price
	}
	if req.IsPaid != nil {
		quiz.IsPaid = *req.IsPaid
	}
	if req.PrizePool != nil {
		quiz.PrizePool = *req.PrizePool
	}
	if req.MaxParticipants != nil {
		quiz.MaxParticipants = *req.MaxParticipants
	}

	if err := s.quizzes.Update(ctx, quiz, replaceQuestions); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}
	s.rankings.InvalidateRankings(ctx, id)

	s.logger.Info("Quiz updated successfully",
		"quiz_id", id,
		"updated_by", actor.UserID,
		"questions_replaced", replaceQuestions)

	return toQuizResponse(quiz, now, true), nil
}

// Delete removes a quiz that is not running. Attempts already recorded are
// left in place.
func (s *quizService) Delete(ctx context.Context, actor Actor, id string) (err error) {
	op := s.ops.WithOperation(ctx, "delete_quiz", actor.UserID)
	defer func() { op.LogResult(id, "quiz", err) }()

	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Owns(quiz) {
		return NewPermissionError(actor.UserID, id, "quiz", "delete", "not the quiz owner")
	}
	if quiz.Phase(s.clock.Now()) == models.PhaseActive {
		return ErrQuizActive
	}

	if err := s.quizzes.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	s.rankings.InvalidateRankings(ctx, id)

	s.logger.Info("Quiz deleted successfully", "quiz_id", id, "deleted_by", actor.UserID)
	return nil
}

// ===== READS =====

func (s *quizService) GetByID(ctx context.Context, actor Actor, id string) (*QuizResponse, error) {
	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	return toQuizResponse(quiz, s.clock.Now(), actor.Owns(quiz)), nil
}

// List pages through quizzes. A phase filter is evaluated against the clock,
// so it is applied after loading and paging happens here instead of in SQL.
func (s *quizService) List(ctx context.Context, actor Actor, req *ListQuizzesRequest) (*QuizListResponse, error) {
	if req == nil {
		req = &ListQuizzesRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	filters := repositories.QuizFilters{SortBy: "start_date", SortOrder: "asc"}
	if req.CreatedBy != "" {
		filters.CreatedBy = &req.CreatedBy
	}
	if req.Phase == "" {
		filters.Limit = limit
		filters.Offset = req.Offset
	}

	quizzes, total, err := s.quizzes.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	now := s.clock.Now()
	if req.Phase != "" {
		phase := models.QuizPhase(req.Phase)
		matched := quizzes[:0]
		for _, q := range quizzes {
			if q.Phase(now) == phase {
				matched = append(matched, q)
			}
		}
		total = int64(len(matched))
		quizzes = pageQuizzes(matched, req.Offset, limit)
	}

	out := &QuizListResponse{
		Quizzes: make([]*QuizResponse, 0, len(quizzes)),
		Total:   total,
		Limit:   limit,
		Offset:  req.Offset,
	}
	for _, q := range quizzes {
		out.Quizzes = append(out.Quizzes, toQuizResponse(q, now, actor.Owns(q)))
	}
	return out, nil
}

func pageQuizzes(quizzes []*models.Quiz, offset, limit int) []*models.Quiz {
	if offset >= len(quizzes) {
		return nil
	}
	quizzes = quizzes[offset:]
	if limit > 0 && len(quizzes) > limit {
		quizzes = quizzes[:limit]
	}
	return quizzes
}

// ===== ENROLLMENT =====

// Enroll registers a student for a quiz that has not ended and opens their
// ledger entry. Repeated calls are no-ops.
func (s *quizService) Enroll(ctx context.Context, actor Actor, id string) (resp *EnrollmentResponse, err error) {
	op := s.ops.WithOperation(ctx, "enroll", actor.UserID)
	defer func() { op.LogResult(id, "quiz", err) }()

	if !actor.IsStudent() {
		return nil, NewPermissionError(actor.UserID, id, "quiz", "enroll", "only students can enroll")
	}

	quiz, err := s.getQuiz(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	switch quiz.Phase(now) {
	case models.PhaseEnded:
		return nil, ErrQuizEnded
	case models.PhaseInvalid:
		return nil, ErrQuizScheduleInvalid
	}

	enrollment, err := s.quizzes.Enroll(ctx, id, actor.UserID, now)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCapacityReached):
			return nil, ErrQuizFull
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}

	_, opened, err := s.attempts.FindOrCreate(ctx, &models.Attempt{
		QuizID:    id,
		StudentID: actor.UserID,
		Status:    models.AttemptNotStarted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open attempt: %w", err)
	}
	if opened {
		s.rankings.InvalidateRankings(ctx, id)
	}

	if enrollment.Created {
		s.logger.Info("Student enrolled",
			"quiz_id", id,
			"student_id", actor.UserID,
			"enrolled_count", enrollment.EnrolledCount)
	}

	return &EnrollmentResponse{
		QuizID:        id,
		StudentID:     actor.UserID,
		Enrolled:      true,
		AlreadyExists: !enrollment.Created,
		EnrolledCount: enrollment.EnrolledCount,
		EnrolledAt:    enrollment.EnrolledAt,
	}, nil
}

// ===== HELPERS =====

func (s *quizService) getQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

// buildQuestions converts request questions into models and checks them. With
// the strict policy a missing timeLimit is an error; the lenient policy fills
// the default. A supplied timeLimit below the minimum fails either way.
func (s *quizService) buildQuestions(inputs []QuestionInput, policy TimeLimitPolicy) ([]models.QuizQuestion, ValidationErrors) {
	var errs ValidationErrors
	questions := make([]models.QuizQuestion, 0, len(inputs))
	for i, in := range inputs {
		q := models.QuizQuestion{
			Position:     i,
			QuestionText: strings.TrimSpace(in.QuestionText),
			Options:      append([]string(nil), in.Options...),
			TimeLimit:    models.DefaultTimeLimit,
		}
		if in.CorrectAnswer != nil {
			q.CorrectAnswer = *in.CorrectAnswer
		}
		switch {
		case in.TimeLimit != nil:
			q.TimeLimit = *in.TimeLimit
		case policy == TimeLimitStrict:
			errs = errs.Add(fmt.Sprintf("questions[%d].timeLimit", i), "is required", nil)
		}
		questions = append(questions, q)
	}
	errs = append(errs, s.validator.Quiz().ValidateQuestions(questions)...)
	return questions, errs
}
