package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

const (
	rankingsSheet   = "Rankings"
	statisticsSheet = "Statistics"
)

// ExportService renders leaderboards as spreadsheets for quiz owners.
type ExportService interface {
	ExportRankings(ctx context.Context, actor Actor, quizID string) ([]byte, error)
}

type exportService struct {
	quizzes  repositories.QuizRepository
	rankings RankingService
	logger   *slog.Logger
}

func NewExportService(quizzes repositories.QuizRepository, rankings RankingService, logger *slog.Logger) ExportService {
	return &exportService{
		quizzes:  quizzes,
		rankings: rankings,
		logger:   logger,
	}
}

// ExportRankings writes the full rankings view and its statistics to an xlsx
// workbook.
func (s *exportService) ExportRankings(ctx context.Context, actor Actor, quizID string) ([]byte, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if !actor.Owns(quiz) {
		return nil, NewPermissionError(actor.UserID, quizID, "quiz", "export_rankings", "not owner or insufficient permissions")
	}

	rankings, err := s.rankings.GetRankings(ctx, actor, quizID, 0)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(rankingsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := []interface{}{
		"Rank", "Student ID", "Student Name", "Score", "Marks Obtained",
		"Correct Answers", "Wrong Answers", "Time Spent (seconds)", "Accuracy (%)",
	}
	if err := writeRow(f, rankingsSheet, 1, headers); err != nil {
		return nil, err
	}
	for i, e := range rankings.Rankings {
		row := []interface{}{
			e.Rank, e.StudentID, e.StudentName, e.Score, e.MarksObtained,
			e.CorrectAnswers, e.WrongAnswers, e.TimeSpent, e.Accuracy,
		}
		if err := writeRow(f, rankingsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(statisticsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	stats := rankings.Statistics
	summary := [][]interface{}{
		{"Quiz", rankings.Quiz.Title},
		{"Total Questions", rankings.Quiz.TotalQuestions},
		{"Total Marks", rankings.Quiz.TotalMarks},
		{"Total Participants", stats.TotalParticipants},
		{"Average Score", stats.AverageScore},
		{"Average Time Spent (seconds)", stats.AverageTimeSpent},
		{"Highest Score", stats.HighestScore},
		{"Lowest Score", stats.LowestScore},
	}
	for i, row := range summary {
		if err := writeRow(f, statisticsSheet, i+1, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Rankings exported",
		"quiz_id", quizID,
		"exported_by", actor.UserID,
		"rows", len(rankings.Rankings))

	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to resolve cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
