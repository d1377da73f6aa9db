package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	"github.com/briansimoni/weewoo.study-sub000/internal/handler/dto"
	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
	"github.com/briansimoni/weewoo.study-sub000/internal/service"
)

// QuestionHandler обрабатывает запросы, связанные с вопросами, жалобами и ответами
type QuestionHandler struct {
	questionService *service.QuestionService
	answerService   *service.AnswerService
	logger          *zap.Logger
	now             func() time.Time
}

// NewQuestionHandler создает новый обработчик вопросов
func NewQuestionHandler(
	questionService *service.QuestionService,
	answerService *service.AnswerService,
	logger *zap.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		answerService:   answerService,
		logger:          logging.OrNop(logger),
		now:             time.Now,
	}
}

// ListQuestions возвращает вопросы, опционально отфильтрованные по категории
// GET /api/questions?category=
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	questions, err := h.questionService.ListQuestions(c.Request.Context(), c.Query("category"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuestionListResponse(questions))
}

// GetRandomQuestion возвращает случайный вопрос
// GET /api/questions/random?category=
func (h *QuestionHandler) GetRandomQuestion(c *gin.Context) {
	question, err := h.questionService.GetRandomQuestion(c.Request.Context(), c.Query("category"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuestionResponse(question))
}

// GetQuestion возвращает вопрос по ID без правильного ответа
// GET /api/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	questionID := c.GetString("questionID")

	question, err := h.questionService.GetQuestion(c.Request.Context(), questionID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQuestionResponse(question))
}

// CreateQuestion добавляет вопрос
// POST /api/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questionService.CreateQuestion(c.Request.Context(), req.ToDraft())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	h.logger.Info("question created", zap.String("question_id", question.ID), zap.String("category", question.Category))
	c.JSON(http.StatusCreated, dto.NewAdminQuestionResponse(question))
}

// UpdateQuestion заменяет вопрос. При смене текста меняется ID, жалобы переносятся.
// PUT /api/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	questionID := c.GetString("questionID")

	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questionService.UpdateQuestion(c.Request.Context(), questionID, req.ToDraft())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if question.ID != questionID {
		h.logger.Info("question identity changed",
			zap.String("old_id", questionID),
			zap.String("new_id", question.ID))
	}
	c.JSON(http.StatusOK, dto.NewAdminQuestionResponse(question))
}

// DeleteQuestion удаляет вопрос
// DELETE /api/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	questionID := c.GetString("questionID")

	if err := h.questionService.DeleteQuestion(c.Request.Context(), questionID); err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted"})
}

// ReportQuestion сохраняет жалобу или оценку вопроса
// POST /api/questions/:id/reports
func (h *QuestionHandler) ReportQuestion(c *gin.Context) {
	questionID := c.GetString("questionID")

	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID *string
	if req.UserID != nil && strings.TrimSpace(*req.UserID) != "" {
		trimmed := strings.TrimSpace(*req.UserID)
		userID = &trimmed
	}

	report, err := h.questionService.ReportQuestion(c.Request.Context(), questionID, entity.Thumbs(req.Thumbs), req.Reason, userID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewReportResponse(report))
}

// SubmitAnswer засчитывает ответ игрока
// POST /api/questions/:id/answer
func (h *QuestionHandler) SubmitAnswer(c *gin.Context) {
	questionID := c.GetString("questionID")

	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.answerService.SubmitAnswer(c.Request.Context(), strings.TrimSpace(req.UserID), questionID, *req.Choice)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAnswerResponse(result, h.now()))
}

// ListReports возвращает жалобы, новые первыми
// GET /api/reports?question_id=&unresolved=true
func (h *QuestionHandler) ListReports(c *gin.Context) {
	questionID := strings.ToLower(strings.TrimSpace(c.Query("question_id")))
	if questionID != "" && !entity.IsValidQuestionID(questionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question_id"})
		return
	}

	reports, err := h.questionService.ListReports(c.Request.Context(), questionID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if c.Query("unresolved") == "true" {
		open := reports[:0]
		for _, r := range reports {
			if !r.IsResolved() {
				open = append(open, r)
			}
		}
		reports = open
	}
	c.JSON(http.StatusOK, gin.H{"reports": dto.NewReportListResponse(reports)})
}

// ResolveReport отмечает жалобу обработанной
// PUT /api/questions/:id/reports/:reportId/resolve
func (h *QuestionHandler) ResolveReport(c *gin.Context) {
	questionID := c.GetString("questionID")
	reportID := strings.TrimSpace(c.Param("reportId"))
	if reportID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reportId"})
		return
	}

	report, err := h.questionService.ResolveReport(c.Request.Context(), questionID, reportID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewReportResponse(report))
}

// ExportQuestions выгружает вопросы в CSV или XLSX.
// XLSX содержит второй лист с жалобами.
// GET /api/questions/export?format=csv|xlsx&category=
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	questions, err := h.questionService.ListQuestions(c.Request.Context(), c.Query("category"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("questions_%s", h.now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		reports, err := h.questionService.ListReports(c.Request.Context(), "")
		if err != nil {
			handleError(c, h.logger, err)
			return
		}
		h.exportXLSX(c, questions, reports, filename)
	default:
		h.exportCSV(c, questions, filename)
	}
}

var questionExportHeaders = []string{"ID", "Категория", "Вопрос", "Варианты", "Правильный ответ", "Пояснение", "Создан"}

// exportCSV экспортирует вопросы в CSV с правильным экранированием спецсимволов
func (h *QuestionHandler) exportCSV(c *gin.Context, questions []entity.Question, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(questionExportHeaders)
	for _, q := range questions {
		writer.Write(questionExportRow(q))
	}
}

// exportXLSX экспортирует вопросы и жалобы в Excel с использованием StreamWriter
func (h *QuestionHandler) exportXLSX(c *gin.Context, questions []entity.Question, reports []entity.QuestionReport, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	questionSheet := "Вопросы"
	f.SetSheetName("Sheet1", questionSheet)

	sw, err := f.NewStreamWriter(questionSheet)
	if err != nil {
		h.logger.Error("failed to create xlsx stream writer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	if err := sw.SetRow("A1", toCells(questionExportHeaders)); err != nil {
		h.logger.Warn("failed to write xlsx headers", zap.Error(err))
	}
	for i, q := range questions {
		cell := fmt.Sprintf("A%d", i+2)
		if err := sw.SetRow(cell, toCells(questionExportRow(q))); err != nil {
			h.logger.Warn("failed to write xlsx row", zap.Int("row", i+2), zap.Error(err))
		}
	}
	if err := sw.Flush(); err != nil {
		h.logger.Error("failed to flush xlsx sheet", zap.String("sheet", questionSheet), zap.Error(err))
	}

	reportSheet := "Жалобы"
	if _, err := f.NewSheet(reportSheet); err != nil {
		h.logger.Error("failed to create reports sheet", zap.Error(err))
	} else if rw, err := f.NewStreamWriter(reportSheet); err != nil {
		h.logger.Error("failed to create xlsx stream writer", zap.String("sheet", reportSheet), zap.Error(err))
	} else {
		rw.SetRow("A1", []interface{}{"ID вопроса", "ID жалобы", "Оценка", "Причина", "Пользователь", "Дата", "Обработана"})
		for i, r := range reports {
			userID := ""
			if r.UserID != nil {
				userID = *r.UserID
			}
			resolved := "Нет"
			if r.IsResolved() {
				resolved = r.ResolvedAt.UTC().Format(time.RFC3339)
			}
			row := []interface{}{
				r.QuestionID,
				r.ReportID,
				string(r.Thumbs),
				sanitizeForExcel(r.Reason),
				sanitizeForExcel(userID),
				r.ReportedAt.UTC().Format(time.RFC3339),
				resolved,
			}
			if err := rw.SetRow(fmt.Sprintf("A%d", i+2), row); err != nil {
				h.logger.Warn("failed to write xlsx row", zap.String("sheet", reportSheet), zap.Int("row", i+2), zap.Error(err))
			}
		}
		if err := rw.Flush(); err != nil {
			h.logger.Error("failed to flush xlsx sheet", zap.String("sheet", reportSheet), zap.Error(err))
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("failed to write xlsx response", zap.Error(err))
	}
}

func questionExportRow(q entity.Question) []string {
	choices := make([]string, len(q.Choices))
	for i, choice := range q.Choices {
		choices[i] = sanitizeForExcel(choice)
	}
	correct := ""
	if q.IsValidChoice(q.CorrectAnswer) {
		correct = sanitizeForExcel(q.Choices[q.CorrectAnswer])
	}
	return []string{
		q.ID,
		sanitizeForExcel(q.Category),
		sanitizeForExcel(q.QuestionText),
		strings.Join(choices, " | "),
		correct,
		sanitizeForExcel(q.Explanation),
		q.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
