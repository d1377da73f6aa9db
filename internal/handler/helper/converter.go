package helper

// QuestionOption представляет вариант ответа для фронтенда
type QuestionOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ConvertChoicesToOptions преобразует массив строк в массив объектов с id и text.
// ID использует 0-based индексацию для совместимости с CorrectAnswer.
func ConvertChoicesToOptions(choices []string) []QuestionOption {
	converted := make([]QuestionOption, len(choices))
	for i, choice := range choices {
		converted[i] = QuestionOption{ID: i, Text: choice}
	}
	return converted
}
