package entity

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// Домен хеширования содержимого вопроса. Суффикс версии позволяет сменить алгоритм.
const questionHashDomain = "weewoo/question/v1"

// QuestionIDLength - длина ID вопроса (префикс хеша в hex)
const QuestionIDLength = 16

// NormalizeQuestionText приводит текст к каноническому виду перед хешированием:
// NFC, нижний регистр, пробельные последовательности схлопнуты в один пробел.
func NormalizeQuestionText(text string) string {
	normalized := norm.NFC.String(text)
	normalized = strings.ToLower(normalized)
	return strings.Join(strings.Fields(normalized), " ")
}

// QuestionContentHash вычисляет BLAKE2b-256(domain + 0x00 + normalized text) в hex.
// Нулевой байт исключает неоднозначность границы домена и данных.
func QuestionContentHash(text string) string {
	normalized := NormalizeQuestionText(text)
	buf := make([]byte, 0, len(questionHashDomain)+1+len(normalized))
	buf = append(buf, questionHashDomain...)
	buf = append(buf, 0x00)
	buf = append(buf, normalized...)
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// DeriveQuestionID возвращает ID и хеш содержимого для текста вопроса.
// Одинаковый текст всегда дает одинаковый ID, без глобального счетчика.
func DeriveQuestionID(text string) (id string, contentHash string) {
	contentHash = QuestionContentHash(text)
	return contentHash[:QuestionIDLength], contentHash
}

// IsValidQuestionID проверяет формат ID вопроса
func IsValidQuestionID(id string) bool {
	if len(id) != QuestionIDLength {
		return false
	}
	for _, r := range id {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
