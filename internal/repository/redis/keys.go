package redis

import "fmt"

// Семейства ключей. Каждая запись адресуется составным ключом (семейство, ...дискриминаторы).
const (
	questionPrefix          = "question:"
	questionReportPrefix    = "question-report:"
	questionReportRevPrefix = "question-report-rev:"
	userPrefix              = "user:"
	leaderboardPrefix       = "leaderboard:"
	streakPrefix            = "streak:"
	productVariantPrefix    = "product-variant:"
	variantProviderPrefix   = "product-variant-by-provider:"
)

func questionKey(id string) string {
	return questionPrefix + id
}

func questionReportsPrefix(questionID string) string {
	return questionReportPrefix + questionID + ":"
}

func questionReportKey(questionID, reportID string) string {
	return questionReportsPrefix(questionID) + reportID
}

// questionReportRevKey - маркер ревизии набора жалоб вопроса. Любая новая жалоба
// переписывает маркер, поэтому переименование вопроса, прочитавшее старый набор,
// получит конфликт вместо того, чтобы оставить новую жалобу сиротой.
func questionReportRevKey(questionID string) string {
	return questionReportRevPrefix + questionID
}

func userKey(userID string) string {
	return userPrefix + userID
}

// leaderboardKey встраивает счет в ключ: лексикографический порядок ключей
// совпадает с числовым порядком счета, поэтому выборка по префиксу уже отсортирована.
// Ширина 19 покрывает любой неотрицательный int64.
func leaderboardKey(questionsCorrect int, userID string) string {
	return fmt.Sprintf("%s%019d:%s", leaderboardPrefix, questionsCorrect, userID)
}

func streakKey(userID string) string {
	return streakPrefix + userID
}

func productVariantKey(id string) string {
	return productVariantPrefix + id
}

func variantProviderKey(paymentProviderID string) string {
	return variantProviderPrefix + paymentProviderID
}
