package classify

import (
	"strings"
	"unicode/utf8"
)

// PromoMatchCount はタイトルと本文の結合テキストに含まれる
// 宣伝フレーズと宣伝ドメインの一致数を返す。
// 一致数はテキストへの語彙追加に対して単調非減少。
func PromoMatchCount(title, body string) int {
	text := strings.ToLower(title + " " + body)

	count := 0
	for _, phrase := range promoPhrases {
		if strings.Contains(text, phrase) {
			count++
		}
	}
	for _, domain := range promoDomains {
		if strings.Contains(text, domain) {
			count++
		}
	}
	return count
}

// IsPromotional は投稿が宣伝・スパムかどうかを判定する。
// 宣伝フレーズとドメインの合計一致数が2以上の場合に宣伝とみなす。
func IsPromotional(title, body string) bool {
	return PromoMatchCount(title, body) >= 2
}

// IsGenuineQuestion は投稿が本物の質問かどうかを判定する。
// 結合テキスト（小文字化済み）に疑問語・助け語・探索フレーズの
// いずれか1つでも含まれれば質問とみなす。重み付けはしない。
func IsGenuineQuestion(title, body string) bool {
	text := strings.ToLower(title + " " + body)

	for _, w := range questionWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	for _, w := range helpWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	for _, p := range seekingPhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// RelevanceScore はタイトル・本文と検索キーワードの関連度を0〜1で算出する。
//
// 加算方式:
//   - タイトルにキーワードが含まれる場合 +0.5、さらにタイトルの単語のいずれかが
//     キーワードと部分文字列関係にある場合 +0.2
//   - 本文にキーワードが含まれる場合 +0.3
//   - キーワードがBonusLexiconsのキーを含む場合、対応語彙の一致ごとに +0.15
//   - 質問文脈フレーズの最初の一致に対してのみ +0.2
//
// 宣伝投稿と判定された場合は全加算後にスコアを0.3倍する（順序依存はこの減点のみ）。
// 最終スコアは1.0を上限とする。
func RelevanceScore(title, body, keyword string) float64 {
	keywordLower := strings.ToLower(keyword)
	titleLower := strings.ToLower(title)
	bodyLower := strings.ToLower(body)
	fullText := titleLower + " " + bodyLower

	score := 0.0

	// タイトル一致（高い重み）
	if strings.Contains(titleLower, keywordLower) {
		score += 0.5
		// キーワードがタイトルの主要部分である場合のボーナス
		for _, word := range strings.Fields(titleLower) {
			if strings.Contains(word, keywordLower) || strings.Contains(keywordLower, word) {
				score += 0.2
				break
			}
		}
	}

	// 本文一致
	if strings.Contains(bodyLower, keywordLower) {
		score += 0.3
	}

	// キーワード固有のボーナス語彙
	for key, terms := range BonusLexicons {
		if !strings.Contains(keywordLower, key) {
			continue
		}
		for _, term := range terms {
			if strings.Contains(fullText, term) {
				score += 0.15
			}
		}
	}

	// 質問文脈ボーナス（最初の一致のみ）
	for _, context := range questionContexts {
		if strings.Contains(fullText, context) {
			score += 0.2
			break
		}
	}

	// 宣伝投稿への減点（全加算の後に適用する）
	if IsPromotional(title, body) {
		score *= 0.3
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// IsMeaningfulComment はコメントが実質的な回答を提供しているかを判定する。
//
// 以下のいずれかに該当する場合は有意でない:
// 空・空白のみ、トリム後15文字未満、定型低品質フレーズとの完全一致、
// 単語数5未満。それ以外では、単語数20以上、または単語数5以上かつ
// 有意性指標フレーズを含む場合に有意とみなす。
func IsMeaningfulComment(body string) bool {
	trimmed := strings.TrimSpace(body)
	if utf8.RuneCountInString(trimmed) < 15 {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range lowQualityPhrases {
		if lower == phrase {
			return false
		}
	}

	wordCount := len(strings.Fields(body))
	if wordCount < 5 {
		return false
	}
	if wordCount >= 20 {
		return true
	}

	for _, indicator := range meaningfulIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
