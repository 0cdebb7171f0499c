package classify

import (
	"math"
	"strings"
	"testing"
)

// almostEqual は浮動小数点スコアの比較ヘルパー。
func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// --- PromotionalDetector ---

func TestIsPromotional_TwoIndicators(t *testing.T) {
	// 宣伝フレーズ2つ以上で宣伝と判定される
	if !IsPromotional("Great deal!!!", "buy now before the sale ends") {
		t.Error("宣伝指標が2つ以上ある投稿は宣伝と判定されるべき")
	}
}

func TestIsPromotional_SingleIndicator(t *testing.T) {
	// 指標1つだけでは宣伝と判定されない
	if IsPromotional("I found a discount code", "does anyone know if it works?") {
		t.Error("宣伝指標が1つだけの投稿は宣伝と判定されるべきではない")
	}
}

func TestIsPromotional_DomainCountsAsIndicator(t *testing.T) {
	// URLドメインも指標としてカウントされる
	if !IsPromotional("check out my video", "https://youtube.com/watch?v=xyz") {
		t.Error("フレーズ1つ+ドメイン1つで宣伝と判定されるべき")
	}
}

func TestIsPromotional_CleanQuestion(t *testing.T) {
	if IsPromotional("How do I learn Go?", "I want to understand goroutines better") {
		t.Error("通常の質問投稿は宣伝と判定されるべきではない")
	}
}

func TestPromoMatchCount_Monotonic(t *testing.T) {
	// 宣伝フレーズを追記しても一致数は減少しない
	base := "interesting discussion about tools"
	baseCount := PromoMatchCount("title", base)

	augmented := base
	for _, phrase := range promoPhrases {
		augmented += " " + phrase
		count := PromoMatchCount("title", augmented)
		if count < baseCount {
			t.Fatalf("フレーズ追加で一致数が減少した: %d -> %d (追加: %q)", baseCount, count, phrase)
		}
		baseCount = count
	}
}

// --- QuestionDetector ---

func TestIsGenuineQuestion(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		want  bool
	}{
		{"疑問符を含む", "How do I fix this?", "", true},
		{"疑問語を含む", "what is the best way to start", "", true},
		{"助け語を含む", "advice on my setup", "", true},
		{"探索フレーズを含む", "", "I am looking for a mentor", true},
		{"宣伝文のみ", "Great deal!!!", "buy now", false},
		{"空入力", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsGenuineQuestion(tt.title, tt.body)
			if got != tt.want {
				t.Errorf("IsGenuineQuestion(%q, %q) = %v, want %v", tt.title, tt.body, got, tt.want)
			}
		})
	}
}

// --- RelevanceScorer ---

func TestRelevanceScore_RangeInvariant(t *testing.T) {
	// どんな入力でもスコアは[0, 1]の範囲に収まる
	inputs := []struct {
		title, body, keyword string
	}{
		{"", "", ""},
		{"Best SEO course for beginners?", "recommend course and tutorial content", "seo course"},
		{strings.Repeat("seo course tutorial learn training google ranking ", 10), strings.Repeat("seo marketing traffic organic serp meta analytics ", 10), "seo course"},
		{"buy now limited time", "click here subscribe", "seo"},
		{"unrelated title", "unrelated body", "quantum"},
	}

	for _, in := range inputs {
		score := RelevanceScore(in.title, in.body, in.keyword)
		if score < 0.0 || score > 1.0 {
			t.Errorf("RelevanceScore(%q, %q, %q) = %f, 範囲は[0, 1]であるべき", in.title, in.body, in.keyword, score)
		}
	}
}

func TestRelevanceScore_TitleMatch(t *testing.T) {
	// タイトル一致 +0.5、タイトル単語との部分文字列関係 +0.2
	score := RelevanceScore("golang tips", "", "golang")
	if !almostEqual(score, 0.7) {
		t.Errorf("タイトル一致スコア = %f, want 0.7", score)
	}
}

func TestRelevanceScore_BodyMatch(t *testing.T) {
	score := RelevanceScore("unrelated", "I use golang daily", "golang")
	if !almostEqual(score, 0.3) {
		t.Errorf("本文一致スコア = %f, want 0.3", score)
	}
}

func TestRelevanceScore_BonusLexiconPerMatch(t *testing.T) {
	// "seo" キーワード: ボーナス語彙の一致ごとに+0.15（1件あたりの上限なし）
	// "backlinks" と "serp" の2語のみ一致 -> 0.15 * 2 = 0.3
	score := RelevanceScore("building backlinks", "my serp position dropped", "seo")
	if !almostEqual(score, 0.3) {
		t.Errorf("ボーナス語彙スコア = %f, want 0.3", score)
	}
}

func TestRelevanceScore_QuestionContextAppliedOnce(t *testing.T) {
	// 質問文脈フレーズは複数含まれても+0.2は1回のみ
	score := RelevanceScore("best course for a beginner", "where to learn and how to learn", "piano")
	if !almostEqual(score, 0.2) {
		t.Errorf("質問文脈スコア = %f, want 0.2 (1回のみ加算)", score)
	}
}

func TestRelevanceScore_PromotionalPenaltyLast(t *testing.T) {
	// 宣伝減点は全加算の後に適用される
	// タイトル一致(0.5+0.2) + 本文一致(0.3) = 1.0、宣伝減点で 1.0*0.3 = 0.3
	score := RelevanceScore("golang buy now deal", "golang special offer discount", "golang")
	if !almostEqual(score, 0.3) {
		t.Errorf("宣伝減点後スコア = %f, want 0.3", score)
	}
}

func TestRelevanceScore_ClampedAtOne(t *testing.T) {
	// ボーナスの合計が1.0を超えてもクランプされる
	title := "Best SEO course for beginners?"
	body := "I want to learn search engine optimization, keyword research, backlinks, google ranking and analytics. recommend course please, tutorial or training or certification"
	score := RelevanceScore(title, body, "seo course")
	if score != 1.0 {
		t.Errorf("クランプ後スコア = %f, want 1.0", score)
	}
}

// --- CommentQualityFilter ---

func TestIsMeaningfulComment(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"定型フレーズ", "thanks", false},
		{"空文字列", "", false},
		{"空白のみ", "    \t  ", false},
		{"15文字未満", "try Moz course", false},
		{"単語数5未満", "useful informative helpful stuff", false},
		{"指標フレーズ付きの回答", "I recommend trying the free Moz course, it really worked for me and covers on-page SEO basics well", true},
		{"指標なしでも20語以上", "the first thing you should do is read the official documentation carefully and then practice every single day until the concepts finally stick", true},
		{"指標なしの短文", "this post describes my own situation exactly", false},
		{"大文字の定型フレーズ", "  THANK YOU  ", false},
		// 長さ判定はバイト数ではなく文字数で行う
		{"マルチバイトで15文字未満", "try あ い う え", false},
		{"マルチバイトで15文字以上かつ指標あり", "try あああ いいい ううう えええ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsMeaningfulComment(tt.body)
			if got != tt.want {
				t.Errorf("IsMeaningfulComment(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}
