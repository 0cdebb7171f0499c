// Package classify は投稿の分類ヒューリスティクスを提供する。
//
// 宣伝・スパム投稿の検出、質問投稿の判定、キーワードとの関連度スコアリング、
// コメントの有意性判定の4つの純粋関数で構成される。
// すべての判定語彙はパッケージレベルの名前付き変数として定義され、
// 個別にテスト・調整できる。
package classify

// promoPhrases は宣伝・スパム投稿を示すフレーズの語彙。
// タイトルと本文の結合テキスト（小文字化済み）に対して部分一致で照合する。
var promoPhrases = []string{
	"watch the video", "tutorial below", "link in bio", "dm me", "check out",
	"affiliate", "sponsored", "promotion", "advertisement", "buy now",
	"limited time", "special offer", "discount", "sale", "deal",
	"click here", "subscribe", "follow me", "my channel", "my course",
	"will change everything", "secret method", "exposed", "truth about",
	"nobody talks about", "revolutionary", "game changer",
}

// promoDomains は宣伝コンテンツを示唆するURL短縮・動画ホスティングドメインの語彙。
var promoDomains = []string{
	"youtube.com", "youtu.be", "bit.ly", "tinyurl.com", "goo.gl",
}

// questionWords は疑問文を示す語の語彙。"?" を含む。
var questionWords = []string{
	"?", "how", "what", "why", "which", "where", "when", "who",
}

// helpWords は助けを求める語の語彙。
var helpWords = []string{
	"help", "advice", "recommend", "suggest", "opinion", "thoughts",
}

// seekingPhrases は何かを探していることを示すフレーズの語彙。
var seekingPhrases = []string{
	"looking for", "need", "want", "seeking", "trying to find",
}

// questionContexts は質問の文脈を示すフレーズの語彙。
// 関連度スコアリングで最初の1件のみボーナスが加算される。
var questionContexts = []string{
	"best course", "recommend course", "good course", "which course",
	"course recommendation", "learning", "study", "beginner",
	"start with", "where to learn", "how to learn",
}

// BonusLexicons はキーワード固有のボーナス語彙テーブル。
// 検索キーワードがキーを部分文字列として含む場合、対応する語彙の
// 各一致につき関連度スコアにボーナスが加算される。
// デフォルトは "seo" と "course" の2エントリ。呼び出し側で差し替え可能。
var BonusLexicons = map[string][]string{
	"seo": {
		"search engine optimization", "digital marketing", "google ranking",
		"website traffic", "keyword research", "backlinks", "optimization",
		"ranking", "search engine", "google", "marketing", "traffic",
		"organic", "serp", "meta", "analytics",
	},
	"course": {
		"tutorial", "learn", "training", "education", "class", "lesson",
		"certification", "certificate", "program", "bootcamp", "academy",
		"instructor", "teacher", "beginner", "advanced", "online learning",
	},
}

// lowQualityPhrases は有意でないコメントを示す定型フレーズの語彙。
// コメント本文（トリム+小文字化）との完全一致で照合する。
var lowQualityPhrases = []string{
	"thanks", "thank you", "thx", "+1", "same", "this", "agreed",
	"yes", "no", "upvoted", "bump", "following", "interested",
	"me too", "same here", "lol", "nice", "cool", "good luck",
}

// meaningfulIndicators は実質的な回答を示すフレーズの語彙。
var meaningfulIndicators = []string{
	"recommend", "suggest", "try", "use", "check out", "experience",
	"worked for me", "helped me", "solution", "answer", "result",
}
