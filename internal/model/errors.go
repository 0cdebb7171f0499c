package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, search, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeCredentialsInvalid = "CREDENTIALS_INVALID"
	ErrCodeRedditUnreachable  = "REDDIT_UNREACHABLE"
	ErrCodeKeywordRequired    = "KEYWORD_REQUIRED"
	ErrCodeInvalidTimeFilter  = "INVALID_TIME_FILTER"
	ErrCodeInvalidParameter   = "INVALID_PARAMETER"
	ErrCodeSearchFailed       = "SEARCH_FAILED"
)

// NewCredentialsInvalidError はReddit API認証失敗エラーを生成する。
func NewCredentialsInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCredentialsInvalid,
		Message:  "Reddit APIの認証に失敗しました。",
		Category: "auth",
		Action:   "クライアントID・シークレット・User-Agentが正しいか確認してください。アプリ種別は script である必要があります。",
	}
}

// NewRedditUnreachableError はReddit API接続失敗エラーを生成する。
func NewRedditUnreachableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRedditUnreachable,
		Message:  fmt.Sprintf("Reddit APIへの接続に失敗しました: %s", reason),
		Category: "search",
		Action:   "ネットワーク接続を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewKeywordRequiredError は検索キーワード未指定エラーを生成する。
func NewKeywordRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeKeywordRequired,
		Message:  "検索キーワードが指定されていません。",
		Category: "validation",
		Action:   "keyword パラメータに検索キーワードを指定してください。",
	}
}

// NewInvalidTimeFilterError は無効な期間フィルタエラーを生成する。
func NewInvalidTimeFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTimeFilter,
		Message:  fmt.Sprintf("無効な期間フィルタです: %s", filter),
		Category: "validation",
		Action:   "期間フィルタには all、day、week、month、year のいずれかを指定してください。",
	}
}

// NewInvalidParameterError は無効なパラメータエラーを生成する。
func NewInvalidParameterError(name, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidParameter,
		Message:  fmt.Sprintf("パラメータ %s が無効です: %s", name, reason),
		Category: "validation",
		Action:   "パラメータの値を確認してください。",
	}
}

// NewSearchFailedError は検索処理全体の失敗エラーを生成する。
func NewSearchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSearchFailed,
		Message:  fmt.Sprintf("検索処理に失敗しました: %s", reason),
		Category: "search",
		Action:   "条件を変えて再度お試しください。",
	}
}
