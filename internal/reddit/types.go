package reddit

// tokenResponse はOAuth2トークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// listing はRedditのListing形式レスポンス。
type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

// thing はListing内の1要素。kindで投稿（t3）・コメント（t1）・
// 「さらに読み込む」スタブ（more）を区別する。
type thing struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

// thingData は投稿・コメント・moreスタブのフィールドをまとめた構造体。
// kindに応じて使用されるフィールドが異なる。
type thingData struct {
	// 投稿（t3）
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	SelfText     string  `json:"selftext"`
	SelfTextHTML string  `json:"selftext_html"`
	Score        int     `json:"score"`
	NumComments  int     `json:"num_comments"`
	Subreddit    string  `json:"subreddit"`
	Author       string  `json:"author"`
	CreatedUTC   float64 `json:"created_utc"`
	Permalink    string  `json:"permalink"`

	// コメント（t1）
	Body string `json:"body"`

	// moreスタブ
	Children []string `json:"children"`
}

// moreChildrenResponse は /api/morechildren のレスポンス。
type moreChildrenResponse struct {
	JSON struct {
		Data struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}
