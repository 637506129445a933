package domain

// Principal は検証済みトークンから解決されたリクエストの主体を表す。
// 永続化はされず、生成後に変更しない。
type Principal struct {
	UserID int64
	Email  string
}
