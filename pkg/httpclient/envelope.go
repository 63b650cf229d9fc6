package httpclient

// Envelope はサービス共通のAPIレスポンスラッパー。
// Dataはステータスが成功を示す場合にのみ意味を持つ。
type Envelope[T any] struct {
	// Status はHTTPステータスに準じた処理結果コード。
	Status int `json:"status"`
	// Code はサービス固有の結果コード。
	Code string `json:"code"`
	// Message は人間向けのメッセージ。
	Message string `json:"message"`
	// Data はペイロード。失敗時はnull。
	Data *T `json:"data"`
}

// Succeeded はステータスが2xxでDataが存在する場合にtrueを返す。
func (e Envelope[T]) Succeeded() bool {
	return e.Status >= 200 && e.Status < 300 && e.Data != nil
}
