package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe は関数ホスト（HTTPサーバー）モードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はドキュメント変更を購読するワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandReindex は商品コレクション全体を検索インデックスへ再同期することを示す。
	CommandReindex Command = "reindex"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "reindex":
		return CommandReindex
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
