// Package storage はクライアント側の永続キーバリューストアを提供する。
// セッション・カートの状態を再起動後も復元できるよう、JSONで保存する。
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// 永続化キー
const (
	// KeyCurrentUser はログイン中ユーザーのidentityを保存するキー。
	KeyCurrentUser = "user"
	// KeyCart はカート内容を保存するキー。
	KeyCart = "cart"
)

// ErrCorrupt は保存値がJSONとして解釈できないことを示す。
// この場合エントリは削除済みで、呼び出し元は「値なし」として扱う。
var ErrCorrupt = errors.New("stored value is corrupt")

// Backend はキーバリューストアの実装インターフェース。
// すべての呼び出しは同期的で、書き込みは戻った時点で永続化されている。
type Backend interface {
	// Get は値を取得する。存在しない場合はfound=falseを返す。
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set は値を保存する（既存値は上書き）。
	Set(ctx context.Context, key, value string) error
	// Remove は値を削除する。存在しない場合もエラーにしない。
	Remove(ctx context.Context, key string) error
}

// FaultRecorder はストレージ障害の記録先。
type FaultRecorder interface {
	RecordStorageFault(op string)
}

// Adapter はBackendをJSONシリアライズ付きでラップする。
// 障害はログとメトリクスに記録した上でerrorとして返す。
type Adapter struct {
	backend Backend
	logger  *slog.Logger
	faults  FaultRecorder
}

// NewAdapter はAdapterを生成する。loggerがnilの場合はslog.Default()を使う。
func NewAdapter(backend Backend, logger *slog.Logger, faults FaultRecorder) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		backend: backend,
		logger:  logger,
		faults:  faults,
	}
}

// Read はkeyの値をvにデコードする。
// 値がない場合は(false, nil)を返す。
// JSONとして解釈できない場合はエントリを削除し、ErrCorruptをラップして返す。
func (a *Adapter) Read(ctx context.Context, key string, v any) (bool, error) {
	raw, found, err := a.backend.Get(ctx, key)
	if err != nil {
		a.fault("read", key, err)
		return false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	if !found {
		return false, nil
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		a.fault("parse", key, err)
		// 壊れた値は残しておくと毎回失敗するため削除する
		if rmErr := a.backend.Remove(ctx, key); rmErr != nil {
			a.fault("remove", key, rmErr)
		}
		return false, fmt.Errorf("failed to parse %q: %w", key, errors.Join(ErrCorrupt, err))
	}

	return true, nil
}

// Write はvをJSONにエンコードしてkeyに保存する。
func (a *Adapter) Write(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		a.fault("serialize", key, err)
		return fmt.Errorf("failed to serialize %q: %w", key, err)
	}

	if err := a.backend.Set(ctx, key, string(b)); err != nil {
		a.fault("write", key, err)
		return fmt.Errorf("failed to write %q: %w", key, err)
	}

	return nil
}

// Remove はkeyの値を削除する。
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if err := a.backend.Remove(ctx, key); err != nil {
		a.fault("remove", key, err)
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}

func (a *Adapter) fault(op, key string, err error) {
	a.logger.Warn("storage fault",
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
	if a.faults != nil {
		a.faults.RecordStorageFault(op)
	}
}
