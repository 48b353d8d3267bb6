package services

import "errors"

var (
	// ErrNotFound 未找到错误
	ErrNotFound = errors.New("not found")

	// ErrMissingVenue 比赛文档缺少可解析的场馆 (Phase 2 前置条件)
	ErrMissingVenue = errors.New("game has no resolvable venue")

	// ErrInvalidDocument 文档无法解析
	ErrInvalidDocument = errors.New("invalid game document")

	// ErrStorageFailed 存储失败错误
	ErrStorageFailed = errors.New("storage failed")
)

// PopulateError 单场比赛入库失败。整场事务回滚，批次继续。
type PopulateError struct {
	GameID string
	Phase  string
	Cause  error
}

func (e *PopulateError) Error() string {
	return "populate " + e.GameID + " failed in " + e.Phase + ": " + e.Cause.Error()
}

func (e *PopulateError) Unwrap() error {
	return e.Cause
}

// NewPopulateError 创建入库错误
func NewPopulateError(gameID, phase string, cause error) *PopulateError {
	return &PopulateError{GameID: gameID, Phase: phase, Cause: cause}
}
