package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSelection 前置条件不满足，未发出任何外部调用。
	ErrInvalidSelection = errors.New("invalid try-on selection")
	// ErrEmptyCategory 分类下没有可试穿的服装。
	ErrEmptyCategory = errors.New("category has no garments")
	// ErrPersistenceFailed 生成结果未能上传到存储。
	ErrPersistenceFailed = errors.New("failed to persist generated image")
	// ErrBatchFullyFailed 批量试穿中所有条目都失败。
	ErrBatchFullyFailed = errors.New("every garment in the batch failed")
	// ErrAlreadyInProgress 当前会话已有试穿在运行。
	ErrAlreadyInProgress = errors.New("a try-on is already in progress")
)

// GenerationError 模型网关调用失败（包括超时与无图片返回）。
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	if e == nil || e.Cause == nil {
		return "generation failed"
	}
	return fmt.Sprintf("generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func invalidSelection(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSelection, reason)
}
