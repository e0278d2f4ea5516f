package model

import "errors"

var (
	// ErrArticleNotFound 文章不存在
	ErrArticleNotFound = errors.New("文章不存在")

	// ErrStoreUnavailable 存储调用失败，所有Redis错误都会包装该错误
	ErrStoreUnavailable = errors.New("存储不可用")

	// ErrInvalidArgument 参数无效
	ErrInvalidArgument = errors.New("参数无效")
)
