package model

import "errors"

var (
	// ErrValidation：配置阶段的非法输入（代理地址缺少协议前缀、使用次数上限非法、非法头部等）。
	ErrValidation = errors.New("validation error")
	// ErrConfiguration：抓取阶段发现的配置问题（URL 为空、方法不可执行等），不会发出任何请求。
	ErrConfiguration = errors.New("configuration error")
)
